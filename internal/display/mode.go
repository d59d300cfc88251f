// Package display answers two read-only questions about the attached
// display: which modes it supports and which one is in effect.
package display

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrCapabilityUnsupported is returned when the platform display API is
	// older than the backend's minimum version.
	ErrCapabilityUnsupported = errors.New("display mode API unsupported")

	// ErrHandleUnavailable is returned when no display is attached, or the
	// handle was released before the query could start.
	ErrHandleUnavailable = errors.New("display not attached")

	// ErrNoModes is returned when the platform reports an empty mode list.
	ErrNoModes = errors.New("display reported no modes")
)

// Mode is one hardware-reported combination of resolution and refresh rate.
// IDs are only unique within a single query.
type Mode struct {
	ID          int     `json:"modeId"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	RefreshRate float64 `json:"refreshRate"`
}

// Record returns the mode as a wire record.
func (m Mode) Record() map[string]any {
	return map[string]any{
		"modeId":      m.ID,
		"width":       m.Width,
		"height":      m.Height,
		"refreshRate": m.RefreshRate,
	}
}

func (m Mode) String() string {
	return fmt.Sprintf("#%d %dx%d@%.2fHz", m.ID, m.Width, m.Height, m.RefreshRate)
}

// Version is a dotted API version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion accepts "1", "1.2" and "1.2.3", ignoring a leading "v" and
// any suffix after the numeric part ("0.4.1-dev").
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Version{}, fmt.Errorf("empty version")
	}
	if i := strings.IndexFunc(s, func(r rune) bool {
		return r != '.' && (r < '0' || r > '9')
	}); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
