package display

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// RandR 1.2 introduced CRTCs and per-output mode lists.
var randrMinimum = Version{Major: 1, Minor: 2}

// randrBackend reads modes through the X11 RandR extension.
type randrBackend struct {
	version Version
}

func newRandrBackend(target string) (Backend, error) {
	conn, err := xgb.NewConnDisplay(target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer conn.Close()

	// A server without RandR is still a valid platform, just one that fails
	// the capability gate.
	if err := randr.Init(conn); err != nil {
		return &randrBackend{}, nil
	}

	reply, err := randr.QueryVersion(conn, 1, 6).Reply()
	if err != nil {
		return nil, fmt.Errorf("randr version query failed: %w", err)
	}

	return &randrBackend{
		version: Version{Major: int(reply.MajorVersion), Minor: int(reply.MinorVersion)},
	}, nil
}

func (r *randrBackend) Name() string {
	return BackendRandr
}

func (r *randrBackend) APIVersion() Version {
	return r.version
}

func (r *randrBackend) MinimumVersion() Version {
	return randrMinimum
}

func (r *randrBackend) SocketPath(target string) string {
	return x11SocketPath(target)
}

func (r *randrBackend) Attach(target, output string) (Surface, error) {
	conn, err := xgb.NewConnDisplay(target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	s := &randrSurface{
		conn:    conn,
		root:    xproto.Setup(conn).DefaultScreen(conn).Root,
		current: !r.version.Less(Version{Major: 1, Minor: 3}),
	}
	s.fetch = s.queryResources

	id, err := s.resolveOutput(output)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.output = id
	return s, nil
}

type randrSurface struct {
	conn    *xgb.Conn
	root    xproto.Window
	output  randr.Output
	current bool // GetScreenResourcesCurrent available (1.3+)
	fetch   func() (*randrResources, error)

	// snapshot is fetched once at attach on pre-1.3 servers, where every
	// GetScreenResources rescans the outputs.
	snapshot *randrResources
}

type randrResources struct {
	timestamp xproto.Timestamp
	outputs   []randr.Output
	modes     []randr.ModeInfo
}

func (s *randrSurface) resources() (*randrResources, error) {
	if s.current {
		return s.fetch()
	}
	if s.snapshot != nil {
		return s.snapshot, nil
	}

	res, err := s.fetch()
	if err != nil {
		return nil, err
	}
	s.snapshot = res
	return res, nil
}

func (s *randrSurface) queryResources() (*randrResources, error) {
	if s.current {
		reply, err := randr.GetScreenResourcesCurrent(s.conn, s.root).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to get screen resources: %w", err)
		}
		return &randrResources{reply.ConfigTimestamp, reply.Outputs, reply.Modes}, nil
	}

	reply, err := randr.GetScreenResources(s.conn, s.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}
	return &randrResources{reply.ConfigTimestamp, reply.Outputs, reply.Modes}, nil
}

// resolveOutput finds the output by name, or the primary output, falling
// back to the first connected output driving a CRTC.
func (s *randrSurface) resolveOutput(name string) (randr.Output, error) {
	res, err := s.resources()
	if err != nil {
		return 0, err
	}

	if name == "" {
		if primary, err := randr.GetOutputPrimary(s.conn, s.root).Reply(); err == nil && primary.Output != 0 {
			return primary.Output, nil
		}
	}

	for _, out := range res.outputs {
		info, err := randr.GetOutputInfo(s.conn, out, res.timestamp).Reply()
		if err != nil {
			continue
		}
		if name != "" {
			if string(info.Name) == name {
				return out, nil
			}
			continue
		}
		if info.Connection == randr.ConnectionConnected && info.Crtc != 0 {
			return out, nil
		}
	}

	if name != "" {
		return 0, fmt.Errorf("output %q not found", name)
	}
	return 0, fmt.Errorf("no active output found")
}

func (s *randrSurface) Modes() ([]Mode, error) {
	res, err := s.resources()
	if err != nil {
		return nil, err
	}

	info, err := randr.GetOutputInfo(s.conn, s.output, res.timestamp).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get output info: %w", err)
	}

	byID := indexModeInfos(res.modes)
	modes := make([]Mode, 0, len(info.Modes))
	for _, id := range info.Modes {
		mi, ok := byID[uint32(id)]
		if !ok {
			continue
		}
		modes = append(modes, modeFromRandr(mi))
	}
	return modes, nil
}

func (s *randrSurface) ActiveMode() (Mode, error) {
	res, err := s.resources()
	if err != nil {
		return Mode{}, err
	}

	info, err := randr.GetOutputInfo(s.conn, s.output, res.timestamp).Reply()
	if err != nil {
		return Mode{}, fmt.Errorf("failed to get output info: %w", err)
	}
	if info.Crtc == 0 {
		return Mode{}, fmt.Errorf("output %s is not driving a CRTC", info.Name)
	}

	crtc, err := randr.GetCrtcInfo(s.conn, info.Crtc, res.timestamp).Reply()
	if err != nil {
		return Mode{}, fmt.Errorf("failed to get crtc info: %w", err)
	}

	mi, ok := indexModeInfos(res.modes)[uint32(crtc.Mode)]
	if !ok {
		return Mode{}, fmt.Errorf("active mode %d not in screen resources", crtc.Mode)
	}
	return modeFromRandr(mi), nil
}

func (s *randrSurface) Close() error {
	s.conn.Close()
	return nil
}

func indexModeInfos(infos []randr.ModeInfo) map[uint32]randr.ModeInfo {
	byID := make(map[uint32]randr.ModeInfo, len(infos))
	for _, mi := range infos {
		byID[mi.Id] = mi
	}
	return byID
}

func modeFromRandr(mi randr.ModeInfo) Mode {
	return Mode{
		ID:          int(mi.Id),
		Width:       int(mi.Width),
		Height:      int(mi.Height),
		RefreshRate: randrRefreshRate(mi),
	}
}

// randrRefreshRate derives Hz from the mode timings the same way xrandr does.
func randrRefreshRate(mi randr.ModeInfo) float64 {
	vtotal := float64(mi.Vtotal)
	if mi.ModeFlags&randr.ModeFlagDoubleScan != 0 {
		vtotal *= 2
	}
	if mi.ModeFlags&randr.ModeFlagInterlace != 0 {
		vtotal /= 2
	}
	if mi.Htotal == 0 || vtotal == 0 {
		return 0
	}

	rate := float64(mi.DotClock) / (float64(mi.Htotal) * vtotal)
	return math.Round(rate*1000) / 1000
}

// x11SocketPath maps ":1" or ":1.0" to /tmp/.X11-unix/X1. Remote displays
// have no local socket.
func x11SocketPath(target string) string {
	if target == "" {
		target = os.Getenv("DISPLAY")
	}
	host, rest, ok := strings.Cut(target, ":")
	if !ok || (host != "" && host != "unix") {
		return ""
	}

	number, _, _ := strings.Cut(rest, ".")
	if _, err := strconv.Atoi(number); err != nil {
		return ""
	}
	return "/tmp/.X11-unix/X" + number
}
