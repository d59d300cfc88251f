// Package platform reports the host platform name and version.
package platform

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sys/unix"
)

var (
	hostInfo = host.Info
	uname    = unix.Uname
)

// Version returns "<OS> <version>", e.g. "Linux 6.8.0-45-generic". It never
// fails and never returns an empty string.
func Version() string {
	if info, err := hostInfo(); err == nil && info.KernelVersion != "" {
		return format(info.OS, info.KernelVersion)
	}

	var u unix.Utsname
	if err := uname(&u); err == nil {
		if release := unix.ByteSliceToString(u.Release[:]); release != "" {
			return format(unix.ByteSliceToString(u.Sysname[:]), release)
		}
	}

	return format(runtime.GOOS, "unknown")
}

func format(osName, version string) string {
	if osName == "" {
		osName = runtime.GOOS
	}
	return displayName(osName) + " " + version
}

func displayName(osName string) string {
	switch strings.ToLower(osName) {
	case "linux":
		return "Linux"
	case "freebsd":
		return "FreeBSD"
	case "openbsd":
		return "OpenBSD"
	case "netbsd":
		return "NetBSD"
	case "darwin":
		return "macOS"
	default:
		return osName
	}
}
