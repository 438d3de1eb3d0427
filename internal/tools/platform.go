package tools

import (
	"path"
	"runtime"
	"strings"
)

// OSFamily is the operating system bucket used to select downloads.
type OSFamily string

const (
	OSLinux   OSFamily = "linux"
	OSDarwin  OSFamily = "darwin"
	OSWindows OSFamily = "windows"
	OSOther   OSFamily = "other"
)

// Arch is the normalized CPU architecture bucket.
type Arch string

const (
	ArchX86_64  Arch = "x86_64"
	ArchX86_32  Arch = "x86_32"
	ArchARM64   Arch = "arm64"
	ArchUnknown Arch = "unknown"
)

// Platform describes the host a strategy is asked to download for.
type Platform struct {
	OS   OSFamily
	Arch Arch
}

func (p Platform) String() string {
	return string(p.OS) + "/" + string(p.Arch)
}

// DetectPlatform returns the platform of the running process.
func DetectPlatform() Platform {
	return Platform{OS: ParseOS(runtime.GOOS), Arch: ParseArch(runtime.GOARCH)}
}

// ParseOS maps an OS identification string to its family.
func ParseOS(ident string) OSFamily {
	switch strings.ToLower(ident) {
	case "linux":
		return OSLinux
	case "darwin", "macos":
		return OSDarwin
	case "windows":
		return OSWindows
	default:
		return OSOther
	}
}

// ParseArch maps architecture identification strings (GOARCH values, uname -m
// output or platform strings containing them) to a bucket.
func ParseArch(ident string) Arch {
	s := strings.ToLower(ident)
	switch {
	case strings.Contains(s, "x86_64"), strings.Contains(s, "amd64"):
		return ArchX86_64
	case strings.Contains(s, "x86_32"), strings.Contains(s, "i386"),
		strings.Contains(s, "i686"), s == "386":
		return ArchX86_32
	case strings.Contains(s, "arm64"), strings.Contains(s, "aarch64"):
		return ArchARM64
	default:
		return ArchUnknown
	}
}

// Supports reports whether p matches one of the "os/arch" patterns. An
// unknown architecture never matches.
func (p Platform) Supports(patterns []string) bool {
	if p.Arch == ArchUnknown {
		return false
	}
	if len(patterns) == 0 {
		return true
	}
	key := p.String()
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			return true
		}
	}
	return false
}
