package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// EnvToolsDir overrides the install root for downloaded tools.
const EnvToolsDir = "KIDEP_TOOLS_DIR"

// Layout captures the canonical locations below the per-user install root.
type Layout struct {
	Root         string
	BinDir       string
	LibDir       string
	EtcDir       string
	DownloadsDir string
	LogsDir      string
	Manifest     string
	ReleaseCache string
}

// Resolve determines the install root. KIDEP_TOOLS_DIR wins over the
// configured directory, which wins over the platform default.
func Resolve(configured string) (Layout, error) {
	if override, ok := os.LookupEnv(EnvToolsDir); ok && strings.TrimSpace(override) != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return Layout{}, fmt.Errorf("resolve %s: %w", EnvToolsDir, err)
		}
		return NewLayout(abs), nil
	}
	if configured = strings.TrimSpace(configured); configured != "" {
		expanded, err := expandHome(configured)
		if err != nil {
			return Layout{}, err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return Layout{}, fmt.Errorf("resolve tools dir: %w", err)
		}
		return NewLayout(abs), nil
	}
	root, err := defaultRoot()
	if err != nil {
		return Layout{}, err
	}
	return NewLayout(root), nil
}

// NewLayout derives every location from root.
func NewLayout(root string) Layout {
	return Layout{
		Root:         root,
		BinDir:       filepath.Join(root, "bin"),
		LibDir:       filepath.Join(root, "lib"),
		EtcDir:       filepath.Join(root, "etc"),
		DownloadsDir: filepath.Join(root, "downloads"),
		LogsDir:      filepath.Join(root, "logs"),
		Manifest:     filepath.Join(root, "manifest.json"),
		ReleaseCache: filepath.Join(root, "release_cache.json"),
	}
}

func defaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "kidep"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "kidep"), nil
		}
		return filepath.Join(home, "AppData", "Local", "kidep"), nil
	default:
		return filepath.Join(home, ".local", "share", "kidep"), nil
	}
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Ensure creates the bin, lib, etc, downloads and logs directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.BinDir, l.LibDir, l.EtcDir, l.DownloadsDir, l.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Bin returns the path of name inside the bin directory.
func (l Layout) Bin(name string) string {
	return filepath.Join(l.BinDir, name)
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// IsExecutable reports whether path is a regular file with an execute bit.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
