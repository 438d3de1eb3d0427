package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kidep/internal/paths"
)

const appImageExtractDir = "squashfs-root"

// fuseMissing reports whether stderr from a failed AppImage run points at
// missing FUSE support.
func fuseMissing(stderr string) bool {
	stderr = strings.TrimSpace(stderr)
	return strings.Contains(stderr, "libfuse.so") ||
		strings.Contains(stderr, "FUSE") ||
		strings.HasPrefix(stderr, "fuse")
}

// acquireAppImage installs a self-contained executable. When the host cannot
// mount it, the bundle is unpacked and relocated under the install root and a
// wrapper script takes the command's place.
func acquireAppImage(ctx context.Context, r *Resolver, dep Dependency, plat Platform) (string, error) {
	data, err := r.fetchArtifact(ctx, dep, plat)
	if err != nil {
		return "", err
	}
	name := dep.Acquire.InstallName(dep)
	dest, err := writeExecutable(r.layout.BinDir, name, data)
	if err != nil {
		return "", err
	}

	r.observer.Stage(dep.Name, "validating")
	path, checkErr := r.check(ctx, dest, dep, true)
	if checkErr == nil {
		return path, nil
	}
	stderr := stderrOf(checkErr)
	if !fuseMissing(stderr) {
		r.logger.Debug("unknown fail reason", "tool", dep.Name, "stderr", stderr)
		_ = os.Remove(dest)
		e := wrapError(ReasonCommand, checkErr, "%s is not runnable", dest)
		e.Stderr = stderr
		return "", e
	}
	r.logger.Debug("no FUSE support, relocating bundle", "tool", dep.Name)
	return relocateAppImage(ctx, r, dep, dest)
}

func relocateAppImage(ctx context.Context, r *Resolver, dep Dependency, dest string) (string, error) {
	acq := dep.Acquire
	if acq.Binary == "" {
		_ = os.Remove(dest)
		return "", newError(ReasonUnsupported, "%s: relocation needs a bundled binary name", dep.Name)
	}
	layout := r.layout
	extractDir := filepath.Join(layout.BinDir, appImageExtractDir)
	if err := os.RemoveAll(extractDir); err != nil {
		return "", fmt.Errorf("clear %s: %w", extractDir, err)
	}
	done := false
	// installed lists what has been moved out of the extraction so far.
	var installed []string
	defer func() {
		_ = os.RemoveAll(extractDir)
		if !done {
			_ = os.Remove(dest)
			for _, path := range installed {
				_ = os.RemoveAll(path)
			}
		}
	}()

	r.observer.Stage(dep.Name, "relocating")
	res := r.runner.Run(ctx, layout.BinDir, dest, "--appimage-extract")
	if res.Err != nil {
		return "", commandError(dest, res)
	}
	if ok, _ := paths.DirExists(extractDir); !ok {
		e := newError(ReasonExtraction, "%s did not unpack into %s", dest, extractDir)
		e.Stderr = strings.TrimSpace(res.Stderr)
		return "", e
	}

	usr := filepath.Join(extractDir, "usr")
	moved, err := moveBinaries(filepath.Join(usr, "bin"), layout.BinDir, dep.Command)
	installed = append(installed, moved...)
	if err != nil {
		return "", err
	}

	libName := acq.LibName
	if libName == "" {
		libName = dep.Name
	}
	libSrc := filepath.Join(usr, "lib")
	if ok, _ := paths.DirExists(libSrc); !ok {
		return "", newError(ReasonExtraction, "no libraries found after extracting %s", dest)
	}
	libRoot := filepath.Join(layout.LibDir, libName)
	if err := os.RemoveAll(libRoot); err != nil {
		return "", fmt.Errorf("clear %s: %w", libRoot, err)
	}
	installed = append(installed, libRoot)
	if err := os.MkdirAll(libRoot, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", libRoot, err)
	}
	libDir := filepath.Join(libRoot, "lib")
	if err := os.Rename(libSrc, libDir); err != nil {
		return "", wrapError(ReasonExtraction, err, "move libraries")
	}

	configDir, err := moveConfig(filepath.Join(usr, "etc"), layout.EtcDir)
	if err != nil {
		return "", err
	}
	installed = append(installed, configDir)

	if err := os.Remove(dest); err != nil {
		return "", fmt.Errorf("remove %s: %w", dest, err)
	}
	script := relocationWrapper(relocatedEnv{
		LibDir:    libDir,
		BinDir:    layout.BinDir,
		ConfigEnv: acq.ConfigEnv,
		ConfigDir: configDir,
	}, filepath.Join(layout.BinDir, acq.Binary), acq.Subcommand)
	wrapper, err := writeExecutable(layout.BinDir, filepath.Base(dest), []byte(script))
	if err != nil {
		return "", err
	}
	done = true
	return r.validateInstalled(ctx, wrapper, dep)
}

// moveBinaries moves every file of src into bin, leaving out skip, and
// returns the paths it created, including on failure.
func moveBinaries(src, bin, skip string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, wrapError(ReasonExtraction, err, "read %s", src)
	}
	var moved []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == skip {
			continue
		}
		target := filepath.Join(bin, entry.Name())
		_ = os.Remove(target)
		if err := os.Rename(filepath.Join(src, entry.Name()), target); err != nil {
			return moved, wrapError(ReasonExtraction, err, "move %s", entry.Name())
		}
		moved = append(moved, target)
	}
	if len(moved) == 0 {
		return nil, newError(ReasonExtraction, "no binaries found in %s", src)
	}
	return moved, nil
}

// moveConfig moves the single configuration directory of src into etc and
// returns its new location.
func moveConfig(src, etc string) (string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return "", wrapError(ReasonExtraction, err, "read %s", src)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	if len(dirs) != 1 {
		return "", newError(ReasonExtraction, "expected one config dir in %s, found %v", src, dirs)
	}
	if err := os.MkdirAll(etc, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", etc, err)
	}
	target := filepath.Join(etc, dirs[0])
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("clear %s: %w", target, err)
	}
	if err := os.Rename(filepath.Join(src, dirs[0]), target); err != nil {
		return "", wrapError(ReasonExtraction, err, "move config %s", dirs[0])
	}
	return target, nil
}
