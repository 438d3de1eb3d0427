package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StrategyKind names one of the closed set of acquisition strategies.
type StrategyKind string

const (
	StrategyTarball       StrategyKind = "tarball"
	StrategyAppImage      StrategyKind = "appimage"
	StrategyStaticWrapper StrategyKind = "static-wrapper"
	StrategyPip           StrategyKind = "pip"
	StrategyBinary        StrategyKind = "binary"
)

// Strategy acquires dep for plat and returns the validated executable path.
type Strategy func(ctx context.Context, r *Resolver, dep Dependency, plat Platform) (string, error)

// defaultStrategies is the lookup table from kind to implementation.
func defaultStrategies() map[StrategyKind]Strategy {
	return map[StrategyKind]Strategy{
		StrategyTarball:       acquireTarball,
		StrategyAppImage:      acquireAppImage,
		StrategyStaticWrapper: acquireStaticWrapper,
		StrategyPip:           acquirePip,
		StrategyBinary:        acquireBinary,
	}
}

// Valid reports whether k is a known strategy kind.
func (k StrategyKind) Valid() bool {
	switch k {
	case StrategyTarball, StrategyAppImage, StrategyStaticWrapper, StrategyPip, StrategyBinary:
		return true
	}
	return false
}

// UnmarshalYAML rejects unknown strategy kinds while loading the registry.
func (k *StrategyKind) UnmarshalYAML(node *yaml.Node) error {
	kind := StrategyKind(node.Value)
	if !kind.Valid() {
		return fmt.Errorf("line %d: unknown acquisition kind %q", node.Line, node.Value)
	}
	*k = kind
	return nil
}

// writeExecutable atomically stores content as name inside dir with mode 0755.
func writeExecutable(dir, name string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o755); err != nil {
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	dest := filepath.Join(dir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("install %s: %w", name, err)
	}
	cleanup = false
	return dest, nil
}

// fetchArtifact locates and downloads the acquisition's artifact, reporting
// progress for dep.
func (r *Resolver) fetchArtifact(ctx context.Context, dep Dependency, plat Platform) ([]byte, error) {
	url, err := r.locate(ctx, dep, plat)
	if err != nil {
		return nil, err
	}
	r.observer.Stage(dep.Name, "downloading")
	return r.downloader.Fetch(ctx, url, func(f float64) {
		r.observer.Progress(dep.Name, f)
	})
}

// acquireBinary downloads the artifact and installs it as the executable.
func acquireBinary(ctx context.Context, r *Resolver, dep Dependency, plat Platform) (string, error) {
	data, err := r.fetchArtifact(ctx, dep, plat)
	if err != nil {
		return "", err
	}
	dest, err := writeExecutable(r.layout.BinDir, dep.Acquire.InstallName(dep), data)
	if err != nil {
		return "", err
	}
	return r.validateInstalled(ctx, dest, dep)
}

// validateInstalled checks a freshly written executable bypassing the cache
// and removes it when it is not usable.
func (r *Resolver) validateInstalled(ctx context.Context, dest string, dep Dependency) (string, error) {
	r.observer.Stage(dep.Name, "validating")
	path, err := r.check(ctx, dest, dep, true)
	if err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return path, nil
}
