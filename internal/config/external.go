package config

import (
	"fmt"
	"os"
	"path/filepath"

	"kidep/internal/tools"
)

// resolveExternalPath returns path as-is if absolute, otherwise joins it with root.
func resolveExternalPath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Registry returns the embedded dependency registry extended with the
// configured registry files. Relative files are resolved against root.
// Entries from a file replace embedded entries of the same name.
func (c Config) Registry(root string) (*tools.Registry, error) {
	reg := tools.DefaultRegistry()
	if len(c.RegistryFiles) == 0 {
		return reg, nil
	}
	merged := reg.Clone()
	for _, relPath := range c.RegistryFiles {
		data, err := os.ReadFile(resolveExternalPath(root, relPath))
		if err != nil {
			return nil, fmt.Errorf("load registry file %q: %w", relPath, err)
		}
		extra, err := tools.ParseRegistry(data)
		if err != nil {
			return nil, fmt.Errorf("registry file %q: %w", relPath, err)
		}
		merged.Merge(extra)
	}
	return merged, nil
}
