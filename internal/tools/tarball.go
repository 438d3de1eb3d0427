package tools

import (
	"context"
	"os"
	"path/filepath"
)

// acquireTarball downloads an archive, installs the first member matching the
// acquisition's glob and optionally links a short alias to it.
func acquireTarball(ctx context.Context, r *Resolver, dep Dependency, plat Platform) (string, error) {
	acq := dep.Acquire
	data, err := r.fetchArtifact(ctx, dep, plat)
	if err != nil {
		return "", err
	}

	name := acq.InstallName(dep)
	member := acq.Member
	if member == "" {
		member = name
	}
	r.observer.Stage(dep.Name, "extracting")
	content, err := extractMember(data, member)
	if err != nil {
		r.logger.Debug("failed to extract", "tool", dep.Name, "err", err)
		return "", err
	}

	dest, err := writeExecutable(r.layout.BinDir, name, content)
	if err != nil {
		return "", err
	}
	path, err := r.validateInstalled(ctx, dest, dep)
	if err != nil {
		return "", err
	}

	if acq.Alias != "" {
		alias := filepath.Join(r.layout.BinDir, acq.Alias)
		if _, statErr := os.Lstat(alias); os.IsNotExist(statErr) {
			if err := os.Symlink(dest, alias); err != nil {
				r.logger.Debug("failed to create alias", "alias", alias, "err", err)
			}
		}
	}
	return path, nil
}
