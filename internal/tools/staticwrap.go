package tools

import (
	"bytes"
	"context"
	"os"
)

// realSuffix marks the patched binary a static wrapper runs.
const realSuffix = ".real"

// acquireStaticWrapper installs a statically linked binary whose data
// directory was baked in at build time. The baked path is rewritten to a
// fixed link location of the same length and a wrapper points that link at
// the install root before every run. Only a few tools need this.
func acquireStaticWrapper(ctx context.Context, r *Resolver, dep Dependency, plat Platform) (string, error) {
	acq := dep.Acquire
	if len(acq.BakedPath) == 0 || len(acq.BakedPath) != len(acq.LinkPath) {
		return "", newError(ReasonUnsupported, "%s: baked path %q and link path %q must have the same length",
			dep.Name, acq.BakedPath, acq.LinkPath)
	}
	data, err := r.fetchArtifact(ctx, dep, plat)
	if err != nil {
		return "", err
	}
	patched := bytes.ReplaceAll(data, []byte(acq.BakedPath), []byte(acq.LinkPath))

	name := acq.InstallName(dep)
	real, err := writeExecutable(r.layout.BinDir, name+realSuffix, patched)
	if err != nil {
		return "", err
	}
	script := linkWrapper(acq.LinkPath, r.layout.Root, real)
	wrapper, err := writeExecutable(r.layout.BinDir, name, []byte(script))
	if err != nil {
		_ = os.Remove(real)
		return "", err
	}
	path, err := r.validateInstalled(ctx, wrapper, dep)
	if err != nil {
		_ = os.Remove(real)
		return "", err
	}
	return path, nil
}
