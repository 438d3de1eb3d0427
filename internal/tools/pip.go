package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var githubRepoRegex = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/`)

// acquirePip installs the latest GitHub source release of a Python tool with
// pip into the Python user site.
func acquirePip(ctx context.Context, r *Resolver, dep Dependency, plat Platform) (string, error) {
	m := githubRepoRegex.FindStringSubmatch(dep.URLDown)
	if m == nil {
		return "", newError(ReasonUnsupported, "%s: download page %q is not a GitHub repository", dep.Name, dep.URLDown)
	}
	repo := m[1] + "/" + m[2]
	r.logger.Debug("GitHub repo", "repo", repo)

	pip, err := r.pipCommand()
	if err != nil {
		r.logger.Warn("missing Python installation tool (pip)")
		return "", err
	}
	r.logger.Debug("pip command", "path", pip)
	if err := r.ensureWheel(ctx, pip); err != nil {
		return "", err
	}

	release, err := r.latestRelease(ctx, repo)
	if err != nil {
		return "", err
	}
	if release.TarballURL == "" {
		return "", newError(ReasonNotFound, "%s: latest release has no source tarball", repo)
	}
	r.logger.Debug("tarball", "url", release.TarballURL)

	r.observer.Stage(dep.Name, "downloading")
	data, err := r.downloader.Fetch(ctx, release.TarballURL, func(f float64) {
		r.observer.Progress(dep.Name, f)
	})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.layout.DownloadsDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare downloads dir: %w", err)
	}
	scratch, err := os.MkdirTemp(r.layout.DownloadsDir, dep.Name+"-*")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(scratch) }()

	r.observer.Stage(dep.Name, "extracting")
	src, err := untar(data, scratch)
	if err != nil {
		return "", err
	}
	r.logger.Debug("uncompressed tarball", "dir", src)

	r.observer.Stage(dep.Name, "installing")
	res := r.runner.Run(ctx, src, pip, "install", "-U", "--no-warn-script-location", ".")
	if res.Err != nil {
		r.logger.Debug("failed to install using pip", "err", res.Err, "stderr", strings.TrimSpace(res.Stderr))
		return "", commandError(pip, res)
	}

	base, err := r.pythonUserBase(ctx)
	if err != nil {
		return "", err
	}
	r.observer.Stage(dep.Name, "validating")
	return r.check(ctx, filepath.Join(base, "bin", dep.Command), dep, true)
}

func (r *Resolver) pipCommand() (string, error) {
	for _, name := range []string{"pip3", "pip"} {
		if path, err := r.lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", newError(ReasonMissingRuntime, "pip is not installed")
}

// ensureWheel installs wheel when python3 cannot import it; pip fails to build
// downloaded sources without it.
func (r *Resolver) ensureWheel(ctx context.Context, pip string) error {
	if res := r.runner.Run(ctx, "", "python3", "-c", "import wheel"); res.Err == nil {
		return nil
	}
	r.logger.Debug("trying to install wheel")
	res := r.runner.Run(ctx, "", pip, "install", "--no-warn-script-location", "-U", "wheel")
	if res.Err != nil {
		r.logger.Debug("failed to install wheel", "err", res.Err)
		return commandError(pip, res)
	}
	return nil
}

// pythonUserBase returns the configured user base or asks python3 for it.
// The answer is remembered for the rest of the run.
func (r *Resolver) pythonUserBase(ctx context.Context) (string, error) {
	if r.userBase != "" {
		return r.userBase, nil
	}
	res := r.runner.Run(ctx, "", "python3", "-m", "site", "--user-base")
	if res.Err != nil {
		return "", commandError("python3", res)
	}
	base := strings.TrimSpace(res.Stdout)
	if base == "" {
		return "", newError(ReasonMissingRuntime, "python3 reports no user base")
	}
	r.userBase = base
	return base, nil
}
