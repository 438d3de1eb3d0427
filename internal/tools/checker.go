package tools

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
)

// toleratedExitCode is what old tools without a version option exit with
// after printing their help text.
const toleratedExitCode = 2

type cachedVersion struct {
	version Version
	known   bool
}

// VersionCache maps an absolute executable path to its probed version, or to
// an unknown marker when the probe could not parse one. Entries are never
// invalidated.
type VersionCache struct {
	entries map[string]cachedVersion
	probes  int
}

// NewVersionCache returns an empty cache.
func NewVersionCache() *VersionCache {
	return &VersionCache{entries: map[string]cachedVersion{}}
}

// Lookup returns the cached version for path. found is false when path was
// never probed; known is false when it was probed without a usable result.
func (c *VersionCache) Lookup(path string) (v Version, known, found bool) {
	entry, found := c.entries[path]
	return entry.version, entry.known, found
}

func (c *VersionCache) store(path string, v Version, known bool) {
	c.entries[path] = cachedVersion{version: v, known: known}
}

// Probes returns how many times a binary was actually invoked.
func (c *VersionCache) Probes() int {
	return c.probes
}

// Checker validates candidate executables against a dependency's version needs.
type Checker struct {
	Runner    Runner
	Cache     *VersionCache
	Logger    *log.Logger
	Minimums  map[string]Version
	lastFound map[string]Version
}

// NewChecker wires a checker with an empty cache.
func NewChecker(runner Runner, logger *log.Logger, minimums map[string]Version) *Checker {
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Checker{
		Runner:    runner,
		Cache:     NewVersionCache(),
		Logger:    logger,
		Minimums:  minimums,
		lastFound: map[string]Version{},
	}
}

// Minimum returns the effective minimum for dep, including configured overrides
// that are stricter than the roles.
func (c *Checker) Minimum(dep Dependency) Version {
	needs := dep.EffectiveMinimum()
	if override, ok := c.Minimums[strings.ToLower(dep.Name)]; ok && override.Compare(needs) > 0 {
		needs = override
	}
	return needs
}

// Check returns path when the binary there reports a version satisfying dep.
func (c *Checker) Check(ctx context.Context, path string, dep Dependency, bypassCache bool) (string, error) {
	c.Logger.Debug("checking version", "path", path)
	if dep.NoCmdLineVersion {
		c.Logger.Debug("tool has no version option, assuming usable", "tool", dep.Name)
		return path, nil
	}

	needs := c.Minimum(dep)
	if needs.IsZero() {
		c.Logger.Debug("no particular version needed", "tool", dep.Name)
	} else {
		c.Logger.Debug("needed version", "tool", dep.Name, "version", needs)
	}

	var (
		version Version
		known   bool
		stderr  string
		runErr  error
	)
	if cached, ok, found := c.Cache.Lookup(path); found && !bypassCache {
		version, known = cached, ok
		c.Logger.Debug("cached version", "path", path, "version", version, "known", known)
	} else {
		version, known, stderr, runErr = c.probe(ctx, path, dep)
		c.Cache.store(path, version, known)
		c.Logger.Debug("found version", "path", path, "version", version, "known", known)
	}

	if !known {
		e := wrapError(ReasonVersionMismatch, runErr, "%s reports no usable version", path)
		e.Stderr = stderr
		return "", e
	}
	if !version.AtLeast(needs) {
		e := newError(ReasonVersionMismatch, "%s is version %s, need %s", path, version, needs)
		e.Stderr = stderr
		return "", e
	}
	c.lastFound[path] = version
	return path, nil
}

// FoundVersion returns the version last validated for path.
func (c *Checker) FoundVersion(path string) (Version, bool) {
	v, ok := c.lastFound[path]
	return v, ok
}

func (c *Checker) probe(ctx context.Context, path string, dep Dependency) (Version, bool, string, error) {
	name, args := path, []string{dep.VersionFlag}
	if dep.Plugin {
		name, args = "python3", []string{path, dep.VersionFlag}
	}
	c.Cache.probes++
	res := c.Runner.Run(ctx, "", name, args...)
	if res.Err != nil && !(dep.NoCmdLineVersionOld && res.ExitCode == toleratedExitCode) {
		c.Logger.Debug("failed to run", "command", name, "exit", res.ExitCode, "err", res.Err)
		if out := strings.TrimSpace(res.Stdout); out != "" {
			c.Logger.Debug("output from command", "output", out)
		}
		return Version{}, false, res.Stderr, commandError(name, res)
	}
	v, ok := versionFromOutput(dep, res.Stdout)
	return v, ok, res.Stderr, nil
}
