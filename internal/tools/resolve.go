package tools

import (
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"kidep/internal/paths"
)

const metadataMemoSize = 64

// Observer receives stage changes and download progress while a dependency
// is resolved.
type Observer interface {
	Stage(tool, stage string)
	Progress(tool string, fraction float64)
}

type nopObserver struct{}

func (nopObserver) Stage(string, string)     {}
func (nopObserver) Progress(string, float64) {}

// Options configures a Resolver. Zero values select the defaults.
type Options struct {
	// Layout is the install root. An empty Root disables acquisition.
	Layout         paths.Layout
	Platform       func() Platform
	Runner         Runner
	LookPath       func(string) (string, error)
	Logger         *log.Logger
	Observer       Observer
	Minimums       map[string]Version
	PluginRoots    []string
	PythonUserBase string
	NoDownload     bool
	Timeout        time.Duration
	UserAgent      string
	GitHubAPI      string
	Strategies     map[StrategyKind]Strategy
}

// Resolver runs the resolution pipeline. It owns the version cache and the
// metadata memo for one run and is not safe for concurrent use.
type Resolver struct {
	layout      paths.Layout
	platform    func() Platform
	runner      Runner
	lookPath    func(string) (string, error)
	logger      *log.Logger
	observer    Observer
	checker     *Checker
	downloader  *Downloader
	strategies  map[StrategyKind]Strategy
	pluginRoots []string
	userBase    string
	noDownload  bool
	githubAPI   string
	releases    *releaseCache
	memo        *lru.Cache[string, []byte]

	lastCheckErr error
}

// New builds a resolver from opts.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	runner := opts.Runner
	if runner == nil {
		runner = execRunner{}
	}
	r := &Resolver{
		layout:      opts.Layout,
		platform:    opts.Platform,
		runner:      runner,
		lookPath:    opts.LookPath,
		logger:      logger,
		observer:    opts.Observer,
		checker:     NewChecker(runner, logger, opts.Minimums),
		downloader:  NewDownloader(opts.Timeout, opts.UserAgent, logger),
		strategies:  opts.Strategies,
		pluginRoots: opts.PluginRoots,
		userBase:    opts.PythonUserBase,
		noDownload:  opts.NoDownload,
		githubAPI:   opts.GitHubAPI,
		releases:    newReleaseCache(opts.Layout.ReleaseCache),
	}
	if r.platform == nil {
		r.platform = DetectPlatform
	}
	if r.lookPath == nil {
		r.lookPath = exec.LookPath
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	if r.strategies == nil {
		r.strategies = defaultStrategies()
	}
	if r.githubAPI == "" {
		r.githubAPI = DefaultGitHubAPI
	}
	r.memo, _ = lru.New[string, []byte](metadataMemoSize)
	return r
}

// Checker exposes the version checker, mainly for reporting.
func (r *Resolver) Checker() *Checker {
	return r.checker
}

// Layout returns the install layout the resolver acquires into.
func (r *Resolver) Layout() paths.Layout {
	return r.layout
}

type source struct {
	name Source
	find func(ctx context.Context, dep Dependency) (string, error)
}

// Resolve runs the ordered sources for dep and stops at the first one that
// yields a validated executable.
func (r *Resolver) Resolve(ctx context.Context, dep Dependency) Resolution {
	r.logger.Debug("starting tool check", "tool", dep.Name)
	r.lastCheckErr = nil
	res := Resolution{Dependency: dep}
	if dep.Python {
		r.logger.Debug("tool is checked as a Python module", "tool", dep.Name)
		res.Err = newError(ReasonNotFound, "%s is not resolved as a binary", dep.Name)
		return res
	}

	sources := []source{
		{name: SourceSystem, find: r.findSystem},
		{name: SourcePython, find: r.findPython},
		{name: SourceCache, find: r.findCache},
		{name: SourceDownload, find: r.acquire},
	}
	var lastErr error
	for _, src := range sources {
		path, err := src.find(ctx, dep)
		if err != nil {
			r.logger.Debug("source failed", "tool", dep.Name, "source", src.name, "err", err)
			lastErr = err
			continue
		}
		if path == "" {
			continue
		}
		res.Path = path
		res.Source = src.name
		if src.name == SourceSystem && dep.Plugin {
			res.Source = SourcePlugin
		}
		if v, ok := r.checker.FoundVersion(path); ok {
			res.Version = v.String()
		}
		if src.name == SourceDownload {
			r.usingDownloaded(dep)
			if err := recordInstall(r.layout.Manifest, res); err != nil {
				r.logger.Debug("failed to update manifest", "err", err)
			}
		}
		r.logger.Debug("returning", "tool", dep.Name, "path", path)
		r.observer.Stage(dep.Name, "found")
		return res
	}

	if ReasonOf(r.lastCheckErr) == ReasonVersionMismatch {
		res.Err = r.lastCheckErr
	} else {
		res.Err = wrapError(ReasonNotFound, lastErr, "%s not found", dep.Command)
	}
	r.observer.Stage(dep.Name, "missing")
	return res
}

// check validates path and remembers the outcome for the final reason.
func (r *Resolver) check(ctx context.Context, path string, dep Dependency, bypassCache bool) (string, error) {
	found, err := r.checker.Check(ctx, path, dep, bypassCache)
	r.lastCheckErr = err
	return found, err
}

func (r *Resolver) findSystem(ctx context.Context, dep Dependency) (string, error) {
	r.logger.Debug("looking for tool at system level", "command", dep.Command)
	var path string
	if dep.Plugin {
		path = searchPlugin(dep.Command, dep.PluginDirs, r.pluginRoots)
	} else if found, err := r.lookPath(dep.Command); err == nil {
		path = found
	}
	if path == "" {
		return "", nil
	}
	return r.check(ctx, path, dep, false)
}

func (r *Resolver) findPython(ctx context.Context, dep Dependency) (string, error) {
	base, err := r.pythonUserBase(ctx)
	if err != nil {
		return "", nil
	}
	path := filepath.Join(base, "bin", dep.Command)
	r.logger.Debug("looking for tool at Python user site", "command", dep.Command, "dir", filepath.Dir(path))
	if !paths.IsExecutable(path) {
		return "", nil
	}
	return r.check(ctx, path, dep, false)
}

func (r *Resolver) findCache(ctx context.Context, dep Dependency) (string, error) {
	if r.layout.Root == "" {
		return "", nil
	}
	r.logger.Debug("looking for tool at user level", "command", dep.Command)
	path := r.layout.Bin(dep.Command)
	if !paths.IsExecutable(path) {
		return "", nil
	}
	found, err := r.check(ctx, path, dep, false)
	if err != nil {
		return "", err
	}
	r.usingDownloaded(dep)
	return found, nil
}

func (r *Resolver) acquire(ctx context.Context, dep Dependency) (string, error) {
	acq := dep.Acquire
	if acq == nil || r.noDownload || r.layout.Root == "" {
		return "", nil
	}
	strategy, ok := r.strategies[acq.Kind]
	if !ok {
		return "", newError(ReasonUnsupported, "unknown acquisition kind %q", acq.Kind)
	}
	plat := r.platform()
	r.logger.Debug("platform", "os", plat.OS, "arch", plat.Arch)
	if !plat.Supports(acq.Platforms) {
		r.logger.Debug("no binary for this system", "tool", dep.Name, "platform", plat)
		return "", newError(ReasonUnsupported, "no %s download for %s", dep.Name, plat)
	}
	if err := r.layout.Ensure(); err != nil {
		return "", err
	}
	release, err := acquireLock(ctx, r.layout.Root, dep.Name, r.logger)
	if err != nil {
		return "", err
	}
	defer release()
	r.logger.Info("trying to download", "tool", dep.Name, "url", dep.URLDown)
	r.observer.Stage(dep.Name, "acquiring")
	return strategy(ctx, r, dep, plat)
}

func (r *Resolver) usingDownloaded(dep Dependency) {
	r.logger.Warn("using downloaded tool, please visit the home page for details", "command", dep.Command, "url", dep.URL)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
