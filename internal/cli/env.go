package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"kidep/internal/config"
	"kidep/internal/logx"
	"kidep/internal/paths"
	"kidep/internal/tools"
)

// runEnv is the state shared by the commands that resolve dependencies.
type runEnv struct {
	cfgFile  string
	cfg      config.Config
	layout   paths.Layout
	registry *tools.Registry
	logger   *log.Logger
	minimums map[string]tools.Version
	closers  []io.Closer

	// ownsTerminal is set while a full-screen view draws on the terminal;
	// resolver logs then go to a file instead of stderr.
	ownsTerminal bool
	resolverLog  *log.Logger
}

func effectiveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.FileName
}

func loadConfig() (config.Config, string, error) {
	path := effectiveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, path, err
	}
	if toolsDir != "" {
		cfg.ToolsDir = toolsDir
	}
	if noDownload {
		cfg.NoDownload = true
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, path, nil
}

func loadEnv(cmd *cobra.Command) (*runEnv, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logx.New(cmd.ErrOrStderr(), cfg.LogLevel)
	cfgDir := filepath.Dir(path)

	for _, v := range cfg.Validate(cfgDir) {
		if v.Level == "error" {
			return nil, fmt.Errorf("%s: %s", path, v.Message)
		}
		logger.Warn(v.Message, "config", path)
	}

	layout, err := paths.Resolve(cfg.ToolsDir)
	if err != nil {
		return nil, err
	}
	registry, err := cfg.Registry(cfgDir)
	if err != nil {
		return nil, err
	}
	minimums, notes := tools.ParseMinimums(cfg.Minimums)
	for _, note := range notes {
		logger.Warn(note)
	}

	return &runEnv{
		cfgFile:  path,
		cfg:      cfg,
		layout:   layout,
		registry: registry,
		logger:   logger,
		minimums: minimums,
	}, nil
}

// resolverLogger returns the logger handed to the resolver: a debug file
// logger when --log-file is set or the terminal belongs to the progress view.
func (e *runEnv) resolverLogger() *log.Logger {
	if e.resolverLog != nil {
		return e.resolverLog
	}
	e.resolverLog = e.logger
	if !logToFile && !e.ownsTerminal {
		return e.resolverLog
	}
	logger, closer, err := logx.NewFile(e.layout.LogsDir)
	if err != nil {
		e.logger.Warn("cannot open log file", "err", err)
		if e.ownsTerminal {
			e.resolverLog = log.New(io.Discard)
		}
		return e.resolverLog
	}
	e.closers = append(e.closers, closer)
	e.logger.Info("writing debug log", "dir", e.layout.LogsDir)
	e.resolverLog = logger
	return logger
}

func (e *runEnv) newResolver(observer tools.Observer, skipDownload bool) *tools.Resolver {
	return tools.New(tools.Options{
		Layout:         e.layout,
		Logger:         e.resolverLogger(),
		Observer:       observer,
		Minimums:       e.minimums,
		PluginRoots:    e.cfg.PluginRoots(),
		PythonUserBase: e.cfg.PythonUserBase,
		NoDownload:     e.cfg.NoDownload || skipDownload,
		Timeout:        e.cfg.DownloadTimeout(),
		UserAgent:      e.cfg.UserAgent,
	})
}

func (e *runEnv) Close() {
	for _, c := range e.closers {
		_ = c.Close()
	}
}

// selectDependencies returns the named dependencies, or every command
// dependency when names is empty. Python modules are not resolved as commands.
func (e *runEnv) selectDependencies(names []string) ([]tools.Dependency, error) {
	if len(names) == 0 {
		var deps []tools.Dependency
		for _, name := range e.registry.Names() {
			dep, _ := e.registry.Lookup(name)
			if !dep.Python {
				deps = append(deps, dep)
			}
		}
		return deps, nil
	}
	deps := make([]tools.Dependency, 0, len(names))
	for _, name := range names {
		dep, ok := e.registry.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool: %s", name)
		}
		if dep.Python {
			return nil, fmt.Errorf("%s is a Python module, not a command", dep.Name)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}
