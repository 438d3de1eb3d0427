package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kidep/internal/tools"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "kidep.yaml"

// Config captures how tools are located and acquired.
type Config struct {
	Version          int               `yaml:"version"`
	ToolsDir         string            `yaml:"tools_dir,omitempty"`
	UserAgent        string            `yaml:"user_agent"`
	DownloadTimeoutS int               `yaml:"download_timeout_s"`
	NoDownload       bool              `yaml:"no_download"`
	PluginDirs       []string          `yaml:"plugin_dirs"`
	PythonUserBase   string            `yaml:"python_user_base,omitempty"`
	Minimums         map[string]string `yaml:"minimums,omitempty"`
	RegistryFiles    []string          `yaml:"registry_files,omitempty"`
	LogLevel         string            `yaml:"log_level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:          1,
		UserAgent:        tools.DefaultUserAgent,
		DownloadTimeoutS: int(tools.DefaultTimeout / time.Second),
		PluginDirs: []string{
			"~/.local/share/kicad/9.0/3rdparty/plugins",
			"~/.local/share/kicad/8.0/3rdparty/plugins",
			"~/.local/share/kicad/7.0/3rdparty/plugins",
			"~/.local/share/kicad/8.0/scripting/plugins",
			"~/.kicad/scripting/plugins",
			"~/.kicad_plugins",
			"/usr/share/kicad/scripting/plugins",
			"/usr/share/kicad/3rdparty/plugins",
		},
		LogLevel: "info",
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to sensible defaults when the YAML
// omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.DownloadTimeoutS == 0 {
		c.DownloadTimeoutS = defaults.DownloadTimeoutS
	}
	if c.PluginDirs == nil {
		c.PluginDirs = defaults.PluginDirs
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// DownloadTimeout returns the connect and response-header timeout.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutS) * time.Second
}

// PluginRoots returns the plugin directories with "~" expanded. Entries that
// cannot be expanded are skipped.
func (c Config) PluginRoots() []string {
	roots := make([]string, 0, len(c.PluginDirs))
	for _, dir := range c.PluginDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if dir == "~" || strings.HasPrefix(dir, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				continue
			}
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
		roots = append(roots, dir)
	}
	return roots
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
