package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kidep/internal/tools"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("expected version 1, got %d", cfg.Version)
	}
	if cfg.DownloadTimeout() != tools.DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", cfg.DownloadTimeout())
	}
	if cfg.UserAgent != tools.DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", cfg.UserAgent)
	}
	if len(cfg.PluginDirs) == 0 {
		t.Fatalf("expected default plugin dirs")
	}
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	doc := `
tools_dir: /opt/kidep
download_timeout_s: 5
no_download: true
plugin_dirs:
  - /srv/plugins
minimums:
  ghostscript: "10.0"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ToolsDir != "/opt/kidep" || !cfg.NoDownload {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.DownloadTimeout() != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.DownloadTimeout())
	}
	if got := cfg.PluginRoots(); len(got) != 1 || got[0] != "/srv/plugins" {
		t.Fatalf("unexpected plugin roots %v", got)
	}
	if cfg.LogLevel != "info" || cfg.UserAgent == "" {
		t.Fatalf("expected defaults to fill omitted keys, got %+v", cfg)
	}
	if cfg.Minimums["ghostscript"] != "10.0" {
		t.Fatalf("unexpected minimums %v", cfg.Minimums)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("plugin_dirs: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestPluginRootsExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := Config{PluginDirs: []string{"~/.kicad/scripting/plugins", "  ", "/abs"}}

	got := cfg.PluginRoots()
	want := []string{filepath.Join(home, ".kicad/scripting/plugins"), "/abs"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.ToolsDir = "/data/tools"
	buf, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(buf), "tools_dir: /data/tools") {
		t.Fatalf("expected tools_dir in output:\n%s", buf)
	}
}

func TestValidate(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.DownloadTimeoutS = -1
	cfg.LogLevel = "loud"
	cfg.Minimums = map[string]string{"ghostscript": "nine", "frobnicator": "1.0"}
	cfg.RegistryFiles = []string{"extra.yaml"}

	results := cfg.Validate(root)
	var errs, warns int
	for _, r := range results {
		switch r.Level {
		case "error":
			errs++
		case "warning":
			warns++
		}
	}
	if errs != 3 {
		t.Fatalf("expected 3 errors, got %+v", results)
	}
	if warns != 2 {
		t.Fatalf("expected 2 warnings, got %+v", results)
	}

	if got := Default().Validate(root); len(got) != 0 {
		t.Fatalf("defaults should validate cleanly, got %+v", got)
	}
}

func TestRegistryExtendsEmbedded(t *testing.T) {
	root := t.TempDir()
	doc := `
dependencies:
  - name: Boardview
    command: boardview
`
	if err := os.WriteFile(filepath.Join(root, "extra.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Default()
	cfg.RegistryFiles = []string{"extra.yaml"}

	reg, err := cfg.Registry(root)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if _, ok := reg.Lookup("boardview"); !ok {
		t.Fatalf("expected extra entry in registry")
	}
	if _, ok := reg.Lookup("ghostscript"); !ok {
		t.Fatalf("expected embedded entries to remain")
	}

	cfg.Minimums = map[string]string{"boardview": "1.0"}
	if got := cfg.Validate(root); len(got) != 0 {
		t.Fatalf("minimum for a registry_files tool should validate cleanly, got %+v", got)
	}

	cfg.RegistryFiles = []string{"missing.yaml"}
	if _, err := cfg.Registry(root); err == nil {
		t.Fatalf("expected error for missing registry file")
	}
}
