package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"kidep/internal/config"
	"kidep/internal/paths"
	"kidep/internal/tools"
)

func TestCheckPlatform(t *testing.T) {
	if got := checkPlatform(tools.Platform{OS: tools.OSLinux, Arch: tools.ArchX86_64}); got.Status != "ok" {
		t.Errorf("got status=%q, want ok", got.Status)
	}
	if got := checkPlatform(tools.Platform{OS: tools.OSLinux, Arch: tools.ArchUnknown}); got.Status != "warning" {
		t.Errorf("got status=%q, want warning", got.Status)
	}
}

func TestCheckConfigWithError(t *testing.T) {
	result := checkConfig(config.Config{}, t.TempDir(), errors.New("unmarshal config: bad"))
	if result.Status != "error" || result.Name != "Config" {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestCheckConfigLevels(t *testing.T) {
	cfg := config.Default()
	if got := checkConfig(cfg, t.TempDir(), nil); got.Status != "ok" {
		t.Errorf("defaults: got %+v", got)
	}

	cfg.Minimums = map[string]string{"ghostscript": "soon"}
	if got := checkConfig(cfg, t.TempDir(), nil); got.Status != "warning" {
		t.Errorf("bad minimum: got %+v", got)
	}

	cfg.DownloadTimeoutS = -5
	if got := checkConfig(cfg, t.TempDir(), nil); got.Status != "error" {
		t.Errorf("negative timeout: got %+v", got)
	}
}

func TestCheckInstallRoot(t *testing.T) {
	layout := paths.NewLayout(t.TempDir())
	got := checkInstallRoot(layout)
	if got.Status != "ok" || !strings.Contains(got.Summary, layout.Root) {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestCheckPython(t *testing.T) {
	missing := func(string) (string, error) { return "", errors.New("not found") }
	if got := checkPython(missing); got.Status != "warning" {
		t.Errorf("no python: got %+v", got)
	}

	onlyPython := func(name string) (string, error) {
		if name == "python3" {
			return "/usr/bin/python3", nil
		}
		return "", errors.New("not found")
	}
	if got := checkPython(onlyPython); got.Status != "warning" || !strings.Contains(got.Summary, "pip") {
		t.Errorf("no pip: got %+v", got)
	}

	all := func(name string) (string, error) { return "/usr/bin/" + name, nil }
	if got := checkPython(all); got.Status != "ok" || got.Summary != "python3, pip3" {
		t.Errorf("all present: got %+v", got)
	}
}

func TestCheckTools(t *testing.T) {
	mandatory := tools.Dependency{Name: "KiAuto", Roles: []tools.Role{{Mandatory: true}}}
	optional := tools.Dependency{Name: "RAR"}

	found := []tools.Resolution{{Dependency: mandatory, Path: "/usr/bin/pcbnew_do", Version: "2.3.1"}}
	if got := checkTools(found); got.Status != "ok" || got.Summary != "KiAuto 2.3.1" {
		t.Errorf("all found: got %+v", got)
	}

	if got := checkTools(append(found, tools.Resolution{Dependency: optional})); got.Status != "warning" {
		t.Errorf("optional missing: got %+v", got)
	}

	if got := checkTools([]tools.Resolution{{Dependency: mandatory}}); got.Status != "error" || !strings.Contains(got.Summary, "KiAuto") {
		t.Errorf("mandatory missing: got %+v", got)
	}
}

func TestWriteDoctorResult(t *testing.T) {
	checks := []healthCheck{
		{Name: "Platform", Status: "ok", Summary: "linux/x86_64"},
		{Name: "Tools", Status: "error", Summary: "missing: KiAuto"},
	}

	var buf bytes.Buffer
	outputJSON = false
	if err := writeDoctorResult(&buf, "kidep.yaml", checks); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "INSTALLATION HEALTH:") || !strings.Contains(buf.String(), "missing: KiAuto") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	outputJSON = true
	defer func() { outputJSON = false }()
	if err := writeDoctorResult(&buf, "kidep.yaml", checks); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !strings.Contains(buf.String(), `"status": "error"`) {
		t.Errorf("unexpected json:\n%s", buf.String())
	}
}
