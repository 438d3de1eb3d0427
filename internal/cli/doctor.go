package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"kidep/internal/config"
	"kidep/internal/paths"
	"kidep/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the installation and the tools it depends on",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	var checks []healthCheck
	checks = append(checks, checkPlatform(tools.DetectPlatform()))

	cfg, path, cfgErr := loadConfig()
	checks = append(checks, checkConfig(cfg, filepath.Dir(path), cfgErr))
	if cfgErr != nil {
		return writeDoctorResult(cmd.OutOrStdout(), path, checks)
	}

	layout, err := paths.Resolve(cfg.ToolsDir)
	if err != nil {
		checks = append(checks, healthCheck{Name: "Install root", Status: "error", Summary: err.Error()})
		return writeDoctorResult(cmd.OutOrStdout(), path, checks)
	}
	checks = append(checks, checkInstallRoot(layout))
	checks = append(checks, checkPython(exec.LookPath))

	env, err := loadEnv(cmd)
	if err != nil {
		checks = append(checks, healthCheck{Name: "Registry", Status: "error", Summary: err.Error()})
		return writeDoctorResult(cmd.OutOrStdout(), path, checks)
	}
	defer env.Close()
	checks = append(checks, checkRegistry(env.registry))

	deps, _ := env.selectDependencies(nil)
	resolver := env.newResolver(nil, true)
	var results []tools.Resolution
	for _, dep := range deps {
		results = append(results, resolver.Resolve(cmd.Context(), dep))
	}
	checks = append(checks, checkTools(results))

	return writeDoctorResult(cmd.OutOrStdout(), path, checks)
}

func checkPlatform(p tools.Platform) healthCheck {
	if p.OS == tools.OSOther || p.Arch == tools.ArchUnknown {
		return healthCheck{Name: "Platform", Status: "warning", Summary: fmt.Sprintf("%s: downloads are disabled", p)}
	}
	return healthCheck{Name: "Platform", Status: "ok", Summary: p.String()}
}

func checkConfig(cfg config.Config, root string, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	var warnings, errs int
	var first string
	for _, v := range cfg.Validate(root) {
		if first == "" {
			first = v.Message
		}
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errs++
		}
	}

	summary := fmt.Sprintf("%d minimums, %d plugin dirs", len(cfg.Minimums), len(cfg.PluginDirs))
	if errs > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors (%s)", summary, errs, first)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings (%s)", summary, warnings, first)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkInstallRoot(layout paths.Layout) healthCheck {
	if err := layout.Ensure(); err != nil {
		return healthCheck{Name: "Install root", Status: "error", Summary: err.Error()}
	}
	probe, err := os.CreateTemp(layout.Root, ".write-test-*")
	if err != nil {
		return healthCheck{Name: "Install root", Status: "error", Summary: fmt.Sprintf("%s is not writable", layout.Root)}
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	return healthCheck{
		Name:    "Install root",
		Status:  "ok",
		Summary: fmt.Sprintf("%s (%s used)", layout.Root, humanize.Bytes(dirSize(layout.Root))),
	}
}

func dirSize(root string) uint64 {
	var total uint64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}

func checkPython(lookPath func(string) (string, error)) healthCheck {
	if _, err := lookPath("python3"); err != nil {
		return healthCheck{Name: "Python", Status: "warning", Summary: "python3 not found; pip installs are unavailable"}
	}
	for _, pip := range []string{"pip3", "pip"} {
		if _, err := lookPath(pip); err == nil {
			return healthCheck{Name: "Python", Status: "ok", Summary: "python3, " + pip}
		}
	}
	return healthCheck{Name: "Python", Status: "warning", Summary: "pip not found; pip installs are unavailable"}
}

func checkRegistry(reg *tools.Registry) healthCheck {
	var downloadable int
	all := reg.All()
	for _, dep := range all {
		if dep.Acquire != nil {
			downloadable++
		}
	}
	return healthCheck{
		Name:    "Registry",
		Status:  "ok",
		Summary: fmt.Sprintf("%d tools, %d downloadable", len(all), downloadable),
	}
}

func checkTools(results []tools.Resolution) healthCheck {
	var found []string
	var missingMandatory, missingOptional []string
	for _, res := range results {
		name := res.Dependency.Name
		switch {
		case res.Found():
			label := name
			if res.Version != "" {
				label += " " + res.Version
			}
			found = append(found, label)
		case res.Dependency.Mandatory():
			missingMandatory = append(missingMandatory, name)
		default:
			missingOptional = append(missingOptional, name)
		}
	}

	switch {
	case len(missingMandatory) > 0:
		return healthCheck{Name: "Tools", Status: "error", Summary: "missing: " + strings.Join(missingMandatory, ", ")}
	case len(missingOptional) > 0:
		return healthCheck{
			Name:    "Tools",
			Status:  "warning",
			Summary: fmt.Sprintf("%d of %d found; optional missing: %s", len(found), len(results), strings.Join(missingOptional, ", ")),
		}
	}
	return healthCheck{Name: "Tools", Status: "ok", Summary: strings.Join(found, ", ")}
}

func writeDoctorResult(out io.Writer, cfgFile string, checks []healthCheck) error {
	if outputJSON {
		return writeJSON(out, map[string]any{
			"config": cfgFile,
			"checks": checks,
		})
	}

	bold := lipgloss.NewStyle().Bold(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	fmt.Fprintln(out, bold.Render("INSTALLATION HEALTH:")+" "+cfgFile)
	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-14s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}
	return nil
}
