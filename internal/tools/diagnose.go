package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ExitMissingTool is the process exit code used when a mandatory tool is missing.
const ExitMissingTool = 10

// installCheckerHint closes every diagnostic.
const installCheckerHint = "Try running the installation checker: kidep doctor"

// Reporter turns failed resolutions into user-facing diagnostics.
type Reporter struct {
	Logger *log.Logger
	// Exit terminates the process; os.Exit when nil.
	Exit func(code int)
	// GOOS selects OS-specific hints; the running OS when empty.
	GOOS string
}

// Messages returns the diagnostic lines for a failed resolution, or nil when
// res found a tool.
func (rep Reporter) Messages(res Resolution) []string {
	if res.Found() {
		return nil
	}
	dep := res.Dependency
	var lines []string
	if res.Reason() == ReasonVersionMismatch {
		lines = append(lines, fmt.Sprintf("Upgrade `%s` command (%s)", dep.Command, dep.Name))
	} else {
		lines = append(lines, fmt.Sprintf("Missing `%s` command (%s), install it", dep.Command, dep.Name))
	}
	if dep.URL != "" {
		lines = append(lines, "Home page: "+dep.URL)
	}
	if dep.URLDown != "" {
		lines = append(lines, "Download page: "+dep.URLDown)
	}
	if dep.DebPackage != "" {
		lines = append(lines, "Debian package: "+dep.DebPackage)
	}
	lines = append(lines, installHints(dep, rep.GOOS)...)
	lines = append(lines, roleLines(dep.Roles)...)
	lines = append(lines, installCheckerHint)
	return lines
}

func roleLines(roles []Role) []string {
	var (
		lines    []string
		outputs  []string
		seen     = map[string]bool{}
		optional []Role
	)
	for _, r := range roles {
		output := r.Output
		if output == "" {
			output = GlobalOutput
		}
		if !seen[output] {
			seen[output] = true
			outputs = append(outputs, output)
		}
		if !r.Mandatory {
			optional = append(optional, r)
		}
	}
	if len(outputs) > 0 {
		lines = append(lines, "Output that needs it: "+strings.Join(outputs, ", "))
	}
	switch len(optional) {
	case 0:
	case 1:
		lines = append(lines, "Used to "+lowerFirst(optional[0].Desc)+roleVersion(optional[0]))
	default:
		lines = append(lines, "Used to:")
		for _, r := range optional {
			lines = append(lines, "- "+r.Desc+roleVersion(r))
		}
	}
	return lines
}

func roleVersion(r Role) string {
	if r.Version.IsZero() {
		return ""
	}
	return " (v" + r.Version.String() + ")"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Report emits the diagnostic for res at error level when fatal and at warn
// level otherwise. A fatal report exits with ExitMissingTool.
func (rep Reporter) Report(res Resolution, fatal bool) {
	lines := rep.Messages(res)
	if lines == nil {
		return
	}
	logger := rep.Logger
	if logger == nil {
		logger = log.Default()
	}
	for _, line := range lines {
		if fatal {
			logger.Error(line)
		} else {
			logger.Warn("(missing tool) " + line)
		}
	}
	if fatal {
		exit := rep.Exit
		if exit == nil {
			exit = os.Exit
		}
		exit(ExitMissingTool)
	}
}
