package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"kidep/internal/tools"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks values that would otherwise fail late, during resolution.
func (c Config) Validate(root string) []ValidationResult {
	var results []ValidationResult
	if c.DownloadTimeoutS < 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("download_timeout_s must not be negative (got %d)", c.DownloadTimeoutS),
		})
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("unknown log_level %q", c.LogLevel),
		})
	}
	results = append(results, c.validateMinimums(root)...)
	for _, path := range c.RegistryFiles {
		if _, err := os.Stat(resolveExternalPath(root, path)); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("registry file %q not found", path),
			})
		}
	}
	return results
}

// validateMinimums checks minimums against the effective registry, so tools
// declared in registry_files count as known. An unreadable registry file is
// reported separately and the embedded registry is used instead.
func (c Config) validateMinimums(root string) []ValidationResult {
	reg, err := c.Registry(root)
	if err != nil {
		reg = tools.DefaultRegistry()
	}
	names := make([]string, 0, len(c.Minimums))
	for name := range c.Minimums {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []ValidationResult
	for _, name := range names {
		if _, ok := reg.Lookup(name); !ok {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("minimum set for unknown tool %q", name),
			})
		}
		if value := strings.TrimSpace(c.Minimums[name]); value != "" {
			if _, ok := tools.ParseRequirement(value); !ok {
				results = append(results, ValidationResult{
					Level:   "warning",
					Message: fmt.Sprintf("minimum %q for %s is not a version and is ignored", value, name),
				})
			}
		}
	}
	return results
}
