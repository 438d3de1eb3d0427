package tools

import (
	"fmt"
	"sort"
	"strings"
)

// ParseMinimums converts configured minimum-version overrides, keyed by tool
// name, into versions. Entries that do not parse are skipped and reported in
// notes.
func ParseMinimums(raw map[string]string) (map[string]Version, []string) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	minimums := make(map[string]Version, len(raw))
	var notes []string
	for _, name := range names {
		value := strings.TrimSpace(raw[name])
		if value == "" {
			continue
		}
		v, ok := ParseRequirement(value)
		if !ok {
			notes = append(notes, fmt.Sprintf("minimum %q for %s ignored: not a version", value, name))
			continue
		}
		minimums[strings.ToLower(name)] = v
	}
	return minimums, notes
}
