package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is a major.minor.patch.build tuple. Missing components are zero.
type Version [4]int

var versionRegex = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?(?:[._-](\d+))?`)

// ParseVersion finds the first version-looking substring in text.
func ParseVersion(text string) (Version, bool) {
	m := versionRegex.FindStringSubmatch(text)
	if m == nil {
		return Version{}, false
	}
	var v Version
	for i := 0; i < 4; i++ {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Version{}, false
		}
		v[i] = n
	}
	return v, true
}

// Compare returns -1, 0 or 1 comparing v with o component by component.
func (v Version) Compare(o Version) int {
	for i := range v {
		if v[i] < o[i] {
			return -1
		}
		if v[i] > o[i] {
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v >= min.
func (v Version) AtLeast(min Version) bool {
	return v.Compare(min) >= 0
}

// IsZero reports whether no version is set.
func (v Version) IsZero() bool {
	return v == Version{}
}

// String renders the version trimming a zero build component.
func (v Version) String() string {
	if v[3] != 0 {
		return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
	}
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// UnmarshalYAML accepts versions written as "2.4.1" or bare numbers like 2.0.
func (v *Version) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*v = Version{}
		return nil
	}
	parsed, ok := ParseRequirement(raw)
	if !ok {
		return fmt.Errorf("line %d: invalid version %q", node.Line, node.Value)
	}
	*v = parsed
	return nil
}

// ParseRequirement parses a declared version requirement, where a bare
// major number like "10" means "10.0".
func ParseRequirement(raw string) (Version, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return ParseVersion(raw)
}

// MustParseVersion is ParseVersion for trusted literals.
func MustParseVersion(text string) Version {
	v, ok := ParseVersion(text)
	if !ok {
		panic(fmt.Sprintf("tools: invalid version %q", text))
	}
	return v
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimRight(text[:idx], "\r")
	}
	return text
}

// versionFromOutput strips the known prefixes from the first output line and
// parses what is left.
func versionFromOutput(dep Dependency, output string) (Version, bool) {
	line := firstLine(strings.TrimSpace(output))
	prefixes := []string{dep.Command + " version ", dep.Command + " ", dep.VersionPrefix}
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(line, prefix) {
			line = line[len(prefix):]
		}
	}
	return ParseVersion(line)
}
