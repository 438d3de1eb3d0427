package tools

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var registryYAML []byte

const defaultVersionFlag = "--version"

// Registry holds the immutable dependency descriptors.
type Registry struct {
	deps   []Dependency
	byName map[string]int
}

// ParseRegistry decodes a YAML registry document and fills in defaults.
func ParseRegistry(data []byte) (*Registry, error) {
	var doc struct {
		Dependencies []Dependency `yaml:"dependencies"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	reg := &Registry{byName: map[string]int{}}
	for _, dep := range doc.Dependencies {
		if strings.TrimSpace(dep.Name) == "" || strings.TrimSpace(dep.Command) == "" {
			return nil, fmt.Errorf("registry entry %q: name and command are required", dep.Name)
		}
		key := strings.ToLower(dep.Name)
		if _, dup := reg.byName[key]; dup {
			return nil, fmt.Errorf("registry entry %q declared twice", dep.Name)
		}
		if dep.VersionFlag == "" {
			dep.VersionFlag = defaultVersionFlag
		}
		for i := range dep.Roles {
			if dep.Roles[i].Output == "" {
				dep.Roles[i].Output = GlobalOutput
			}
		}
		reg.byName[key] = len(reg.deps)
		reg.deps = append(reg.deps, dep)
	}
	return reg, nil
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return ParseRegistry(registryYAML)
})

// DefaultRegistry returns the registry embedded in the binary.
func DefaultRegistry() *Registry {
	reg, err := defaultRegistry()
	if err != nil {
		panic(err)
	}
	return reg
}

// Names returns the dependency names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.deps))
	for _, dep := range r.deps {
		names = append(names, dep.Name)
	}
	sort.Slice(names, func(i, j int) bool { return strings.ToLower(names[i]) < strings.ToLower(names[j]) })
	return names
}

// Lookup finds a dependency by name, ignoring case, or by command.
func (r *Registry) Lookup(name string) (Dependency, bool) {
	if idx, ok := r.byName[strings.ToLower(name)]; ok {
		return r.deps[idx], true
	}
	for _, dep := range r.deps {
		if dep.Command == name {
			return dep, true
		}
	}
	return Dependency{}, false
}

// KnownTools returns the list of managed tool names.
func KnownTools() []string {
	return DefaultRegistry().Names()
}

// Definition returns the dependency descriptor for the provided name.
func Definition(name string) (Dependency, bool) {
	return DefaultRegistry().Lookup(name)
}

// All returns the dependencies in declaration order.
func (r *Registry) All() []Dependency {
	out := make([]Dependency, len(r.deps))
	copy(out, r.deps)
	return out
}

// Clone returns a registry that can be extended without touching r.
func (r *Registry) Clone() *Registry {
	out := &Registry{deps: r.All(), byName: make(map[string]int, len(r.byName))}
	for k, v := range r.byName {
		out.byName[k] = v
	}
	return out
}

// Merge adds the entries of other, replacing same-named entries in place.
func (r *Registry) Merge(other *Registry) {
	for _, dep := range other.deps {
		key := strings.ToLower(dep.Name)
		if idx, ok := r.byName[key]; ok {
			r.deps[idx] = dep
			continue
		}
		r.byName[key] = len(r.deps)
		r.deps = append(r.deps, dep)
	}
}
