package tools

// Source identifies where a resolved tool was found.
type Source string

const (
	SourceUnknown  Source = ""
	SourceSystem   Source = "system"
	SourcePlugin   Source = "plugin"
	SourcePython   Source = "python"
	SourceCache    Source = "cache"
	SourceDownload Source = "download"
)

// GlobalOutput marks a role used by the whole pipeline rather than a single output.
const GlobalOutput = "global"

// Role is one declared use of a dependency by a consuming output.
type Role struct {
	Mandatory bool    `yaml:"mandatory"`
	Version   Version `yaml:"version"`
	Desc      string  `yaml:"desc"`
	Output    string  `yaml:"output"`
}

// Dependency describes an external command, how to validate it and how to get it.
type Dependency struct {
	Name                string       `yaml:"name"`
	Command             string       `yaml:"command"`
	VersionFlag         string       `yaml:"version_flag"`
	VersionPrefix       string       `yaml:"version_prefix"`
	NoCmdLineVersion    bool         `yaml:"no_cmd_line_version"`
	NoCmdLineVersionOld bool         `yaml:"no_cmd_line_version_old"`
	Plugin              bool         `yaml:"plugin"`
	PluginDirs          []string     `yaml:"plugin_dirs"`
	URL                 string       `yaml:"url"`
	URLDown             string       `yaml:"url_down"`
	DebPackage          string       `yaml:"deb_package"`
	PyPI                string       `yaml:"pypi"`
	Python              bool         `yaml:"python"`
	Acquire             *Acquisition `yaml:"acquire"`
	Roles               []Role       `yaml:"roles"`
}

// EffectiveMinimum returns the strictest version required by any role.
func (d Dependency) EffectiveMinimum() Version {
	var needs Version
	for _, r := range d.Roles {
		if r.Version.Compare(needs) > 0 {
			needs = r.Version
		}
	}
	return needs
}

// Mandatory reports whether any role requires the dependency.
func (d Dependency) Mandatory() bool {
	for _, r := range d.Roles {
		if r.Mandatory {
			return true
		}
	}
	return false
}

// Acquisition holds the parameters an acquisition strategy needs for one dependency.
type Acquisition struct {
	Kind      StrategyKind `yaml:"kind"`
	Platforms []string     `yaml:"platforms"`

	// URL location, tried in order: GitHub release asset, page anchor, template.
	URL       string            `yaml:"url"`
	GitHub    string            `yaml:"github"`
	Asset     string            `yaml:"asset"`
	Page      string            `yaml:"page"`
	Link      string            `yaml:"link"`
	OSNames   map[string]string `yaml:"os_names"`
	ArchNames map[string]string `yaml:"arch_names"`

	Member  string `yaml:"member"`
	Install string `yaml:"install"`
	Alias   string `yaml:"alias"`

	// appimage relocation
	Binary     string `yaml:"binary"`
	Subcommand string `yaml:"subcommand"`
	LibName    string `yaml:"lib_name"`
	ConfigEnv  string `yaml:"config_env"`

	// static-wrapper
	BakedPath string `yaml:"baked_path"`
	LinkPath  string `yaml:"link_path"`
}

// InstallName returns the file name the acquired executable is written as.
func (a Acquisition) InstallName(dep Dependency) string {
	if a.Install != "" {
		return a.Install
	}
	return dep.Command
}

// Resolution is the outcome of running the pipeline for one dependency.
type Resolution struct {
	Dependency Dependency
	Path       string
	Source     Source
	Version    string
	Err        error
}

// Found reports whether a usable executable was resolved.
func (r Resolution) Found() bool {
	return r.Path != ""
}

// Reason returns the failure reason, or the empty reason when found.
func (r Resolution) Reason() Reason {
	if r.Found() {
		return ""
	}
	if reason := ReasonOf(r.Err); reason != "" {
		return reason
	}
	return ReasonNotFound
}

// Status captures the resolved state of a dependency for listing.
type Status struct {
	Tool        string   `json:"tool"`
	Command     string   `json:"command"`
	Version     string   `json:"version,omitempty"`
	Minimum     string   `json:"minimum,omitempty"`
	Source      Source   `json:"source"`
	Path        string   `json:"path,omitempty"`
	InstalledAt string   `json:"installed_at,omitempty"`
	Checksum    string   `json:"checksum,omitempty"`
	Satisfied   bool     `json:"satisfied"`
	Mandatory   bool     `json:"mandatory"`
	Error       string   `json:"error,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// ManifestEntry records a downloaded tool in the install manifest.
type ManifestEntry struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Source      Source `json:"source"`
	Path        string `json:"path"`
	Checksum    string `json:"checksum,omitempty"`
	InstalledAt string `json:"installed_at,omitempty"`
}

// Manifest wraps persisted entries for quick lookup.
type Manifest struct {
	Entries map[string]ManifestEntry `json:"entries"`
}
