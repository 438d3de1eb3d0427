package tools

import "strings"

// Status summarizes res for listing, adding manifest details for downloaded tools.
func (r *Resolver) Status(res Resolution) Status {
	dep := res.Dependency
	status := Status{
		Tool:      dep.Name,
		Command:   dep.Command,
		Version:   res.Version,
		Source:    res.Source,
		Path:      res.Path,
		Satisfied: res.Found(),
		Mandatory: dep.Mandatory(),
	}
	if needs := r.checker.Minimum(dep); !needs.IsZero() {
		status.Minimum = needs.String()
	}
	if res.Err != nil && !res.Found() {
		status.Error = string(res.Reason())
		if msg := stderrOf(res.Err); msg != "" {
			status.Notes = append(status.Notes, firstLine(msg))
		}
	}
	if dep.NoCmdLineVersion && res.Found() {
		status.Notes = append(status.Notes, "no version option, presence is enough")
	}
	if r.layout.Root != "" && res.Found() && strings.HasPrefix(res.Path, r.layout.Root) {
		if manifest, err := LoadManifest(r.layout.Manifest); err == nil {
			if entry, ok := manifest.Entries[dep.Name]; ok && entry.Path == res.Path {
				status.InstalledAt = entry.InstalledAt
				status.Checksum = entry.Checksum
			}
		}
	}
	return status
}
