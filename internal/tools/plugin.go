package tools

import (
	"path/filepath"

	"kidep/internal/paths"
)

// searchPlugin looks for command inside each plugin directory name below
// each plugin root and returns the first regular file found.
func searchPlugin(command string, dirs, roots []string) string {
	if len(dirs) == 0 {
		dirs = []string{""}
	}
	for _, root := range roots {
		for _, dir := range dirs {
			candidate := filepath.Join(root, dir, command)
			if ok, _ := paths.FileExists(candidate); ok {
				return candidate
			}
		}
	}
	return ""
}
