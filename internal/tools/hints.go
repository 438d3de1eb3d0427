package tools

import "runtime"

// installHints suggests how to install dep by hand on goos.
func installHints(dep Dependency, goos string) []string {
	if goos == "" {
		goos = runtime.GOOS
	}
	var hints []string
	if dep.PyPI != "" {
		hints = append(hints, "Python module: pip install "+dep.PyPI)
		return hints
	}
	if dep.Plugin {
		return hints
	}
	switch goos {
	case "darwin":
		hints = append(hints, "Install it via Homebrew: brew install "+dep.Command)
	case "windows":
		hints = append(hints, "Install it via winget or Chocolatey and add it to PATH")
	}
	return hints
}
