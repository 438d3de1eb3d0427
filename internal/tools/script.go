package tools

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// relocatedEnv is the environment a relocated bundle needs at run time.
type relocatedEnv struct {
	LibDir    string
	BinDir    string
	ConfigEnv string
	ConfigDir string
}

// relocationWrapper renders a shell script that exposes the relocated
// libraries, tools and configuration before running binary.
func relocationWrapper(env relocatedEnv, binary, subcommand string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "export LD_LIBRARY_PATH=%s:\"$LD_LIBRARY_PATH\"\n", shellquote.Join(env.LibDir))
	fmt.Fprintf(&b, "export PATH=\"$PATH\":%s\n", shellquote.Join(env.BinDir))
	if env.ConfigEnv != "" && env.ConfigDir != "" {
		fmt.Fprintf(&b, "export %s=%s\n", env.ConfigEnv, shellquote.Join(env.ConfigDir))
	}
	args := []string{binary}
	if subcommand != "" {
		args = append(args, subcommand)
	}
	fmt.Fprintf(&b, "exec %s \"$@\"\n", shellquote.Join(args...))
	return b.String()
}

// linkWrapper renders a shell script that points link at root and then runs real.
func linkWrapper(link, root, real string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "rm -f %s\n", shellquote.Join(link))
	fmt.Fprintf(&b, "ln -s %s %s\n", shellquote.Join(root), shellquote.Join(link))
	fmt.Fprintf(&b, "exec %s \"$@\"\n", shellquote.Join(real))
	return b.String()
}
