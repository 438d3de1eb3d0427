package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"kidep/internal/tools"
	"kidep/internal/tui"
)

var checkFatal bool

func newDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Resolve external tool dependencies",
	}

	cmd.AddCommand(newDepsListCmd())
	cmd.AddCommand(newDepsCheckCmd())
	return cmd
}

func newDepsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show where each tool resolves without downloading anything",
		RunE:  runDepsList,
	}
}

func newDepsCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [tool...]",
		Short: "Resolve tools, downloading missing ones when possible",
		RunE:  runDepsCheck,
	}
	cmd.Flags().BoolVar(&checkFatal, "fatal", false, "exit with code 10 when a mandatory tool is missing")
	return cmd
}

func runDepsList(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	deps, err := env.selectDependencies(args)
	if err != nil {
		return err
	}
	resolver := env.newResolver(nil, true)
	statuses := make([]tools.Status, 0, len(deps))
	for _, dep := range deps {
		statuses = append(statuses, resolver.Status(resolver.Resolve(cmd.Context(), dep)))
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), statuses)
	}
	printStatusTable(cmd.OutOrStdout(), statuses)
	return nil
}

func runDepsCheck(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	deps, err := env.selectDependencies(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var results []tools.Resolution
	var resolver *tools.Resolver
	switch tui.DetectMode(out, noProgress, outputJSON) {
	case tui.ModeTUI:
		model := tui.NewProgressModel("Resolving tools", tui.DependencyColumns())
		for _, dep := range deps {
			model.AddRow(dep.Name, []string{dep.Name, "pending", "-", "-", "-"})
		}
		env.ownsTerminal = true
		env.resolverLogger()
		err = tui.RunWithWork(cmd.Context(), out, model, func(ctx context.Context, send func(tea.Msg)) {
			obs := tui.NewObserver(send)
			resolver = env.newResolver(obs, false)
			results = resolveAll(ctx, resolver, deps, func(dep tools.Dependency) {
				obs.Begin(dep.Name)
			}, func(res tools.Resolution) {
				obs.Finish(res.Dependency.Name, rowFields(res))
			})
		})
		env.ownsTerminal = false
		if err != nil {
			return err
		}
	case tui.ModePlain:
		resolver = env.newResolver(tui.NewLineObserver(out), false)
		results = resolveAll(cmd.Context(), resolver, deps, nil, nil)
	default:
		resolver = env.newResolver(nil, false)
		results = resolveAll(cmd.Context(), resolver, deps, nil, nil)
	}

	statuses := make([]tools.Status, 0, len(results))
	for _, res := range results {
		statuses = append(statuses, resolver.Status(res))
	}
	if outputJSON {
		if err := writeJSON(out, statuses); err != nil {
			return err
		}
	} else {
		printStatusTable(out, statuses)
	}

	return reportMissing(env, results, checkFatal)
}

// resolveAll resolves deps in order, stopping early when ctx is cancelled.
func resolveAll(ctx context.Context, resolver *tools.Resolver, deps []tools.Dependency, begin func(tools.Dependency), done func(tools.Resolution)) []tools.Resolution {
	results := make([]tools.Resolution, 0, len(deps))
	for _, dep := range deps {
		if ctx.Err() != nil {
			break
		}
		if begin != nil {
			begin(dep)
		}
		res := resolver.Resolve(ctx, dep)
		if done != nil {
			done(res)
		}
		results = append(results, res)
	}
	return results
}

func rowFields(res tools.Resolution) map[string]string {
	status := "found"
	switch {
	case !res.Found() && res.Reason() == tools.ReasonVersionMismatch:
		status = "outdated"
	case !res.Found():
		status = "missing"
	}
	return map[string]string{
		"STATUS":  status,
		"STAGE":   "-",
		"SOURCE":  tui.NonEmptyOrDash(string(res.Source)),
		"VERSION": tui.NonEmptyOrDash(res.Version),
	}
}

// reportMissing prints the diagnostics for unresolved tools. With fatal set,
// a missing mandatory tool turns into exit code ExitMissingTool.
func reportMissing(env *runEnv, results []tools.Resolution, fatal bool) error {
	exitCode := 0
	reporter := tools.Reporter{
		Logger: env.logger,
		Exit:   func(code int) { exitCode = code },
	}
	var errs []error
	for _, res := range results {
		if res.Found() {
			continue
		}
		mandatory := res.Dependency.Mandatory()
		reporter.Report(res, fatal && mandatory)
		if mandatory {
			errs = append(errs, fmt.Errorf("%s: %s", res.Dependency.Name, res.Reason()))
		}
	}
	if exitCode != 0 {
		return &exitCodeError{code: exitCode, err: errors.Join(errs...)}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printStatusTable(w io.Writer, statuses []tools.Status) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "(no tools)")
		return
	}

	fmt.Fprintf(w, "%-22s %-9s %-10s %-8s %-4s %-8s %s\n", "Tool", "Source", "Version", "Minimum", "OK", "Size", "Path")
	for _, st := range statuses {
		ok := "no"
		if st.Satisfied {
			ok = "yes"
		}
		path := st.Path
		if path == "" {
			path = "(missing)"
		}
		fmt.Fprintf(w, "%-22s %-9s %-10s %-8s %-4s %-8s %s\n",
			st.Tool,
			tui.NonEmptyOrDash(string(st.Source)),
			tui.NonEmptyOrDash(st.Version),
			tui.NonEmptyOrDash(st.Minimum),
			ok,
			fileSize(st.Path),
			path)
		if st.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", st.Error)
		}
		for _, note := range st.Notes {
			fmt.Fprintf(w, "  note: %s\n", note)
		}
	}
}

func fileSize(path string) string {
	if path == "" {
		return "-"
	}
	info, err := os.Stat(path)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(info.Size()))
}
