package tools

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"kidep/internal/paths"
)

type runCall struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []runCall
	handle func(dir, name string, args []string) RunResult
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) RunResult {
	f.mu.Lock()
	f.calls = append(f.calls, runCall{dir: dir, name: name, args: args})
	f.mu.Unlock()
	if f.handle == nil {
		return failed(-1, "")
	}
	return f.handle(dir, name, args)
}

// count returns how many calls ran a program whose base name is name and
// whose arguments start with prefix.
func (f *fakeRunner) count(name string, prefix ...string) int {
	n := 0
	for _, c := range f.calls {
		if filepath.Base(c.name) != name || len(c.args) < len(prefix) {
			continue
		}
		match := true
		for i, p := range prefix {
			if c.args[i] != p {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

func versionOutput(text string) RunResult {
	return RunResult{Stdout: text + "\n"}
}

func failed(code int, stderr string) RunResult {
	return RunResult{Stderr: stderr, ExitCode: code, Err: fmt.Errorf("exit status %d", code)}
}

func notFound(string) (string, error) {
	return "", errors.New("executable file not found in $PATH")
}

type recordingObserver struct {
	stages   []string
	progress []float64
}

func (o *recordingObserver) Stage(_ string, stage string) {
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) Progress(_ string, f float64) {
	o.progress = append(o.progress, f)
}

func newTestResolver(t *testing.T, opts Options) *Resolver {
	t.Helper()
	if opts.Layout.Root == "" {
		opts.Layout = paths.NewLayout(t.TempDir())
	}
	if opts.PythonUserBase == "" {
		opts.PythonUserBase = t.TempDir()
	}
	if opts.LookPath == nil {
		opts.LookPath = notFound
	}
	if opts.Platform == nil {
		opts.Platform = func() Platform { return Platform{OS: OSLinux, Arch: ArchX86_64} }
	}
	return New(opts)
}

type tarEntry struct {
	name string
	body string
	dir  bool
	link string
}

func buildTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o755}
		switch {
		case e.dir:
			hdr.Typeflag = tar.TypeDir
		case e.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	return buf.Bytes()
}

func buildTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(buildTar(t, entries)); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func hasStage(stages []string, want string) bool {
	for _, s := range stages {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
