package tui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func newDependencyModel() ProgressModel {
	m := NewProgressModel("Resolving tools", DependencyColumns())
	m.AddRow("Ghostscript", []string{"Ghostscript", "pending"})
	m.AddRow("Git", []string{"Git", "pending"})
	return m
}

func TestRowUpdateMsg(t *testing.T) {
	m := newDependencyModel()

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "Ghostscript",
		Fields: map[string]string{"STATUS": "found", "VERSION": "10.2.1"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[1] != "found" {
		t.Errorf("expected STATUS=found, got %q", m.rows[0].Fields[1])
	}
	if m.rows[0].Fields[4] != "10.2.1" {
		t.Errorf("expected VERSION=10.2.1, got %q", m.rows[0].Fields[4])
	}
	if m.rows[1].Fields[1] != "pending" {
		t.Errorf("expected second row untouched, got %q", m.rows[1].Fields[1])
	}

	updated, _ = m.Update(RowUpdateMsg{Key: "nope", Fields: map[string]string{"STATUS": "found"}})
	m = updated.(ProgressModel)
	if m.rows[1].Fields[1] != "pending" {
		t.Errorf("unknown key must not change rows")
	}
}

func TestProgressMsgDrawsBar(t *testing.T) {
	m := newDependencyModel()
	before := m.View()

	updated, _ := m.Update(ProgressMsg{Key: "Git", Fraction: 0.5})
	m = updated.(ProgressModel)
	if m.rows[1].Fraction != 0.5 {
		t.Fatalf("expected fraction 0.5, got %v", m.rows[1].Fraction)
	}
	if m.View() == before {
		t.Fatalf("expected the bar to change the view")
	}

	updated, _ = m.Update(ProgressMsg{Key: "Git", Fraction: 1})
	m = updated.(ProgressModel)
	if got := m.barView(m.rows[1]); got != "" {
		t.Fatalf("completed downloads should hide the bar, got %q", got)
	}
}

func TestWorkDoneAndError(t *testing.T) {
	m := newDependencyModel()
	updated, cmd := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)
	if !m.Done() || cmd == nil {
		t.Fatalf("expected done with quit command")
	}
	if strings.Contains(m.View(), "Resolving 0/2") {
		t.Errorf("footer should disappear once done")
	}

	m = newDependencyModel()
	updated, cmd = m.Update(ErrorMsg{Err: tea.ErrProgramKilled})
	m = updated.(ProgressModel)
	if m.Err() == nil || cmd == nil {
		t.Fatalf("expected error and quit command")
	}
	if !strings.HasPrefix(m.View(), "Error:") {
		t.Errorf("expected error view, got %q", m.View())
	}
}

func TestViewAndCounts(t *testing.T) {
	m := newDependencyModel()
	updated, _ := m.Update(RowUpdateMsg{Key: "Git", Fields: map[string]string{"STATUS": "missing"}})
	m = updated.(ProgressModel)

	view := m.View()
	for _, want := range []string{"Resolving tools", "TOOL", "STAGE", "Ghostscript", "missing", "Resolving 1/2..."} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := newDependencyModel()
	updated, cmd := m.Update(tickMsg{})
	m = updated.(ProgressModel)
	if m.tick != 1 || cmd == nil {
		t.Fatalf("expected tick to advance and reschedule")
	}

	updated, _ = m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)
	if _, cmd := m.Update(tickMsg{}); cmd != nil {
		t.Error("expected no tick command after done")
	}
}

func TestCtrlC(t *testing.T) {
	m := newDependencyModel()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)
	if !m.Done() || cmd == nil {
		t.Error("expected ctrl+c to quit")
	}
	if !m.Aborted() {
		t.Error("expected ctrl+c to mark the run aborted")
	}

	finished, _ := newDependencyModel().Update(WorkDoneMsg{})
	if finished.(ProgressModel).Aborted() {
		t.Error("finishing the work is not an abort")
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"Interactive HTML BoM", 10, "Interac..."},
		{"abcd", 3, "abc"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.input, tt.max); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
	if NonEmptyOrDash("  ") != "-" || NonEmptyOrDash(" x ") != "x" {
		t.Errorf("unexpected NonEmptyOrDash result")
	}
}

func TestObserverMessages(t *testing.T) {
	var msgs []tea.Msg
	obs := NewObserver(func(msg tea.Msg) { msgs = append(msgs, msg) })

	obs.Stage("Git", "downloading")
	obs.Progress("Git", 0.25)
	obs.Stage("Git", "found")

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d: %#v", len(msgs), msgs)
	}
	first := msgs[0].(RowUpdateMsg)
	if first.Fields["STATUS"] != "acquiring" || first.Fields["STAGE"] != "downloading" {
		t.Fatalf("unexpected stage update %+v", first)
	}
	if p := msgs[1].(ProgressMsg); p.Fraction != 0.25 {
		t.Fatalf("unexpected progress %+v", p)
	}
	if last := msgs[3].(ProgressMsg); last.Fraction != 0 {
		t.Fatalf("expected bar reset after found, got %+v", last)
	}
}

func TestLineObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLineObserver(&buf)
	obs.Stage("RAR", "downloading")
	obs.Progress("RAR", 0.5)
	obs.Stage("RAR", "found")

	want := "RAR: downloading\nRAR: found\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestDetectMode(t *testing.T) {
	var buf bytes.Buffer
	if DetectMode(&buf, false, true) != ModeJSON {
		t.Errorf("json flag should win")
	}
	if DetectMode(&buf, false, false) != ModePlain {
		t.Errorf("a buffer is not a terminal")
	}
}
