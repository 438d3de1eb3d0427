package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	tickInterval = 150 * time.Millisecond
	barHeader    = "PROGRESS"
	statusHeader = "STATUS"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg drives the spinner.
type tickMsg time.Time

// Column defines a single column in the progress table.
type Column struct {
	Header string
	Width  int
}

// Row holds the field values for one dependency.
type Row struct {
	Key      string
	Fields   []string
	Fraction float64
}

// DependencyColumns is the table layout used while resolving dependencies.
func DependencyColumns() []Column {
	return []Column{
		{Header: "TOOL", Width: 22},
		{Header: statusHeader, Width: 9},
		{Header: "STAGE", Width: 11},
		{Header: "SOURCE", Width: 8},
		{Header: "VERSION", Width: 10},
		{Header: barHeader, Width: 24},
	}
}

// ProgressModel is a bubbletea model rendering one row per dependency with
// a download bar for the rows currently fetching an artifact.
type ProgressModel struct {
	columns  []Column
	rows     []Row
	rowIndex map[string]int
	title    string
	done     bool
	aborted  bool
	err      error

	statusCol int
	barCol    int
	bar       progress.Model

	tick int
}

// NewProgressModel creates a progress model with the given title and columns.
func NewProgressModel(title string, columns []Column) ProgressModel {
	m := ProgressModel{
		columns:   columns,
		rowIndex:  make(map[string]int),
		title:     title,
		statusCol: -1,
		barCol:    -1,
	}
	for i, c := range columns {
		switch strings.ToUpper(c.Header) {
		case statusHeader:
			m.statusCol = i
		case barHeader:
			m.barCol = i
			m.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(c.Width), progress.WithoutPercentage())
		}
	}
	return m
}

// AddRow pre-populates a row. Call this before the program starts.
func (m *ProgressModel) AddRow(key string, fields []string) {
	padded := make([]string, len(m.columns))
	copy(padded, fields)
	m.rowIndex[key] = len(m.rows)
	m.rows = append(m.rows, Row{Key: key, Fields: padded})
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case RowUpdateMsg:
		if idx, ok := m.rowIndex[msg.Key]; ok {
			row := &m.rows[idx]
			for j, col := range m.columns {
				if val, exists := msg.Fields[col.Header]; exists {
					row.Fields[j] = val
				}
			}
		}
		return m, nil

	case ProgressMsg:
		if idx, ok := m.rowIndex[msg.Key]; ok {
			m.rows[idx].Fraction = msg.Fraction
		}
		return m, nil

	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.done = true
			m.aborted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	if m.done && m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	widths := make([]int, len(m.columns))
	for i, col := range m.columns {
		widths[i] = max(len(col.Header), col.Width)
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(HeaderStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	header := make([]string, len(m.columns))
	for i, col := range m.columns {
		header[i] = HeaderStyle.Render(pad(col.Header, widths[i]))
	}
	b.WriteString(strings.Join(header, "  "))
	b.WriteByte('\n')

	for _, row := range m.rows {
		parts := make([]string, len(m.columns))
		for i := range m.columns {
			switch i {
			case m.barCol:
				parts[i] = pad(m.barView(row), widths[i])
			case m.statusCol:
				val := TruncateWithEllipsis(row.Fields[i], widths[i])
				parts[i] = StatusStyle(val).Render(pad(val, widths[i]))
			default:
				parts[i] = pad(TruncateWithEllipsis(row.Fields[i], widths[i]), widths[i])
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteByte('\n')
	}

	if !m.done {
		resolved, total := m.progressCounts()
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "\n%s Resolving %d/%d...\n", spinner, resolved, total)
	}
	return b.String()
}

func (m ProgressModel) barView(row Row) string {
	if m.done || row.Fraction <= 0 || row.Fraction >= 1 {
		return ""
	}
	return m.bar.ViewAs(row.Fraction)
}

// progressCounts returns (resolved, total), where a row is resolved once its
// status is "found" or "missing".
func (m ProgressModel) progressCounts() (int, int) {
	total := len(m.rows)
	if m.statusCol < 0 {
		return 0, total
	}
	resolved := 0
	for _, row := range m.rows {
		switch strings.TrimSpace(row.Fields[m.statusCol]) {
		case "found", "missing", "outdated", "error":
			resolved++
		}
	}
	return resolved, total
}

// Done returns whether the model has finished (work done or error).
func (m ProgressModel) Done() bool {
	return m.done
}

// Aborted reports whether the user quit before the work finished.
func (m ProgressModel) Aborted() bool {
	return m.aborted
}

// Err returns any fatal error that occurred.
func (m ProgressModel) Err() error {
	return m.err
}

func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max length.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
