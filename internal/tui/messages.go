package tui

// RowUpdateMsg updates a single row's fields by column name.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// ProgressMsg reports the download fraction for a row. A fraction outside
// (0,1) hides the bar.
type ProgressMsg struct {
	Key      string
	Fraction float64
}

// WorkDoneMsg signals that all resolution work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
