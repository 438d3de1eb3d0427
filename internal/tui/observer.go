package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Observer forwards resolver stage changes and download progress to a
// running ProgressModel.
type Observer struct {
	send func(tea.Msg)
}

// NewObserver wraps the send callback handed out by RunWithWork.
func NewObserver(send func(tea.Msg)) *Observer {
	return &Observer{send: send}
}

// Begin marks a dependency as being checked.
func (o *Observer) Begin(tool string) {
	o.send(RowUpdateMsg{Key: tool, Fields: map[string]string{"STATUS": "checking", "STAGE": "-"}})
}

// Stage implements tools.Observer.
func (o *Observer) Stage(tool, stage string) {
	fields := map[string]string{"STAGE": stage}
	switch stage {
	case "found", "missing":
		fields["STATUS"] = stage
		fields["STAGE"] = "-"
	default:
		fields["STATUS"] = "acquiring"
	}
	o.send(RowUpdateMsg{Key: tool, Fields: fields})
	if stage != "downloading" {
		o.send(ProgressMsg{Key: tool})
	}
}

// Progress implements tools.Observer.
func (o *Observer) Progress(tool string, fraction float64) {
	o.send(ProgressMsg{Key: tool, Fraction: fraction})
}

// Finish writes the final columns for a dependency.
func (o *Observer) Finish(tool string, fields map[string]string) {
	o.send(RowUpdateMsg{Key: tool, Fields: fields})
}
