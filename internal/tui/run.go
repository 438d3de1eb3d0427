package tui

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned when the user quits the progress view before the
// work finished.
var ErrAborted = errors.New("aborted by user")

// RunWithWork starts a bubbletea program, runs workFn in a goroutine and
// blocks until both the program and workFn have returned. workFn receives a
// context that is cancelled as soon as the program exits, plus a send
// callback wrapping tea.Program.Send.
func RunWithWork(ctx context.Context, out io.Writer, model ProgressModel, workFn func(ctx context.Context, send func(tea.Msg))) error {
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx))
	return superviseWork(ctx, p.Run, p.Send, workFn)
}

func superviseWork(ctx context.Context, run func() (tea.Model, error), send func(tea.Msg), workFn func(ctx context.Context, send func(tea.Msg))) error {
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Give bubbletea a moment to draw the initial frame.
		select {
		case <-time.After(50 * time.Millisecond):
		case <-workCtx.Done():
		}
		workFn(workCtx, send)
		send(WorkDoneMsg{})
	}()

	finalModel, err := run()
	cancel()
	<-done

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if m, ok := finalModel.(ProgressModel); ok {
		if m.Aborted() {
			return ErrAborted
		}
		return m.Err()
	}
	return nil
}
