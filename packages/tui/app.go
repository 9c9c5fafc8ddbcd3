// Package tui is the terminal request editor.
//
// File organization:
//   - app.go: entry point (Run)
//   - model.go: Model struct and message types
//   - init.go: Model construction and the request line
//   - update.go: event handling and sends
//   - view.go: rendering
//   - keys.go: keyboard input
//   - styles.go: colors and status class styles
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and blocks until the user quits or ctx is cancelled. A send still
// in flight is cancelled on exit.
func Run(ctx context.Context, m Model) error {
	m.ctx = ctx
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	if m.editor.InFlight() {
		m.editor.Cancel()
	}
	return err
}
