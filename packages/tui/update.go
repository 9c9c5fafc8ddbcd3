package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	"github.com/abdul-hamid-achik/mocha/packages/editor"
	"github.com/abdul-hamid-achik/mocha/packages/output"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.handleWindowResize(msg)

	case sendResultMsg:
		if m.pending > 0 {
			m.pending--
		}
		m.err = msg.err
		if msg.outcome.Rendered || msg.outcome.Outcome == dispatch.OutcomeCancelled {
			m.refreshBody()
		}
		return m, nil

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleWindowResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	main := m.mainWidth()
	m.input.Width = max(main-len(m.input.Prompt)-1, 10)
	m.viewport.Width = main
	m.viewport.Height = max(m.height-headerLines-footerLines, 3)
	m.refreshBody()
}

func (m Model) mainWidth() int {
	w := m.width
	if w == 0 {
		w = m.viewport.Width
	}
	if m.svc != nil {
		w -= sidebarWidth + 2
	}
	return max(w, 20)
}

// send applies the request line and dispatches the open request.
func (m Model) send() (tea.Model, tea.Cmd) {
	m.applyInput()
	m.err = nil
	m.pending++
	return m, tea.Batch(m.spinner.Tick, sendCmd(m.ctx, m.editor))
}

// sendCmd blocks on the dispatch in the command goroutine.
func sendCmd(ctx context.Context, ed *editor.Editor) tea.Cmd {
	return func() tea.Msg {
		out, err := ed.Send(ctx)
		return sendResultMsg{outcome: out, err: err}
	}
}

// refreshBody renders the settled response into the viewport.
func (m *Model) refreshBody() {
	v := m.editor.View()
	if v.Snapshot == nil {
		m.viewport.SetContent("")
		return
	}
	if v.Snapshot.NetworkError {
		m.viewport.SetContent(ErrorStyle.Render(v.Snapshot.Error))
		return
	}
	m.viewport.SetContent(string(output.PrettyBody(v.Snapshot.Payload, true)))
	m.viewport.GotoTop()
}
