package tui

import (
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.editor.InFlight() {
			m.editor.Cancel()
		}
		return m, tea.Quit

	case "esc":
		if m.editor.InFlight() || m.editor.View().Loading() {
			m.editor.Cancel()
			m.refreshBody()
			return m, nil
		}
		if m.focus == focusSidebar {
			m.focusInput()
		}
		return m, nil

	case "ctrl+r":
		return m.send()

	case "ctrl+t":
		m.cycleMethod()
		return m, nil

	case "tab":
		if m.svc == nil {
			return m, nil
		}
		if m.focus == focusInput {
			m.applyInput()
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focusInput()
		}
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}

	if msg.String() == "enter" {
		return m.send()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		m.openSelected()
	}
	return m, nil
}

func (m *Model) focusInput() {
	m.focus = focusInput
	m.input.Focus()
}

// openSelected opens the request under the cursor. Folders are skipped.
func (m *Model) openSelected() {
	if m.nav == nil || m.cursor >= len(m.items) {
		return
	}
	item := m.items[m.cursor]
	if item.req.IsFolder() {
		return
	}
	if _, err := m.nav.Select(item.req.ID); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.syncInput()
	m.refreshBody()
	m.focusInput()
}

func (m *Model) cycleMethod() {
	c := m.editor.Composer()
	i := slices.Index(model.Methods, c.Request().Method)
	c.SetMethod(model.Methods[(i+1)%len(model.Methods)])
	_, url := parseLine(m.input.Value(), c.Request().Method)
	m.input.SetValue(string(c.Request().Method) + " " + url)
	m.input.CursorEnd()
}
