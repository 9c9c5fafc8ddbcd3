package tui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

// View implements tea.Model.
func (m Model) View() string {
	main := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(m.heading()),
		m.input.View(),
		"",
		m.statusLine(),
		"",
		m.viewport.View(),
	)
	if m.svc != nil {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), " ", main)
	}
	return main + "\n" + m.footerView()
}

func (m Model) heading() string {
	req := m.editor.Composer().Request()
	if req.Name == "" {
		return m.title
	}
	return m.title + " / " + req.Name
}

func (m Model) statusLine() string {
	if m.err != nil {
		return ErrorStyle.Render("error: " + m.err.Error())
	}
	v := m.editor.View()
	switch {
	case v.Loading():
		return m.spinner.View() + HelpStyle.Render(" Sending... esc to cancel")
	case v.Failed():
		return classStyle(v.Class).Render(viewer.NetworkErrorMessage)
	case v.Success():
		snap := v.Snapshot
		status := fmt.Sprintf("%d %s", snap.HTTPStatus, http.StatusText(snap.HTTPStatus))
		meta := fmt.Sprintf("  %d ms  %d B", snap.ElapsedMs, len(snap.Payload))
		return classStyle(v.Class).Render(strings.TrimSpace(status)) + HelpStyle.Render(meta)
	default:
		return HelpStyle.Render("Press enter to send")
	}
}

func (m Model) sidebarView() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(truncate(m.title, sidebarWidth)))
	b.WriteString("\n")
	if len(m.items) == 0 {
		b.WriteString(HelpStyle.Render("(empty)"))
	}
	for i, item := range m.items {
		indent := strings.Repeat("  ", item.depth)
		var line string
		if item.req.IsFolder() {
			line = indent + "▸ " + item.req.Name
		} else {
			line = fmt.Sprintf("%s%-6s %s", indent, item.req.Method, item.req.Name)
		}
		line = truncate(line, sidebarWidth)
		switch {
		case i == m.cursor && m.focus == focusSidebar:
			line = SelectedStyle.Render(line)
		case item.req.ID == m.editor.ActiveID():
			line = TextStyle.Bold(true).Render(line)
		case item.req.IsFolder():
			line = FolderStyle.Render(line)
		default:
			line = TextStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := SidebarStyle
	if m.focus == focusSidebar {
		style = FocusedSidebarStyle
	}
	height := m.height - footerLines
	if height < 1 {
		height = len(m.items) + 1
	}
	return style.Width(sidebarWidth).Height(height).Render(b.String())
}

func (m Model) footerView() string {
	help := "enter send | ctrl+r resend | ctrl+t method | esc cancel | pgup/pgdown scroll | ctrl+c quit"
	if m.svc != nil {
		help = "tab sidebar | " + help
	}
	return HelpStyle.Render(help)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
