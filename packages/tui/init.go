package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/editor"
)

// New creates the model for ed. The request open in ed fills the request line.
func New(ed *editor.Editor, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "GET https://api.example.com/users"
	ti.Prompt = "> "
	ti.PromptStyle = TitleStyle
	ti.CharLimit = 2048
	ti.Width = 80
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = TitleStyle

	m := Model{
		ctx:      context.Background(),
		editor:   ed,
		title:    "mocha",
		input:    ti,
		spinner:  s,
		viewport: viewport.New(80, 20),
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.reloadItems()
	m.syncInput()
	m.refreshBody()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) reloadItems() {
	m.items = m.items[:0]
	if m.svc == nil {
		return
	}
	_ = m.svc.Tree().Walk(func(node model.Request, depth int) error {
		m.items = append(m.items, treeItem{req: node, depth: depth})
		return nil
	})
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

// syncInput writes the open request into the request line.
func (m *Model) syncInput() {
	req := m.editor.Composer().Request()
	line := string(req.Method)
	if req.URL != "" {
		line += " " + req.URL
	}
	m.input.SetValue(line)
	m.input.CursorEnd()
}

// applyInput writes the request line back into the composer.
func (m *Model) applyInput() {
	c := m.editor.Composer()
	method, url := parseLine(m.input.Value(), c.Request().Method)
	if method != c.Request().Method {
		c.SetMethod(method)
	}
	if url != c.Request().URL {
		c.SetURL(url)
	}
}

// parseLine splits "METHOD URL". Without a known method the whole line is the URL and
// current is kept.
func parseLine(line string, current model.Method) (model.Method, string) {
	line = strings.TrimSpace(line)
	head, rest, _ := strings.Cut(line, " ")
	if m, ok := model.ParseMethod(head); ok {
		return m, strings.TrimSpace(rest)
	}
	if current == "" {
		current = model.MethodGet
	}
	return current, line
}
