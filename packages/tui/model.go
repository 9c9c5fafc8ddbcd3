package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/editor"
)

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

// treeItem is one sidebar row.
type treeItem struct {
	req   model.Request
	depth int
}

// Model is the bubbletea model of the request editor.
type Model struct {
	ctx    context.Context
	editor *editor.Editor
	svc    *collection.Service
	nav    *collection.Navigator
	title  string

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	items  []treeItem
	cursor int
	focus  focus

	// pending counts sends whose result has not come back yet.
	pending int
	err     error

	width  int
	height int
}

// sendResultMsg is sent when a dispatch settles.
type sendResultMsg struct {
	outcome editor.Outcome
	err     error
}

// Option configures the Model.
type Option func(*Model)

// WithContext bounds every send.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// WithCollection shows the collection tree in a sidebar. Selecting a request opens it
// through nav.
func WithCollection(title string, svc *collection.Service, nav *collection.Navigator) Option {
	return func(m *Model) {
		m.title = title
		m.svc = svc
		m.nav = nav
	}
}
