package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/editor"
	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
)

// resolveSend runs the commands returned for a send and returns the dispatch result.
func resolveSend(cmd tea.Cmd) (sendResultMsg, bool) {
	if cmd == nil {
		return sendResultMsg{}, false
	}
	switch msg := cmd().(type) {
	case sendResultMsg:
		return msg, true
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if res, ok := c().(sendResultMsg); ok {
				return res, true
			}
		}
	}
	return sendResultMsg{}, false
}

func sendResult(t *testing.T, cmd tea.Cmd) sendResultMsg {
	t.Helper()
	res, ok := resolveSend(cmd)
	require.True(t, ok, "no send result")
	return res
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		current model.Method
		method  model.Method
		url     string
	}{
		{"POST https://x.test/users", model.MethodGet, model.MethodPost, "https://x.test/users"},
		{"delete   https://x.test/1 ", model.MethodGet, model.MethodDelete, "https://x.test/1"},
		{"https://x.test", model.MethodPut, model.MethodPut, "https://x.test"},
		{"https://x.test", "", model.MethodGet, "https://x.test"},
		{"PATCH", model.MethodGet, model.MethodPatch, ""},
		{"", model.MethodGet, model.MethodGet, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			method, url := parseLine(tt.line, tt.current)
			assert.Equal(t, tt.method, method)
			assert.Equal(t, tt.url, url)
		})
	}
}

func TestSendRendersResponse(t *testing.T) {
	methods := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	ed := editor.New(mhttp.NewClient())
	ed.Open(model.NewRequest("Create"))
	m := New(ed)
	assert.Equal(t, "GET", m.input.Value())
	assert.Contains(t, m.View(), "Press enter to send")

	m.input.SetValue("POST " + srv.URL)
	m, cmd := update(t, m, key("enter"))
	assert.Equal(t, 1, m.pending)

	m, _ = update(t, m, sendResult(t, cmd))
	assert.Equal(t, 0, m.pending)
	assert.Equal(t, http.MethodPost, <-methods)

	req := ed.Composer().Request()
	assert.Equal(t, model.MethodPost, req.Method)
	assert.Equal(t, srv.URL, req.URL)

	view := m.View()
	assert.Contains(t, view, "201 Created")
	assert.Contains(t, view, "Create")
	assert.Contains(t, m.viewport.View(), "7")
}

func TestSendShowsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ed := editor.New(mhttp.NewClient())
	ed.Open(model.NewRequest("Down"))
	m := New(ed)
	m.input.SetValue("GET " + url)

	m, cmd := update(t, m, key("ctrl+r"))
	m, _ = update(t, m, sendResult(t, cmd))
	assert.Contains(t, m.View(), "Couldn't connect to server")
}

func TestSendValidationError(t *testing.T) {
	ed := editor.New(mhttp.NewClient())
	ed.Open(model.NewRequest("Empty"))
	m := New(ed)
	m.input.SetValue("GET")

	m, cmd := update(t, m, key("enter"))
	res := sendResult(t, cmd)
	require.Error(t, res.err)

	m, _ = update(t, m, res)
	assert.Contains(t, m.View(), "error:")
	assert.False(t, ed.InFlight())
}

func TestEscCancelsInFlight(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ed := editor.New(mhttp.NewClient())
	ed.Open(model.NewRequest("Slow"))
	m := New(ed)
	m.input.SetValue("GET " + srv.URL)

	m, cmd := update(t, m, key("enter"))
	done := make(chan sendResultMsg, 1)
	go func() {
		res, _ := resolveSend(cmd)
		done <- res
	}()

	require.Eventually(t, func() bool { return ed.View().Loading() }, time.Second, 5*time.Millisecond)
	assert.Contains(t, m.View(), "esc to cancel")

	m, _ = update(t, m, key("esc"))
	assert.False(t, ed.View().Loading())

	select {
	case res := <-done:
		m, _ = update(t, m, res)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not settle after cancel")
	}
	assert.Equal(t, 0, m.pending)
	assert.Contains(t, m.View(), "Press enter to send")
}

func TestCycleMethod(t *testing.T) {
	ed := editor.New(mhttp.NewClient())
	req := model.NewRequest("Users")
	req.URL = "https://x.test/users"
	ed.Open(req)
	m := New(ed)
	assert.Equal(t, "GET https://x.test/users", m.input.Value())

	m, _ = update(t, m, key("ctrl+t"))
	assert.Equal(t, "POST https://x.test/users", m.input.Value())
	assert.Equal(t, model.MethodPost, ed.Composer().Request().Method)

	for range len(model.Methods) - 1 {
		m, _ = update(t, m, key("ctrl+t"))
	}
	assert.Equal(t, model.MethodGet, ed.Composer().Request().Method)
}

func TestSidebarOpensRequest(t *testing.T) {
	folder := model.NewFolder("Admin")
	folder.ID = "f1"
	first := model.NewRequest("Health")
	first.ID = "r1"
	first.URL = "https://x.test/health"
	second := model.NewRequest("Users")
	second.ID = "r2"
	second.Method = model.MethodPost
	second.URL = "https://x.test/users"

	ed := editor.New(mhttp.NewClient())
	svc := collection.NewService("c1", []model.Request{folder, first, second})
	nav := collection.NewNavigator(svc, ed)
	m := New(ed, WithCollection("Shop", svc, nav), WithContext(context.Background()))
	require.Len(t, m.items, 3)
	assert.True(t, m.items[0].req.IsFolder())

	m, _ = update(t, m, key("tab"))
	assert.Equal(t, focusSidebar, m.focus)

	m, _ = update(t, m, key("enter"))
	assert.Equal(t, "", ed.ActiveID(), "folders do not open")

	m, _ = update(t, m, key("down"))
	m, _ = update(t, m, key("down"))
	m, _ = update(t, m, key("enter"))
	assert.Equal(t, "r2", ed.ActiveID())
	assert.Equal(t, "POST https://x.test/users", m.input.Value())
	assert.Equal(t, focusInput, m.focus)

	view := m.View()
	assert.Contains(t, view, "Shop")
	assert.True(t, strings.Contains(view, "Admin"))
}

func TestQuit(t *testing.T) {
	m := New(editor.New(mhttp.NewClient()))
	_, cmd := update(t, m, key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	m := New(editor.New(mhttp.NewClient()))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 40-headerLines-footerLines, m.viewport.Height)
}
