package composer

import (
	"sync"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// Listener is notified with the form state after every mutation.
type Listener func(model.Request)

// Composer holds the editable form state of one request.
type Composer struct {
	mu        sync.RWMutex
	form      model.Request
	listeners []Listener
}

func New(req model.Request) *Composer {
	return &Composer{form: req.Normalize().Clone()}
}

// OnChange registers fn to run after every mutation. Listeners run outside the lock.
func (c *Composer) OnChange(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Request returns a copy of the current form state.
func (c *Composer) Request() model.Request {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.form.Clone()
}

// Reset replaces the whole form without notifying listeners, as when a saved request is
// loaded into the editor.
func (c *Composer) Reset(req model.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = req.Normalize().Clone()
}

func (c *Composer) update(fn func(f *model.Request)) {
	c.mu.Lock()
	fn(&c.form)
	snapshot := c.form.Clone()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (c *Composer) SetName(name string) {
	c.update(func(f *model.Request) { f.Name = name })
}

func (c *Composer) SetMethod(m model.Method) {
	c.update(func(f *model.Request) { f.Method = m })
}

func (c *Composer) SetURL(u string) {
	c.update(func(f *model.Request) { f.URL = u })
}

func (c *Composer) SetBodyType(t model.BodyType) {
	c.update(func(f *model.Request) { f.BodyType = t })
}

// SetBody keeps the text even when the body type is NONE; Build ignores it then.
func (c *Composer) SetBody(body string) {
	c.update(func(f *model.Request) { f.Body = body })
}

func (c *Composer) SetAuthType(t model.AuthType) {
	c.update(func(f *model.Request) { f.AuthType = t })
}

func (c *Composer) SetToken(token string) {
	c.update(func(f *model.Request) { f.Auth.Token = token })
}

// AddHeader appends a header row and returns its index.
func (c *Composer) AddHeader(name, value string) int {
	var idx int
	c.update(func(f *model.Request) {
		f.Headers = append(f.Headers, model.Row{Name: name, Value: value})
		idx = len(f.Headers) - 1
	})
	return idx
}

// SetHeader replaces the header row at i. Out of range indexes are ignored.
func (c *Composer) SetHeader(i int, name, value string) {
	c.update(func(f *model.Request) { f.Headers = setRow(f.Headers, i, name, value) })
}

func (c *Composer) RemoveHeader(i int) {
	c.update(func(f *model.Request) { f.Headers = removeRow(f.Headers, i) })
}

// AddParam appends a query parameter row and returns its index.
func (c *Composer) AddParam(name, value string) int {
	var idx int
	c.update(func(f *model.Request) {
		f.Params = append(f.Params, model.Row{Name: name, Value: value})
		idx = len(f.Params) - 1
	})
	return idx
}

func (c *Composer) SetParam(i int, name, value string) {
	c.update(func(f *model.Request) { f.Params = setRow(f.Params, i, name, value) })
}

func (c *Composer) RemoveParam(i int) {
	c.update(func(f *model.Request) { f.Params = removeRow(f.Params, i) })
}

func setRow(rows []model.Row, i int, name, value string) []model.Row {
	if i < 0 || i >= len(rows) {
		return rows
	}
	rows[i] = model.Row{Name: name, Value: value}
	return rows
}

func removeRow(rows []model.Row, i int) []model.Row {
	if i < 0 || i >= len(rows) {
		return rows
	}
	return append(rows[:i], rows[i+1:]...)
}
