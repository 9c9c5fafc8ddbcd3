package editor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/abdul-hamid-achik/mocha/packages/autosave"
	"github.com/abdul-hamid-achik/mocha/packages/composer"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

// PersistFunc saves a request, typically through the collection service.
type PersistFunc func(ctx context.Context, req model.Request) error

// Outcome tells the caller what a send did besides its dispatch result.
type Outcome struct {
	dispatch.Result
	// Stored is true when the response slot was written.
	Stored bool
	// Rendered is true when the viewer now shows this result.
	Rendered bool
	// Discarded is true when a newer dispatch superseded this one or its request was
	// deleted while it was in flight.
	Discarded bool
}

// Editor is one request editing surface: a composer for the open request, a
// dispatcher that allows one send at a time, the per-request response slots and the
// response viewer.
type Editor struct {
	dispatcher *dispatch.Dispatcher
	slots      *dispatch.Slots
	viewer     *viewer.Viewer
	composer   *composer.Composer
	resolver   composer.Resolver
	saver      *autosave.Debouncer
	persist    PersistFunc
	logger     *slog.Logger
	policy     viewer.CancelPolicy

	// mu orders dispatch starts and settles with Open, Cancel and Discard.
	mu          sync.Mutex
	activeID    string
	inflightID  string
	inflightSeq uint64
	// cancelledSeq and droppedSeq mark a dispatch aborted by Cancel or by deleting
	// its request, so a response that raced the abort is never stored.
	cancelledSeq uint64
	droppedSeq   uint64
}

type Option func(*Editor)

// WithResolver enables {{variable}} interpolation at send time.
func WithResolver(r composer.Resolver) Option {
	return func(e *Editor) {
		e.resolver = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = l
	}
}

func WithCancelPolicy(p viewer.CancelPolicy) Option {
	return func(e *Editor) {
		e.policy = p
	}
}

// WithSlots shares response slots between editors.
func WithSlots(s *dispatch.Slots) Option {
	return func(e *Editor) {
		e.slots = s
	}
}

// WithAutosave commits form edits through persist after the debouncer's quiet period.
func WithAutosave(d *autosave.Debouncer, persist PersistFunc) Option {
	return func(e *Editor) {
		e.saver = d
		e.persist = persist
	}
}

func New(client mhttp.Doer, opts ...Option) *Editor {
	e := &Editor{
		logger: slog.New(slog.DiscardHandler),
		policy: viewer.CancelRestore,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.slots == nil {
		e.slots = dispatch.NewSlots()
	}
	e.dispatcher = dispatch.New(client, dispatch.WithLogger(e.logger))
	e.viewer = viewer.New(e.policy)
	e.composer = composer.New(model.NewRequest(""))
	e.composer.OnChange(e.scheduleSave)
	return e
}

func (e *Editor) scheduleSave(req model.Request) {
	if e.saver == nil || e.persist == nil || req.ID == "" {
		return
	}
	e.saver.Schedule(req.ID, func(ctx context.Context) error {
		return e.persist(ctx, req)
	})
}

// Composer exposes the form of the open request.
func (e *Editor) Composer() *composer.Composer {
	return e.composer
}

func (e *Editor) Slots() *dispatch.Slots {
	return e.slots
}

func (e *Editor) ActiveID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeID
}

// Open makes req the active request and shows its last response.
func (e *Editor) Open(req model.Request) {
	e.composer.Reset(req)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeID = req.ID
	if snap, ok := e.slots.Get(req.ID); ok {
		e.viewer.Show(&snap)
	} else {
		e.viewer.Show(nil)
	}
	if e.inflightID != "" && e.inflightID == req.ID {
		e.viewer.StartLoading()
	}
}

// Close forgets the active request, e.g. after it was deleted.
func (e *Editor) Close() {
	e.mu.Lock()
	e.activeID = ""
	e.mu.Unlock()
	e.composer.Reset(model.NewRequest(""))
	e.viewer.Show(nil)
}

// Send dispatches the open request and blocks until it settles. A validation error is
// returned without dispatching anything. A previous send still in flight is cancelled.
func (e *Editor) Send(ctx context.Context) (Outcome, error) {
	form := e.composer.Request()
	req, err := composer.Build(form, e.resolver)
	if err != nil {
		e.logger.Debug("send blocked", "request", form.ID, "error", err)
		return Outcome{}, err
	}

	e.mu.Lock()
	dctx, seq := e.dispatcher.Begin(ctx)
	e.inflightID = form.ID
	e.inflightSeq = seq
	if e.activeID == form.ID {
		e.viewer.StartLoading()
	}
	e.mu.Unlock()

	res := e.dispatcher.Run(dctx, seq, form.ID, req)
	return e.settle(res), nil
}

func (e *Editor) settle(res dispatch.Result) Outcome {
	out := Outcome{Result: res}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.dispatcher.IsLatest(res.Seq) || e.droppedSeq == res.Seq {
		out.Discarded = true
		if e.inflightSeq == res.Seq {
			e.inflightID = ""
		}
		e.logger.Debug("discarded result", "seq", res.Seq, "request", res.RequestID)
		return out
	}
	e.inflightID = ""
	active := e.activeID == res.RequestID

	if e.cancelledSeq == res.Seq && res.Outcome != dispatch.OutcomeCancelled {
		res.Outcome = dispatch.OutcomeCancelled
		res.Response = nil
		res.Err = context.Canceled
		out.Result = res
	}
	if res.Outcome == dispatch.OutcomeCancelled {
		if active {
			e.viewer.Cancel()
		}
		return out
	}

	snap := res.Snapshot()
	e.slots.Put(snap)
	out.Stored = true

	if active {
		out.Rendered = e.viewer.Settle(snap)
	} else {
		e.logger.Debug("result for inactive request kept in slot only", "request", res.RequestID)
	}
	return out
}

// Cancel aborts the in-flight send and leaves the loading state right away. A response
// that arrives after Cancel is dropped.
func (e *Editor) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancelled := e.dispatcher.Cancel()
	pending := e.inflightID != ""
	if pending {
		e.cancelledSeq = e.inflightSeq
	}
	e.viewer.Cancel()
	return cancelled || pending
}

// InFlight reports whether a send is pending.
func (e *Editor) InFlight() bool {
	return e.dispatcher.InFlight()
}

// View renders the response pane of the active request.
func (e *Editor) View() viewer.View {
	return e.viewer.View()
}

// Flush commits pending autosaves.
func (e *Editor) Flush(ctx context.Context) error {
	if e.saver == nil {
		return nil
	}
	return e.saver.Flush(ctx)
}

// Discard forgets deleted requests: their pending autosaves are dropped, a send still
// in flight for one of them is cancelled, their response slots pruned, and the editor
// is closed when the active request is among them.
func (e *Editor) Discard(ids ...string) {
	if e.saver != nil {
		for _, id := range ids {
			e.saver.Cancel(id)
		}
	}

	e.mu.Lock()
	for _, id := range ids {
		if id != "" && id == e.inflightID {
			e.droppedSeq = e.inflightSeq
			e.dispatcher.Cancel()
			e.logger.Debug("cancelled send for deleted request", "request", id, "seq", e.inflightSeq)
			break
		}
	}
	e.slots.Prune(ids...)
	e.mu.Unlock()

	active := e.ActiveID()
	for _, id := range ids {
		if id != "" && id == active {
			e.Close()
			return
		}
	}
}

// Rename updates the name in the form when id is the active request. The change goes
// through the composer so a pending autosave carries the new name.
func (e *Editor) Rename(id, name string) bool {
	if id == "" || e.ActiveID() != id {
		return false
	}
	e.composer.SetName(name)
	return true
}
