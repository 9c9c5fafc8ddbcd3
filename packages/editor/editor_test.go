package editor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/mocha/packages/autosave"
	"github.com/abdul-hamid-achik/mocha/packages/composer"
	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateDoer struct {
	calls   atomic.Int32
	started chan *mhttp.Request
	release chan int
}

func newGateDoer() *gateDoer {
	return &gateDoer{
		started: make(chan *mhttp.Request, 4),
		release: make(chan int, 4),
	}
}

func (g *gateDoer) Do(ctx context.Context, req *mhttp.Request) (*mhttp.Response, error) {
	g.calls.Add(1)
	g.started <- req
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case status := <-g.release:
		return &mhttp.Response{StatusCode: status, Body: []byte(`{}`)}, nil
	}
}

// lateDoer ignores cancellation, like a response already on the wire when the send
// is aborted.
type lateDoer struct {
	started chan struct{}
	release chan int
}

func newLateDoer() *lateDoer {
	return &lateDoer{started: make(chan struct{}, 4), release: make(chan int, 4)}
}

func (l *lateDoer) Do(_ context.Context, _ *mhttp.Request) (*mhttp.Response, error) {
	l.started <- struct{}{}
	return &mhttp.Response{StatusCode: <-l.release, Body: []byte(`{}`)}, nil
}

func request(id, url string) model.Request {
	r := model.NewRequest(id)
	r.ID = id
	r.URL = url
	return r
}

func TestSend_PingSettlesSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	}))
	defer server.Close()

	e := New(mhttp.NewClient())
	e.Open(request("ping", server.URL+"/ping"))

	out, err := e.Send(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.True(t, out.Rendered)

	view := e.View()
	assert.True(t, view.Success())
	assert.False(t, view.CanCancel)
	assert.Equal(t, viewer.ClassSuccess, view.Class)
	assert.Equal(t, 200, view.Snapshot.HTTPStatus)
	assert.GreaterOrEqual(t, view.Snapshot.ElapsedMs, int64(0))
	assert.JSONEq(t, `{"pong":true}`, string(view.Snapshot.Payload))
}

func TestSend_UnreachableSettlesNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	e := New(mhttp.NewClient(mhttp.WithTimeout(2 * time.Second)))
	e.Open(request("down", addr))

	out, err := e.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutcomeNetworkError, out.Outcome)

	view := e.View()
	assert.True(t, view.Failed())
	assert.False(t, view.CanCancel)
	assert.False(t, view.Loading())
	assert.Equal(t, viewer.NetworkErrorMessage, view.Message)
}

func TestSend_ValidationErrorDispatchesNothing(t *testing.T) {
	doer := newGateDoer()
	e := New(doer)

	req := request("bad", "https://api.example.com/items")
	req.Method = model.MethodPost
	req.BodyType = model.BodyJSON
	req.Body = `{"broken":`
	e.Open(req)

	_, err := e.Send(context.Background())
	var verr *composer.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "body", verr.Field)

	assert.Equal(t, int32(0), doer.calls.Load())
	assert.Equal(t, viewer.PhaseIdle, e.View().Phase)
	assert.Equal(t, 0, e.Slots().Len())
}

func TestSend_BodyNoneSendsNoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	req := request("post", server.URL)
	req.Method = model.MethodPost
	req.BodyType = model.BodyNone
	req.Body = `{"left": "over"}`

	e := New(mhttp.NewClient())
	e.Open(req)
	_, err := e.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 202, e.View().Snapshot.HTTPStatus)
}

func TestCancel_WhileLoadingWritesNoResponse(t *testing.T) {
	doer := newGateDoer()
	e := New(doer)
	e.Open(request("slow", "https://api.example.com/slow"))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := e.Send(context.Background())
		done <- out
	}()

	<-doer.started
	assert.True(t, e.View().Loading())
	assert.True(t, e.View().CanCancel)

	assert.True(t, e.Cancel())
	assert.False(t, e.View().Loading())

	out := <-done
	assert.Equal(t, dispatch.OutcomeCancelled, out.Outcome)
	assert.False(t, out.Stored)
	assert.Equal(t, viewer.PhaseIdle, e.View().Phase)
	_, ok := e.Slots().Get("slow")
	assert.False(t, ok)
}

func TestCancel_DropsResponseThatRacedIt(t *testing.T) {
	doer := newLateDoer()
	e := New(doer)
	e.Open(request("slow", "https://api.example.com/slow"))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := e.Send(context.Background())
		done <- out
	}()

	<-doer.started
	assert.True(t, e.Cancel())
	doer.release <- 200

	out := <-done
	assert.Equal(t, dispatch.OutcomeCancelled, out.Outcome)
	assert.False(t, out.Stored)
	assert.False(t, out.Rendered)
	assert.False(t, e.InFlight())
	assert.Equal(t, viewer.PhaseIdle, e.View().Phase)
	_, ok := e.Slots().Get("slow")
	assert.False(t, ok)
}

func TestCancel_RestoresPreviousResponse(t *testing.T) {
	doer := newGateDoer()
	e := New(doer, WithCancelPolicy(viewer.CancelRestore))
	e.Open(request("r", "https://api.example.com/r"))

	doer.release <- 201
	_, err := e.Send(context.Background())
	require.NoError(t, err)
	<-doer.started

	done := make(chan struct{})
	go func() {
		_, _ = e.Send(context.Background())
		close(done)
	}()
	<-doer.started
	e.Cancel()
	<-done

	view := e.View()
	assert.Equal(t, viewer.PhaseSettled, view.Phase)
	assert.Equal(t, 201, view.Snapshot.HTTPStatus)
}

func TestSend_SecondSendCancelsFirst(t *testing.T) {
	doer := newGateDoer()
	e := New(doer)
	e.Open(request("r", "https://api.example.com/r"))

	first := make(chan Outcome, 1)
	go func() {
		out, _ := e.Send(context.Background())
		first <- out
	}()
	<-doer.started

	second := make(chan Outcome, 1)
	go func() {
		out, _ := e.Send(context.Background())
		second <- out
	}()

	out1 := <-first
	assert.Equal(t, dispatch.OutcomeCancelled, out1.Outcome)
	assert.True(t, out1.Discarded)
	assert.False(t, out1.Stored)
	assert.True(t, e.View().Loading())

	<-doer.started
	doer.release <- 200
	out2 := <-second
	assert.True(t, out2.Rendered)
	assert.Equal(t, 200, e.View().Snapshot.HTTPStatus)
	assert.Equal(t, int32(2), doer.calls.Load())
}

func TestSend_ResultForSwitchedAwayRequestIsNotRendered(t *testing.T) {
	doer := newGateDoer()
	e := New(doer)
	a := request("a", "https://api.example.com/a")
	b := request("b", "https://api.example.com/b")

	e.Open(a)
	done := make(chan Outcome, 1)
	go func() {
		out, _ := e.Send(context.Background())
		done <- out
	}()
	<-doer.started

	e.Open(b)
	assert.Equal(t, viewer.PhaseIdle, e.View().Phase)

	doer.release <- 500
	out := <-done
	assert.True(t, out.Stored)
	assert.False(t, out.Rendered)
	assert.Equal(t, viewer.PhaseIdle, e.View().Phase)

	e.Open(a)
	view := e.View()
	assert.Equal(t, viewer.PhaseSettled, view.Phase)
	assert.Equal(t, viewer.ClassServerError, view.Class)
}

func TestOpen_ShowsLoadingForInFlightRequest(t *testing.T) {
	doer := newGateDoer()
	e := New(doer)
	a := request("a", "https://api.example.com/a")

	e.Open(a)
	done := make(chan struct{})
	go func() {
		_, _ = e.Send(context.Background())
		close(done)
	}()
	<-doer.started

	e.Open(request("b", "https://api.example.com/b"))
	e.Open(a)
	assert.True(t, e.View().Loading())

	doer.release <- 204
	<-done
	assert.Equal(t, 204, e.View().Snapshot.HTTPStatus)
}

func TestSlotsAreKeptPerRequest(t *testing.T) {
	doer := newGateDoer()
	e := New(doer)

	for id, status := range map[string]int{"a": 200, "b": 404} {
		e.Open(request(id, "https://api.example.com/"+id))
		doer.release <- status
		_, err := e.Send(context.Background())
		require.NoError(t, err)
		<-doer.started
	}

	e.Open(request("a", "https://api.example.com/a"))
	assert.Equal(t, 200, e.View().Snapshot.HTTPStatus)
	e.Open(request("b", "https://api.example.com/b"))
	assert.Equal(t, 404, e.View().Snapshot.HTTPStatus)

	e.Close()
	assert.Equal(t, "", e.ActiveID())
	assert.Equal(t, viewer.PhaseIdle, e.View().Phase)
}

func TestSend_UsesResolver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := env.NewResolver()
	r.SetVariables(map[string]string{"base": server.URL, "token": "s3cret"})

	req := request("me", "{{base}}/me")
	req.AuthType = model.AuthBearer
	req.Auth.Token = "{{token}}"

	e := New(mhttp.NewClient(), WithResolver(r))
	e.Open(req)
	_, err := e.Send(context.Background())
	require.NoError(t, err)
	assert.True(t, e.View().Success())
}

func TestAutosave_CommitsLatestEdit(t *testing.T) {
	var mu sync.Mutex
	var saved []model.Request
	persist := func(_ context.Context, req model.Request) error {
		mu.Lock()
		defer mu.Unlock()
		saved = append(saved, req)
		return nil
	}

	d := autosave.New(context.Background(), autosave.WithDelay(time.Hour))
	e := New(newGateDoer(), WithAutosave(d, persist))
	e.Open(request("r", "https://api.example.com/r"))

	e.Composer().SetURL("https://api.example.com/r2")
	e.Composer().SetMethod(model.MethodDelete)

	require.NoError(t, e.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, saved, 1)
	assert.Equal(t, "https://api.example.com/r2", saved[0].URL)
	assert.Equal(t, model.MethodDelete, saved[0].Method)
}

func TestDiscard_DropsPendingSaveAndClosesActive(t *testing.T) {
	saved := 0
	persist := func(context.Context, model.Request) error {
		saved++
		return nil
	}

	d := autosave.New(context.Background(), autosave.WithDelay(time.Hour))
	e := New(newGateDoer(), WithAutosave(d, persist))
	e.Open(request("r", "https://api.example.com/r"))
	e.Composer().SetURL("https://api.example.com/edited")
	e.Slots().Put(dispatch.Snapshot{RequestID: "r", HTTPStatus: 200})
	e.Slots().Put(dispatch.Snapshot{RequestID: "other", HTTPStatus: 200})

	e.Discard("r")

	assert.Empty(t, e.ActiveID())
	assert.Equal(t, viewer.PhaseIdle, e.View().Phase)
	assert.Equal(t, 0, d.Pending())
	assert.Equal(t, 1, e.Slots().Len())

	require.NoError(t, e.Flush(context.Background()))
	assert.Zero(t, saved)
}

func TestDiscard_CancelsInFlightSend(t *testing.T) {
	gate, late := newGateDoer(), newLateDoer()
	tests := []struct {
		name    string
		doer    mhttp.Doer
		started func()
		release chan<- int
	}{
		{"honours cancellation", gate, func() { <-gate.started }, gate.release},
		{"answers anyway", late, func() { <-late.started }, late.release},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.doer)
			e.Open(request("a", "https://api.example.com/a"))

			done := make(chan Outcome, 1)
			go func() {
				out, _ := e.Send(context.Background())
				done <- out
			}()
			tt.started()

			e.Discard("a")
			tt.release <- 200

			out := <-done
			assert.False(t, out.Stored)
			assert.False(t, out.Rendered)
			assert.False(t, e.InFlight())
			assert.Empty(t, e.ActiveID())
			assert.Equal(t, viewer.PhaseIdle, e.View().Phase)
			_, ok := e.Slots().Get("a")
			assert.False(t, ok)
		})
	}
}

func TestDiscard_LeavesOtherInFlightSendAlone(t *testing.T) {
	doer := newGateDoer()
	e := New(doer)
	e.Open(request("a", "https://api.example.com/a"))

	done := make(chan Outcome, 1)
	go func() {
		out, _ := e.Send(context.Background())
		done <- out
	}()
	<-doer.started

	e.Discard("b")
	doer.release <- 200

	out := <-done
	assert.True(t, out.Stored)
	assert.True(t, out.Rendered)
	_, ok := e.Slots().Get("a")
	assert.True(t, ok)
}

func TestSend_ConcurrentSendsNeverLeaveLoading(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := New(mhttp.NewClient())
	e.Open(request("r", server.URL))

	var wg sync.WaitGroup
	var stored atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Send(context.Background())
			assert.NoError(t, err)
			if out.Stored {
				stored.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.False(t, e.InFlight())
	assert.False(t, e.View().Loading())
	assert.GreaterOrEqual(t, stored.Load(), int32(1))
	assert.Equal(t, viewer.PhaseSettled, e.View().Phase)
	assert.Equal(t, 200, e.View().Snapshot.HTTPStatus)
}

func TestRename_OnlyTouchesActiveRequest(t *testing.T) {
	e := New(newGateDoer())
	e.Open(request("r", "https://api.example.com/r"))

	assert.False(t, e.Rename("other", "x"))
	assert.True(t, e.Rename("r", "renamed"))
	assert.Equal(t, "renamed", e.Composer().Request().Name)
}
