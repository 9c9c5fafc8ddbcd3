package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
)

// Outcome classifies a settled dispatch.
type Outcome int

const (
	// OutcomeResponse means an HTTP status was received, 4xx and 5xx included.
	OutcomeResponse Outcome = iota
	// OutcomeNetworkError means no response was received.
	OutcomeNetworkError
	// OutcomeCancelled means the dispatch was aborted or superseded.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResponse:
		return "response"
	case OutcomeNetworkError:
		return "network-error"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the settled state of one dispatch.
type Result struct {
	Seq       uint64
	RequestID string
	Outcome   Outcome
	Response  *mhttp.Response
	Err       error
	Started   time.Time
	Elapsed   time.Duration
}

// Snapshot converts a non-cancelled result into a response slot value.
func (r Result) Snapshot() Snapshot {
	s := Snapshot{
		RequestID: r.RequestID,
		ElapsedMs: r.Elapsed.Milliseconds(),
		At:        r.Started.Add(r.Elapsed),
	}
	if r.Outcome == OutcomeResponse && r.Response != nil {
		s.HTTPStatus = r.Response.StatusCode
		s.Payload = r.Response.Body
		s.Headers = r.Response.Headers
		return s
	}
	s.NetworkError = true
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// Dispatcher issues at most one request at a time. Starting a dispatch cancels the one
// in flight, so a late answer can never overwrite a newer one. Use one Dispatcher per
// editor; separate dispatchers do not coordinate.
type Dispatcher struct {
	client mhttp.Doer
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func New(client mhttp.Doer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: client,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Begin cancels the in-flight dispatch, if any, and reserves the next sequence
// number. The returned context is cancelled by Cancel or by the next Begin.
func (d *Dispatcher) Begin(ctx context.Context) (context.Context, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.logger.Debug("superseded in-flight dispatch", "seq", d.seq)
	}
	d.seq++
	dctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	return dctx, d.seq
}

// Dispatch sends req and blocks until it settles.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID string, req *mhttp.Request) Result {
	dctx, seq := d.Begin(ctx)
	return d.Run(dctx, seq, requestID, req)
}

// Run performs the call reserved by Begin.
func (d *Dispatcher) Run(dctx context.Context, seq uint64, requestID string, req *mhttp.Request) Result {
	d.logger.Debug("dispatch", "seq", seq, "request", requestID, "method", req.Method, "url", req.URL)

	start := d.now()
	resp, err := d.client.Do(dctx, req)
	elapsed := d.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	cancelled := errors.Is(dctx.Err(), context.Canceled)

	d.release(seq)

	res := Result{
		Seq:       seq,
		RequestID: requestID,
		Started:   start,
		Elapsed:   elapsed,
		Response:  resp,
		Err:       err,
	}

	switch {
	case cancelled:
		// the transport may ignore the abort and still answer; the answer is dropped
		res.Outcome = OutcomeCancelled
		res.Response = nil
		if res.Err == nil {
			res.Err = context.Canceled
		}
	case err != nil:
		res.Outcome = OutcomeNetworkError
	default:
		res.Outcome = OutcomeResponse
		if resp != nil && resp.Truncated {
			d.logger.Warn("response body truncated", "request", requestID, "kept_bytes", len(resp.Body))
		}
	}

	d.logger.Debug("settled", "seq", seq, "request", requestID, "outcome", res.Outcome.String(), "elapsed_ms", elapsed.Milliseconds())
	return res
}

func (d *Dispatcher) release(seq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seq == seq && d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Cancel aborts the in-flight dispatch. It reports whether one was in flight.
func (d *Dispatcher) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel == nil {
		return false
	}
	d.cancel()
	d.cancel = nil
	return true
}

// InFlight reports whether a dispatch is pending.
func (d *Dispatcher) InFlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// IsLatest reports whether seq belongs to the most recent dispatch.
func (d *Dispatcher) IsLatest(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq == seq
}
