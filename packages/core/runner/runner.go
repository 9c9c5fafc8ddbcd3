package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/composer"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
	"github.com/abdul-hamid-achik/mocha/packages/storage"
)

type Config struct {
	// Iterations repeats the whole run; values below 1 mean once.
	Iterations int
	// Rate caps dispatches per second; 0 means unlimited.
	Rate float64
	// Bail stops after the first failed request.
	Bail bool
	// NameFilter keeps requests whose path contains it (case-insensitive).
	NameFilter string
	Resolver   composer.Resolver
	History    storage.History
	Logger     *slog.Logger
	// OnResult is called after every request, e.g. for live console output.
	OnResult func(Result)
}

type Runner struct {
	dispatcher *dispatch.Dispatcher
	config     *Config
	logger     *slog.Logger
}

func NewRunner(client mhttp.Doer, cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		dispatcher: dispatch.New(client, dispatch.WithLogger(logger)),
		config:     cfg,
		logger:     logger,
	}
}

// Result is the outcome of one request of a run.
type Result struct {
	RequestID string
	Name      string
	Path      string
	Method    string
	URL       string
	Iteration int
	Outcome   dispatch.Outcome
	Status    int
	Elapsed   time.Duration
	// Err is the validation error or the network error.
	Err     error
	Invalid bool
}

// Failed reports whether the request did not get a 2xx or 3xx answer.
func (r Result) Failed() bool {
	if r.Invalid || r.Outcome != dispatch.OutcomeResponse {
		return true
	}
	return r.Status < 200 || r.Status >= 400
}

type Summary struct {
	Name          string
	Results       []Result
	Total         int
	Succeeded     int
	HTTPErrors    int
	NetworkErrors int
	Invalid       int
	Cancelled     int
	Latency       Latency
	Duration      time.Duration
}

// Failed counts the requests that failed for any reason other than cancellation.
func (s *Summary) Failed() int {
	return s.HTTPErrors + s.NetworkErrors + s.Invalid
}

// Items lists the requests of tree below rootID (or all of them) in display order,
// with their slash separated folder path.
func Items(tree *collection.Tree, rootID string) ([]Item, error) {
	var scope map[string]bool
	if rootID != "" {
		ids, err := tree.Descendants(rootID)
		if err != nil {
			return nil, err
		}
		scope = make(map[string]bool, len(ids))
		for _, id := range ids {
			scope[id] = true
		}
	}

	var items []Item
	var stack []string
	err := tree.Walk(func(n model.Request, depth int) error {
		stack = append(stack[:depth], n.Name)
		if n.IsFolder() || (scope != nil && !scope[n.ID]) {
			return nil
		}
		items = append(items, Item{Request: n, Path: strings.Join(stack, "/")})
		return nil
	})
	return items, err
}

// Item is a request scheduled by a run.
type Item struct {
	Request model.Request
	Path    string
}

// Run dispatches every request of tree below rootID (or all of them) in display
// order, one at a time. A cancelled ctx stops the run and returns the partial
// summary together with ctx's error.
func (r *Runner) Run(ctx context.Context, name string, tree *collection.Tree, rootID string) (*Summary, error) {
	items, err := Items(tree, rootID)
	if err != nil {
		return nil, err
	}
	items = r.filter(items)

	iterations := r.config.Iterations
	if iterations < 1 {
		iterations = 1
	}

	var limiter *rate.Limiter
	if r.config.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.config.Rate), 1)
	}

	start := time.Now()
	summary := &Summary{Name: name}
	m := newMetrics()

	finish := func(err error) (*Summary, error) {
		summary.Latency = m.latency()
		summary.Duration = time.Since(start)
		return summary, err
	}

	for it := 1; it <= iterations; it++ {
		for _, item := range items {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return finish(ctx.Err())
				}
			}
			if err := ctx.Err(); err != nil {
				return finish(err)
			}

			res := r.runOne(ctx, item, it)
			r.tally(summary, m, res)
			r.record(ctx, res)
			if r.config.OnResult != nil {
				r.config.OnResult(res)
			}

			if res.Outcome == dispatch.OutcomeCancelled {
				return finish(ctx.Err())
			}
			if r.config.Bail && res.Failed() {
				r.logger.Info("run stopped on failure", "request", item.Path)
				return finish(nil)
			}
		}
	}
	return finish(nil)
}

func (r *Runner) filter(items []Item) []Item {
	if r.config.NameFilter == "" {
		return items
	}
	needle := strings.ToLower(r.config.NameFilter)
	var out []Item
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Path), needle) {
			out = append(out, it)
		}
	}
	return out
}

func (r *Runner) runOne(ctx context.Context, item Item, iteration int) Result {
	req := item.Request
	res := Result{
		RequestID: req.ID,
		Name:      req.Name,
		Path:      item.Path,
		Method:    string(req.Method),
		URL:       req.URL,
		Iteration: iteration,
	}

	httpReq, err := composer.Build(req, r.config.Resolver)
	if err != nil {
		res.Invalid = true
		res.Err = err
		return res
	}
	res.URL = httpReq.BuildURL()

	out := r.dispatcher.Dispatch(ctx, req.ID, httpReq)
	res.Outcome = out.Outcome
	res.Elapsed = out.Elapsed
	res.Err = out.Err
	if out.Response != nil {
		res.Status = out.Response.StatusCode
	}
	return res
}

func (r *Runner) tally(s *Summary, m *metrics, res Result) {
	s.Results = append(s.Results, res)
	s.Total++

	switch {
	case res.Invalid:
		s.Invalid++
	case res.Outcome == dispatch.OutcomeCancelled:
		s.Cancelled++
	case res.Outcome == dispatch.OutcomeNetworkError:
		s.NetworkErrors++
	case res.Failed():
		s.HTTPErrors++
		m.record(res.Elapsed)
	default:
		s.Succeeded++
		m.record(res.Elapsed)
	}
}

func (r *Runner) record(ctx context.Context, res Result) {
	if r.config.History == nil || res.Invalid || res.Outcome == dispatch.OutcomeCancelled {
		return
	}
	err := r.config.History.Record(ctx, storage.HistoryEntry{
		RequestID: res.RequestID,
		Method:    res.Method,
		URL:       res.URL,
		Status:    res.Status,
		ElapsedMs: res.Elapsed.Milliseconds(),
		Outcome:   res.Outcome.String(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("failed to record history", "request", res.RequestID, "error", err)
	}
}

// String renders a one-line description, used in logs.
func (r Result) String() string {
	switch {
	case r.Invalid:
		return fmt.Sprintf("%s: invalid: %v", r.Path, r.Err)
	case r.Outcome == dispatch.OutcomeResponse:
		return fmt.Sprintf("%s: %d (%dms)", r.Path, r.Status, r.Elapsed.Milliseconds())
	default:
		return fmt.Sprintf("%s: %s", r.Path, r.Outcome)
	}
}
