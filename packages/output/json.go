package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/mocha/packages/core/runner"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

// JSONResponse is the machine readable form of one settled dispatch
type JSONResponse struct {
	Name         string            `json:"name,omitempty"`
	Method       string            `json:"method,omitempty"`
	URL          string            `json:"url,omitempty"`
	RequestID    string            `json:"requestId,omitempty"`
	Status       int               `json:"status,omitempty"`
	Class        string            `json:"class,omitempty"`
	ElapsedMs    int64             `json:"elapsedMs"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         json.RawMessage   `json:"body,omitempty"`
	BodyText     string            `json:"bodyText,omitempty"`
	NetworkError bool              `json:"networkError,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// JSONRun represents a collection run
type JSONRun struct {
	Name     string        `json:"name"`
	Summary  JSONSummary   `json:"summary"`
	Latency  JSONLatency   `json:"latency"`
	Requests []JSONRequest `json:"requests"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

// JSONSummary represents the run counters
type JSONSummary struct {
	Total         int `json:"total"`
	Succeeded     int `json:"succeeded"`
	HTTPErrors    int `json:"httpErrors"`
	NetworkErrors int `json:"networkErrors"`
	Invalid       int `json:"invalid"`
	Cancelled     int `json:"cancelled"`
}

// JSONLatency holds latency percentiles in milliseconds
type JSONLatency struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// JSONRequest represents a single request of a run
type JSONRequest struct {
	ID        string  `json:"id"`
	Path      string  `json:"path"`
	Method    string  `json:"method"`
	URL       string  `json:"url"`
	Iteration int     `json:"iteration"`
	Outcome   string  `json:"outcome"`
	Status    int     `json:"status,omitempty"`
	Duration  float64 `json:"duration"`
	Failed    bool    `json:"failed"`
	Error     string  `json:"error,omitempty"`
}

// JSONFormatter writes responses immediately and accumulates runs until Flush
type JSONFormatter struct {
	writer io.Writer
	filter string
	runs   []JSONRun
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		runs:   make([]JSONRun, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

// JSONWithFilter applies a gjson path to response bodies.
func JSONWithFilter(path string) JSONOption {
	return func(f *JSONFormatter) {
		f.filter = path
	}
}

func (f *JSONFormatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (f *JSONFormatter) FormatResponse(e *Exchange) error {
	snap := e.Snapshot
	out := JSONResponse{
		Name:         e.Name,
		Method:       e.Method,
		URL:          e.URL,
		RequestID:    snap.RequestID,
		ElapsedMs:    snap.ElapsedMs,
		NetworkError: snap.NetworkError,
	}

	if snap.NetworkError {
		out.Error = viewer.NetworkErrorMessage
		return f.encode(out)
	}

	out.Status = snap.HTTPStatus
	out.Class = string(e.Class())
	out.Headers = snap.Headers

	body, err := FilterBody(snap.Payload, f.filter)
	if err != nil {
		return err
	}
	if len(body) > 0 {
		if gjson.ValidBytes(body) {
			out.Body = json.RawMessage(body)
		} else {
			out.BodyText = string(body)
		}
	}
	return f.encode(out)
}

func (f *JSONFormatter) FormatRun(s *runner.Summary) error {
	run := JSONRun{
		Name: s.Name,
		Summary: JSONSummary{
			Total:         s.Total,
			Succeeded:     s.Succeeded,
			HTTPErrors:    s.HTTPErrors,
			NetworkErrors: s.NetworkErrors,
			Invalid:       s.Invalid,
			Cancelled:     s.Cancelled,
		},
		Latency: JSONLatency{
			Min:  msFloat(s.Latency.Min),
			Mean: msFloat(s.Latency.Mean),
			P50:  msFloat(s.Latency.P50),
			P90:  msFloat(s.Latency.P90),
			P99:  msFloat(s.Latency.P99),
			Max:  msFloat(s.Latency.Max),
		},
		Requests: make([]JSONRequest, 0, len(s.Results)),
		Duration: msFloat(s.Duration),
		Time:     time.Now().Format(time.RFC3339),
	}

	for _, r := range s.Results {
		req := JSONRequest{
			ID:        r.RequestID,
			Path:      r.Path,
			Method:    r.Method,
			URL:       r.URL,
			Iteration: r.Iteration,
			Outcome:   r.Outcome.String(),
			Status:    r.Status,
			Duration:  msFloat(r.Elapsed),
			Failed:    r.Failed(),
		}
		if r.Invalid {
			req.Outcome = "invalid"
		}
		if r.Err != nil {
			req.Error = r.Err.Error()
		}
		run.Requests = append(run.Requests, req)
	}

	f.runs = append(f.runs, run)
	return nil
}

func (f *JSONFormatter) FormatError(err error) {
	_ = f.encode(map[string]string{"error": err.Error()})
}

// Flush writes the accumulated runs: a single run as an object, several as an array.
func (f *JSONFormatter) Flush(time.Duration) error {
	switch len(f.runs) {
	case 0:
		return nil
	case 1:
		return f.encode(f.runs[0])
	default:
		return f.encode(f.runs)
	}
}

func msFloat(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
