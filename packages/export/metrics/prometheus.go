// Package metrics writes collection run summaries in the Prometheus text exposition
// format, e.g. for the node_exporter textfile collector or a Pushgateway.
package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/mocha/packages/core/runner"
)

const prefix = "mocha_run"

// requestStats aggregates the results of one request across iterations.
type requestStats struct {
	name     string
	method   string
	count    int64
	failed   int64
	totalDur time.Duration
}

// PrometheusExporter renders a run summary.
type PrometheusExporter struct {
	labels    map[string]string
	timestamp bool
	now       func() time.Time
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithLabel adds a constant label to every sample.
func WithLabel(name, value string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.labels[name] = value
	}
}

// WithTimestamps appends the export time to every sample. The textfile collector
// rejects timestamps, a Pushgateway accepts them.
func WithTimestamps(on bool) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.timestamp = on
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{
		labels: make(map[string]string),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WriteFile writes the summary to path atomically, so a collector never reads a half
// written file.
func (p *PrometheusExporter) WriteFile(path string, s *runner.Summary) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mocha-metrics-*")
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := p.Write(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Write renders s to w.
func (p *PrometheusExporter) Write(w io.Writer, s *runner.Summary) error {
	e := &expo{w: w, base: p.baseLabels(s)}
	if p.timestamp {
		e.suffix = fmt.Sprintf(" %d", p.now().UnixMilli())
	}

	e.family("requests_total", "counter", "Requests dispatched by the run")
	e.sample("requests_total", nil, float64(s.Total))

	e.family("requests_by_outcome_total", "counter", "Requests by outcome")
	e.sample("requests_by_outcome_total", []string{"outcome", "success"}, float64(s.Succeeded))
	e.sample("requests_by_outcome_total", []string{"outcome", "http_error"}, float64(s.HTTPErrors))
	e.sample("requests_by_outcome_total", []string{"outcome", "network_error"}, float64(s.NetworkErrors))
	e.sample("requests_by_outcome_total", []string{"outcome", "invalid"}, float64(s.Invalid))
	e.sample("requests_by_outcome_total", []string{"outcome", "cancelled"}, float64(s.Cancelled))

	e.family("duration_seconds", "gauge", "Wall time of the run")
	e.sample("duration_seconds", nil, s.Duration.Seconds())

	e.family("latency_seconds", "gauge", "Request latency of the run")
	for _, q := range []struct {
		label string
		d     time.Duration
	}{
		{"min", s.Latency.Min},
		{"mean", s.Latency.Mean},
		{"0.5", s.Latency.P50},
		{"0.9", s.Latency.P90},
		{"0.99", s.Latency.P99},
		{"max", s.Latency.Max},
	} {
		e.sample("latency_seconds", []string{"quantile", q.label}, q.d.Seconds())
	}

	codes := make(map[int]int64)
	for _, r := range s.Results {
		if r.Status > 0 {
			codes[r.Status]++
		}
	}
	if len(codes) > 0 {
		keys := make([]int, 0, len(codes))
		for code := range codes {
			keys = append(keys, code)
		}
		sort.Ints(keys)
		e.family("requests_by_status_total", "counter", "Requests by HTTP status code")
		for _, code := range keys {
			e.sample("requests_by_status_total", []string{"status", fmt.Sprint(code)}, float64(codes[code]))
		}
	}

	stats := perRequest(s.Results)
	if len(stats) > 0 {
		e.family("request_duration_avg_seconds", "gauge", "Average latency per request")
		for _, st := range stats {
			avg := st.totalDur.Seconds() / float64(st.count)
			e.sample("request_duration_avg_seconds", []string{"request", st.name, "method", st.method}, avg)
		}
		e.family("request_failures_total", "counter", "Failed dispatches per request")
		for _, st := range stats {
			e.sample("request_failures_total", []string{"request", st.name, "method", st.method}, float64(st.failed))
		}
	}
	return e.err
}

func (p *PrometheusExporter) baseLabels(s *runner.Summary) []string {
	names := make([]string, 0, len(p.labels))
	for name := range p.labels {
		names = append(names, name)
	}
	sort.Strings(names)

	labels := []string{"collection", s.Name}
	for _, name := range names {
		labels = append(labels, name, p.labels[name])
	}
	return labels
}

func perRequest(results []runner.Result) []*requestStats {
	byPath := make(map[string]*requestStats)
	var order []string
	for _, r := range results {
		if r.Invalid {
			continue
		}
		st, ok := byPath[r.Path]
		if !ok {
			st = &requestStats{name: r.Path, method: r.Method}
			byPath[r.Path] = st
			order = append(order, r.Path)
		}
		st.count++
		st.totalDur += r.Elapsed
		if r.Failed() {
			st.failed++
		}
	}
	out := make([]*requestStats, 0, len(order))
	for _, path := range order {
		out = append(out, byPath[path])
	}
	return out
}

// expo writes exposition lines and keeps the first write error.
type expo struct {
	w      io.Writer
	base   []string
	suffix string
	err    error
}

func (e *expo) family(name, kind, help string) {
	e.printf("# HELP %s_%s %s\n# TYPE %s_%s %s\n", prefix, name, help, prefix, name, kind)
}

func (e *expo) sample(name string, labels []string, value float64) {
	all := append(append([]string{}, e.base...), labels...)
	parts := make([]string, 0, len(all)/2)
	for i := 0; i+1 < len(all); i += 2 {
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", all[i], sanitizeLabel(all[i+1])))
	}
	e.printf("%s_%s{%s} %g%s\n", prefix, name, strings.Join(parts, ","), value, e.suffix)
}

func (e *expo) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
