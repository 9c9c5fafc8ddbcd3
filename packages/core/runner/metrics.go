package runner

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// latency bounds of the histogram, in microseconds
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Latency summarizes the elapsed times of the dispatches that got an answer.
type Latency struct {
	Min  time.Duration `json:"min"`
	Mean time.Duration `json:"mean"`
	P50  time.Duration `json:"p50"`
	P90  time.Duration `json:"p90"`
	P99  time.Duration `json:"p99"`
	Max  time.Duration `json:"max"`
}

// metrics collects latencies in an HDR histogram (1us to 60s, 3 significant digits).
type metrics struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
}

func newMetrics() *metrics {
	return &metrics{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

func (m *metrics) record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}

	m.mu.Lock()
	_ = m.histogram.RecordValue(us)
	m.mu.Unlock()
}

func (m *metrics) latency() Latency {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.histogram.TotalCount() == 0 {
		return Latency{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return Latency{
		Min:  us(m.histogram.Min()),
		Mean: us(int64(m.histogram.Mean())),
		P50:  us(m.histogram.ValueAtQuantile(50)),
		P90:  us(m.histogram.ValueAtQuantile(90)),
		P99:  us(m.histogram.ValueAtQuantile(99)),
		Max:  us(m.histogram.Max()),
	}
}
