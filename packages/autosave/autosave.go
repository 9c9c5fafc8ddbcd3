package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultDelay is the quiet period after the last edit before a save fires.
const DefaultDelay = 500 * time.Millisecond

// SaveFunc persists the latest state captured for a key.
type SaveFunc func(ctx context.Context) error

type pending struct {
	gen   uint64
	timer *time.Timer
	save  SaveFunc
}

// Debouncer runs one trailing-edge save per key: every Schedule for a key cancels the
// previous timer and replaces the save function, so only the latest state is persisted.
type Debouncer struct {
	delay   time.Duration
	ctx     context.Context
	logger  *slog.Logger
	onError func(key string, err error)

	mu      sync.Mutex
	gen     uint64
	pending map[string]*pending
	running sync.WaitGroup
}

type Option func(*Debouncer)

func WithDelay(d time.Duration) Option {
	return func(s *Debouncer) {
		if d > 0 {
			s.delay = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Debouncer) {
		s.logger = l
	}
}

// WithErrorHandler is called when a timer-fired save fails.
func WithErrorHandler(fn func(key string, err error)) Option {
	return func(s *Debouncer) {
		s.onError = fn
	}
}

// New returns a debouncer whose timer-fired saves run with ctx.
func New(ctx context.Context, opts ...Option) *Debouncer {
	s := &Debouncer{
		delay:   DefaultDelay,
		ctx:     ctx,
		logger:  slog.New(slog.DiscardHandler),
		pending: make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule (re)arms the timer for key.
func (s *Debouncer) Schedule(key string, save SaveFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending[key] = &pending{
		gen:   gen,
		save:  save,
		timer: time.AfterFunc(s.delay, func() { s.fire(key, gen) }),
	}
}

func (s *Debouncer) fire(key string, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	if err := p.save(s.ctx); err != nil {
		s.logger.Warn("autosave failed", "key", key, "error", err)
		if s.onError != nil {
			s.onError(key, err)
		}
		return
	}
	s.logger.Debug("autosaved", "key", key)
}

// Flush runs every pending save now and waits for saves already running.
func (s *Debouncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	saves := make(map[string]SaveFunc, len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		saves[key] = p.save
	}
	s.pending = make(map[string]*pending)
	s.mu.Unlock()

	var errs []error
	for key, save := range saves {
		if err := save(ctx); err != nil {
			errs = append(errs, err)
			s.logger.Warn("autosave flush failed", "key", key, "error", err)
		}
	}
	s.running.Wait()
	return errors.Join(errs...)
}

// Cancel drops the pending save of key. It reports whether one was pending.
func (s *Debouncer) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[key]
	if ok {
		p.timer.Stop()
		delete(s.pending, key)
	}
	return ok
}

// Stop drops every pending save.
func (s *Debouncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		p.timer.Stop()
	}
	s.pending = make(map[string]*pending)
}

// Pending reports how many keys wait for their timer.
func (s *Debouncer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
