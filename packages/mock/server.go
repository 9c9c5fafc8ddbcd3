// Package mock serves an in-memory implementation of the mocha backend API for
// local development and tests.
package mock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

const (
	// DefaultPort matches the default API URL of the client.
	DefaultPort = 3000

	bcryptCost = 12
)

// Server is a mock backend.
type Server struct {
	store   *store
	port    int
	delay   time.Duration
	logger  *slog.Logger
	seeds   []seed
	handler http.Handler
}

type seed struct {
	name, email, password string
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses. A cancelled request stops waiting.
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithLogger logs every request and the login codes that would be mailed.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPasswordCost sets the bcrypt cost used for new accounts.
func WithPasswordCost(cost int) Option {
	return func(s *Server) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.store.cost = cost
		}
	}
}

// WithUser registers an account when the server is created.
func WithUser(name, email, password string) Option {
	return func(s *Server) {
		s.seeds = append(s.seeds, seed{name: name, email: email, password: password})
	}
}

// NewServer creates a new mock server
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		store:  newStore(bcryptCost),
		port:   DefaultPort,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, sd := range s.seeds {
		if _, _, err := s.store.register(sd.name, sd.email, "", sd.password); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", sd.email, err)
		}
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the HTTP handler, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// LoginCode returns the last code issued for email.
func (s *Server) LoginCode(email string) (string, bool) {
	return s.store.code(email)
}

// Token signs email in without a password, for seeding clients in tests.
func (s *Server) Token(email string) (string, model.User, error) {
	code, err := s.store.requestCode(email)
	if err != nil {
		return "", model.User{}, err
	}
	return s.store.signIn(email, "", code)
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.port)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("mock server listening", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
