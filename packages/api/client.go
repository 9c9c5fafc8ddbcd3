package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
	"github.com/abdul-hamid-achik/mocha/packages/session"
)

// DefaultBaseURL is where the backend listens during local development.
const DefaultBaseURL = "http://localhost:3000"

// Client talks to the collections backend. Answers are JSON objects keyed by resource
// name; the key is extracted with gjson and decoded into the target type.
type Client struct {
	baseURL string
	http    mhttp.Doer
	auth    *session.Auth
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the transport used for API calls.
func WithHTTPClient(d mhttp.Doer) Option {
	return func(c *Client) {
		c.http = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for baseURL. auth may be nil for anonymous use.
func New(baseURL string, auth *session.Auth, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = mhttp.NewClient()
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) token() string {
	if c.auth == nil {
		return ""
	}
	return c.auth.Token()
}

// do sends one API call. When key is set the value under key is decoded into out.
func (c *Client) do(ctx context.Context, method, path string, in any, key string, out any) error {
	body, err := c.call(ctx, method, path, in)
	if err != nil {
		return err
	}
	if key == "" || out == nil {
		return nil
	}
	if err := decode(body, key, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return nil
}

// call sends one API call and returns the raw answer of a 2xx status.
func (c *Client) call(ctx context.Context, method, path string, in any) ([]byte, error) {
	req := mhttp.NewRequest(method, c.baseURL+path)
	req.SetHeader("Accept", "application/json")
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}
	if token := c.token(); token != "" {
		req.SetBearer(token)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode, "duration", resp.Duration)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if c.auth != nil {
			if err := c.auth.Clear(ctx); err != nil {
				c.logger.Warn("failed to clear session", "error", err)
			}
		}
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	return resp.Body, nil
}

func decode(body []byte, key string, out any) error {
	value := gjson.GetBytes(body, key)
	if !value.Exists() {
		return fmt.Errorf("response has no %q field", key)
	}
	if err := json.Unmarshal([]byte(value.Raw), out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, path := range []string{"error", "message", "error.message"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
