package http

import (
	"mime"
	"strings"
	"time"
)

// DefaultMaxBodySize caps how much of a response body is kept.
const DefaultMaxBodySize = 10 << 20

// Response is a fully read HTTP answer.
type Response struct {
	StatusCode int
	Status     string
	Proto      string
	// Headers keeps the first value of every header, keyed by canonical name.
	Headers map[string]string
	Body    []byte
	// Truncated is set when the body was longer than the client's limit.
	Truncated bool
	Duration  time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header looks a header up case-insensitively.
func (r *Response) Header(key string) string {
	if v, ok := r.Headers[key]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// MediaType is the Content-Type without parameters, lower case.
func (r *Response) MediaType() string {
	ct := r.Header("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt, _, _ = strings.Cut(ct, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsJSON reports an application/json or +json media type.
func (r *Response) IsJSON() bool {
	mt := r.MediaType()
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}
