package http

import (
	"net/url"
	"sort"
	"time"
)

// Request is a dispatchable request descriptor. A nil Body means no body is sent.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	Body        []byte
	Timeout     time.Duration
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body []byte) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

// SetBearer sets the Authorization header for bearer token auth.
func (r *Request) SetBearer(token string) *Request {
	r.Headers["Authorization"] = "Bearer " + token
	return r
}

func (r *Request) HasBody() bool {
	return r.Body != nil
}

// BuildURL merges QueryParams into the query string of URL. Params override
// keys already present in the URL.
func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	keys := make([]string, 0, len(r.QueryParams))
	for k := range r.QueryParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, r.QueryParams[k])
	}
	u.RawQuery = q.Encode()
	return u.String()
}
