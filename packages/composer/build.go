package composer

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
)

// Resolver substitutes {{...}} placeholders. *env.Resolver satisfies it.
type Resolver interface {
	Resolve(input string) string
}

type identity struct{}

func (identity) Resolve(s string) string { return s }

// Build assembles the current form into a dispatchable descriptor.
func (c *Composer) Build(r Resolver) (*mhttp.Request, error) {
	return Build(c.Request(), r)
}

// Build turns a saved request into a descriptor. Header and param rows are folded into
// maps in order, so the last row for a name wins; rows with a blank name are skipped.
// The body is only attached for BodyJSON and must parse as JSON. A nil resolver
// disables interpolation.
func Build(form model.Request, r Resolver) (*mhttp.Request, error) {
	if r == nil {
		r = identity{}
	}
	form = form.Normalize()

	if form.IsFolder() {
		return nil, invalid("type", "%q is a folder", form.Name)
	}

	method, ok := model.ParseMethod(string(form.Method))
	if !ok {
		return nil, invalid("method", "unsupported method %q", form.Method)
	}

	target := strings.TrimSpace(r.Resolve(form.URL))
	if target == "" {
		return nil, &ValidationError{Field: "url", Err: errors.New("url is required")}
	}

	req := mhttp.NewRequest(string(method), target)

	for _, row := range form.Params {
		if strings.TrimSpace(row.Name) == "" {
			continue
		}
		req.SetQueryParam(row.Name, r.Resolve(row.Value))
	}

	for _, row := range form.Headers {
		if strings.TrimSpace(row.Name) == "" {
			continue
		}
		req.SetHeader(canonicalName(req.Headers, row.Name), r.Resolve(row.Value))
	}

	switch form.BodyType {
	case model.BodyNone:
	case model.BodyJSON:
		body := r.Resolve(form.Body)
		if err := validateJSON(body); err != nil {
			return nil, &ValidationError{Field: "body", Err: err}
		}
		req.SetBody([]byte(body))
		if !hasHeader(req.Headers, "Content-Type") {
			req.SetHeader("Content-Type", "application/json")
		}
	default:
		return nil, invalid("bodyType", "unsupported body type %q", form.BodyType)
	}

	switch form.AuthType {
	case model.AuthNone:
	case model.AuthBearer:
		token := strings.TrimSpace(r.Resolve(form.Auth.Token))
		if token == "" {
			return nil, &ValidationError{Field: "auth.token", Err: errors.New("bearer token is required")}
		}
		delete(req.Headers, canonicalName(req.Headers, "Authorization"))
		req.SetBearer(token)
	default:
		return nil, invalid("authType", "unsupported auth type %q", form.AuthType)
	}

	return req, nil
}

func validateJSON(body string) error {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return err
	}
	return nil
}

// canonicalName returns the key already used in headers for name (HTTP header names are
// case-insensitive), or name itself. It keeps "last row wins" across different casings.
func canonicalName(headers map[string]string, name string) string {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return k
		}
	}
	return name
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
