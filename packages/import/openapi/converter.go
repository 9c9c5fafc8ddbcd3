// Package openapi converts OpenAPI 3 documents into collection documents:
// tags become folders and operations become requests.
package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

const (
	// BaseURLVariable prefixes every imported request URL.
	BaseURLVariable = "baseUrl"
	// TokenVariable holds the bearer token of secured operations.
	TokenVariable = "token"

	maxSchemaDepth = 5
)

// Converter converts OpenAPI specs to documents.
type Converter struct {
	baseURL     string
	includeTags []string
	excludeTags []string
	includeOnly []string
	logger      *slog.Logger
}

// Option is a functional option for Converter
type Option func(*Converter)

// WithBaseURL sets a custom base URL, overriding the servers of the document.
func WithBaseURL(url string) Option {
	return func(c *Converter) {
		c.baseURL = url
	}
}

// WithTags filters operations by tags
func WithTags(tags []string) Option {
	return func(c *Converter) {
		c.includeTags = tags
	}
}

// WithExcludeTags excludes operations with these tags
func WithExcludeTags(tags []string) Option {
	return func(c *Converter) {
		c.excludeTags = tags
	}
}

// WithOperations filters to specific operation IDs
func WithOperations(ops []string) Option {
	return func(c *Converter) {
		c.includeOnly = ops
	}
}

// WithLogger receives validation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConverter creates a new OpenAPI converter
func NewConverter(opts ...Option) *Converter {
	c := &Converter{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConvertFile loads a document from a file path or an http(s) URL and converts it.
func (c *Converter) ConvertFile(ctx context.Context, location string) (*workspace.Document, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	var doc *openapi3.T
	var err error
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		var u *url.URL
		u, err = url.Parse(location)
		if err == nil {
			doc, err = loader.LoadFromURI(u)
		}
	} else {
		doc, err = loader.LoadFromFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}

	return c.Convert(ctx, doc)
}

// ConvertData converts a YAML or JSON document held in memory.
func (c *Converter) ConvertData(ctx context.Context, data []byte) (*workspace.Document, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	return c.Convert(ctx, doc)
}

// Convert builds a document from an OpenAPI model. Validation problems are
// logged and do not stop the conversion. Operations whose method the composer
// cannot send are skipped.
func (c *Converter) Convert(ctx context.Context, doc *openapi3.T) (*workspace.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("empty OpenAPI document")
	}
	if err := doc.Validate(ctx); err != nil {
		c.logger.Warn("openapi validation", "error", err)
	}

	out := &workspace.Document{Version: workspace.CurrentVersion, Name: "OpenAPI import"}
	if doc.Info != nil && doc.Info.Title != "" {
		out.Name = doc.Info.Title
	}

	var root []workspace.Item
	folders := make(map[string]*workspace.Item)
	var folderOrder []string
	secured := false

	if doc.Paths != nil {
		paths := make([]string, 0, doc.Paths.Len())
		for path := range doc.Paths.Map() {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			item := doc.Paths.Value(path)
			if item == nil {
				continue
			}
			for _, m := range model.Methods {
				op := item.GetOperation(string(m))
				if op == nil || !c.shouldInclude(op) {
					continue
				}
				req := c.convertOperation(doc, path, m, op, item.Parameters)
				if req.AuthType == model.AuthBearer {
					secured = true
				}

				it := workspace.ItemFromRequest(req)
				if len(op.Tags) == 0 {
					root = append(root, it)
					continue
				}
				tag := op.Tags[0]
				f, ok := folders[tag]
				if !ok {
					f = &workspace.Item{Type: model.ItemFolder, Name: tag}
					folders[tag] = f
					folderOrder = append(folderOrder, tag)
				}
				f.Items = append(f.Items, it)
			}
		}
	}

	for _, tag := range orderTags(doc, folderOrder) {
		out.Items = append(out.Items, *folders[tag])
	}
	out.Items = append(out.Items, root...)
	out.Environments = c.environments(doc, secured)
	return out, nil
}

// orderTags lists used tags in the order the document declares them, then the
// undeclared ones in order of first use.
func orderTags(doc *openapi3.T, used []string) []string {
	seen := make(map[string]bool, len(used))
	for _, t := range used {
		seen[t] = true
	}
	var out []string
	for _, t := range doc.Tags {
		if t != nil && seen[t.Name] {
			out = append(out, t.Name)
			delete(seen, t.Name)
		}
	}
	for _, t := range used {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out
}

// environments declares baseUrl (and token for secured documents) with one
// environment per server.
func (c *Converter) environments(doc *openapi3.T, secured bool) *model.Environments {
	envs := env.NewDocument(nil)
	envs.AddVariable(BaseURLVariable)
	if secured {
		envs.AddVariable(TokenVariable)
	}

	type server struct{ name, url string }
	var servers []server
	if c.baseURL != "" {
		servers = append(servers, server{"Default", c.baseURL})
	} else {
		for i, s := range doc.Servers {
			if s == nil || s.URL == "" {
				continue
			}
			name := s.Description
			if name == "" {
				name = fmt.Sprintf("Server %d", i+1)
			}
			servers = append(servers, server{name, serverURL(s)})
		}
	}
	if len(servers) == 0 {
		servers = append(servers, server{"Local", "http://localhost:3000"})
	}

	for _, s := range servers {
		e := envs.AddEnvironment(s.name)
		_ = envs.SetValue(e.ID, BaseURLVariable, strings.TrimSuffix(s.url, "/"))
	}
	return envs.Model()
}

// serverURL substitutes server variables with their defaults.
func serverURL(s *openapi3.Server) string {
	u := s.URL
	for name, v := range s.Variables {
		if v != nil {
			u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
		}
	}
	return u
}

func (c *Converter) shouldInclude(op *openapi3.Operation) bool {
	if len(c.includeOnly) > 0 && !contains(c.includeOnly, op.OperationID) {
		return false
	}
	if len(c.includeTags) > 0 {
		found := false
		for _, tag := range op.Tags {
			if contains(c.includeTags, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, tag := range op.Tags {
		if contains(c.excludeTags, tag) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (c *Converter) convertOperation(doc *openapi3.T, path string, method model.Method, op *openapi3.Operation, pathParams openapi3.Parameters) model.Request {
	name := op.Summary
	if name == "" {
		name = op.OperationID
	}
	if name == "" {
		name = string(method) + " " + path
	}

	req := model.NewRequest(name)
	req.Method = method

	params := make(openapi3.Parameters, 0, len(pathParams)+len(op.Parameters))
	params = append(params, pathParams...)
	params = append(params, op.Parameters...)

	urlPath := path
	for _, ref := range params {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		switch p.In {
		case openapi3.ParameterInPath:
			urlPath = strings.ReplaceAll(urlPath, "{"+p.Name+"}", "{{"+p.Name+"}}")
		case openapi3.ParameterInQuery:
			req.Params = append(req.Params, model.Row{Name: p.Name, Value: paramExample(p)})
		case openapi3.ParameterInHeader:
			if strings.EqualFold(p.Name, "Authorization") {
				continue
			}
			req.Headers = append(req.Headers, model.Row{Name: p.Name, Value: paramExample(p)})
		}
	}
	req.URL = "{{" + BaseURLVariable + "}}" + urlPath

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if body, ok := requestBody(op.RequestBody.Value); ok {
			req.BodyType = model.BodyJSON
			req.Body = body
		}
	}

	if usesBearer(doc, op) {
		req.AuthType = model.AuthBearer
		req.Auth.Token = "{{" + TokenVariable + "}}"
	}
	return req
}

// usesBearer reports whether the effective security requirements of op name an
// http bearer scheme.
func usesBearer(doc *openapi3.T, op *openapi3.Operation) bool {
	reqs := doc.Security
	if op.Security != nil {
		reqs = *op.Security
	}
	if len(reqs) == 0 || doc.Components == nil {
		return false
	}
	for _, requirement := range reqs {
		for scheme := range requirement {
			ref, ok := doc.Components.SecuritySchemes[scheme]
			if !ok || ref == nil || ref.Value == nil {
				continue
			}
			s := ref.Value
			if s.Type == "http" && strings.EqualFold(s.Scheme, "bearer") {
				return true
			}
			if s.Type == "oauth2" || s.Type == "openIdConnect" {
				return true
			}
		}
	}
	return false
}

func paramExample(p *openapi3.Parameter) string {
	if p.Example != nil {
		return fmt.Sprint(p.Example)
	}
	if p.Schema != nil && p.Schema.Value != nil {
		v := exampleValue(p.Schema.Value, 0)
		if s, ok := v.(string); ok {
			return s
		}
		if v != nil {
			return fmt.Sprint(v)
		}
	}
	return "{{" + p.Name + "}}"
}

// requestBody produces an indented JSON example for the first JSON media type.
func requestBody(body *openapi3.RequestBody) (string, bool) {
	types := make([]string, 0, len(body.Content))
	for ct := range body.Content {
		types = append(types, ct)
	}
	sort.Strings(types)

	for _, ct := range types {
		if !strings.Contains(ct, "json") {
			continue
		}
		media := body.Content[ct]
		if media == nil {
			continue
		}
		var value any
		switch {
		case media.Example != nil:
			value = media.Example
		case len(media.Examples) > 0:
			value = firstExample(media.Examples)
		case media.Schema != nil && media.Schema.Value != nil:
			value = exampleValue(media.Schema.Value, 0)
		}
		if value == nil {
			value = map[string]any{}
		}
		out, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return "", false
		}
		return string(out), true
	}
	return "", false
}

func firstExample(examples openapi3.Examples) any {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ref := examples[name]; ref != nil && ref.Value != nil && ref.Value.Value != nil {
			return ref.Value.Value
		}
	}
	return nil
}

// exampleValue builds a sample value from a schema: explicit examples first,
// then defaults, enums and type based placeholders.
func exampleValue(s *openapi3.Schema, depth int) any {
	if s == nil || depth > maxSchemaDepth {
		return nil
	}
	if s.Example != nil {
		return s.Example
	}
	if s.Default != nil {
		return s.Default
	}
	if len(s.Enum) > 0 {
		return s.Enum[0]
	}
	if len(s.AllOf) > 0 {
		merged := map[string]any{}
		for _, ref := range s.AllOf {
			if ref == nil {
				continue
			}
			if m, ok := exampleValue(ref.Value, depth+1).(map[string]any); ok {
				for k, v := range m {
					merged[k] = v
				}
			}
		}
		return merged
	}
	for _, alts := range []openapi3.SchemaRefs{s.OneOf, s.AnyOf} {
		if len(alts) > 0 && alts[0] != nil {
			return exampleValue(alts[0].Value, depth+1)
		}
	}

	switch schemaType(s) {
	case openapi3.TypeString:
		switch s.Format {
		case "date":
			return "2024-01-01"
		case "date-time":
			return "2024-01-01T00:00:00Z"
		case "email":
			return "user@example.com"
		case "uuid":
			return "{{uuid()}}"
		}
		return "example"
	case openapi3.TypeInteger:
		if s.Min != nil {
			return int64(*s.Min)
		}
		return 1
	case openapi3.TypeNumber:
		if s.Min != nil {
			return *s.Min
		}
		return 1.5
	case openapi3.TypeBoolean:
		return true
	case openapi3.TypeArray:
		if s.Items != nil && s.Items.Value != nil {
			if v := exampleValue(s.Items.Value, depth+1); v != nil {
				return []any{v}
			}
		}
		return []any{}
	case openapi3.TypeObject:
		obj := make(map[string]any, len(s.Properties))
		for name, ref := range s.Properties {
			if ref == nil {
				obj[name] = nil
				continue
			}
			obj[name] = exampleValue(ref.Value, depth+1)
		}
		return obj
	}
	if len(s.Properties) > 0 {
		return exampleValue(&openapi3.Schema{Type: &openapi3.Types{openapi3.TypeObject}, Properties: s.Properties}, depth)
	}
	return nil
}

func schemaType(s *openapi3.Schema) string {
	if types := s.Type.Slice(); len(types) > 0 {
		return types[0]
	}
	return ""
}
