// Package insomnia converts Insomnia v4 exports into collection documents.
package insomnia

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

// Converter converts Insomnia exports to documents.
type Converter struct {
	environments bool
}

// Option is a functional option for Converter.
type Option func(*Converter)

// WithEnvironments configures whether environment resources are imported.
func WithEnvironments(include bool) Option {
	return func(c *Converter) {
		c.environments = include
	}
}

// NewConverter creates a new Insomnia converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{environments: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export represents an Insomnia export file.
type Export struct {
	Type         string     `json:"_type"`
	ExportFormat int        `json:"__export_format"`
	Resources    []Resource `json:"resources"`
}

// Resource represents an Insomnia resource (request, folder, environment, etc).
type Resource struct {
	ID             string         `json:"_id"`
	Type           string         `json:"_type"`
	ParentID       string         `json:"parentId"`
	Name           string         `json:"name"`
	MetaSortKey    float64        `json:"metaSortKey,omitempty"`
	Method         string         `json:"method,omitempty"`
	URL            string         `json:"url,omitempty"`
	Headers        []Header       `json:"headers,omitempty"`
	Body           *Body          `json:"body,omitempty"`
	Parameters     []Parameter    `json:"parameters,omitempty"`
	Authentication *Auth          `json:"authentication,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

// Header represents an Insomnia header.
type Header struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Body represents an Insomnia request body.
type Body struct {
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Parameter represents an Insomnia query parameter.
type Parameter struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Auth represents Insomnia authentication.
type Auth struct {
	Type     string `json:"type"`
	Disabled bool   `json:"disabled,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

const (
	typeWorkspace   = "workspace"
	typeRequest     = "request"
	typeGroup       = "request_group"
	typeEnvironment = "environment"
)

// ConvertFile converts an Insomnia export file.
func (c *Converter) ConvertFile(path string) (*workspace.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return c.Convert(data)
}

// Convert converts Insomnia export JSON. Request groups become folders and
// requests using an unsupported method are skipped.
func (c *Converter) Convert(data []byte) (*workspace.Document, error) {
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse Insomnia export: %w", err)
	}
	if export.ExportFormat != 0 && export.ExportFormat < 4 {
		return nil, fmt.Errorf("unsupported Insomnia export format %d", export.ExportFormat)
	}

	doc := &workspace.Document{Version: workspace.CurrentVersion, Name: "Insomnia import"}

	known := make(map[string]bool)
	children := make(map[string][]Resource)
	var envs []Resource
	for _, res := range export.Resources {
		switch res.Type {
		case typeWorkspace:
			if res.Name != "" {
				doc.Name = res.Name
			}
		case typeRequest, typeGroup:
			known[res.ID] = true
			children[res.ParentID] = append(children[res.ParentID], res)
		case typeEnvironment:
			envs = append(envs, res)
		}
	}

	var roots []Resource
	for parent, list := range children {
		if !known[parent] {
			roots = append(roots, list...)
		}
	}
	doc.Items = c.items(roots, children, make(map[string]bool))

	if c.environments {
		doc.Environments = convertEnvironments(envs)
	}
	return doc, nil
}

func (c *Converter) items(list []Resource, children map[string][]Resource, seen map[string]bool) []workspace.Item {
	sortResources(list)
	var out []workspace.Item
	for _, res := range list {
		if seen[res.ID] {
			continue
		}
		seen[res.ID] = true

		if res.Type == typeGroup {
			out = append(out, workspace.Item{
				Type:  model.ItemFolder,
				Name:  res.Name,
				Items: c.items(children[res.ID], children, seen),
			})
			continue
		}
		req, ok := c.request(res)
		if !ok {
			continue
		}
		out = append(out, workspace.ItemFromRequest(req))
	}
	return out
}

func (c *Converter) request(res Resource) (model.Request, bool) {
	method := model.MethodGet
	if res.Method != "" {
		m, ok := model.ParseMethod(res.Method)
		if !ok {
			return model.Request{}, false
		}
		method = m
	}

	req := model.NewRequest(res.Name)
	req.Method = method
	req.URL = convertVariable(res.URL)

	for _, p := range res.Parameters {
		if p.Disabled {
			continue
		}
		req.Params = append(req.Params, model.Row{Name: p.Name, Value: convertVariable(p.Value)})
	}
	for _, h := range res.Headers {
		if h.Disabled {
			continue
		}
		req.Headers = append(req.Headers, model.Row{Name: h.Name, Value: convertVariable(h.Value)})
	}

	if res.Body != nil && res.Body.Text != "" {
		req.BodyType = model.BodyJSON
		req.Body = convertVariable(res.Body.Text)
	}

	if a := res.Authentication; a != nil && !a.Disabled {
		switch a.Type {
		case "bearer":
			if a.Token != "" {
				req.AuthType = model.AuthBearer
				req.Auth.Token = convertVariable(a.Token)
			}
		case "basic":
			if a.Username != "" {
				creds := convertVariable(a.Username) + ":" + convertVariable(a.Password)
				req.Headers = append(req.Headers, model.Row{
					Name:  "Authorization",
					Value: "Basic " + base64.StdEncoding.EncodeToString([]byte(creds)),
				})
			}
		}
	}
	return req, true
}

// convertEnvironments merges the base environment into every sub environment.
// A lone base environment is imported on its own.
func convertEnvironments(resources []Resource) *model.Environments {
	if len(resources) == 0 {
		return nil
	}
	ids := make(map[string]bool, len(resources))
	for _, r := range resources {
		ids[r.ID] = true
	}

	var bases, subs []Resource
	for _, r := range resources {
		if ids[r.ParentID] {
			subs = append(subs, r)
		} else {
			bases = append(bases, r)
		}
	}
	sortResources(subs)

	base := make(map[string]string)
	for _, b := range bases {
		for k, v := range flatten(b.Data) {
			base[k] = v
		}
	}
	if len(subs) == 0 {
		name := "Base Environment"
		if len(bases) == 1 && bases[0].Name != "" {
			name = bases[0].Name
		}
		subs = []Resource{{Name: name}}
	}

	doc := env.NewDocument(nil)
	declared := make(map[string]bool)
	declare := func(name string) {
		if !declared[name] {
			declared[name] = true
			doc.AddVariable(name)
		}
	}
	names := make([]string, 0, len(base))
	for k := range base {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		declare(k)
	}

	for _, sub := range subs {
		values := flatten(sub.Data)
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			declare(k)
		}

		e := doc.AddEnvironment(sub.Name)
		for k, v := range base {
			_ = doc.SetValue(e.ID, k, v)
		}
		for k, v := range values {
			_ = doc.SetValue(e.ID, k, v)
		}
	}
	return doc.Model()
}

// flatten keeps scalar values; nested objects are joined with dots the way
// Insomnia addresses them.
func flatten(data map[string]any) map[string]string {
	out := make(map[string]string)
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch val := v.(type) {
		case map[string]any:
			for k, child := range val {
				walk(prefix+"."+k, child)
			}
		case string:
			out[prefix] = convertVariable(val)
		case nil:
			out[prefix] = ""
		default:
			b, err := json.Marshal(val)
			if err == nil {
				out[prefix] = string(b)
			}
		}
	}
	for k, v := range data {
		walk(k, v)
	}
	return out
}

func sortResources(list []Resource) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].MetaSortKey != list[j].MetaSortKey {
			return list[i].MetaSortKey < list[j].MetaSortKey
		}
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
}

var (
	prefixedVariable = regexp.MustCompile(`\{\{\s*_\.([\w.]+)\s*\}\}`)
	spacedVariable   = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)
)

// convertVariable rewrites {{ _.name }} and {{ name }} to {{name}}.
func convertVariable(s string) string {
	s = prefixedVariable.ReplaceAllString(s, "{{$1}}")
	return spacedVariable.ReplaceAllString(s, "{{$1}}")
}
