package model

import "strings"

// Method is an HTTP method supported by the request composer.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// Methods lists the supported methods in display order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// ParseMethod normalizes m and reports whether it is supported.
func ParseMethod(m string) (Method, bool) {
	up := Method(strings.ToUpper(strings.TrimSpace(m)))
	for _, known := range Methods {
		if up == known {
			return up, true
		}
	}
	return up, false
}

type BodyType string

const (
	BodyNone BodyType = "NONE"
	BodyJSON BodyType = "JSON"
)

type AuthType string

const (
	AuthNone   AuthType = "NONE"
	AuthBearer AuthType = "BEARER"
)

// ItemType distinguishes folders from requests inside a collection tree.
type ItemType string

const (
	ItemRequest ItemType = "REQUEST"
	ItemFolder  ItemType = "FOLDER"
)

// Row is one header or query parameter line of the request form.
type Row struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type Auth struct {
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Request is a saved request or folder. Folders only use the identity fields.
type Request struct {
	ID           string   `json:"id" yaml:"id,omitempty"`
	CollectionID string   `json:"collectionId,omitempty" yaml:"collectionId,omitempty"`
	ParentID     string   `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Type         ItemType `json:"type" yaml:"type,omitempty"`
	Name         string   `json:"name" yaml:"name"`
	Method       Method   `json:"method,omitempty" yaml:"method,omitempty"`
	URL          string   `json:"url,omitempty" yaml:"url,omitempty"`
	Params       []Row    `json:"params,omitempty" yaml:"params,omitempty"`
	Headers      []Row    `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodyType     BodyType `json:"bodyType,omitempty" yaml:"bodyType,omitempty"`
	Body         string   `json:"body,omitempty" yaml:"body,omitempty"`
	AuthType     AuthType `json:"authType,omitempty" yaml:"authType,omitempty"`
	Auth         Auth     `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// NewRequest returns a request with the form defaults applied.
func NewRequest(name string) Request {
	return Request{
		Type:     ItemRequest,
		Name:     name,
		Method:   MethodGet,
		BodyType: BodyNone,
		AuthType: AuthNone,
	}
}

// NewFolder returns a folder item.
func NewFolder(name string) Request {
	return Request{Type: ItemFolder, Name: name}
}

func (r Request) IsFolder() bool {
	return r.Type == ItemFolder
}

// Normalize fills zero-valued enum fields with their defaults.
func (r Request) Normalize() Request {
	if r.Type == "" {
		r.Type = ItemRequest
	}
	if r.IsFolder() {
		return r
	}
	if r.Method == "" {
		r.Method = MethodGet
	}
	if r.BodyType == "" {
		r.BodyType = BodyNone
	}
	if r.AuthType == "" {
		r.AuthType = AuthNone
	}
	return r
}

// Clone returns a deep copy so row slices are never shared.
func (r Request) Clone() Request {
	r.Params = cloneRows(r.Params)
	r.Headers = cloneRows(r.Headers)
	return r
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

type Variable struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Environment maps variable ids to values.
type Environment struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Variables map[string]string `json:"variables" yaml:"variables"`
}

// Environments is the per-collection environments document.
type Environments struct {
	Variables    []Variable    `json:"variables" yaml:"variables"`
	Environments []Environment `json:"environments" yaml:"environments"`
}

type Collection struct {
	ID             string        `json:"id" yaml:"id,omitempty"`
	OrganizationID string        `json:"organizationId,omitempty" yaml:"organizationId,omitempty"`
	Name           string        `json:"name" yaml:"name"`
	Requests       []Request     `json:"requests" yaml:"requests"`
	Environments   *Environments `json:"environments,omitempty" yaml:"environments,omitempty"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
