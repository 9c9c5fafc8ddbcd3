package workspace

import (
	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// CurrentVersion is the version written into exported documents.
const CurrentVersion = 1

// Document is the file form of a collection: a nested outline of folders and
// requests plus its environments.
type Document struct {
	Version      int                 `yaml:"version" json:"version"`
	Name         string              `yaml:"name" json:"name"`
	Items        []Item              `yaml:"items,omitempty" json:"items,omitempty"`
	Environments *model.Environments `yaml:"environments,omitempty" json:"environments,omitempty"`
}

// Item is a request, or a folder when it has children or type FOLDER.
type Item struct {
	Type     model.ItemType `yaml:"type,omitempty" json:"type,omitempty"`
	Name     string         `yaml:"name" json:"name"`
	Method   model.Method   `yaml:"method,omitempty" json:"method,omitempty"`
	URL      string         `yaml:"url,omitempty" json:"url,omitempty"`
	Params   []model.Row    `yaml:"params,omitempty" json:"params,omitempty"`
	Headers  []model.Row    `yaml:"headers,omitempty" json:"headers,omitempty"`
	BodyType model.BodyType `yaml:"bodyType,omitempty" json:"bodyType,omitempty"`
	Body     string         `yaml:"body,omitempty" json:"body,omitempty"`
	AuthType model.AuthType `yaml:"authType,omitempty" json:"authType,omitempty"`
	Auth     model.Auth     `yaml:"auth,omitempty" json:"auth,omitempty"`
	Items    []Item         `yaml:"items,omitempty" json:"items,omitempty"`
}

func (i Item) IsFolder() bool {
	return i.Type == model.ItemFolder || len(i.Items) > 0
}

// Request converts the item to a saved request without id or parent.
func (i Item) Request() model.Request {
	if i.IsFolder() {
		return model.NewFolder(i.Name)
	}
	r := model.Request{
		Type:     model.ItemRequest,
		Name:     i.Name,
		Method:   i.Method,
		URL:      i.URL,
		Params:   i.Params,
		Headers:  i.Headers,
		BodyType: i.BodyType,
		Body:     i.Body,
		AuthType: i.AuthType,
		Auth:     i.Auth,
	}
	if r.BodyType == "" && r.Body != "" {
		r.BodyType = model.BodyJSON
	}
	if r.AuthType == "" && r.Auth.Token != "" {
		r.AuthType = model.AuthBearer
	}
	return r.Normalize().Clone()
}

// ItemFromRequest converts a saved request (not its children).
func ItemFromRequest(r model.Request) Item {
	if r.IsFolder() {
		return Item{Type: model.ItemFolder, Name: r.Name}
	}
	r = r.Normalize().Clone()
	item := Item{
		Name:    r.Name,
		Method:  r.Method,
		URL:     r.URL,
		Params:  r.Params,
		Headers: r.Headers,
	}
	if r.BodyType != model.BodyNone {
		item.BodyType = r.BodyType
		item.Body = r.Body
	}
	if r.AuthType != model.AuthNone {
		item.AuthType = r.AuthType
		item.Auth = r.Auth
	}
	return item
}

// Export builds the document of a collection tree.
func Export(name string, tree *collection.Tree, envs *model.Environments) *Document {
	return &Document{
		Version:      CurrentVersion,
		Name:         name,
		Items:        exportChildren(tree, ""),
		Environments: envs,
	}
}

func exportChildren(tree *collection.Tree, parentID string) []Item {
	children := tree.Children(parentID)
	if len(children) == 0 {
		return nil
	}
	items := make([]Item, 0, len(children))
	for _, c := range children {
		item := ItemFromRequest(c)
		if c.IsFolder() {
			item.Items = exportChildren(tree, c.ID)
		}
		items = append(items, item)
	}
	return items
}

// Count returns the number of folders and requests in items, recursively.
func Count(items []Item) (folders, requests int) {
	for _, it := range items {
		if it.IsFolder() {
			folders++
			f, r := Count(it.Items)
			folders += f
			requests += r
		} else {
			requests++
		}
	}
	return folders, requests
}
