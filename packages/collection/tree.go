package collection

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

var (
	ErrNotFound        = errors.New("item not found")
	ErrParentNotFolder = errors.New("parent is not a folder")
	ErrEmptyName       = errors.New("name must not be empty")
)

// Tree is the sidebar view of a collection: an arena of requests and folders keyed by
// id, with a children index derived from parent ids. Nodes whose parent is missing,
// and nodes on a parent cycle, are shown as roots.
type Tree struct {
	mu       sync.RWMutex
	nodes    map[string]model.Request
	children map[string][]string
}

// NewTree builds a tree from the flat request list of a collection.
func NewTree(reqs []model.Request) *Tree {
	t := &Tree{}
	t.Load(reqs)
	return t
}

// Load replaces every node.
func (t *Tree) Load(reqs []model.Request) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = make(map[string]model.Request, len(reqs))
	for _, r := range reqs {
		if r.ID == "" {
			continue
		}
		t.nodes[r.ID] = r.Normalize().Clone()
	}
	t.reindex()
}

// reindex rebuilds the children index. Callers hold the write lock.
func (t *Tree) reindex() {
	t.children = make(map[string][]string, len(t.nodes))
	for id, n := range t.nodes {
		parent := n.ParentID
		if _, ok := t.nodes[parent]; !ok || t.onCycle(id) {
			parent = ""
		}
		t.children[parent] = append(t.children[parent], id)
	}
	for parent, ids := range t.children {
		sort.Slice(ids, func(i, j int) bool {
			return less(t.nodes[ids[i]], t.nodes[ids[j]])
		})
		t.children[parent] = ids
	}
}

// onCycle reports whether following parent ids from id leads back to id.
func (t *Tree) onCycle(id string) bool {
	seen := map[string]bool{}
	for cur := t.nodes[id].ParentID; cur != ""; cur = t.nodes[cur].ParentID {
		if cur == id {
			return true
		}
		if _, ok := t.nodes[cur]; !ok || seen[cur] {
			return false
		}
		seen[cur] = true
	}
	return false
}

// less orders folders before requests, then by name.
func less(a, b model.Request) bool {
	if a.IsFolder() != b.IsFolder() {
		return a.IsFolder()
	}
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

func (t *Tree) Get(id string) (model.Request, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return model.Request{}, false
	}
	return n.Clone(), true
}

// Children returns the sorted children of id; an empty id lists the roots.
func (t *Tree) Children(id string) []model.Request {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.childrenLocked(id)
}

func (t *Tree) childrenLocked(id string) []model.Request {
	ids := t.children[id]
	out := make([]model.Request, 0, len(ids))
	for _, cid := range ids {
		out = append(out, t.nodes[cid].Clone())
	}
	return out
}

func (t *Tree) Roots() []model.Request {
	return t.Children("")
}

// WalkFunc visits a node at depth (roots are at depth 0). Returning SkipChildren on a
// folder skips its subtree.
type WalkFunc func(node model.Request, depth int) error

// SkipChildren is returned by a WalkFunc to leave a folder collapsed.
var SkipChildren = errors.New("skip children")

// Walk visits the tree depth first in display order.
func (t *Tree) Walk(fn WalkFunc) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]bool, len(t.nodes))
	var walk func(parent string, depth int) error
	walk = func(parent string, depth int) error {
		for _, id := range t.children[parent] {
			if seen[id] {
				continue
			}
			seen[id] = true
			err := fn(t.nodes[id].Clone(), depth)
			if errors.Is(err, SkipChildren) {
				continue
			}
			if err != nil {
				return err
			}
			if err := walk(id, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk("", 0)
}

// Requests lists every node in display order.
func (t *Tree) Requests() []model.Request {
	var out []model.Request
	_ = t.Walk(func(n model.Request, _ int) error {
		out = append(out, n)
		return nil
	})
	return out
}

// Path returns the chain from the root down to id.
func (t *Tree) Path(id string) ([]model.Request, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	path := []model.Request{n.Clone()}
	seen := map[string]bool{id: true}
	for {
		p, ok := t.nodes[n.ParentID]
		if !ok || seen[p.ID] {
			break
		}
		seen[p.ID] = true
		path = append(path, p.Clone())
		n = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// CheckParent verifies that parentID is empty or names a folder.
func (t *Tree) CheckParent(parentID string) error {
	if parentID == "" {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.nodes[parentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, parentID)
	}
	if !p.IsFolder() {
		return fmt.Errorf("%w: %s", ErrParentNotFolder, p.Name)
	}
	return nil
}

// Insert adds or replaces a node.
func (t *Tree) Insert(req model.Request) error {
	if req.ID == "" {
		return errors.New("item has no id")
	}
	if strings.TrimSpace(req.Name) == "" {
		return ErrEmptyName
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[req.ID] = req.Normalize().Clone()
	t.reindex()
	return nil
}

// Rename changes the name of id.
func (t *Tree) Rename(id, name string) (model.Request, error) {
	if strings.TrimSpace(name) == "" {
		return model.Request{}, ErrEmptyName
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return model.Request{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	n.Name = name
	t.nodes[id] = n
	t.reindex()
	return n.Clone(), nil
}

// Update merges the editable fields of req into the stored node. Identity and position
// (type, collection, parent) never change through an update.
func (t *Tree) Update(req model.Request) (model.Request, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[req.ID]
	if !ok {
		return model.Request{}, fmt.Errorf("%w: %s", ErrNotFound, req.ID)
	}
	merged := req.Normalize().Clone()
	merged.Type = n.Type
	merged.CollectionID = n.CollectionID
	merged.ParentID = n.ParentID
	if strings.TrimSpace(merged.Name) == "" {
		merged.Name = n.Name
	}
	t.nodes[req.ID] = merged
	t.reindex()
	return merged.Clone(), nil
}

// Descendants returns id followed by every node below it.
func (t *Tree) Descendants(id string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.descendantsLocked(id), nil
}

func (t *Tree) descendantsLocked(id string) []string {
	out := []string{id}
	seen := map[string]bool{id: true}
	for i := 0; i < len(out); i++ {
		for _, c := range t.children[out[i]] {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Delete removes id and its whole subtree and returns every deleted id.
func (t *Tree) Delete(id string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ids := t.descendantsLocked(id)
	for _, d := range ids {
		delete(t.nodes, d)
	}
	t.reindex()
	return ids, nil
}

// Remove drops the given ids and everything below them, ignoring unknown ids. It
// returns the ids that were present.
func (t *Tree) Remove(ids ...string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if _, ok := t.nodes[id]; !ok || seen[id] {
			continue
		}
		for _, d := range t.descendantsLocked(id) {
			if !seen[d] {
				seen[d] = true
				removed = append(removed, d)
			}
		}
	}
	for _, d := range removed {
		delete(t.nodes, d)
	}
	t.reindex()
	return removed
}
