package collection

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// Surface is the editing surface a navigator opens requests in. *editor.Editor
// implements it.
type Surface interface {
	Open(req model.Request)
	Rename(id, name string) bool
	Discard(ids ...string)
}

// Navigator tracks the request open in the editor and keeps it consistent with tree
// mutations.
type Navigator struct {
	svc     *Service
	surface Surface

	mu     sync.Mutex
	openID string
}

func NewNavigator(svc *Service, surface Surface) *Navigator {
	return &Navigator{svc: svc, surface: surface}
}

// Select opens the request id. Folders cannot be opened.
func (n *Navigator) Select(id string) (model.Request, error) {
	req, ok := n.svc.Tree().Get(id)
	if !ok {
		return model.Request{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if req.IsFolder() {
		return model.Request{}, fmt.Errorf("cannot open folder %q", req.Name)
	}

	n.mu.Lock()
	n.openID = id
	n.mu.Unlock()

	n.surface.Open(req)
	return req, nil
}

// Current returns the open request as stored in the tree.
func (n *Navigator) Current() (model.Request, bool) {
	n.mu.Lock()
	id := n.openID
	n.mu.Unlock()
	if id == "" {
		return model.Request{}, false
	}
	return n.svc.Tree().Get(id)
}

// Delete deletes id with its subtree and navigates away when the open request was
// among the deleted ids.
func (n *Navigator) Delete(ctx context.Context, id string) ([]string, error) {
	ids, err := n.svc.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	if slices.Contains(ids, n.openID) {
		n.openID = ""
	}
	n.mu.Unlock()

	n.surface.Discard(ids...)
	return ids, nil
}

// Rename renames id and updates the editor form when it is the open request.
func (n *Navigator) Rename(ctx context.Context, id, name string) (model.Request, error) {
	req, err := n.svc.Rename(ctx, id, name)
	if err != nil {
		return model.Request{}, err
	}
	n.mu.Lock()
	open := n.openID == id
	n.mu.Unlock()
	if open {
		n.surface.Rename(id, req.Name)
	}
	return req, nil
}
