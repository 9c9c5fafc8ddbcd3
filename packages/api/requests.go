package api

import (
	"context"
	"net/http"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

func (c *Client) Requests(ctx context.Context, collectionID string) ([]model.Request, error) {
	var reqs []model.Request
	if err := c.do(ctx, http.MethodGet, pathf("/collections/%s/requests", collectionID), nil, "requests", &reqs); err != nil {
		return nil, err
	}
	for i := range reqs {
		reqs[i] = reqs[i].Normalize()
	}
	return reqs, nil
}

func (c *Client) Request(ctx context.Context, collectionID, requestID string) (*model.Request, error) {
	var req model.Request
	if err := c.do(ctx, http.MethodGet, pathf("/collections/%s/requests/%s", collectionID, requestID), nil, "request", &req); err != nil {
		return nil, err
	}
	req = req.Normalize()
	return &req, nil
}

// CreateRequest creates a request or folder; the server assigns the id.
func (c *Client) CreateRequest(ctx context.Context, collectionID string, req model.Request) (*model.Request, error) {
	var created model.Request
	in := map[string]any{"request": req}
	if err := c.do(ctx, http.MethodPost, pathf("/collections/%s/requests", collectionID), in, "request", &created); err != nil {
		return nil, err
	}
	created = created.Normalize()
	return &created, nil
}

// UpdateRequest stores the full state of req.
func (c *Client) UpdateRequest(ctx context.Context, collectionID string, req model.Request) (*model.Request, error) {
	var updated model.Request
	in := map[string]any{"request": req}
	if err := c.do(ctx, http.MethodPut, pathf("/collections/%s/requests/%s", collectionID, req.ID), in, "request", &updated); err != nil {
		return nil, err
	}
	updated = updated.Normalize()
	return &updated, nil
}

// DeleteRequest deletes a request or a folder with all its descendants and returns every
// deleted id.
func (c *Client) DeleteRequest(ctx context.Context, collectionID, requestID string) ([]string, error) {
	var ids []string
	if err := c.do(ctx, http.MethodDelete, pathf("/collections/%s/requests/%s", collectionID, requestID), nil, "deletedIds", &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
