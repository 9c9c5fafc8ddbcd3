package api

import (
	"context"
	"net/http"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

func (c *Client) Organizations(ctx context.Context) ([]model.Organization, error) {
	var orgs []model.Organization
	if err := c.do(ctx, http.MethodGet, "/organizations", nil, "organizations", &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (c *Client) Collections(ctx context.Context, orgID string) ([]model.Collection, error) {
	var cols []model.Collection
	if err := c.do(ctx, http.MethodGet, pathf("/organizations/%s/collections", orgID), nil, "collections", &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// Collection fetches one collection with its requests and environments.
func (c *Client) Collection(ctx context.Context, orgID, collectionID string) (*model.Collection, error) {
	var col model.Collection
	if err := c.do(ctx, http.MethodGet, pathf("/organizations/%s/collections/%s", orgID, collectionID), nil, "collection", &col); err != nil {
		return nil, err
	}
	return &col, nil
}

func (c *Client) CreateCollection(ctx context.Context, orgID, name string) (*model.Collection, error) {
	var col model.Collection
	in := map[string]any{"collection": map[string]string{"name": name}}
	if err := c.do(ctx, http.MethodPost, pathf("/organizations/%s/collections", orgID), in, "collection", &col); err != nil {
		return nil, err
	}
	return &col, nil
}

func (c *Client) RenameCollection(ctx context.Context, orgID, collectionID, name string) (*model.Collection, error) {
	var col model.Collection
	in := map[string]any{"collection": map[string]string{"name": name}}
	if err := c.do(ctx, http.MethodPut, pathf("/organizations/%s/collections/%s", orgID, collectionID), in, "collection", &col); err != nil {
		return nil, err
	}
	return &col, nil
}

func (c *Client) DeleteCollection(ctx context.Context, orgID, collectionID string) error {
	return c.do(ctx, http.MethodDelete, pathf("/organizations/%s/collections/%s", orgID, collectionID), nil, "", nil)
}

// SaveEnvironments replaces the environments document of a collection.
func (c *Client) SaveEnvironments(ctx context.Context, collectionID string, envs model.Environments) (*model.Collection, error) {
	var col model.Collection
	in := map[string]any{"environments": envs}
	if err := c.do(ctx, http.MethodPut, pathf("/collections/%s/environments", collectionID), in, "collection", &col); err != nil {
		return nil, err
	}
	return &col, nil
}
