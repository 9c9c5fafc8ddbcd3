package workspace

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// Import creates items below parentID through svc, folders before their children, and
// returns every created request and folder. It stops at the first failure; what was
// created before stays.
func Import(ctx context.Context, svc *collection.Service, parentID string, items []Item) ([]model.Request, error) {
	var created []model.Request
	err := importItems(ctx, svc, parentID, items, &created)
	return created, err
}

func importItems(ctx context.Context, svc *collection.Service, parentID string, items []Item, created *[]model.Request) error {
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if it.IsFolder() {
			f, err := svc.CreateFolder(ctx, it.Name, parentID)
			if err != nil {
				return fmt.Errorf("import folder %q: %w", it.Name, err)
			}
			*created = append(*created, f)
			if err := importItems(ctx, svc, f.ID, it.Items, created); err != nil {
				return err
			}
			continue
		}

		req := it.Request()
		req.ParentID = parentID
		r, err := svc.Add(ctx, req)
		if err != nil {
			return fmt.Errorf("import request %q: %w", it.Name, err)
		}
		*created = append(*created, r)
	}
	return nil
}
