package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/mocha/packages/api"
	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
	"github.com/abdul-hamid-achik/mocha/packages/session"
	"github.com/abdul-hamid-achik/mocha/packages/storage"
)

var errNotSignedIn = fmt.Errorf("not signed in, run `mocha login` first: %w", api.ErrUnauthorized)

// app holds what commands talking to the backend share: the session stores and the API
// client.
type app struct {
	dataDir string
	store   storage.Backend
	auth    *session.Auth
	org     *session.Organization
	client  *api.Client
}

func openApp(ctx context.Context) (*app, error) {
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, configError(err)
	}
	store, err := storage.Open(cfg.Storage, dir)
	if err != nil {
		return nil, configError(err)
	}

	auth := session.NewAuth(store)
	if err := auth.Load(ctx); err != nil {
		logger.Warn("stored session is unreadable, continuing signed out", "error", err)
	}
	org := session.NewOrganization(store)
	if err := org.Load(ctx); err != nil {
		logger.Warn("stored organization is unreadable", "error", err)
	}
	auth.OnClear(func() {
		if err := org.Set(context.Background(), nil); err != nil {
			logger.Warn("failed to clear organization", "error", err)
		}
	})

	client := api.New(cfg.APIURL, auth, api.WithHTTPClient(newHTTPClient()), api.WithLogger(logger))
	return &app{dataDir: dir, store: store, auth: auth, org: org, client: client}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func newHTTPClient() *mhttp.Client {
	return mhttp.NewClient(
		mhttp.WithTimeout(cfg.TimeoutDuration()),
		mhttp.WithFollowRedirects(cfg.GetFollowRedirects()),
		mhttp.WithMaxRedirects(cfg.MaxRedirects),
		mhttp.WithValidateSSL(cfg.GetValidateSSL()),
		mhttp.WithProxy(cfg.Proxy),
		mhttp.WithDefaultHeaders(cfg.Headers),
	)
}

func (a *app) requireUser() error {
	if !a.auth.Authenticated() {
		return errNotSignedIn
	}
	return nil
}

// organization returns the selected organization, selecting the first one the user
// belongs to when none is.
func (a *app) organization(ctx context.Context) (*model.Organization, error) {
	if err := a.requireUser(); err != nil {
		return nil, err
	}
	if org := a.org.Get(); org != nil {
		return org, nil
	}
	orgs, err := a.client.Organizations(ctx)
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, errors.New("you do not belong to any organization")
	}
	if err := a.org.Set(ctx, &orgs[0]); err != nil {
		return nil, err
	}
	return &orgs[0], nil
}

// findCollection loads the collection whose id or name is ref, with its requests and
// environments.
func (a *app) findCollection(ctx context.Context, ref string) (*model.Collection, string, error) {
	if ref == "" {
		return nil, "", usageError("a collection is required (--collection)")
	}
	org, err := a.organization(ctx)
	if err != nil {
		return nil, "", err
	}
	cols, err := a.client.Collections(ctx, org.ID)
	if err != nil {
		return nil, "", err
	}
	id := ""
	for _, c := range cols {
		if c.ID == ref {
			id = c.ID
			break
		}
		if strings.EqualFold(c.Name, ref) {
			if id != "" {
				return nil, "", fmt.Errorf("collection name %q is ambiguous, use its id", ref)
			}
			id = c.ID
		}
	}
	if id == "" {
		return nil, "", fmt.Errorf("collection %q not found in %s", ref, org.Name)
	}
	col, err := a.client.Collection(ctx, org.ID, id)
	if err != nil {
		return nil, "", err
	}
	return col, org.ID, nil
}

func (a *app) service(col *model.Collection) *collection.Service {
	return collection.NewService(col.ID, col.Requests,
		collection.WithBackend(a.client),
		collection.WithLogger(logger),
	)
}

// history returns where dispatches are recorded. The sqlite backend keeps history in
// its own database; the other backends use a separate one in the data directory.
func (a *app) history() (storage.History, func(), error) {
	if h, ok := a.store.(storage.History); ok {
		return h, func() {}, nil
	}
	if _, ok := a.store.(*storage.MemoryStore); ok {
		return &storage.MemoryHistory{}, func() {}, nil
	}
	db, err := storage.NewSQLiteStore("sqlite://" + filepath.Join(a.dataDir, "history.db"))
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = db.Close() }, nil
}

// newResolver interpolates {{variables}} from the named environment of envs. An empty
// name resolves only builtins and $ENV lookups.
func newResolver(envs *model.Environments, name string) (*env.Resolver, error) {
	r := env.NewResolver()
	r.SetWarnFunc(func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...))
	})
	if name == "" {
		return r, nil
	}
	if envs == nil {
		return nil, fmt.Errorf("%w: %s", env.ErrEnvironmentNotFound, name)
	}
	values, err := env.NewDocument(envs).Values(name)
	if err != nil {
		return nil, err
	}
	r.SetVariables(values)
	return r, nil
}

// findItem finds the request or folder whose id, name or slash separated path is ref.
func findItem(tree *collection.Tree, ref string) (model.Request, error) {
	if req, ok := tree.Get(ref); ok {
		return req, nil
	}
	var matches []model.Request
	var stack []string
	_ = tree.Walk(func(n model.Request, depth int) error {
		stack = append(stack[:depth], n.Name)
		if strings.EqualFold(n.Name, ref) || strings.EqualFold(strings.Join(stack, "/"), ref) {
			matches = append(matches, n)
		}
		return nil
	})
	switch len(matches) {
	case 0:
		return model.Request{}, fmt.Errorf("%w: %s", collection.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return model.Request{}, fmt.Errorf("%q matches %d items, use a path or an id", ref, len(matches))
	}
}
