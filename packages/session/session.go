package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// Persisted keys.
const (
	AuthKey         = "mocha.auth"
	OrganizationKey = "mocha.organization"
)

// Store is the persistence port of the session objects. Values are JSON blobs and the
// last write wins.
type Store interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type authState struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Auth holds the bearer token of the backend API and the signed-in user.
type Auth struct {
	store Store

	mu      sync.RWMutex
	state   authState
	onClear []func()
}

func NewAuth(store Store) *Auth {
	return &Auth{store: store}
}

// Load restores the persisted credentials. A missing key leaves the session empty.
func (a *Auth) Load(ctx context.Context) error {
	var st authState
	found, err := load(ctx, a.store, AuthKey, &st)
	if err != nil || !found {
		return err
	}
	a.mu.Lock()
	a.state = st
	a.mu.Unlock()
	return nil
}

func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Token
}

// User returns a copy of the signed-in user, or nil.
func (a *Auth) User() *model.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.state.User == nil {
		return nil
	}
	u := *a.state.User
	return &u
}

func (a *Auth) Authenticated() bool {
	return a.Token() != ""
}

func (a *Auth) SetToken(ctx context.Context, token string) error {
	return a.mutate(ctx, func(st *authState) { st.Token = token })
}

func (a *Auth) SetUser(ctx context.Context, user model.User) error {
	return a.mutate(ctx, func(st *authState) { st.User = &user })
}

// SetCredentials stores token and user together, as a sign-in answer carries both.
func (a *Auth) SetCredentials(ctx context.Context, token string, user *model.User) error {
	return a.mutate(ctx, func(st *authState) {
		st.Token = token
		if user != nil {
			u := *user
			st.User = &u
		}
	})
}

// OnClear registers fn to run after the credentials were cleared.
func (a *Auth) OnClear(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onClear = append(a.onClear, fn)
}

// Clear drops token and user, forcing a new sign-in.
func (a *Auth) Clear(ctx context.Context) error {
	err := a.mutate(ctx, func(st *authState) { *st = authState{} })

	a.mu.RLock()
	hooks := append([]func(){}, a.onClear...)
	a.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
	return err
}

func (a *Auth) mutate(ctx context.Context, fn func(*authState)) error {
	a.mu.Lock()
	fn(&a.state)
	st := a.state
	a.mu.Unlock()
	return save(ctx, a.store, AuthKey, st)
}

type organizationState struct {
	Organization *model.Organization `json:"organization"`
}

// Organization holds the selected organization.
type Organization struct {
	store Store

	mu    sync.RWMutex
	state organizationState
}

func NewOrganization(store Store) *Organization {
	return &Organization{store: store}
}

func (o *Organization) Load(ctx context.Context) error {
	var st organizationState
	found, err := load(ctx, o.store, OrganizationKey, &st)
	if err != nil || !found {
		return err
	}
	o.mu.Lock()
	o.state = st
	o.mu.Unlock()
	return nil
}

// Get returns a copy of the selected organization, or nil.
func (o *Organization) Get() *model.Organization {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.state.Organization == nil {
		return nil
	}
	org := *o.state.Organization
	return &org
}

// Set selects org; nil clears the selection.
func (o *Organization) Set(ctx context.Context, org *model.Organization) error {
	o.mu.Lock()
	if org == nil {
		o.state.Organization = nil
	} else {
		c := *org
		o.state.Organization = &c
	}
	st := o.state
	o.mu.Unlock()
	return save(ctx, o.store, OrganizationKey, st)
}

func load(ctx context.Context, store Store, key string, v any) (bool, error) {
	if store == nil {
		return false, nil
	}
	data, ok, err := store.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func save(ctx context.Context, store Store, key string, v any) error {
	if store == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Save(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
