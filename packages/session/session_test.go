package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/storage"
)

type failingStore struct{}

func (failingStore) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk gone")
}
func (failingStore) Save(context.Context, string, []byte) error { return errors.New("disk gone") }
func (failingStore) Delete(context.Context, string) error       { return nil }

func TestAuth_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	a := NewAuth(store)
	require.NoError(t, a.SetCredentials(ctx, "tok", &model.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}))
	assert.True(t, a.Authenticated())

	b := NewAuth(store)
	require.NoError(t, b.Load(ctx))
	assert.Equal(t, "tok", b.Token())
	require.NotNil(t, b.User())
	assert.Equal(t, "Ada", b.User().Name)
}

func TestAuth_LoadMissingKey(t *testing.T) {
	a := NewAuth(storage.NewMemoryStore())
	require.NoError(t, a.Load(context.Background()))
	assert.False(t, a.Authenticated())
	assert.Nil(t, a.User())
}

func TestAuth_LoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Save(ctx, AuthKey, []byte("{not json")))

	err := NewAuth(store).Load(ctx)
	assert.Error(t, err)
}

func TestAuth_UserIsCopy(t *testing.T) {
	ctx := context.Background()
	a := NewAuth(nil)
	require.NoError(t, a.SetUser(ctx, model.User{ID: "u1", Name: "Ada"}))

	u := a.User()
	u.Name = "changed"
	assert.Equal(t, "Ada", a.User().Name)
}

func TestAuth_Clear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	a := NewAuth(store)
	require.NoError(t, a.SetCredentials(ctx, "tok", &model.User{ID: "u1"}))

	cleared := 0
	a.OnClear(func() { cleared++ })

	require.NoError(t, a.Clear(ctx))
	assert.Equal(t, 1, cleared)
	assert.False(t, a.Authenticated())
	assert.Nil(t, a.User())

	b := NewAuth(store)
	require.NoError(t, b.Load(ctx))
	assert.False(t, b.Authenticated())
}

func TestAuth_ClearRunsHooksOnSaveError(t *testing.T) {
	a := NewAuth(failingStore{})
	called := false
	a.OnClear(func() { called = true })

	err := a.Clear(context.Background())
	assert.Error(t, err)
	assert.True(t, called)
	assert.False(t, a.Authenticated())
}

func TestOrganization(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	o := NewOrganization(store)
	assert.Nil(t, o.Get())

	require.NoError(t, o.Set(ctx, &model.Organization{ID: "o1", Name: "Acme"}))

	p := NewOrganization(store)
	require.NoError(t, p.Load(ctx))
	require.NotNil(t, p.Get())
	assert.Equal(t, "Acme", p.Get().Name)

	require.NoError(t, p.Set(ctx, nil))
	assert.Nil(t, p.Get())
}

func TestOrganization_LoadError(t *testing.T) {
	err := NewOrganization(failingStore{}).Load(context.Background())
	assert.Error(t, err)
}
