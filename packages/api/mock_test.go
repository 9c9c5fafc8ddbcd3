package api_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/abdul-hamid-achik/mocha/packages/api"
	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/mock"
	"github.com/abdul-hamid-achik/mocha/packages/session"
	"github.com/abdul-hamid-achik/mocha/packages/storage"
)

func newBackend(t *testing.T, opts ...mock.Option) (*mock.Server, string) {
	t.Helper()
	opts = append([]mock.Option{mock.WithPasswordCost(bcrypt.MinCost)}, opts...)
	s, err := mock.NewServer(opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts.URL
}

func TestAgainstMock_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	backend, url := newBackend(t, mock.WithUser("Ada", "ada@example.com", "secret"))

	auth := session.NewAuth(storage.NewMemoryStore())
	c := api.New(url, auth)

	creds, err := c.SignIn(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, creds.Token, auth.Token())
	assert.Equal(t, "Ada", auth.User().Name)

	user, err := c.UpdateName(ctx, creds.User.ID, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "Ada Lovelace", auth.User().Name)

	require.NoError(t, c.SignOut(ctx))
	assert.False(t, auth.Authenticated())

	require.NoError(t, auth.SetToken(ctx, creds.Token))
	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized, "revoked token")
	assert.False(t, auth.Authenticated(), "401 clears the session")

	require.NoError(t, c.RequestCode(ctx, "ada@example.com"))
	code, ok := backend.LoginCode("ada@example.com")
	require.True(t, ok)
	_, err = c.SignInWithCode(ctx, "ada@example.com", code)
	require.NoError(t, err)
	assert.True(t, auth.Authenticated())
}

func TestAgainstMock_Register(t *testing.T) {
	ctx := context.Background()
	_, url := newBackend(t)

	auth := session.NewAuth(storage.NewMemoryStore())
	c := api.New(url, auth)

	creds, err := c.Register(ctx, api.SignUp{Name: "Grace", Email: "grace@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", creds.User.Email)

	_, err = c.Register(ctx, api.SignUp{Name: "Grace", Email: "grace@example.com"})
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 409, apiErr.Status)
}

func TestAgainstMock_CollectionService(t *testing.T) {
	ctx := context.Background()
	backend, url := newBackend(t, mock.WithUser("Ada", "ada@example.com", ""))

	token, _, err := backend.Token("ada@example.com")
	require.NoError(t, err)
	auth := session.NewAuth(storage.NewMemoryStore())
	require.NoError(t, auth.SetToken(ctx, token))
	c := api.New(url, auth)

	orgs, err := c.Organizations(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)

	col, err := c.CreateCollection(ctx, orgs[0].ID, "Shop")
	require.NoError(t, err)

	svc := collection.NewService(col.ID, nil, collection.WithBackend(c))
	folder, err := svc.CreateFolder(ctx, "Users", "")
	require.NoError(t, err)
	req, err := svc.CreateRequest(ctx, "List users", folder.ID)
	require.NoError(t, err)

	req.URL = "{{baseUrl}}/users"
	req.Method = model.MethodPost
	require.NoError(t, svc.Save(ctx, req))

	stored, err := c.Request(ctx, col.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MethodPost, stored.Method)
	assert.Equal(t, folder.ID, stored.ParentID)

	deleted, err := svc.Delete(ctx, folder.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{folder.ID, req.ID}, deleted)
	assert.Equal(t, 0, svc.Tree().Len())

	_, err = c.Request(ctx, col.ID, req.ID)
	assert.True(t, api.IsNotFound(err))

	full, err := c.Collection(ctx, orgs[0].ID, col.ID)
	require.NoError(t, err)
	assert.Empty(t, full.Requests)

	envs := model.Environments{
		Variables:    []model.Variable{{ID: "v1", Name: "baseUrl"}},
		Environments: []model.Environment{{ID: "e1", Name: "Dev", Variables: map[string]string{"v1": "http://localhost"}}},
	}
	saved, err := c.SaveEnvironments(ctx, col.ID, envs)
	require.NoError(t, err)
	require.NotNil(t, saved.Environments)
	assert.Equal(t, "http://localhost", saved.Environments.Environments[0].Variables["v1"])

	require.NoError(t, c.DeleteCollection(ctx, orgs[0].ID, col.ID))
	cols, err := c.Collections(ctx, orgs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, cols)
}
