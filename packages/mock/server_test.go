package mock

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	t      *testing.T
	server *Server
	url    string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	opts = append([]Option{WithPasswordCost(bcrypt.MinCost)}, opts...)
	s, err := NewServer(opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &harness{t: t, server: s, url: ts.URL}
}

func (h *harness) do(method, path, token string, body any) (int, gjson.Result) {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.url+path, r)
	require.NoError(h.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp.StatusCode, gjson.ParseBytes(data)
}

func (h *harness) signUp(name, email string) (string, string) {
	h.t.Helper()
	status, body := h.do(http.MethodPost, "/users", "", map[string]string{"name": name, "email": email, "password": "secret"})
	require.Equal(h.t, http.StatusCreated, status, body.Raw)
	token := body.Get("token").String()
	_, orgs := h.do(http.MethodGet, "/organizations", token, nil)
	return token, orgs.Get("organizations.0.id").String()
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signUp("Ada", "Ada@Example.com")
	require.NotEmpty(t, token)

	status, body := h.do(http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ada@example.com", body.Get("user.email").String())

	status, _ = h.do(http.MethodPost, "/users", "", map[string]string{"name": "Ada", "email": "ada@example.com"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = h.do(http.MethodPost, "/sessions", "", map[string]string{"email": "ada@example.com", "password": "secret"})
	assert.Equal(t, http.StatusCreated, status)
	assert.NotEqual(t, token, body.Get("token").String())

	status, body = h.do(http.MethodPost, "/sessions", "", map[string]string{"email": "ada@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid credentials", body.Get("error").String())
}

func TestLoginCode(t *testing.T) {
	h := newHarness(t, WithUser("Grace", "grace@example.com", ""))

	status, _ := h.do(http.MethodPost, "/authenticate", "", map[string]string{"email": "grace@example.com"})
	require.Equal(t, http.StatusNoContent, status)
	code, ok := h.server.LoginCode("grace@example.com")
	require.True(t, ok)
	assert.Len(t, code, 6)

	status, body := h.do(http.MethodPost, "/sessions", "", map[string]string{"email": "grace@example.com", "code": code})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Grace", body.Get("user.name").String())

	status, _ = h.do(http.MethodPost, "/sessions", "", map[string]string{"email": "grace@example.com", "code": code})
	assert.Equal(t, http.StatusUnprocessableEntity, status, "codes are single use")

	status, _ = h.do(http.MethodPost, "/authenticate", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNoContent, status)
}

func TestBearerRequired(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body.Get("error").String())

	status, _ = h.do(http.MethodGet, "/organizations", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	token, _ := h.signUp("Ada", "ada@example.com")
	status, _ = h.do(http.MethodDelete, "/sessions", token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = h.do(http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "revoked token")
}

func TestUpdateName(t *testing.T) {
	h := newHarness(t)
	token, _ := h.signUp("Ada", "ada@example.com")
	_, me := h.do(http.MethodGet, "/me", token, nil)
	id := me.Get("user.id").String()

	status, body := h.do(http.MethodPatch, "/users/"+id+"/name", token, map[string]string{"name": "Ada L."})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Ada L.", body.Get("user.name").String())

	status, _ = h.do(http.MethodPatch, "/users/someone-else/name", token, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCollections(t *testing.T) {
	h := newHarness(t)
	token, org := h.signUp("Ada", "ada@example.com")
	base := "/organizations/" + org + "/collections"

	status, body := h.do(http.MethodPost, base, token, map[string]any{"collection": map[string]string{"name": "Shop"}})
	require.Equal(t, http.StatusCreated, status)
	id := body.Get("collection.id").String()

	status, body = h.do(http.MethodPut, base+"/"+id, token, map[string]any{"collection": map[string]string{"name": "Store"}})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Store", body.Get("collection.name").String())

	_, body = h.do(http.MethodGet, base, token, nil)
	assert.Equal(t, int64(1), body.Get("collections.#").Int())

	envs := map[string]any{"environments": map[string]any{
		"variables":    []map[string]string{{"id": "v1", "name": "baseUrl"}},
		"environments": []map[string]any{{"id": "e1", "name": "Dev", "variables": map[string]string{"v1": "http://localhost"}}},
	}}
	status, body = h.do(http.MethodPut, "/collections/"+id+"/environments", token, envs)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "http://localhost", body.Get("collection.environments.environments.0.variables.v1").String())

	other, otherOrg := h.signUp("Eve", "eve@example.com")
	status, _ = h.do(http.MethodGet, base+"/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, status, "collections are private to their organization")
	status, _ = h.do(http.MethodGet, "/organizations/"+otherOrg+"/collections/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.do(http.MethodDelete, base+"/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = h.do(http.MethodGet, base+"/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRequestsCascadeDelete(t *testing.T) {
	h := newHarness(t)
	token, org := h.signUp("Ada", "ada@example.com")
	_, col := h.do(http.MethodPost, "/organizations/"+org+"/collections", token, map[string]any{"collection": map[string]string{"name": "Shop"}})
	base := "/collections/" + col.Get("collection.id").String() + "/requests"

	create := func(req map[string]any) string {
		status, body := h.do(http.MethodPost, base, token, map[string]any{"request": req})
		require.Equal(t, http.StatusCreated, status, body.Raw)
		return body.Get("request.id").String()
	}

	folder := create(map[string]any{"type": "FOLDER", "name": "Users"})
	sub := create(map[string]any{"type": "FOLDER", "name": "Admin", "parentId": folder})
	inner := create(map[string]any{"name": "Ban", "method": "DELETE", "url": "http://x", "parentId": sub})
	outside := create(map[string]any{"name": "Health"})

	status, body := h.do(http.MethodPost, base, token, map[string]any{"request": map[string]any{"name": "x", "parentId": outside}})
	assert.Equal(t, http.StatusUnprocessableEntity, status, body.Raw)

	status, body = h.do(http.MethodPut, base+"/"+inner, token, map[string]any{"request": map[string]any{"name": "Ban user", "method": "POST", "parentId": sub, "type": "FOLDER"}})
	require.Equal(t, http.StatusOK, status, body.Raw)
	assert.Equal(t, "REQUEST", body.Get("request.type").String(), "item type is immutable")
	assert.Equal(t, "POST", body.Get("request.method").String())

	status, _ = h.do(http.MethodPut, base+"/"+folder, token, map[string]any{"request": map[string]any{"name": "Users", "parentId": sub}})
	assert.Equal(t, http.StatusUnprocessableEntity, status, "folder cannot move under its own descendant")

	status, body = h.do(http.MethodDelete, base+"/"+folder, token, nil)
	require.Equal(t, http.StatusOK, status)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(body.Get("deletedIds").Raw), &ids))
	assert.ElementsMatch(t, []string{folder, sub, inner}, ids)

	_, body = h.do(http.MethodGet, base, token, nil)
	assert.Equal(t, int64(1), body.Get("requests.#").Int())
	assert.Equal(t, outside, body.Get("requests.0.id").String())
	assert.Equal(t, "GET", body.Get("requests.0.method").String())
}

func TestDelayHonoursCancellation(t *testing.T) {
	h := newHarness(t, WithDelay(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url+"/health", nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = http.DefaultClient.Do(req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestServe(t *testing.T) {
	s, err := NewServer(WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
