package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	mhttp "github.com/abdul-hamid-achik/mocha/packages/http"
	"github.com/abdul-hamid-achik/mocha/packages/storage"
)

func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"ok":true}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func req(id, name, parent, url string) model.Request {
	r := model.NewRequest(name)
	r.ID = id
	r.ParentID = parent
	r.URL = url
	return r
}

func folder(id, name, parent string) model.Request {
	f := model.NewFolder(name)
	f.ID = id
	f.ParentID = parent
	return f
}

func sampleTree(base string) *collection.Tree {
	return collection.NewTree([]model.Request{
		folder("users", "users", ""),
		req("list", "list", "users", base+"/ok"),
		req("get", "get", "users", base+"/missing"),
		req("ping", "ping", "", base+"/ok"),
		req("broken", "broken", "", ""),
	})
}

func TestItems(t *testing.T) {
	tree := sampleTree("http://localhost")

	items, err := Items(tree, "")
	require.NoError(t, err)
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	assert.Equal(t, []string{"users/get", "users/list", "broken", "ping"}, paths)

	items, err = Items(tree, "users")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = Items(tree, "nope")
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestRun_CountsOutcomes(t *testing.T) {
	server, hits := newServer(t)
	tree := sampleTree(server.URL)

	var seen []Result
	r := NewRunner(mhttp.NewClient(), &Config{OnResult: func(res Result) { seen = append(seen, res) }})

	summary, err := r.Run(context.Background(), "sample", tree, "")
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.HTTPErrors)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 2, summary.Failed())
	assert.Equal(t, int32(3), hits.Load())
	assert.Len(t, seen, 4)

	assert.Equal(t, 404, summary.Results[0].Status)
	assert.True(t, summary.Results[0].Failed())
	assert.True(t, summary.Results[2].Invalid)
	assert.GreaterOrEqual(t, summary.Latency.Max, summary.Latency.Min)
	assert.Greater(t, summary.Latency.Max, time.Duration(0))
}

func TestRun_FolderIterationsAndFilter(t *testing.T) {
	server, hits := newServer(t)
	tree := sampleTree(server.URL)

	r := NewRunner(mhttp.NewClient(), &Config{Iterations: 3, NameFilter: "LIST"})
	summary, err := r.Run(context.Background(), "sample", tree, "users")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 3, summary.Results[2].Iteration)
}

func TestRun_Bail(t *testing.T) {
	server, hits := newServer(t)
	tree := sampleTree(server.URL)

	summary, err := NewRunner(mhttp.NewClient(), &Config{Bail: true}).Run(context.Background(), "sample", tree, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRun_NetworkError(t *testing.T) {
	tree := collection.NewTree([]model.Request{req("down", "down", "", "http://127.0.0.1:1/")})

	summary, err := NewRunner(mhttp.NewClient(), nil).Run(context.Background(), "down", tree, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.NetworkErrors)
	assert.Equal(t, dispatch.OutcomeNetworkError, summary.Results[0].Outcome)
	assert.Equal(t, Latency{}, summary.Latency)
}

func TestRun_CancelledContextStops(t *testing.T) {
	server, hits := newServer(t)
	tree := sampleTree(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := NewRunner(mhttp.NewClient(), nil).Run(ctx, "sample", tree, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Total)
	assert.Zero(t, hits.Load())
}

func TestRun_RateLimit(t *testing.T) {
	server, _ := newServer(t)
	tree := collection.NewTree([]model.Request{req("a", "a", "", server.URL+"/ok")})

	start := time.Now()
	summary, err := NewRunner(mhttp.NewClient(), &Config{Iterations: 3, Rate: 20}).Run(context.Background(), "rate", tree, "")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
	// burst of one: the 2nd and 3rd dispatch wait 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRun_ResolverAndHistory(t *testing.T) {
	server, _ := newServer(t)
	tree := collection.NewTree([]model.Request{req("a", "a", "", "{{base}}/ok")})

	resolver := env.NewResolver()
	resolver.SetVariable("base", server.URL)
	history := &storage.MemoryHistory{}

	summary, err := NewRunner(mhttp.NewClient(), &Config{Resolver: resolver, History: history}).Run(context.Background(), "vars", tree, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, server.URL+"/ok", summary.Results[0].URL)

	entries, err := history.History(context.Background(), "a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 200, entries[0].Status)
	assert.Equal(t, "response", entries[0].Outcome)
}
