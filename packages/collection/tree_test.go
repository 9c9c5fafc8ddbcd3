package collection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

func item(id, name, parent string, folder bool) model.Request {
	var r model.Request
	if folder {
		r = model.NewFolder(name)
	} else {
		r = model.NewRequest(name)
	}
	r.ID = id
	r.ParentID = parent
	return r
}

// api/
//   users/
//     list
//     create
//   ping
// zeta
// alpha/
func sampleTree() *Tree {
	return NewTree([]model.Request{
		item("zeta", "zeta", "", false),
		item("api", "api", "", true),
		item("users", "users", "api", true),
		item("list", "list", "users", false),
		item("create", "create", "users", false),
		item("ping", "ping", "api", false),
		item("alpha", "alpha", "", true),
	})
}

func names(reqs []model.Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Name
	}
	return out
}

func TestTree_RootsFoldersFirstThenName(t *testing.T) {
	tree := sampleTree()
	assert.Equal(t, []string{"alpha", "api", "zeta"}, names(tree.Roots()))
	assert.Equal(t, []string{"users", "ping"}, names(tree.Children("api")))
	assert.Equal(t, []string{"create", "list"}, names(tree.Children("users")))
	assert.Empty(t, tree.Children("ping"))
}

func TestTree_OrphansAreRoots(t *testing.T) {
	tree := NewTree([]model.Request{
		item("a", "a", "missing", false),
		item("self", "self", "self", false),
	})
	assert.Equal(t, []string{"a", "self"}, names(tree.Roots()))
}

func TestTree_ParentCycleIsShown(t *testing.T) {
	tree := NewTree([]model.Request{
		item("x", "x", "y", true),
		item("y", "y", "x", true),
		item("leaf", "leaf", "x", false),
	})

	assert.Equal(t, []string{"x", "y"}, names(tree.Roots()))
	assert.Equal(t, []string{"x", "leaf", "y"}, names(tree.Requests()))
	assert.Equal(t, 3, tree.Len())

	ids, err := tree.Delete("x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "leaf"}, ids)
	assert.Equal(t, []string{"y"}, names(tree.Roots()))
}

func TestTree_Walk(t *testing.T) {
	tree := sampleTree()

	var visited []string
	var depths []int
	require.NoError(t, tree.Walk(func(n model.Request, depth int) error {
		visited = append(visited, n.Name)
		depths = append(depths, depth)
		return nil
	}))
	assert.Equal(t, []string{"alpha", "api", "users", "create", "list", "ping", "zeta"}, visited)
	assert.Equal(t, []int{0, 0, 1, 2, 2, 1, 0}, depths)
}

func TestTree_WalkSkipChildren(t *testing.T) {
	tree := sampleTree()

	var visited []string
	require.NoError(t, tree.Walk(func(n model.Request, _ int) error {
		visited = append(visited, n.Name)
		if n.ID == "users" {
			return SkipChildren
		}
		return nil
	}))
	assert.Equal(t, []string{"alpha", "api", "users", "ping", "zeta"}, visited)

	stop := errors.New("stop")
	err := tree.Walk(func(model.Request, int) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestTree_Path(t *testing.T) {
	tree := sampleTree()
	path, err := tree.Path("list")
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "users", "list"}, names(path))

	_, err = tree.Path("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTree_DeleteCascades(t *testing.T) {
	tree := sampleTree()

	ids, err := tree.Delete("api")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"api", "users", "list", "create", "ping"}, ids)
	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, []string{"alpha", "zeta"}, names(tree.Roots()))

	_, err = tree.Delete("api")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTree_DeleteLeaf(t *testing.T) {
	tree := sampleTree()
	ids, err := tree.Delete("ping")
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, ids)
	assert.Equal(t, []string{"users"}, names(tree.Children("api")))
}

func TestTree_Remove(t *testing.T) {
	tree := sampleTree()
	removed := tree.Remove("users", "list", "unknown")
	assert.ElementsMatch(t, []string{"users", "list", "create"}, removed)
	assert.Equal(t, 4, tree.Len())
}

func TestTree_RenameResorts(t *testing.T) {
	tree := sampleTree()
	_, err := tree.Rename("zeta", "aaa")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "api", "aaa"}, names(tree.Roots()))

	_, err = tree.Rename("zeta", "  ")
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = tree.Rename("nope", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTree_UpdateKeepsPosition(t *testing.T) {
	tree := sampleTree()

	upd := item("list", "list all", "", true)
	upd.URL = "http://localhost/users"
	upd.Method = model.MethodPost

	got, err := tree.Update(upd)
	require.NoError(t, err)
	assert.Equal(t, "users", got.ParentID)
	assert.False(t, got.IsFolder())
	assert.Equal(t, model.MethodPost, got.Method)
	assert.Equal(t, "http://localhost/users", got.URL)
	assert.Equal(t, []string{"create", "list all"}, names(tree.Children("users")))
}

func TestTree_CheckParent(t *testing.T) {
	tree := sampleTree()
	assert.NoError(t, tree.CheckParent(""))
	assert.NoError(t, tree.CheckParent("users"))
	assert.ErrorIs(t, tree.CheckParent("ping"), ErrParentNotFolder)
	assert.ErrorIs(t, tree.CheckParent("nope"), ErrNotFound)
}

func TestTree_GetReturnsCopy(t *testing.T) {
	tree := NewTree([]model.Request{{ID: "r", Name: "r", Headers: []model.Row{{Name: "A", Value: "1"}}}})
	got, ok := tree.Get("r")
	require.True(t, ok)
	got.Headers[0].Value = "changed"

	again, _ := tree.Get("r")
	assert.Equal(t, "1", again.Headers[0].Value)
	assert.Equal(t, model.MethodGet, again.Method)
}
