package navigation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := New(
		Node{Path: "/dashboard", Label: "Dashboard", Permission: "view_dashboard"},
		Node{Path: "/sales", Label: "Sales", Kind: KindGroup, Children: []Node{
			{Path: "/sales/orders", Label: "Orders", Permission: "view_orders"},
			{Path: "/sales/returns", Label: "Returns", Permission: "view_sale_returns"},
		}},
		Node{Path: "/profile", Label: "Profile"},
	)
	require.NoError(t, err)
	return tree
}

func TestWalkIsPreOrder(t *testing.T) {
	tree := sampleTree(t)

	var paths []string
	var depths []int
	tree.Walk(func(n Node, depth int) bool {
		paths = append(paths, n.Path)
		depths = append(depths, depth)
		assert.Nil(t, n.Children)
		return true
	})

	assert.Equal(t, []string{"/dashboard", "/sales", "/sales/orders", "/sales/returns", "/profile"}, paths)
	assert.Equal(t, []int{0, 0, 1, 1, 0}, depths)
	assert.Equal(t, 5, tree.Len())
}

func TestWalkStopsEarly(t *testing.T) {
	tree := sampleTree(t)
	visited := 0
	tree.Walk(func(n Node, _ int) bool {
		visited++
		return n.Path != "/sales"
	})
	assert.Equal(t, 2, visited)
}

func TestNewDefaultsKindToPage(t *testing.T) {
	tree := sampleTree(t)
	n, ok := tree.Find("/profile")
	require.True(t, ok)
	assert.Equal(t, KindPage, n.Kind)
	assert.True(t, n.Navigable())
}

func TestNewRejectsInvalidTrees(t *testing.T) {
	cases := []struct {
		name  string
		nodes []Node
		want  error
	}{
		{
			name:  "relative path",
			nodes: []Node{{Path: "dashboard"}},
			want:  ErrInvalidPath,
		},
		{
			name:  "empty path",
			nodes: []Node{{Path: "  "}},
			want:  ErrInvalidPath,
		},
		{
			name: "duplicate across levels",
			nodes: []Node{
				{Path: "/a", Children: []Node{{Path: "/b"}}},
				{Path: "/b"},
			},
			want: ErrDuplicatePath,
		},
		{
			name:  "unknown permission",
			nodes: []Node{{Path: "/a", Permission: "launch_rockets"}},
			want:  ErrUnknownPermission,
		},
		{
			name:  "wildcard is not a requirement",
			nodes: []Node{{Path: "/a", Permission: "*"}},
			want:  ErrUnknownPermission,
		},
		{
			name:  "empty group",
			nodes: []Node{{Path: "/a", Kind: KindGroup}},
			want:  ErrEmptyGroup,
		},
		{
			name:  "bad kind",
			nodes: []Node{{Path: "/a", Kind: "folder"}},
			want:  ErrInvalidKind,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.nodes...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestNewReportsAllProblems(t *testing.T) {
	_, err := New(
		Node{Path: "/a", Permission: "nope"},
		Node{Path: "/a"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPermission)
	assert.ErrorIs(t, err, ErrDuplicatePath)
}

func TestNewRejectsDeepNesting(t *testing.T) {
	root := Node{Path: "/n0"}
	cur := &root
	for i := 1; i <= MaxDepth; i++ {
		cur.Children = []Node{{Path: "/n" + strings.Repeat("x", i)}}
		cur = &cur.Children[0]
	}
	_, err := New(root)
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestTreeIsIsolatedFromCaller(t *testing.T) {
	children := []Node{{Path: "/sales/orders", Permission: "view_orders"}}
	tree, err := New(Node{Path: "/sales", Kind: KindGroup, Children: children})
	require.NoError(t, err)

	children[0].Path = "/hacked"
	roots := tree.Roots()
	roots[0].Children[0].Path = "/also-hacked"

	_, ok := tree.Find("/sales/orders")
	assert.True(t, ok)
	again := tree.Roots()
	assert.Equal(t, "/sales/orders", again[0].Children[0].Path)
}

func TestEmptyTree(t *testing.T) {
	tree, err := New()
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.Pages())

	var nilTree *Tree
	assert.Equal(t, 0, nilTree.Len())
	_, ok := nilTree.Find("/x")
	assert.False(t, ok)
}

func TestPagesSkipsGroups(t *testing.T) {
	tree := sampleTree(t)
	var paths []string
	for _, p := range tree.Pages() {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{"/dashboard", "/sales/orders", "/sales/returns", "/profile"}, paths)
}
