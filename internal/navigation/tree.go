package navigation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// MaxDepth bounds nesting so configuration mistakes surface at startup.
const MaxDepth = 8

var (
	// ErrInvalidPath indicates a node path that is empty or not absolute.
	ErrInvalidPath = errors.New("navigation: invalid path")
	// ErrDuplicatePath indicates two nodes sharing the same path.
	ErrDuplicatePath = errors.New("navigation: duplicate path")
	// ErrUnknownPermission indicates a permission missing from the catalog.
	ErrUnknownPermission = errors.New("navigation: unknown permission")
	// ErrEmptyGroup indicates a grouping node without children.
	ErrEmptyGroup = errors.New("navigation: group without children")
	// ErrInvalidKind indicates an unsupported node kind.
	ErrInvalidKind = errors.New("navigation: invalid kind")
	// ErrTooDeep indicates nesting beyond MaxDepth.
	ErrTooDeep = errors.New("navigation: tree too deep")
)

// Tree is an immutable, validated navigation tree. It is safe for
// concurrent use.
type Tree struct {
	roots []Node
	order []visit
	index map[string]int
}

type visit struct {
	node  Node
	depth int
}

// New validates roots and builds a Tree from a deep copy of them.
func New(roots ...Node) (*Tree, error) {
	roots = cloneNodes(roots)
	seen := make(map[string]struct{})
	var errs []error
	for i := range roots {
		errs = append(errs, validate(&roots[i], 1, seen)...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	t := &Tree{roots: roots, index: make(map[string]int, len(seen))}
	var flatten func(nodes []Node, depth int)
	flatten = func(nodes []Node, depth int) {
		for _, n := range nodes {
			leaf := n
			leaf.Children = nil
			t.index[n.Path] = len(t.order)
			t.order = append(t.order, visit{node: leaf, depth: depth})
			flatten(n.Children, depth+1)
		}
	}
	flatten(t.roots, 0)
	return t, nil
}

// MustNew is like New but panics on invalid input. Intended for trees
// declared in code.
func MustNew(roots ...Node) *Tree {
	t, err := New(roots...)
	if err != nil {
		panic(err)
	}
	return t
}

func validate(n *Node, depth int, seen map[string]struct{}) []error {
	var errs []error
	if depth > MaxDepth {
		return []error{fmt.Errorf("%w: %q exceeds depth %d", ErrTooDeep, n.Path, MaxDepth)}
	}
	n.Path = strings.TrimSpace(n.Path)
	n.Permission = strings.TrimSpace(n.Permission)
	if n.Kind == "" {
		n.Kind = KindPage
	}

	switch {
	case n.Path == "" || !strings.HasPrefix(n.Path, "/"):
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidPath, n.Path))
	default:
		if _, dup := seen[n.Path]; dup {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicatePath, n.Path))
		}
		seen[n.Path] = struct{}{}
	}
	if n.Kind != KindPage && n.Kind != KindGroup {
		errs = append(errs, fmt.Errorf("%w: %q on %q", ErrInvalidKind, n.Kind, n.Path))
	}
	if n.Kind == KindGroup && len(n.Children) == 0 {
		errs = append(errs, fmt.Errorf("%w: %q", ErrEmptyGroup, n.Path))
	}
	if n.Permission != "" && (n.Permission == shared.PermAll || !shared.IsKnownPermission(n.Permission)) {
		errs = append(errs, fmt.Errorf("%w: %q on %q", ErrUnknownPermission, n.Permission, n.Path))
	}
	for i := range n.Children {
		errs = append(errs, validate(&n.Children[i], depth+1, seen)...)
	}
	return errs
}

// Roots returns a copy of the top-level nodes in declared order.
func (t *Tree) Roots() []Node {
	if t == nil {
		return nil
	}
	return cloneNodes(t.roots)
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Walk visits every node depth-first in pre-order: parents before
// children, siblings in declared order. The node passed to fn has its
// Children cleared; depth starts at 0 for roots. Returning false stops the
// walk.
func (t *Tree) Walk(fn func(n Node, depth int) bool) {
	if t == nil {
		return
	}
	for _, v := range t.order {
		if !fn(v.node, v.depth) {
			return
		}
	}
}

// Find looks up a node by path. Children are included.
func (t *Tree) Find(path string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}
	if _, ok := t.index[path]; !ok {
		return Node{}, false
	}
	var found Node
	var search func(nodes []Node) bool
	search = func(nodes []Node) bool {
		for _, n := range nodes {
			if n.Path == path {
				found = n
				found.Children = cloneNodes(n.Children)
				return true
			}
			if search(n.Children) {
				return true
			}
		}
		return false
	}
	search(t.roots)
	return found, true
}

// Pages returns navigable nodes in pre-order with Children cleared.
func (t *Tree) Pages() []Node {
	var pages []Node
	t.Walk(func(n Node, _ int) bool {
		if n.Navigable() {
			pages = append(pages, n)
		}
		return true
	})
	return pages
}
