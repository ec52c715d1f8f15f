package rbac

import (
	"github.com/odyssey-erp/odyssey-console/internal/navigation"
)

// IsAuthorized reports whether a holder of set may see node.
func IsAuthorized(set PermissionSet, node navigation.Node) bool {
	return set.Grants(node.Permission)
}

// FirstAllowedRoute walks tree in pre-order and returns the path of the
// first navigable node authorized for set. When nothing matches, including
// for an empty or nil tree, fallback is returned.
func FirstAllowedRoute(set PermissionSet, tree *navigation.Tree, fallback string) string {
	route := fallback
	tree.Walk(func(n navigation.Node, _ int) bool {
		if n.Navigable() && IsAuthorized(set, n) {
			route = n.Path
			return false
		}
		return true
	})
	return route
}

// VisibleTree projects tree onto what a holder of set may see in the
// sidebar. Authorized pages are kept. A node that is not itself reachable
// but has visible descendants is kept as a group so those descendants stay
// discoverable. Groups left without children are dropped.
func VisibleTree(set PermissionSet, tree *navigation.Tree) []navigation.Node {
	return visibleNodes(set, tree.Roots())
}

func visibleNodes(set PermissionSet, nodes []navigation.Node) []navigation.Node {
	var out []navigation.Node
	for _, n := range nodes {
		children := visibleNodes(set, n.Children)
		switch {
		case n.Navigable() && IsAuthorized(set, n):
			n.Children = children
			out = append(out, n)
		case len(children) > 0:
			n.Children = children
			n.Kind = navigation.KindGroup
			out = append(out, n)
		}
	}
	return out
}
