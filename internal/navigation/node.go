// Package navigation models the console's static navigation tree: an
// ordered hierarchy of routable destinations and the permission each one
// requires.
package navigation

// Kind distinguishes content-bearing pages from pure grouping labels.
type Kind string

const (
	// KindPage is a navigable destination rendering content.
	KindPage Kind = "page"
	// KindGroup only groups its children in the sidebar.
	KindGroup Kind = "group"
)

// Node is one entry of the navigation tree. An empty Permission means the
// node is visible to any authenticated user.
type Node struct {
	Path       string `yaml:"path" json:"path"`
	Label      string `yaml:"label" json:"label"`
	Permission string `yaml:"permission,omitempty" json:"permission,omitempty"`
	Kind       Kind   `yaml:"kind,omitempty" json:"kind"`
	Children   []Node `yaml:"children,omitempty" json:"children,omitempty"`
}

// Navigable reports whether the node can be used as a landing target.
func (n Node) Navigable() bool {
	return n.Kind != KindGroup
}

// HasChildren reports whether the node has nested entries.
func (n Node) HasChildren() bool {
	return len(n.Children) > 0
}

func cloneNodes(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Children = cloneNodes(n.Children)
	}
	return out
}
