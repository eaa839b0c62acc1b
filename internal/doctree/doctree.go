package doctree

// Tree is the hierarchy extracted from one Markdown document.
type Tree struct {
	Title string `json:"title,omitempty"` // Front matter title, if any
	Root  *Node  `json:"root"`            // Synthetic level-0 node wrapping the top-level nodes
}

// Node is one heading or list entry. A child's Level is always greater than
// its parent's.
type Node struct {
	Text     string  `json:"text"`
	Level    int     `json:"level"`
	Content  string  `json:"content,omitempty"` // Body text attached below the entry
	Children []*Node `json:"children"`
}

// Stats summarizes a Tree.
type Stats struct {
	NodeCount    int      `json:"node_count"`    // Root excluded
	MaxDepth     int      `json:"max_depth"`     // Greatest Level reached
	FeaturesUsed []string `json:"features_used"` // Sorted feature tags
}

// OutlineItem is one caller-supplied (text, level) entry.
type OutlineItem struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// NewTree returns a tree with an empty synthetic root.
func NewTree() *Tree {
	return &Tree{Root: &Node{Children: []*Node{}}}
}

// Walk visits every node below the root in document order.
func (t *Tree) Walk(fn func(n *Node, parent *Node)) {
	if t == nil || t.Root == nil {
		return
	}
	var walk func(parent *Node)
	walk = func(parent *Node) {
		for _, c := range parent.Children {
			fn(c, parent)
			walk(c)
		}
	}
	walk(t.Root)
}

// Count returns the node count and greatest level below the root.
func (t *Tree) Count() (nodes, maxLevel int) {
	t.Walk(func(n *Node, _ *Node) {
		nodes++
		if n.Level > maxLevel {
			maxLevel = n.Level
		}
	})
	return nodes, maxLevel
}
