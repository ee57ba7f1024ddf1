package quadtree

// Node is one block of the decomposition. A node has either no children
// (a leaf, rendered as a solid block of Color) or exactly four, in
// top-left, top-right, bottom-left, bottom-right order.
type Node struct {
	region   Region
	color    Pixel
	children []*Node
}

func newNode(r Region, c Pixel) *Node {
	return &Node{region: r, color: c}
}

// Region returns the rectangle covered by the node
func (n *Node) Region() Region { return n.region }

// Color returns the average color of the node's region
func (n *Node) Color() Pixel { return n.color }

// IsLeaf reports whether the node has no children
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// Children returns a copy of the child list
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Tree owns a decomposition root and caches its depth and node count.
// The zero value is an empty tree.
type Tree struct {
	root      *Node
	depth     int
	nodeCount int
	leafCount int
}

// NewTree returns a tree rooted at root
func NewTree(root *Node) *Tree {
	t := &Tree{}
	t.SetRoot(root)
	return t
}

// SetRoot replaces the root and recomputes the cached statistics
func (t *Tree) SetRoot(root *Node) {
	t.root = root
	t.depth = depthOf(root)
	t.nodeCount, t.leafCount = countNodes(root)
}

// Root returns the root node, nil for an empty tree
func (t *Tree) Root() *Node { return t.root }

// Depth is the number of nodes on the longest root-to-leaf path.
// A single leaf root has depth 1 and an empty tree has depth 0.
func (t *Tree) Depth() int { return t.depth }

// NodeCount is the total number of nodes including the root
func (t *Tree) NodeCount() int { return t.nodeCount }

// LeafCount is the number of leaves, i.e. output blocks
func (t *Tree) LeafCount() int { return t.leafCount }

// Walk visits nodes depth-first in child order. level is 0 for the root.
// Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node, level int) bool) {
	if t == nil {
		return
	}
	walk(t.root, 0, fn)
}

// Leaves returns every leaf in depth-first order
func (t *Tree) Leaves() []*Node {
	leaves := make([]*Node, 0, t.leafCount)
	t.Walk(func(n *Node, _ int) bool {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}

func walk(n *Node, level int, fn func(*Node, int) bool) {
	if n == nil {
		return
	}
	if !fn(n, level) {
		return
	}
	for _, c := range n.children {
		walk(c, level+1, fn)
	}
}

func depthOf(n *Node) int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, c := range n.children {
		deepest = max(deepest, depthOf(c))
	}
	return 1 + deepest
}

func countNodes(n *Node) (nodes, leaves int) {
	if n == nil {
		return 0, 0
	}
	if n.IsLeaf() {
		return 1, 1
	}
	nodes = 1
	for _, c := range n.children {
		cn, cl := countNodes(c)
		nodes += cn
		leaves += cl
	}
	return nodes, leaves
}
