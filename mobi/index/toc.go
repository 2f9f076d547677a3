package index

// TOCNode is the writer's in-memory view of one table-of-contents entry:
// title, link target, node class, optional author/description, play order,
// and child entries.
type TOCNode struct {
	Title       string
	Href        string
	Klass       string // "", "chapter", "section", "article", "periodical"
	Author      string
	Description string
	PlayOrder   int
	Children    []*TOCNode

	// Offset/Length are resolved against the serialized text's id_offsets
	// map before classification and indexing run; Offset is -1 until
	// resolved.
	Offset int64
	Length int64
}

// Depth returns the node's height above its deepest leaf: a top-level node
// (periodical) is depth 3, its sections depth 2, their articles depth 1.
// Depth counts remaining levels below the node, not above it.
func (n *TOCNode) Depth() int {
	if len(n.Children) == 0 {
		return 1
	}
	maxChild := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > maxChild {
			maxChild = d
		}
	}
	return maxChild + 1
}

// Walk visits every descendant of n (not including n itself), pre-order.
func (n *TOCNode) Walk(visit func(*TOCNode)) {
	for _, c := range n.Children {
		visit(c)
		c.Walk(visit)
	}
}

// Flattened returns every descendant (not including n) in pre-order.
func (n *TOCNode) Flattened() []*TOCNode {
	var out []*TOCNode
	n.Walk(func(c *TOCNode) { out = append(out, c) })
	return out
}
