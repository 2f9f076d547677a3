package index

import "sort"

// Flatten reduces a TOC to book mode: descendants whose offset resolved
// (>= 0), sorted by offset, deduplicated by offset, each reassigned
// klass="chapter" and a sequential play_order.
func Flatten(root *TOCNode) []*TOCNode {
	var resolved []*TOCNode
	root.Walk(func(n *TOCNode) {
		if n.Offset >= 0 {
			resolved = append(resolved, n)
		}
	})

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Offset < resolved[j].Offset
	})

	var out []*TOCNode
	var lastOffset int64 = -1
	for _, n := range resolved {
		if n.Offset == lastOffset {
			continue
		}
		lastOffset = n.Offset
		out = append(out, n)
	}

	for i, n := range out {
		n.Klass = "chapter"
		n.PlayOrder = i
	}
	return out
}
