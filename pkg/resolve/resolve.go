// Package resolve implements name-path lookups over a scene hierarchy:
// exact path descent, the two-level grandchild search used to skip the
// anonymous wrapper an asset pipeline inserts above a scene, and the
// leaf-path enumeration used to explain failed lookups.
//
// All functions are pure reads over a graph.Graph. Children that the graph
// cannot produce are skipped, as if they were not part of the hierarchy.
package resolve

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/agentic-research/descend/pkg/graph"
)

// Path descends from root following segments, one level per segment.
//
// At each level the first direct child whose name equals the segment is
// taken; there is no backtracking, so a later sibling with the same name is
// never tried even if the descent fails further down. An empty segments
// slice returns root itself without looking at its name.
func Path(g graph.Graph, root string, segments []string) (string, bool) {
	if len(segments) == 0 {
		return root, true
	}

	n, err := g.GetNode(root)
	if err != nil || n.Children == nil {
		return "", false
	}

	for _, c := range n.Children {
		child, err := g.GetNode(c)
		if err != nil {
			continue
		}
		if child.Named() && child.Name == segments[0] {
			return Path(g, child.ID, segments[1:])
		}
	}
	return "", false
}

// Grandchild searches exactly two levels below root for a node named name.
// Grandchildren are visited child by child, in order; the first match wins.
func Grandchild(g graph.Graph, root, name string) (string, bool) {
	n, err := g.GetNode(root)
	if err != nil {
		return "", false
	}

	for _, c := range n.Children {
		child, err := g.GetNode(c)
		if err != nil {
			continue
		}
		for _, gc := range child.Children {
			grandchild, err := g.GetNode(gc)
			if err != nil {
				continue
			}
			if grandchild.Named() && grandchild.Name == name {
				return grandchild.ID, true
			}
		}
	}
	return "", false
}

// LeafPaths lazily enumerates the name path of every leaf below root.
//
// A leaf is a named node whose child list is absent or empty. Unnamed nodes
// add no segment but their children are still visited; an unnamed node with
// no children contributes nothing. The root's own name, when it has one,
// prefixes every path, and a named root without a child list is itself the
// only path.
//
// Enumeration costs O(subtree) and is meant for failure diagnostics only.
func LeafPaths(g graph.Graph, root string) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		n, err := g.GetNode(root)
		if err != nil {
			return
		}

		var prefix []string
		if n.Named() {
			prefix = []string{n.Name}
		}
		if n.Children == nil {
			if n.Named() {
				yield(prefix)
			}
			return
		}

		onPath := map[string]bool{root: true}
		for _, c := range n.Children {
			if !leafPaths(g, c, prefix, onPath, yield) {
				return
			}
		}
	}
}

func leafPaths(g graph.Graph, id string, prefix []string, onPath map[string]bool, yield func([]string) bool) bool {
	if onPath[id] {
		return true
	}
	n, err := g.GetNode(id)
	if err != nil {
		return true
	}

	path := prefix
	if n.Named() {
		// Clip forces a fresh backing array so sibling paths never alias.
		path = append(slices.Clip(prefix), n.Name)
	}

	if len(n.Children) == 0 {
		if n.Named() {
			return yield(path)
		}
		return true
	}

	onPath[id] = true
	defer delete(onPath, id)
	for _, c := range n.Children {
		if !leafPaths(g, c, path, onPath, yield) {
			return false
		}
	}
	return true
}

// CollectLeafPaths drains LeafPaths into a slice.
func CollectLeafPaths(g graph.Graph, root string) [][]string {
	return slices.Collect(LeafPaths(g, root))
}

// FormatPaths renders paths one per line, each as a quoted segment list.
func FormatPaths(paths [][]string) string {
	if len(paths) == 0 {
		return "  (no named leaf paths)"
	}
	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "  %q", p)
	}
	return b.String()
}
