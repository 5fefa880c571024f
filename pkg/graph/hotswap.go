package graph

import (
	"sync"
)

// HotSwapGraph is a thread-safe wrapper that allows swapping the underlying graph instance.
// The asset side swaps in a freshly loaded snapshot; readers that need a view
// stable across several lookups take it once with Current.
type HotSwapGraph struct {
	mu      sync.RWMutex
	current Graph
}

func NewHotSwapGraph(initial Graph) *HotSwapGraph {
	return &HotSwapGraph{current: initial}
}

// Swap atomically replaces the current graph with a new one and returns the old one.
func (h *HotSwapGraph) Swap(newGraph Graph) Graph {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.current
	h.current = newGraph
	return old
}

// Current returns the graph in effect right now. Lookups made through the
// returned value are unaffected by later swaps.
func (h *HotSwapGraph) Current() Graph {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// GetNode delegates to current graph.
func (h *HotSwapGraph) GetNode(id string) (*Node, error) {
	return h.Current().GetNode(id)
}

// ListChildren delegates to current graph.
func (h *HotSwapGraph) ListChildren(id string) ([]string, error) {
	return h.Current().ListChildren(id)
}

// Snapshot returns the view a multi-step read should use: the current
// graph for swappable wrappers, g itself otherwise.
func Snapshot(g Graph) Graph {
	if s, ok := g.(interface{ Current() Graph }); ok {
		return s.Current()
	}
	return g
}
