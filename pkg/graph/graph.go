// Package graph is the read-only scene hierarchy everything else walks.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var ErrNotFound = errors.New("node not found")

// Node is the universal primitive of a scene hierarchy.
//
// Name is optional: the empty string means the node carries no name.
// Children is optional too: a nil slice means the node has no child list
// (a leaf), while a non-nil empty slice is a populated-but-empty list.
// Stores must keep that distinction intact.
type Node struct {
	ID       string
	Name     string   // Human-readable name, "" when unnamed
	Children []string // Ordered child node IDs, nil when the node has no child list
}

// Named reports whether the node carries a name.
func (n *Node) Named() bool {
	return n.Name != ""
}

// HasChildList reports whether the node carries a child list at all,
// even an empty one.
func (n *Node) HasChildList() bool {
	return n.Children != nil
}

// Graph is the read-only view the resolution engine works against.
// This allows us to swap the backend (Memory -> SQLite -> loaded asset).
type Graph interface {
	GetNode(id string) (*Node, error)
	// ListChildren returns the ordered child IDs of a node. The empty ID
	// lists the top-level roots of the store.
	ListChildren(id string) ([]string, error)
}

// -----------------------------------------------------------------------------
// In-Memory Graph
// -----------------------------------------------------------------------------

// MemoryStore is a mutable in-memory Graph. The asset side owns mutation;
// the resolution engine only ever reads through the Graph interface.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	roots []string // Top-level nodes
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]*Node),
		roots: []string{},
	}
}

// AddRoot registers a node as a top-level root and adds it to the store.
// Callers must explicitly declare roots; there is no heuristic.
func (s *MemoryStore) AddRoot(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
	if slices.Contains(s.roots, n.ID) {
		return
	}
	s.roots = append(s.roots, n.ID)
}

// AddNode adds a non-root node to the store, replacing any node with the same ID.
func (s *MemoryStore) AddNode(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n
}

// AppendChild adds n to the store and appends it to the parent's child list,
// creating the list if the parent had none.
func (s *MemoryStore) AppendChild(parentID string, n *Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.nodes[parentID]
	if !ok {
		return fmt.Errorf("append %s: parent %s: %w", n.ID, parentID, ErrNotFound)
	}
	if _, exists := s.nodes[n.ID]; exists {
		return fmt.Errorf("append %s: node already exists", n.ID)
	}
	s.nodes[n.ID] = n
	if parent.Children == nil {
		parent.Children = []string{}
	}
	parent.Children = append(parent.Children, n.ID)
	return nil
}

// Len returns the number of nodes in the store.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// GetNode implements Graph.
func (s *MemoryStore) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// ListChildren implements Graph.
func (s *MemoryStore) ListChildren(id string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Root case
	if id == "" {
		return s.roots, nil
	}

	n, ok := s.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Children, nil
}

// Walk visits id and every node reachable below it in depth-first,
// leftmost-first order. Children that are missing from g are skipped.
// Returning false from fn stops the walk.
func Walk(g Graph, id string, fn func(n *Node, depth int) bool) error {
	seen := make(map[string]struct{})
	var visit func(id string, depth int) (bool, error)
	visit = func(id string, depth int) (bool, error) {
		if _, ok := seen[id]; ok {
			return false, fmt.Errorf("walk: node %s reached twice", id)
		}
		seen[id] = struct{}{}

		n, err := g.GetNode(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return true, nil
			}
			return false, err
		}
		if !fn(n, depth) {
			return false, nil
		}
		for _, c := range n.Children {
			cont, err := visit(c, depth+1)
			if err != nil || !cont {
				return cont, err
			}
		}
		return true, nil
	}
	_, err := visit(id, 0)
	return err
}
