package ingest

import (
	"errors"
	"fmt"

	"github.com/agentic-research/descend/pkg/graph"
)

// Instantiate copies the subtree of src rooted at sceneRoot under the
// attachment node of dst. Copied IDs are prefixed with attachment + "/"
// so several instances of one asset can share a store.
//
// sceneRoot is copied as is, so when it is an unnamed scene wrapper (as
// produced by ParseGLTF) the asset's top-level nodes end up two levels
// below attachment. It returns the ID of the copied scene root.
func Instantiate(dst *graph.MemoryStore, attachment string, src graph.Graph, sceneRoot string) (string, error) {
	if _, err := dst.GetNode(attachment); err != nil {
		return "", fmt.Errorf("instantiate under %s: %w", attachment, err)
	}
	if _, err := src.GetNode(sceneRoot); err != nil {
		return "", fmt.Errorf("instantiate scene %s: %w", sceneRoot, err)
	}

	prefix := attachment + "/"
	type staged struct {
		parent string
		node   *graph.Node
	}
	var (
		nodes []staged
		seen  = make(map[string]bool)
	)
	var stage func(parent, id string) error
	stage = func(parent, id string) error {
		n, err := src.GetNode(id)
		if errors.Is(err, graph.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		cp := &graph.Node{ID: prefix + n.ID, Name: n.Name}
		if seen[cp.ID] {
			return fmt.Errorf("instantiate %s: node reached twice", id)
		}
		if _, err := dst.GetNode(cp.ID); err == nil {
			return fmt.Errorf("instantiate %s: node %s already exists", id, cp.ID)
		}
		seen[cp.ID] = true
		if n.Children != nil {
			cp.Children = []string{}
		}
		nodes = append(nodes, staged{parent: parent, node: cp})
		for _, c := range n.Children {
			if err := stage(cp.ID, c); err != nil {
				return err
			}
		}
		return nil
	}

	// Nothing is written until the whole subtree is known to be valid.
	if err := stage(attachment, sceneRoot); err != nil {
		return "", err
	}
	for _, s := range nodes {
		if err := dst.AppendChild(s.parent, s.node); err != nil {
			return "", fmt.Errorf("instantiate %s: %w", s.node.ID, err)
		}
	}
	return prefix + sceneRoot, nil
}

// DefaultScene returns the first top-level node of g: the default scene of
// a parsed glTF asset or of a snapshot written from one.
func DefaultScene(g graph.Graph) (string, error) {
	roots, err := g.ListChildren("")
	if err != nil {
		return "", fmt.Errorf("list scenes: %w", err)
	}
	if len(roots) == 0 {
		return "", errors.New("asset has no scenes")
	}
	return roots[0], nil
}
