// Package ingest turns glTF assets and scene snapshots into graph nodes
// and spawns them under attachment points.
package ingest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/descend/pkg/graph"
)

// glTF node and scene IDs inside a parsed store.
func gltfNodeID(i int) string  { return fmt.Sprintf("node/%d", i) }
func gltfSceneID(i int) string { return fmt.Sprintf("scene/%d", i) }

var (
	nodesPath  = jp.MustParseString("$.nodes")
	scenesPath = jp.MustParseString("$.scenes")
	scenePath  = jp.MustParseString("$.scene")
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A // "JSON"
)

// ParseGLTF reads a glTF 2.0 asset, as .gltf JSON or a .glb container, into
// a store holding only the node hierarchy.
//
// Every scene becomes an unnamed root node whose children are the scene's
// top-level nodes; the default scene is listed first. Node names come from
// "name" and child lists from "children", which stays nil when absent.
func ParseGLTF(data []byte) (*graph.MemoryStore, error) {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic {
		js, err := glbJSONChunk(data)
		if err != nil {
			return nil, err
		}
		data = js
	}

	doc, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse gltf: %w", err)
	}
	top, ok := doc.(map[string]any)
	if !ok {
		return nil, errors.New("parse gltf: document is not an object")
	}

	nodes, err := arrayAt(top, nodesPath)
	if err != nil {
		return nil, err
	}
	scenes, err := arrayAt(top, scenesPath)
	if err != nil {
		return nil, err
	}

	store := graph.NewMemoryStore()
	parent := make([]int, len(nodes))
	for i := range parent {
		parent[i] = -1
	}

	for i, raw := range nodes {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("gltf nodes[%d]: not an object", i)
		}
		n := &graph.Node{ID: gltfNodeID(i)}
		if name, ok := obj["name"].(string); ok {
			n.Name = name
		}
		if rawChildren, present := obj["children"]; present {
			idx, err := indices(rawChildren, len(nodes))
			if err != nil {
				return nil, fmt.Errorf("gltf nodes[%d].children: %w", i, err)
			}
			n.Children = make([]string, 0, len(idx))
			for _, c := range idx {
				if parent[c] >= 0 {
					return nil, fmt.Errorf("gltf nodes[%d]: child %d already has parent %d", i, c, parent[c])
				}
				parent[c] = i
				n.Children = append(n.Children, gltfNodeID(c))
			}
		}
		store.AddNode(n)
	}
	if err := checkAcyclic(parent); err != nil {
		return nil, err
	}

	def := 0
	if v := scenePath.First(top); v != nil {
		idx, err := index(v, len(scenes))
		if err != nil {
			return nil, fmt.Errorf("gltf scene: %w", err)
		}
		def = idx
	}

	order := make([]int, 0, len(scenes))
	if len(scenes) > 0 {
		order = append(order, def)
	}
	for i := range scenes {
		if i != def {
			order = append(order, i)
		}
	}
	for _, i := range order {
		obj, ok := scenes[i].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("gltf scenes[%d]: not an object", i)
		}
		root := &graph.Node{ID: gltfSceneID(i), Children: []string{}}
		if rawNodes, present := obj["nodes"]; present {
			idx, err := indices(rawNodes, len(nodes))
			if err != nil {
				return nil, fmt.Errorf("gltf scenes[%d].nodes: %w", i, err)
			}
			seen := make(map[int]bool, len(idx))
			for _, c := range idx {
				if parent[c] >= 0 {
					return nil, fmt.Errorf("gltf scenes[%d]: node %d is not a root node", i, c)
				}
				if seen[c] {
					return nil, fmt.Errorf("gltf scenes[%d]: node %d listed twice", i, c)
				}
				seen[c] = true
				root.Children = append(root.Children, gltfNodeID(c))
			}
		}
		store.AddRoot(root)
	}
	return store, nil
}

// glbJSONChunk returns the JSON chunk of a binary glTF container.
func glbJSONChunk(data []byte) ([]byte, error) {
	var hdr struct {
		Magic, Version, Length uint32
		ChunkLength, ChunkType uint32
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("parse glb header: %w", err)
	}
	if hdr.Version != 2 {
		return nil, fmt.Errorf("parse glb: unsupported container version %d", hdr.Version)
	}
	if int(hdr.Length) > len(data) {
		return nil, fmt.Errorf("parse glb: truncated (header says %d bytes, have %d)", hdr.Length, len(data))
	}
	if hdr.ChunkType != glbChunkJSON {
		return nil, fmt.Errorf("parse glb: first chunk is 0x%08x, want JSON", hdr.ChunkType)
	}
	start := 20
	end := start + int(hdr.ChunkLength)
	if end > len(data) {
		return nil, errors.New("parse glb: JSON chunk overruns the file")
	}
	return data[start:end], nil
}

func arrayAt(doc any, x jp.Expr) ([]any, error) {
	v := x.First(doc)
	if v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("gltf %s: not an array", x)
	}
	return arr, nil
}

func indices(v any, limit int) ([]int, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, errors.New("not an array")
	}
	out := make([]int, len(arr))
	for i, raw := range arr {
		idx, err := index(raw, limit)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

func index(v any, limit int) (int, error) {
	var i int
	switch n := v.(type) {
	case int64:
		i = int(n)
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("index %v is not an integer", n)
		}
		i = int(n)
	default:
		return 0, fmt.Errorf("index %v is not a number", v)
	}
	if i < 0 || i >= limit {
		return 0, fmt.Errorf("index %d out of range [0, %d)", i, limit)
	}
	return i, nil
}

// checkAcyclic walks parent links up from every node. With at most one
// parent per node, a cycle is the only way a walk can outlast len(parent)
// steps.
func checkAcyclic(parent []int) error {
	for i := range parent {
		steps := 0
		for p := parent[i]; p >= 0; p = parent[p] {
			steps++
			if steps > len(parent) {
				return fmt.Errorf("gltf nodes[%d]: hierarchy contains a cycle", i)
			}
		}
	}
	return nil
}
