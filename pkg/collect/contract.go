// Package collect turns attachment markers into typed records of named
// descendants.
//
// A Contract describes one record kind: the name of the hierarchy root its
// field paths start from, and how to resolve every field below that root.
// The Scheduler watches a World for newly marked attachment points, locates
// each one's root with a resolve.Strategy and attaches the record the
// contract produces. Contracts come from three front-ends: struct tags
// (NewTagged), declared schemas (NewDeclared) and generated code, and all
// of them resolve through a FieldResolver.
package collect

import (
	"errors"
	"fmt"

	"github.com/agentic-research/descend/pkg/graph"
	"github.com/agentic-research/descend/pkg/resolve"
)

// ErrFieldNotFound is matched by every *FieldResolutionError.
var ErrFieldNotFound = errors.New("field path not found")

// Contract produces records of type T from a located root.
//
// ResolveFields must be all-or-nothing: either every field resolves and a
// complete record is returned, or an error is returned and no record is
// produced.
type Contract[T any] interface {
	// RootName is the Name the root locator searches for. Strategies that
	// do not search ignore it.
	RootName() string
	ResolveFields(g graph.Graph, root, attachment string) (T, error)
}

// FieldResolutionError reports a field path that did not resolve from the
// located root. Candidates lists the name paths below that root.
type FieldResolutionError struct {
	Record     string
	Field      string
	Path       []string
	Root       string
	Candidates [][]string
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("%s.%s: path %q not found below root %q; name paths from the root:\n%s",
		e.Record, e.Field, e.Path, e.Root, resolve.FormatPaths(e.Candidates))
}

func (e *FieldResolutionError) Unwrap() error {
	return ErrFieldNotFound
}

// FieldResolver resolves a record's fields one after another from a shared
// root. The first failure sticks: later Resolve calls return "" without
// touching the graph, and Err reports the failure.
//
//	r := collect.NewFieldResolver(g, root, "Armature")
//	rec := Armature{Base: r.Resolve("base", "Bone")}
//	if err := r.Err(); err != nil { ... }
type FieldResolver struct {
	g      graph.Graph
	root   string
	record string
	err    error
}

func NewFieldResolver(g graph.Graph, root, record string) *FieldResolver {
	return &FieldResolver{g: g, root: root, record: record}
}

// Resolve returns the node at path below the root. An empty path is the
// root itself.
func (r *FieldResolver) Resolve(field string, path ...string) string {
	if r.err != nil {
		return ""
	}
	id, ok := resolve.Path(r.g, r.root, path)
	if !ok {
		r.err = &FieldResolutionError{
			Record:     r.record,
			Field:      field,
			Path:       path,
			Root:       r.root,
			Candidates: resolve.CollectLeafPaths(r.g, r.root),
		}
		return ""
	}
	return id
}

// Err returns the first resolution failure, if any.
func (r *FieldResolver) Err() error {
	return r.err
}
