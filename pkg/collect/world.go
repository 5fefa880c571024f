package collect

import (
	"sync"

	"github.com/agentic-research/descend/pkg/graph"
)

// World holds everything the scheduler reads and writes: the scene graph,
// per-kind attachment markers, attached records and the last failure seen
// per attachment point.
//
// Attachment node IDs are interned to uint32 on first use so marker sets
// can be kept as roaring bitmaps. Interned IDs are never reused.
type World struct {
	mu    sync.Mutex
	graph graph.Graph

	intID map[string]uint32 // node ID -> interned ID
	ids   []string          // interned ID -> node ID

	markers  map[string]*markerSet       // kind -> markers
	records  map[string]map[string]any   // kind -> attachment -> record
	failures map[string]map[string]error // kind -> attachment -> last failure
}

// NewWorld returns an empty world reading from g. Pass a *graph.HotSwapGraph
// when the scene is replaced while the scheduler runs; every pass then sees
// a single consistent snapshot.
func NewWorld(g graph.Graph) *World {
	return &World{
		graph:    g,
		intID:    make(map[string]uint32),
		markers:  make(map[string]*markerSet),
		records:  make(map[string]map[string]any),
		failures: make(map[string]map[string]error),
	}
}

// Graph returns the graph the world was built on.
func (w *World) Graph() graph.Graph {
	return w.graph
}

// intern must be called with w.mu held.
func (w *World) intern(id string) uint32 {
	if n, ok := w.intID[id]; ok {
		return n
	}
	n := uint32(len(w.ids))
	w.intID[id] = n
	w.ids = append(w.ids, id)
	return n
}

// lookup must be called with w.mu held.
func (w *World) lookup(id string) (uint32, bool) {
	n, ok := w.intID[id]
	return n, ok
}

// markersOf must be called with w.mu held.
func (w *World) markersOf(kind string) *markerSet {
	m, ok := w.markers[kind]
	if !ok {
		m = newMarkerSet()
		w.markers[kind] = m
	}
	return m
}

// Mark places a kind marker on attachment, requesting that a record of
// that kind be collected for it on the next pass.
func (w *World) Mark(kind, attachment string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.markersOf(kind).mark(w.intern(attachment))
}

// Unmark removes the marker. A later Mark is a new request.
func (w *World) Unmark(kind, attachment string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n, ok := w.lookup(attachment); ok {
		w.markersOf(kind).unmark(n)
	}
}

// Retrigger makes a marker that a pass already consumed pending again. It
// reports false when attachment carries no marker of that kind.
func (w *World) Retrigger(kind, attachment string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.lookup(attachment)
	if !ok {
		return false
	}
	return w.markersOf(kind).retrigger(n)
}

// HasMarker reports whether attachment carries a kind marker.
func (w *World) HasMarker(kind, attachment string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.lookup(attachment)
	return ok && w.markersOf(kind).has(n)
}

// HasRecord reports whether a kind record is attached to attachment.
func (w *World) HasRecord(kind, attachment string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.records[kind][attachment]
	return ok
}

// Failure returns the error from the last failed attempt to collect a kind
// record for attachment, or nil.
func (w *World) Failure(kind, attachment string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failures[kind][attachment]
}

// Pending returns the number of kind markers no pass has consumed yet.
func (w *World) Pending(kind string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int(w.markersOf(kind).added().GetCardinality())
}

// Attached returns the attachment points carrying a kind record, in the
// order they were first marked.
func (w *World) Attached(kind string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	recs := w.records[kind]
	out := make([]string, 0, len(recs))
	for _, id := range w.ids {
		if _, ok := recs[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Get returns the kind record attached to attachment.
func Get[T any](w *World, kind, attachment string) (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, ok := w.records[kind][attachment].(T)
	return rec, ok
}

// added returns the newly marked attachment points of kind in interned
// order.
func (w *World) added(kind string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	bm := w.markersOf(kind).added()
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, w.ids[it.Next()])
	}
	return out
}

func (w *World) consume(kind, attachment string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n, ok := w.lookup(attachment); ok {
		w.markersOf(kind).consume(n)
	}
}

// attach stores rec and removes the marker in one step, so no observer sees
// a record next to its marker.
func (w *World) attach(kind, attachment string, rec any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	recs, ok := w.records[kind]
	if !ok {
		recs = make(map[string]any)
		w.records[kind] = recs
	}
	recs[attachment] = rec
	delete(w.failures[kind], attachment)
	if n, ok := w.lookup(attachment); ok {
		w.markersOf(kind).unmark(n)
	}
}

func (w *World) fail(kind, attachment string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.failures[kind]
	if !ok {
		f = make(map[string]error)
		w.failures[kind] = f
	}
	f[attachment] = err
}
