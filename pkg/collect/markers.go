package collect

import "github.com/RoaringBitmap/roaring"

// markerSet tracks one record kind's attachment markers as edges.
//
// current holds every attachment point that carries the marker right now.
// consumed holds the points a pass has already looked at since they were
// last marked. A point is newly added while it is in current but not in
// consumed.
type markerSet struct {
	current  *roaring.Bitmap
	consumed *roaring.Bitmap
}

func newMarkerSet() *markerSet {
	return &markerSet{
		current:  roaring.New(),
		consumed: roaring.New(),
	}
}

// mark sets the marker. Re-marking a point that still carries it is not a
// new edge.
func (m *markerSet) mark(id uint32) {
	if m.current.CheckedAdd(id) {
		m.consumed.Remove(id)
	}
}

// unmark clears the marker and forgets that it was consumed, so a later
// mark is seen as a fresh edge.
func (m *markerSet) unmark(id uint32) {
	m.current.Remove(id)
	m.consumed.Remove(id)
}

// retrigger turns a consumed marker back into a pending edge.
func (m *markerSet) retrigger(id uint32) bool {
	if !m.current.Contains(id) {
		return false
	}
	m.consumed.Remove(id)
	return true
}

func (m *markerSet) has(id uint32) bool {
	return m.current.Contains(id)
}

func (m *markerSet) consume(id uint32) {
	if m.current.Contains(id) {
		m.consumed.Add(id)
	}
}

// added returns current AND NOT consumed, pruning consumed to current first.
func (m *markerSet) added() *roaring.Bitmap {
	m.consumed.And(m.current)
	return roaring.AndNot(m.current, m.consumed)
}
