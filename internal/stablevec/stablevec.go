// Package stablevec implements a dense array with per-slot occupancy, used
// as the value type for the forward and backward maps of a materialized
// index or transform. Positions returned by Push remain valid after other
// slots are removed — a plain append-and-shift slice would invalidate them.
package stablevec

// Vec is an ordered sequence of live and tombstoned slots. The zero value
// is an empty, ready-to-use Vec.
type Vec[T any] struct {
	items    []T
	occupied []bool
	live     int
}

// New returns an empty Vec.
func New[T any]() *Vec[T] {
	return &Vec[T]{}
}

// Push inserts x into the first vacant slot, or appends a new one, and
// returns the position it was assigned. The position is stable: it
// continues to refer to x regardless of any other Push/Remove calls.
func (v *Vec[T]) Push(x T) int {
	for i, occ := range v.occupied {
		if !occ {
			v.items[i] = x
			v.occupied[i] = true
			v.live++
			return i
		}
	}
	v.items = append(v.items, x)
	v.occupied = append(v.occupied, true)
	v.live++
	return len(v.items) - 1
}

// Extend pushes every item from xs in order and returns the positions
// assigned, in the same order the items were consumed.
func (v *Vec[T]) Extend(xs []T) []int {
	positions := make([]int, len(xs))
	for i, x := range xs {
		positions[i] = v.Push(x)
	}
	return positions
}

// Get returns the value at position i and whether the slot is live.
func (v *Vec[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(v.items) || !v.occupied[i] {
		return zero, false
	}
	return v.items[i], true
}

// Remove vacates slot i. It is a no-op if the slot is already vacant or
// out of range. It never shifts other slots, so their positions survive.
func (v *Vec[T]) Remove(i int) {
	var zero T
	if i < 0 || i >= len(v.items) || !v.occupied[i] {
		return
	}
	v.items[i] = zero
	v.occupied[i] = false
	v.live--
}

// Len returns the number of live (non-tombstoned) slots.
func (v *Vec[T]) Len() int {
	return v.live
}

// IsEmpty reports whether there are no live slots.
func (v *Vec[T]) IsEmpty() bool {
	return v.live == 0
}

// All iterates the live slots in position order.
func (v *Vec[T]) All() func(yield func(int, T) bool) {
	return func(yield func(int, T) bool) {
		for i, occ := range v.occupied {
			if !occ {
				continue
			}
			if !yield(i, v.items[i]) {
				return
			}
		}
	}
}

// Values returns the live values, in position order, with positions
// discarded. Useful for callers (like MaterialIndex's read path) that only
// need the values.
func (v *Vec[T]) Values() []T {
	out := make([]T, 0, v.live)
	for i, occ := range v.occupied {
		if occ {
			out = append(out, v.items[i])
		}
	}
	return out
}

// Snapshot is the serializable form of a Vec: a value sequence paired with
// an occupancy bitmap (as a plain bool slice, which both the portable and
// archival codecs can encode directly).
type Snapshot[T any] struct {
	Items    []T
	Occupied []bool
}

// Snapshot captures the current state for serialization.
func (v *Vec[T]) Snapshot() Snapshot[T] {
	items := make([]T, len(v.items))
	copy(items, v.items)
	occ := make([]bool, len(v.occupied))
	copy(occ, v.occupied)
	return Snapshot[T]{Items: items, Occupied: occ}
}

// FromSnapshot rebuilds a Vec from a previously captured Snapshot.
func FromSnapshot[T any](s Snapshot[T]) *Vec[T] {
	v := &Vec[T]{items: append([]T(nil), s.Items...), occupied: append([]bool(nil), s.Occupied...)}
	for _, occ := range v.occupied {
		if occ {
			v.live++
		}
	}
	return v
}
