package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Reducer rewrites inserts into a merge of the existing value and the
// incoming one, via reduce. Reads, removes, and watching all pass through
// to the underlying store unchanged — only the insert path differs.
//
// Important: inserting into the underlying store directly, bypassing the
// Reducer, or reducing the same key from two Reducer instances
// concurrently, can race: the merge reads the old value and writes the
// merged one as two separate store operations, not a single atomic one.
type Reducer[K any, V any, M any] struct {
	from   ChangeSource[K, V, V]
	reduce func(old V, had bool, merge M) V
}

// NewReducer builds a Reducer stage over from.
func NewReducer[K any, V any, M any](from ChangeSource[K, V, V], reduce func(old V, had bool, merge M) V) *Reducer[K, V, M] {
	return &Reducer[K, V, M]{from: from, reduce: reduce}
}

func (r *Reducer[K, V, M]) Get(key K) (V, bool, error)            { return r.from.Get(key) }
func (r *Reducer[K, V, M]) Contains(key K) (bool, error)          { return r.from.Contains(key) }
func (r *Reducer[K, V, M]) GetLT(key K) (husky.Entry[K, V], bool, error) { return r.from.GetLT(key) }
func (r *Reducer[K, V, M]) GetGT(key K) (husky.Entry[K, V], bool, error) { return r.from.GetGT(key) }
func (r *Reducer[K, V, M]) First() (husky.Entry[K, V], bool, error)      { return r.from.First() }
func (r *Reducer[K, V, M]) Last() (husky.Entry[K, V], bool, error)       { return r.from.Last() }
func (r *Reducer[K, V, M]) IsEmpty() (bool, error)                       { return r.from.IsEmpty() }

func (r *Reducer[K, V, M]) Iter() (iter.Seq[husky.Entry[K, V]], error) { return r.from.Iter() }
func (r *Reducer[K, V, M]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	return r.from.Range(lo, hi)
}

// Insert merges value into whatever is currently stored at key, via
// reduce, and writes the result.
func (r *Reducer[K, V, M]) Insert(key K, value M) (V, bool, error) {
	old, had, err := r.from.Get(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	merged := r.reduce(old, had, value)
	return r.from.Insert(key, merged)
}

func (r *Reducer[K, V, M]) Remove(key K) (V, bool, error) { return r.from.Remove(key) }
func (r *Reducer[K, V, M]) Clear() error                  { return r.from.Clear() }

func (r *Reducer[K, V, M]) FetchAndUpdate(key K, f func(old V, had bool) (M, bool)) (V, bool, error) {
	return r.from.FetchAndUpdate(key, func(old V, had bool) (V, bool) {
		merge, write := f(old, had)
		if !write {
			var zero V
			return zero, false
		}
		return r.reduce(old, had, merge), true
	})
}

func (r *Reducer[K, V, M]) Watch() *bus.Reader[husky.Event[K, V]] { return r.from.Watch() }
func (r *Reducer[K, V, M]) Db() *husky.Db                         { return r.from.Db() }
func (r *Reducer[K, V, M]) Sync() *quiesce.Synchronizer           { return r.from.Sync() }
func (r *Reducer[K, V, M]) Wait()                                 { r.from.Wait() }
