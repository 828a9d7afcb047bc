package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// FilterReducer is a Reducer whose merge function can veto the insert
// entirely by returning ok=false, in which case the store is left
// untouched.
type FilterReducer[K any, V any, M any] struct {
	from   ChangeSource[K, V, V]
	reduce func(old V, had bool, merge M) (V, bool)
}

// NewFilterReducer builds a FilterReducer stage over from.
func NewFilterReducer[K any, V any, M any](from ChangeSource[K, V, V], reduce func(old V, had bool, merge M) (V, bool)) *FilterReducer[K, V, M] {
	return &FilterReducer[K, V, M]{from: from, reduce: reduce}
}

func (r *FilterReducer[K, V, M]) Get(key K) (V, bool, error)            { return r.from.Get(key) }
func (r *FilterReducer[K, V, M]) Contains(key K) (bool, error)          { return r.from.Contains(key) }
func (r *FilterReducer[K, V, M]) GetLT(key K) (husky.Entry[K, V], bool, error) {
	return r.from.GetLT(key)
}
func (r *FilterReducer[K, V, M]) GetGT(key K) (husky.Entry[K, V], bool, error) {
	return r.from.GetGT(key)
}
func (r *FilterReducer[K, V, M]) First() (husky.Entry[K, V], bool, error) { return r.from.First() }
func (r *FilterReducer[K, V, M]) Last() (husky.Entry[K, V], bool, error)  { return r.from.Last() }
func (r *FilterReducer[K, V, M]) IsEmpty() (bool, error)                  { return r.from.IsEmpty() }

func (r *FilterReducer[K, V, M]) Iter() (iter.Seq[husky.Entry[K, V]], error) { return r.from.Iter() }
func (r *FilterReducer[K, V, M]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	return r.from.Range(lo, hi)
}

// Insert merges value into whatever is stored at key. If reduce vetoes the
// merge, the store is left untouched and the current value is returned.
func (r *FilterReducer[K, V, M]) Insert(key K, value M) (V, bool, error) {
	old, had, err := r.from.Get(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	merged, ok := r.reduce(old, had, value)
	if !ok {
		return old, had, nil
	}
	return r.from.Insert(key, merged)
}

func (r *FilterReducer[K, V, M]) Remove(key K) (V, bool, error) { return r.from.Remove(key) }
func (r *FilterReducer[K, V, M]) Clear() error                  { return r.from.Clear() }

func (r *FilterReducer[K, V, M]) FetchAndUpdate(key K, f func(old V, had bool) (M, bool)) (V, bool, error) {
	return r.from.FetchAndUpdate(key, func(old V, had bool) (V, bool) {
		merge, write := f(old, had)
		if !write {
			var zero V
			return zero, false
		}
		merged, ok := r.reduce(old, had, merge)
		if !ok {
			return old, had
		}
		return merged, true
	})
}

func (r *FilterReducer[K, V, M]) Watch() *bus.Reader[husky.Event[K, V]] { return r.from.Watch() }
func (r *FilterReducer[K, V, M]) Db() *husky.Db                         { return r.from.Db() }
func (r *FilterReducer[K, V, M]) Sync() *quiesce.Synchronizer           { return r.from.Sync() }
func (r *FilterReducer[K, V, M]) Wait()                                 { r.from.Wait() }
