package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// FilterInserter is an Inserter whose convert function can veto the
// insert entirely by returning ok=false, leaving the store untouched.
type FilterInserter[K any, V any, M any] struct {
	from    ChangeSource[K, V, V]
	convert func(M) (V, bool)
}

// NewFilterInserter builds a FilterInserter stage over from.
func NewFilterInserter[K any, V any, M any](from ChangeSource[K, V, V], convert func(M) (V, bool)) *FilterInserter[K, V, M] {
	return &FilterInserter[K, V, M]{from: from, convert: convert}
}

func (i *FilterInserter[K, V, M]) Get(key K) (V, bool, error)   { return i.from.Get(key) }
func (i *FilterInserter[K, V, M]) Contains(key K) (bool, error) { return i.from.Contains(key) }
func (i *FilterInserter[K, V, M]) GetLT(key K) (husky.Entry[K, V], bool, error) {
	return i.from.GetLT(key)
}
func (i *FilterInserter[K, V, M]) GetGT(key K) (husky.Entry[K, V], bool, error) {
	return i.from.GetGT(key)
}
func (i *FilterInserter[K, V, M]) First() (husky.Entry[K, V], bool, error) { return i.from.First() }
func (i *FilterInserter[K, V, M]) Last() (husky.Entry[K, V], bool, error)  { return i.from.Last() }
func (i *FilterInserter[K, V, M]) IsEmpty() (bool, error)                  { return i.from.IsEmpty() }

func (i *FilterInserter[K, V, M]) Iter() (iter.Seq[husky.Entry[K, V]], error) { return i.from.Iter() }
func (i *FilterInserter[K, V, M]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	return i.from.Range(lo, hi)
}

func (i *FilterInserter[K, V, M]) Insert(key K, value M) (V, bool, error) {
	converted, ok := i.convert(value)
	if !ok {
		return i.from.Get(key)
	}
	return i.from.Insert(key, converted)
}

func (i *FilterInserter[K, V, M]) Remove(key K) (V, bool, error) { return i.from.Remove(key) }
func (i *FilterInserter[K, V, M]) Clear() error                  { return i.from.Clear() }

func (i *FilterInserter[K, V, M]) FetchAndUpdate(key K, f func(old V, had bool) (M, bool)) (V, bool, error) {
	return i.from.FetchAndUpdate(key, func(old V, had bool) (V, bool) {
		merge, write := f(old, had)
		if !write {
			var zero V
			return zero, false
		}
		converted, ok := i.convert(merge)
		if !ok {
			return old, had
		}
		return converted, true
	})
}

func (i *FilterInserter[K, V, M]) Watch() *bus.Reader[husky.Event[K, V]] { return i.from.Watch() }
func (i *FilterInserter[K, V, M]) Db() *husky.Db                         { return i.from.Db() }
func (i *FilterInserter[K, V, M]) Sync() *quiesce.Synchronizer           { return i.from.Sync() }
func (i *FilterInserter[K, V, M]) Wait()                                 { i.from.Wait() }
