package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Inserter rewrites the type accepted on insert, via convert. Reads,
// removes, and watching pass through unchanged.
type Inserter[K any, V any, M any] struct {
	from    ChangeSource[K, V, V]
	convert func(M) V
}

// NewInserter builds an Inserter stage over from.
func NewInserter[K any, V any, M any](from ChangeSource[K, V, V], convert func(M) V) *Inserter[K, V, M] {
	return &Inserter[K, V, M]{from: from, convert: convert}
}

func (i *Inserter[K, V, M]) Get(key K) (V, bool, error)            { return i.from.Get(key) }
func (i *Inserter[K, V, M]) Contains(key K) (bool, error)          { return i.from.Contains(key) }
func (i *Inserter[K, V, M]) GetLT(key K) (husky.Entry[K, V], bool, error) { return i.from.GetLT(key) }
func (i *Inserter[K, V, M]) GetGT(key K) (husky.Entry[K, V], bool, error) { return i.from.GetGT(key) }
func (i *Inserter[K, V, M]) First() (husky.Entry[K, V], bool, error)      { return i.from.First() }
func (i *Inserter[K, V, M]) Last() (husky.Entry[K, V], bool, error)       { return i.from.Last() }
func (i *Inserter[K, V, M]) IsEmpty() (bool, error)                       { return i.from.IsEmpty() }

func (i *Inserter[K, V, M]) Iter() (iter.Seq[husky.Entry[K, V]], error) { return i.from.Iter() }
func (i *Inserter[K, V, M]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	return i.from.Range(lo, hi)
}

func (i *Inserter[K, V, M]) Insert(key K, value M) (V, bool, error) {
	return i.from.Insert(key, i.convert(value))
}

func (i *Inserter[K, V, M]) Remove(key K) (V, bool, error) { return i.from.Remove(key) }
func (i *Inserter[K, V, M]) Clear() error                  { return i.from.Clear() }

func (i *Inserter[K, V, M]) FetchAndUpdate(key K, f func(old V, had bool) (M, bool)) (V, bool, error) {
	return i.from.FetchAndUpdate(key, func(old V, had bool) (V, bool) {
		merge, write := f(old, had)
		if !write {
			var zero V
			return zero, false
		}
		return i.convert(merge), true
	})
}

func (i *Inserter[K, V, M]) Watch() *bus.Reader[husky.Event[K, V]] { return i.from.Watch() }
func (i *Inserter[K, V, M]) Db() *husky.Db                         { return i.from.Db() }
func (i *Inserter[K, V, M]) Sync() *quiesce.Synchronizer           { return i.from.Sync() }
func (i *Inserter[K, V, M]) Wait()                                 { i.from.Wait() }
