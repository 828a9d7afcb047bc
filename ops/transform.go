package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// TransformPair is one derived (key, value) produced from a source entry.
type TransformPair[NK any, NV any] struct {
	Key   NK
	Value NV
}

// Transformer derives zero or more new (key, value) pairs for an entry.
type Transformer[K any, V any, NK any, NV any] func(key K, value V) []TransformPair[NK, NV]

// Transform re-keys and re-values a source's entries under a caller-
// supplied Transformer. Like Index, it carries the source's Change type
// unchanged and delegates every View, Change and Watch call to from; the
// derived pairs only become queryable once it is materialized.
type Transform[K any, V any, NK any, NV any] struct {
	from        ChangeSource[K, V, V]
	Transformer Transformer[K, V, NK, NV]
}

// NewTransform builds a Transform stage over from.
func NewTransform[K any, V any, NK any, NV any](from ChangeSource[K, V, V], transformer Transformer[K, V, NK, NV]) *Transform[K, V, NK, NV] {
	return &Transform[K, V, NK, NV]{from: from, Transformer: transformer}
}

// From returns the wrapped source, for use by the materialization layer.
func (x *Transform[K, V, NK, NV]) From() ChangeSource[K, V, V] { return x.from }

func (x *Transform[K, V, NK, NV]) Get(key K) (V, bool, error)   { return x.from.Get(key) }
func (x *Transform[K, V, NK, NV]) Contains(key K) (bool, error) { return x.from.Contains(key) }
func (x *Transform[K, V, NK, NV]) GetLT(key K) (husky.Entry[K, V], bool, error) {
	return x.from.GetLT(key)
}
func (x *Transform[K, V, NK, NV]) GetGT(key K) (husky.Entry[K, V], bool, error) {
	return x.from.GetGT(key)
}
func (x *Transform[K, V, NK, NV]) First() (husky.Entry[K, V], bool, error) { return x.from.First() }
func (x *Transform[K, V, NK, NV]) Last() (husky.Entry[K, V], bool, error)  { return x.from.Last() }
func (x *Transform[K, V, NK, NV]) IsEmpty() (bool, error)                  { return x.from.IsEmpty() }

func (x *Transform[K, V, NK, NV]) Iter() (iter.Seq[husky.Entry[K, V]], error) { return x.from.Iter() }
func (x *Transform[K, V, NK, NV]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	return x.from.Range(lo, hi)
}

func (x *Transform[K, V, NK, NV]) Insert(key K, value V) (V, bool, error) {
	return x.from.Insert(key, value)
}
func (x *Transform[K, V, NK, NV]) Remove(key K) (V, bool, error) { return x.from.Remove(key) }
func (x *Transform[K, V, NK, NV]) Clear() error                 { return x.from.Clear() }
func (x *Transform[K, V, NK, NV]) FetchAndUpdate(key K, f func(old V, had bool) (V, bool)) (V, bool, error) {
	return x.from.FetchAndUpdate(key, f)
}

func (x *Transform[K, V, NK, NV]) Watch() *bus.Reader[husky.Event[K, V]] { return x.from.Watch() }
func (x *Transform[K, V, NK, NV]) Db() *husky.Db                        { return x.from.Db() }
func (x *Transform[K, V, NK, NV]) Sync() *quiesce.Synchronizer          { return x.from.Sync() }
func (x *Transform[K, V, NK, NV]) Wait()                                { x.from.Wait() }
