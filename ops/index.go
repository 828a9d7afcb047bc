package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Indexer derives zero or more index keys for an entry. Multiple entries
// may map to the same index key, which is why a materialized Index stores
// its values as slices rather than single entries.
type Indexer[K any, V any, I any] func(key K, value V) []I

// Index reindexes a source's entries under a caller-supplied Indexer. It
// carries the source's Change type unchanged and adds no behavior of its
// own: every View, Change and Watch call is delegated to from, so reads
// return the source's entries, not index keys. Index keys only become
// queryable once it has been materialized (stored or loaded), which is
// where the actual fwd/bwd key bookkeeping and reindexing on mutation
// happens.
type Index[K any, V any, I any] struct {
	from    ChangeSource[K, V, V]
	Indexer Indexer[K, V, I]
}

// NewIndex builds an Index stage over from, keyed by indexer.
func NewIndex[K any, V any, I any](from ChangeSource[K, V, V], indexer Indexer[K, V, I]) *Index[K, V, I] {
	return &Index[K, V, I]{from: from, Indexer: indexer}
}

// From returns the wrapped source, for use by the materialization layer.
func (x *Index[K, V, I]) From() ChangeSource[K, V, V] { return x.from }

func (x *Index[K, V, I]) Get(key K) (V, bool, error)            { return x.from.Get(key) }
func (x *Index[K, V, I]) Contains(key K) (bool, error)          { return x.from.Contains(key) }
func (x *Index[K, V, I]) GetLT(key K) (husky.Entry[K, V], bool, error) { return x.from.GetLT(key) }
func (x *Index[K, V, I]) GetGT(key K) (husky.Entry[K, V], bool, error) { return x.from.GetGT(key) }
func (x *Index[K, V, I]) First() (husky.Entry[K, V], bool, error)      { return x.from.First() }
func (x *Index[K, V, I]) Last() (husky.Entry[K, V], bool, error)       { return x.from.Last() }
func (x *Index[K, V, I]) IsEmpty() (bool, error)                       { return x.from.IsEmpty() }

func (x *Index[K, V, I]) Iter() (iter.Seq[husky.Entry[K, V]], error) { return x.from.Iter() }
func (x *Index[K, V, I]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	return x.from.Range(lo, hi)
}

func (x *Index[K, V, I]) Insert(key K, value V) (V, bool, error) { return x.from.Insert(key, value) }
func (x *Index[K, V, I]) Remove(key K) (V, bool, error)          { return x.from.Remove(key) }
func (x *Index[K, V, I]) Clear() error                           { return x.from.Clear() }
func (x *Index[K, V, I]) FetchAndUpdate(key K, f func(old V, had bool) (V, bool)) (V, bool, error) {
	return x.from.FetchAndUpdate(key, f)
}

func (x *Index[K, V, I]) Watch() *bus.Reader[husky.Event[K, V]] { return x.from.Watch() }
func (x *Index[K, V, I]) Db() *husky.Db                         { return x.from.Db() }
func (x *Index[K, V, I]) Sync() *quiesce.Synchronizer           { return x.from.Sync() }
func (x *Index[K, V, I]) Wait()                                 { x.from.Wait() }
