package husky

import (
	"iter"

	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/codec"
	"github.com/nugget/husky/internal/kvstore"
	"github.com/nugget/husky/internal/quiesce"
)

// Tree is a durable, ordered key-value store: the base source of truth
// that stages in the ops package derive views from. It implements View,
// Change, and Watch directly against the database's embedded engine.
type Tree[K any, V any] struct {
	db       *Db
	bucket   *kvstore.Bucket
	keyCodec codec.Codec[K]
	valCodec codec.Codec[V]
	watcher  *bus.Watcher[Event[K, V]]
	sync     *quiesce.Synchronizer
}

// OpenTree opens (creating if necessary) a named tree. keyCodec must encode
// keys so that byte comparison of the encoding matches the order callers
// expect from GetLT/GetGT/Range — codec.BigEndianUint64, BigEndianInt64,
// and String all have this property.
func OpenTree[K any, V any](db *Db, name string, keyCodec codec.Codec[K], valCodec codec.Codec[V]) (*Tree[K, V], error) {
	bucket, err := db.engine.Bucket(treeBucketName(name))
	if err != nil {
		return nil, err
	}
	t := &Tree[K, V]{
		db:       db,
		bucket:   bucket,
		keyCodec: keyCodec,
		valCodec: valCodec,
		sync:     quiesce.New(),
	}
	t.watcher = bus.NewWatcher(func() *bus.Bus[Event[K, V]] {
		return bus.New[Event[K, V]](128)
	})
	quiesce.Register(t.sync)
	return t, nil
}

// Get returns the value for key, if present.
func (t *Tree[K, V]) Get(key K) (V, bool, error) {
	var zero V
	t.sync.Wait()
	kb, err := t.keyCodec.Encode(key)
	if err != nil {
		return zero, false, err
	}
	vb, ok, err := t.bucket.Get(kb)
	if err != nil || !ok {
		return zero, ok, err
	}
	v, err := t.valCodec.Decode(vb)
	return v, true, err
}

// Contains reports whether key has a value.
func (t *Tree[K, V]) Contains(key K) (bool, error) {
	kb, err := t.keyCodec.Encode(key)
	if err != nil {
		return false, err
	}
	return t.bucket.Has(kb)
}

func (t *Tree[K, V]) decodeEntry(kb, vb []byte) (Entry[K, V], error) {
	var e Entry[K, V]
	k, err := t.keyCodec.Decode(kb)
	if err != nil {
		return e, err
	}
	v, err := t.valCodec.Decode(vb)
	if err != nil {
		return e, err
	}
	return Entry[K, V]{Key: k, Value: v}, nil
}

// GetLT returns the entry with the greatest key strictly less than key.
func (t *Tree[K, V]) GetLT(key K) (Entry[K, V], bool, error) {
	var e Entry[K, V]
	kb, err := t.keyCodec.Encode(key)
	if err != nil {
		return e, false, err
	}
	k, v, ok, err := t.bucket.GetLT(kb)
	if err != nil || !ok {
		return e, ok, err
	}
	e, err = t.decodeEntry(k, v)
	return e, true, err
}

// GetGT returns the entry with the least key strictly greater than key.
func (t *Tree[K, V]) GetGT(key K) (Entry[K, V], bool, error) {
	var e Entry[K, V]
	kb, err := t.keyCodec.Encode(key)
	if err != nil {
		return e, false, err
	}
	k, v, ok, err := t.bucket.GetGT(kb)
	if err != nil || !ok {
		return e, ok, err
	}
	e, err = t.decodeEntry(k, v)
	return e, true, err
}

// First returns the entry with the least key.
func (t *Tree[K, V]) First() (Entry[K, V], bool, error) {
	var e Entry[K, V]
	k, v, ok, err := t.bucket.First()
	if err != nil || !ok {
		return e, ok, err
	}
	e, err = t.decodeEntry(k, v)
	return e, true, err
}

// Last returns the entry with the greatest key.
func (t *Tree[K, V]) Last() (Entry[K, V], bool, error) {
	var e Entry[K, V]
	k, v, ok, err := t.bucket.Last()
	if err != nil || !ok {
		return e, ok, err
	}
	e, err = t.decodeEntry(k, v)
	return e, true, err
}

// IsEmpty reports whether the tree has no entries.
func (t *Tree[K, V]) IsEmpty() (bool, error) {
	return t.bucket.IsEmpty()
}

// Iter returns every entry in key order. The whole tree is read into a
// snapshot up front, under one read transaction, rather than streamed
// lazily from an open cursor — bbolt cursors are only valid for the
// lifetime of the transaction that created them, and holding a read
// transaction open across caller-controlled iteration can stall writers.
func (t *Tree[K, V]) Iter() (iter.Seq[Entry[K, V]], error) {
	return t.Range(Unbounded[K](), Unbounded[K]())
}

// Range returns every entry whose key falls between lo and hi, in key order.
// Each bound is inclusive, exclusive or unbounded as given.
func (t *Tree[K, V]) Range(lo, hi Bound[K]) (iter.Seq[Entry[K, V]], error) {
	var loBytes, hiBytes []byte
	if !lo.IsUnbounded() {
		b, err := t.keyCodec.Encode(lo.Value())
		if err != nil {
			return nil, err
		}
		loBytes = b
		if !lo.Inclusive() {
			loBytes = append(loBytes, 0x00)
		}
	}
	if !hi.IsUnbounded() {
		b, err := t.keyCodec.Encode(hi.Value())
		if err != nil {
			return nil, err
		}
		hiBytes = b
		if hi.Inclusive() {
			hiBytes = append(hiBytes, 0x00)
		}
	}

	type kv struct{ k, v []byte }
	var snapshot []kv
	err := t.bucket.Range(loBytes, hiBytes, func(k, v []byte) bool {
		snapshot = append(snapshot, kv{append([]byte(nil), k...), append([]byte(nil), v...)})
		return true
	})
	if err != nil {
		return nil, err
	}

	return func(yield func(Entry[K, V]) bool) {
		for _, item := range snapshot {
			e, err := t.decodeEntry(item.k, item.v)
			if err != nil {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}, nil
}

// Insert stores value under key, returning the previous value if any.
func (t *Tree[K, V]) Insert(key K, value V) (V, bool, error) {
	var zero V
	kb, err := t.keyCodec.Encode(key)
	if err != nil {
		return zero, false, err
	}
	vb, err := t.valCodec.Encode(value)
	if err != nil {
		return zero, false, err
	}
	oldB, had, err := t.bucket.Put(kb, vb)
	if err != nil {
		return zero, false, err
	}
	t.sync.Outgoing(1)
	t.watcher.Send(Insert(key, value))
	if !had {
		return zero, false, nil
	}
	old, err := t.valCodec.Decode(oldB)
	return old, true, err
}

// Remove deletes key, returning the value it held if any.
func (t *Tree[K, V]) Remove(key K) (V, bool, error) {
	var zero V
	kb, err := t.keyCodec.Encode(key)
	if err != nil {
		return zero, false, err
	}
	oldB, had, err := t.bucket.Delete(kb)
	if err != nil {
		return zero, false, err
	}
	t.sync.Outgoing(1)
	t.watcher.Send(Remove[K, V](key))
	if !had {
		return zero, false, nil
	}
	old, err := t.valCodec.Decode(oldB)
	return old, true, err
}

// Clear removes every entry.
func (t *Tree[K, V]) Clear() error {
	return t.bucket.Clear()
}

// FetchAndUpdate atomically replaces the value at key.
func (t *Tree[K, V]) FetchAndUpdate(key K, f func(old V, had bool) (V, bool)) (V, bool, error) {
	var zero V
	kb, err := t.keyCodec.Encode(key)
	if err != nil {
		return zero, false, err
	}

	var decodeErr error
	var wrote bool
	var writtenValue V
	oldB, had, err := t.bucket.FetchAndUpdate(kb, func(oldB []byte, had bool) ([]byte, bool) {
		var old V
		if had {
			old, decodeErr = t.valCodec.Decode(oldB)
			if decodeErr != nil {
				return nil, false
			}
		}
		newV, write := f(old, had)
		if !write {
			return nil, false
		}
		newB, err := t.valCodec.Encode(newV)
		if err != nil {
			decodeErr = err
			return nil, false
		}
		wrote = true
		writtenValue = newV
		return newB, true
	})
	if err != nil {
		return zero, false, err
	}
	if decodeErr != nil {
		return zero, false, decodeErr
	}

	t.sync.Outgoing(1)
	if wrote {
		t.watcher.Send(Insert(key, writtenValue))
	} else {
		t.watcher.Send(Remove[K, V](key))
	}

	if !had {
		return zero, false, nil
	}
	old, err := t.valCodec.Decode(oldB)
	return old, true, err
}

// Watch subscribes to this tree's change stream.
func (t *Tree[K, V]) Watch() *bus.Reader[Event[K, V]] {
	return t.watcher.NewReader()
}

// Db returns the database this tree belongs to.
func (t *Tree[K, V]) Db() *Db {
	return t.db
}

// Sync returns the synchronizer tracking this tree's quiescence. A base
// tree has no upstream sources, so it is always quiescent.
func (t *Tree[K, V]) Sync() *quiesce.Synchronizer {
	return t.sync
}

// Wait blocks until every event currently in flight into this tree has
// been applied. For a base tree this returns immediately.
func (t *Tree[K, V]) Wait() {
	t.sync.Wait()
}
