// Package material turns a derived view into something that can be read
// without recomputing it on every call: a Material wraps a source stage
// together with an inner store (a Tree for durable caching, a Loaded for an
// in-memory one) and keeps the inner store in sync with the source via a
// background listener.
package material

import (
	"cmp"
	"errors"
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
	"github.com/nugget/husky/ops"
)

// ErrNotWritable is returned by Material's write methods when its source
// doesn't itself accept writes (e.g. a Map stage, which has no write
// methods of its own).
var ErrNotWritable = errors.New("material: source does not support writes")

// Inner is the storage a Material materializes into: a Tree or a Loaded.
type Inner[K any, V any] interface {
	husky.View[K, V]
	husky.Change[K, V, V]
}

// Material is a view backed by a store (inner) that is kept up to date with
// a source view (from) by a background listener translating from's events
// into writes on inner. Writes made through a Material are forwarded to
// from, not applied to inner directly, so inner only ever changes via the
// listener observing from's own event stream.
type Material[K any, V any] struct {
	from  ops.Source[K, V]
	inner Inner[K, V]
	sync  *quiesce.Synchronizer
}

// New wraps inner around from, starting a listener that mirrors every
// event from into inner. The Material is not guaranteed caught up with
// from until Rebuild has run or the listener has drained the backlog; Get
// and friends call Wait first, so reads always see a consistent snapshot.
func New[K any, V any](from ops.Source[K, V], inner Inner[K, V]) *Material[K, V] {
	sync := quiesce.From([]*quiesce.Synchronizer{from.Sync()})
	m := &Material[K, V]{from: from, inner: inner, sync: sync}
	quiesce.Register(sync)

	reader := from.Watch()
	go func() {
		for {
			ev, ok := reader.Recv()
			if !ok {
				return
			}
			if ev.IsInsert() {
				inner.Insert(ev.Key, ev.Value)
			} else {
				inner.Remove(ev.Key)
			}
			sync.Received()
		}
	}()
	return m
}

// Store builds a Material backed by a durable inner Tree, and is the Go
// analogue of calling .store(name) on a view.
func Store[K any, V any](from ops.Source[K, V], inner *husky.Tree[K, V]) *Material[K, V] {
	return New[K, V](from, inner)
}

// Load builds a Material backed by an in-memory Loaded store, rebuilt from
// a full scan of from before returning so it starts fully populated — the
// Go analogue of calling .load() on a view.
func Load[K cmp.Ordered, V any](from ops.Source[K, V], db *husky.Db) (*Material[K, V], error) {
	inner := husky.NewLoaded[K, V](db)
	m := New[K, V](from, inner)
	if err := m.Rebuild(); err != nil {
		return nil, err
	}
	return m, nil
}

// Rebuild clears inner and repopulates it from a full scan of from, then
// resets both synchronizers so Wait doesn't block forever on events that
// were applied here directly rather than through the listener.
func (m *Material[K, V]) Rebuild() error {
	if err := m.inner.Clear(); err != nil {
		return err
	}
	seq, err := m.from.Iter()
	if err != nil {
		return err
	}
	for e := range seq {
		if _, _, err := m.inner.Insert(e.Key, e.Value); err != nil {
			return err
		}
	}
	m.sync.Reset()
	m.from.Sync().Reset()
	return nil
}

func (m *Material[K, V]) Get(key K) (V, bool, error) {
	m.sync.Wait()
	return m.inner.Get(key)
}

func (m *Material[K, V]) Contains(key K) (bool, error) {
	m.sync.Wait()
	return m.inner.Contains(key)
}

func (m *Material[K, V]) GetLT(key K) (husky.Entry[K, V], bool, error) {
	m.sync.Wait()
	return m.inner.GetLT(key)
}

func (m *Material[K, V]) GetGT(key K) (husky.Entry[K, V], bool, error) {
	m.sync.Wait()
	return m.inner.GetGT(key)
}

func (m *Material[K, V]) First() (husky.Entry[K, V], bool, error) {
	m.sync.Wait()
	return m.inner.First()
}

func (m *Material[K, V]) Last() (husky.Entry[K, V], bool, error) {
	m.sync.Wait()
	return m.inner.Last()
}

func (m *Material[K, V]) IsEmpty() (bool, error) {
	m.sync.Wait()
	return m.inner.IsEmpty()
}

func (m *Material[K, V]) Iter() (iter.Seq[husky.Entry[K, V]], error) {
	m.sync.Wait()
	return m.inner.Iter()
}

func (m *Material[K, V]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	m.sync.Wait()
	return m.inner.Range(lo, hi)
}

func (m *Material[K, V]) changeFrom() (ops.ChangeSource[K, V, V], bool) {
	cs, ok := m.from.(ops.ChangeSource[K, V, V])
	return cs, ok
}

// Insert, Remove, Clear, and FetchAndUpdate delegate to from, not inner:
// writes go to the source of truth and flow back into inner through the
// listener, same as any other derived stage. They fail with
// ErrNotWritable if from doesn't itself accept writes.
func (m *Material[K, V]) Insert(key K, value V) (V, bool, error) {
	cs, ok := m.changeFrom()
	if !ok {
		var zero V
		return zero, false, ErrNotWritable
	}
	return cs.Insert(key, value)
}

func (m *Material[K, V]) Remove(key K) (V, bool, error) {
	cs, ok := m.changeFrom()
	if !ok {
		var zero V
		return zero, false, ErrNotWritable
	}
	return cs.Remove(key)
}

func (m *Material[K, V]) Clear() error {
	cs, ok := m.changeFrom()
	if !ok {
		return ErrNotWritable
	}
	return cs.Clear()
}

func (m *Material[K, V]) FetchAndUpdate(key K, f func(old V, had bool) (V, bool)) (V, bool, error) {
	cs, ok := m.changeFrom()
	if !ok {
		var zero V
		return zero, false, ErrNotWritable
	}
	return cs.FetchAndUpdate(key, f)
}

func (m *Material[K, V]) Watch() *bus.Reader[husky.Event[K, V]] { return m.from.Watch() }
func (m *Material[K, V]) Db() *husky.Db                         { return m.from.Db() }
func (m *Material[K, V]) Sync() *quiesce.Synchronizer           { return m.sync }
func (m *Material[K, V]) Wait()                                 { m.sync.Wait() }
