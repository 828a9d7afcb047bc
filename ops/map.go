package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Map derives a view where every value is replaced by mapper(key, value).
// Keys are unchanged, so Map can be built over any Source.
type Map[K any, V any, M any] struct {
	from   Source[K, V]
	mapper func(K, V) M
	bus    *bus.Bus[husky.Event[K, M]]
	sync   *quiesce.Synchronizer
}

// NewMap builds a Map stage over from.
func NewMap[K any, V any, M any](from Source[K, V], mapper func(K, V) M) *Map[K, V, M] {
	sync := syncFrom(from.Sync())
	b := bus.New[husky.Event[K, M]](128)
	reader := from.Watch()
	go func() {
		for {
			ev, ok := reader.Recv()
			if !ok {
				return
			}
			var out husky.Event[K, M]
			if ev.IsInsert() {
				out = husky.Insert(ev.Key, mapper(ev.Key, ev.Value))
			} else {
				out = husky.Remove[K, M](ev.Key)
			}
			sync.Received()
			sync.Outgoing(1)
			b.Broadcast(out)
		}
	}()
	return &Map[K, V, M]{from: from, mapper: mapper, bus: b, sync: sync}
}

func (m *Map[K, V, M]) Get(key K) (M, bool, error) {
	var zero M
	v, ok, err := m.from.Get(key)
	if err != nil || !ok {
		return zero, ok, err
	}
	return m.mapper(key, v), true, nil
}

func (m *Map[K, V, M]) Contains(key K) (bool, error) { return m.from.Contains(key) }

func (m *Map[K, V, M]) GetLT(key K) (husky.Entry[K, M], bool, error) {
	e, ok, err := m.from.GetLT(key)
	return m.mapEntry(e), ok, err
}

func (m *Map[K, V, M]) GetGT(key K) (husky.Entry[K, M], bool, error) {
	e, ok, err := m.from.GetGT(key)
	return m.mapEntry(e), ok, err
}

func (m *Map[K, V, M]) First() (husky.Entry[K, M], bool, error) {
	e, ok, err := m.from.First()
	return m.mapEntry(e), ok, err
}

func (m *Map[K, V, M]) Last() (husky.Entry[K, M], bool, error) {
	e, ok, err := m.from.Last()
	return m.mapEntry(e), ok, err
}

func (m *Map[K, V, M]) mapEntry(e husky.Entry[K, V]) husky.Entry[K, M] {
	return husky.Entry[K, M]{Key: e.Key, Value: m.mapper(e.Key, e.Value)}
}

func (m *Map[K, V, M]) IsEmpty() (bool, error) { return m.from.IsEmpty() }

func (m *Map[K, V, M]) Iter() (iter.Seq[husky.Entry[K, M]], error) {
	seq, err := m.from.Iter()
	if err != nil {
		return nil, err
	}
	return m.wrap(seq), nil
}

func (m *Map[K, V, M]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, M]], error) {
	seq, err := m.from.Range(lo, hi)
	if err != nil {
		return nil, err
	}
	return m.wrap(seq), nil
}

func (m *Map[K, V, M]) wrap(seq iter.Seq[husky.Entry[K, V]]) iter.Seq[husky.Entry[K, M]] {
	return func(yield func(husky.Entry[K, M]) bool) {
		for e := range seq {
			if !yield(m.mapEntry(e)) {
				return
			}
		}
	}
}

func (m *Map[K, V, M]) Watch() *bus.Reader[husky.Event[K, M]] { return m.bus.NewReader() }
func (m *Map[K, V, M]) Db() *husky.Db                         { return m.from.Db() }
func (m *Map[K, V, M]) Sync() *quiesce.Synchronizer           { return m.sync }
func (m *Map[K, V, M]) Wait()                                 { m.sync.Wait() }
