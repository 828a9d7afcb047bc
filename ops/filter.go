package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Filter derives a view showing only the entries for which predicate
// returns true.
type Filter[K any, V any] struct {
	from      Source[K, V]
	predicate func(K, V) bool
	bus       *bus.Bus[husky.Event[K, V]]
	sync      *quiesce.Synchronizer
}

// NewFilter builds a Filter stage over from.
func NewFilter[K any, V any](from Source[K, V], predicate func(K, V) bool) *Filter[K, V] {
	sync := syncFrom(from.Sync())
	b := bus.New[husky.Event[K, V]](128)
	reader := from.Watch()
	go func() {
		for {
			ev, ok := reader.Recv()
			if !ok {
				return
			}
			sync.Received()
			switch {
			case ev.IsRemove():
				sync.Outgoing(1)
				b.Broadcast(ev)
			case predicate(ev.Key, ev.Value):
				sync.Outgoing(1)
				b.Broadcast(ev)
			default:
				// Value updated from passing to failing the predicate: the
				// key must be retracted downstream, not silently dropped.
				sync.Outgoing(1)
				b.Broadcast(husky.Remove[K, V](ev.Key))
			}
		}
	}()
	return &Filter[K, V]{from: from, predicate: predicate, bus: b, sync: sync}
}

func (f *Filter[K, V]) Get(key K) (V, bool, error) {
	var zero V
	v, ok, err := f.from.Get(key)
	if err != nil || !ok || !f.predicate(key, v) {
		if err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}
	return v, true, nil
}

func (f *Filter[K, V]) Contains(key K) (bool, error) {
	_, ok, err := f.Get(key)
	return ok, err
}

func (f *Filter[K, V]) GetLT(key K) (husky.Entry[K, V], bool, error) {
	for {
		e, ok, err := f.from.GetLT(key)
		if err != nil || !ok {
			return e, ok, err
		}
		if f.predicate(e.Key, e.Value) {
			return e, true, nil
		}
		key = e.Key
	}
}

func (f *Filter[K, V]) GetGT(key K) (husky.Entry[K, V], bool, error) {
	for {
		e, ok, err := f.from.GetGT(key)
		if err != nil || !ok {
			return e, ok, err
		}
		if f.predicate(e.Key, e.Value) {
			return e, true, nil
		}
		key = e.Key
	}
}

func (f *Filter[K, V]) First() (husky.Entry[K, V], bool, error) {
	e, ok, err := f.from.First()
	if err != nil || !ok {
		return e, ok, err
	}
	if f.predicate(e.Key, e.Value) {
		return e, true, nil
	}
	return f.GetGT(e.Key)
}

func (f *Filter[K, V]) Last() (husky.Entry[K, V], bool, error) {
	e, ok, err := f.from.Last()
	if err != nil || !ok {
		return e, ok, err
	}
	if f.predicate(e.Key, e.Value) {
		return e, true, nil
	}
	return f.GetLT(e.Key)
}

func (f *Filter[K, V]) IsEmpty() (bool, error) {
	e, ok, err := f.First()
	_ = e
	return !ok, err
}

func (f *Filter[K, V]) Iter() (iter.Seq[husky.Entry[K, V]], error) {
	seq, err := f.from.Iter()
	if err != nil {
		return nil, err
	}
	return f.wrap(seq), nil
}

func (f *Filter[K, V]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	seq, err := f.from.Range(lo, hi)
	if err != nil {
		return nil, err
	}
	return f.wrap(seq), nil
}

func (f *Filter[K, V]) wrap(seq iter.Seq[husky.Entry[K, V]]) iter.Seq[husky.Entry[K, V]] {
	return func(yield func(husky.Entry[K, V]) bool) {
		for e := range seq {
			if f.predicate(e.Key, e.Value) && !yield(e) {
				return
			}
		}
	}
}

func (f *Filter[K, V]) Watch() *bus.Reader[husky.Event[K, V]] { return f.bus.NewReader() }
func (f *Filter[K, V]) Db() *husky.Db                         { return f.from.Db() }
func (f *Filter[K, V]) Sync() *quiesce.Synchronizer           { return f.sync }
func (f *Filter[K, V]) Wait()                                 { f.sync.Wait() }
