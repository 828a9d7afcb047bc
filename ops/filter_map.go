package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// FilterMap derives a view where mapper decides, per entry, both whether it
// is visible and what its mapped value is.
type FilterMap[K any, V any, M any] struct {
	from   Source[K, V]
	mapper func(K, V) (M, bool)
	bus    *bus.Bus[husky.Event[K, M]]
	sync   *quiesce.Synchronizer
}

// NewFilterMap builds a FilterMap stage over from.
func NewFilterMap[K any, V any, M any](from Source[K, V], mapper func(K, V) (M, bool)) *FilterMap[K, V, M] {
	sync := syncFrom(from.Sync())
	b := bus.New[husky.Event[K, M]](128)
	reader := from.Watch()
	go func() {
		for {
			ev, ok := reader.Recv()
			if !ok {
				return
			}
			sync.Received()
			if ev.IsRemove() {
				sync.Outgoing(1)
				b.Broadcast(husky.Remove[K, M](ev.Key))
				continue
			}
			mapped, pass := mapper(ev.Key, ev.Value)
			if pass {
				sync.Outgoing(1)
				b.Broadcast(husky.Insert(ev.Key, mapped))
			}
		}
	}()
	return &FilterMap[K, V, M]{from: from, mapper: mapper, bus: b, sync: sync}
}

func (f *FilterMap[K, V, M]) Get(key K) (M, bool, error) {
	var zero M
	v, ok, err := f.from.Get(key)
	if err != nil || !ok {
		return zero, false, err
	}
	mapped, pass := f.mapper(key, v)
	if !pass {
		return zero, false, nil
	}
	return mapped, true, nil
}

func (f *FilterMap[K, V, M]) Contains(key K) (bool, error) {
	_, ok, err := f.Get(key)
	return ok, err
}

func (f *FilterMap[K, V, M]) findFrom(e husky.Entry[K, V], ok bool, err error, advance func(K) (husky.Entry[K, V], bool, error)) (husky.Entry[K, M], bool, error) {
	for {
		if err != nil || !ok {
			return husky.Entry[K, M]{}, ok, err
		}
		if mapped, pass := f.mapper(e.Key, e.Value); pass {
			return husky.Entry[K, M]{Key: e.Key, Value: mapped}, true, nil
		}
		e, ok, err = advance(e.Key)
	}
}

func (f *FilterMap[K, V, M]) GetLT(key K) (husky.Entry[K, M], bool, error) {
	e, ok, err := f.from.GetLT(key)
	return f.findFrom(e, ok, err, f.from.GetLT)
}

func (f *FilterMap[K, V, M]) GetGT(key K) (husky.Entry[K, M], bool, error) {
	e, ok, err := f.from.GetGT(key)
	return f.findFrom(e, ok, err, f.from.GetGT)
}

func (f *FilterMap[K, V, M]) First() (husky.Entry[K, M], bool, error) {
	e, ok, err := f.from.First()
	return f.findFrom(e, ok, err, f.from.GetGT)
}

func (f *FilterMap[K, V, M]) Last() (husky.Entry[K, M], bool, error) {
	e, ok, err := f.from.Last()
	return f.findFrom(e, ok, err, f.from.GetLT)
}

func (f *FilterMap[K, V, M]) IsEmpty() (bool, error) {
	_, ok, err := f.First()
	return !ok, err
}

func (f *FilterMap[K, V, M]) Iter() (iter.Seq[husky.Entry[K, M]], error) {
	seq, err := f.from.Iter()
	if err != nil {
		return nil, err
	}
	return f.wrap(seq), nil
}

func (f *FilterMap[K, V, M]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, M]], error) {
	seq, err := f.from.Range(lo, hi)
	if err != nil {
		return nil, err
	}
	return f.wrap(seq), nil
}

func (f *FilterMap[K, V, M]) wrap(seq iter.Seq[husky.Entry[K, V]]) iter.Seq[husky.Entry[K, M]] {
	return func(yield func(husky.Entry[K, M]) bool) {
		for e := range seq {
			if mapped, pass := f.mapper(e.Key, e.Value); pass {
				if !yield(husky.Entry[K, M]{Key: e.Key, Value: mapped}) {
					return
				}
			}
		}
	}
}

func (f *FilterMap[K, V, M]) Watch() *bus.Reader[husky.Event[K, M]] { return f.bus.NewReader() }
func (f *FilterMap[K, V, M]) Db() *husky.Db                         { return f.from.Db() }
func (f *FilterMap[K, V, M]) Sync() *quiesce.Synchronizer           { return f.sync }
func (f *FilterMap[K, V, M]) Wait()                                 { f.sync.Wait() }
