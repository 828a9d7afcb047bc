package material

import (
	"iter"
	"sync"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
	"github.com/nugget/husky/internal/stablevec"
	"github.com/nugget/husky/ops"
)

// fwdPos records where a source key lives in one index key's forward
// StableVec, so a later re-index can find and remove it without a scan.
type fwdPos[I any] struct {
	Index    I
	Position int
}

// MaterialIndex is the queryable, incrementally-maintained form of an
// ops.Index: for every index key I it holds the source values whose
// indexer produced I, kept current by a listener on the index's source.
//
// fwd maps an index key to the source keys that produced it; bwd maps a
// source key back to every (index key, position-in-fwd) pair it occupies,
// so a re-index on update or removal only has to touch the affected
// slots instead of rebuilding fwd from scratch.
type MaterialIndex[K comparable, V any, I comparable] struct {
	from *ops.Index[K, V, I]

	mu  sync.RWMutex
	fwd map[I]*stablevec.Vec[K]
	bwd map[K]*stablevec.Vec[fwdPos[I]]

	bus  *bus.Bus[husky.Event[I, []V]]
	sync *quiesce.Synchronizer
}

// NewMaterialIndex builds a MaterialIndex over idx, starting a listener
// that reindexes affected index keys as idx's source changes. Call
// Rebuild to populate it from idx's current contents.
func NewMaterialIndex[K comparable, V any, I comparable](idx *ops.Index[K, V, I]) *MaterialIndex[K, V, I] {
	source := idx.From()
	sync := quiesce.From([]*quiesce.Synchronizer{source.Sync()})
	bs := bus.New[husky.Event[I, []V]](128)
	mi := &MaterialIndex[K, V, I]{
		from: idx,
		fwd:  make(map[I]*stablevec.Vec[K]),
		bwd:  make(map[K]*stablevec.Vec[fwdPos[I]]),
		bus:  bs,
		sync: sync,
	}
	quiesce.Register(sync)

	reader := source.Watch()
	go func() {
		for {
			ev, ok := reader.Recv()
			if !ok {
				return
			}
			events := mi.reindex(ev)
			sync.Received()
			for _, e := range events {
				bs.Broadcast(e)
			}
		}
	}()
	return mi
}

// reindex applies one source event, returning the fwd-level events it
// produced (one per index key whose value set changed).
func (mi *MaterialIndex[K, V, I]) reindex(ev husky.Event[K, V]) []husky.Event[I, []V] {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	changed := make(map[I]bool)

	if old, ok := mi.bwd[ev.Key]; ok {
		for _, pos := range old.Values() {
			if fv, ok := mi.fwd[pos.Index]; ok {
				fv.Remove(pos.Position)
				changed[pos.Index] = true
			}
		}
		delete(mi.bwd, ev.Key)
	}

	if ev.IsInsert() {
		newBwd := stablevec.New[fwdPos[I]]()
		for _, idx := range mi.from.Indexer(ev.Key, ev.Value) {
			fv, ok := mi.fwd[idx]
			if !ok {
				fv = stablevec.New[K]()
				mi.fwd[idx] = fv
			}
			position := fv.Push(ev.Key)
			newBwd.Push(fwdPos[I]{Index: idx, Position: position})
			changed[idx] = true
		}
		if !newBwd.IsEmpty() {
			mi.bwd[ev.Key] = newBwd
		}
	}

	source := mi.from.From()
	events := make([]husky.Event[I, []V], 0, len(changed))
	for idx := range changed {
		fv, ok := mi.fwd[idx]
		if !ok || fv.IsEmpty() {
			delete(mi.fwd, idx)
			events = append(events, husky.Remove[I, []V](idx))
			continue
		}
		values := mi.valuesFor(source, fv)
		events = append(events, husky.Insert(idx, values))
	}
	return events
}

func (mi *MaterialIndex[K, V, I]) valuesFor(source ops.Source[K, V], fv *stablevec.Vec[K]) []V {
	keys := fv.Values()
	values := make([]V, 0, len(keys))
	for _, k := range keys {
		if v, ok, err := source.Get(k); err == nil && ok {
			values = append(values, v)
		}
	}
	return values
}

// Rebuild clears fwd and bwd and repopulates them from a full scan of the
// index's source, then resets the synchronizer.
func (mi *MaterialIndex[K, V, I]) Rebuild() error {
	source := mi.from.From()
	seq, err := source.Iter()
	if err != nil {
		return err
	}

	mi.mu.Lock()
	mi.fwd = make(map[I]*stablevec.Vec[K])
	mi.bwd = make(map[K]*stablevec.Vec[fwdPos[I]])
	for e := range seq {
		newBwd := stablevec.New[fwdPos[I]]()
		for _, idx := range mi.from.Indexer(e.Key, e.Value) {
			fv, ok := mi.fwd[idx]
			if !ok {
				fv = stablevec.New[K]()
				mi.fwd[idx] = fv
			}
			position := fv.Push(e.Key)
			newBwd.Push(fwdPos[I]{Index: idx, Position: position})
		}
		if !newBwd.IsEmpty() {
			mi.bwd[e.Key] = newBwd
		}
	}
	mi.mu.Unlock()

	mi.sync.Reset()
	return nil
}

func (mi *MaterialIndex[K, V, I]) Get(key I) ([]V, bool, error) {
	mi.sync.Wait()
	mi.mu.RLock()
	fv, ok := mi.fwd[key]
	if !ok {
		mi.mu.RUnlock()
		return nil, false, nil
	}
	values := mi.valuesFor(mi.from.From(), fv)
	mi.mu.RUnlock()
	if len(values) == 0 {
		return nil, false, nil
	}
	return values, true, nil
}

func (mi *MaterialIndex[K, V, I]) Contains(key I) (bool, error) {
	_, ok, err := mi.Get(key)
	return ok, err
}

func (mi *MaterialIndex[K, V, I]) IsEmpty() (bool, error) {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	return len(mi.fwd) == 0, nil
}

// Keys returns every index key currently present, unordered — I is not
// required to be ordered, unlike K in the rest of this package.
func (mi *MaterialIndex[K, V, I]) Keys() []I {
	mi.sync.Wait()
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	keys := make([]I, 0, len(mi.fwd))
	for k := range mi.fwd {
		keys = append(keys, k)
	}
	return keys
}

// All iterates every (index key, matching values) pair, in no particular
// order.
func (mi *MaterialIndex[K, V, I]) All() (iter.Seq2[I, []V], error) {
	mi.sync.Wait()
	mi.mu.RLock()
	snapshot := make(map[I][]V, len(mi.fwd))
	source := mi.from.From()
	for idx, fv := range mi.fwd {
		snapshot[idx] = mi.valuesFor(source, fv)
	}
	mi.mu.RUnlock()

	return func(yield func(I, []V) bool) {
		for idx, values := range snapshot {
			if len(values) == 0 {
				continue
			}
			if !yield(idx, values) {
				return
			}
		}
	}, nil
}

func (mi *MaterialIndex[K, V, I]) Watch() *bus.Reader[husky.Event[I, []V]] { return mi.bus.NewReader() }
func (mi *MaterialIndex[K, V, I]) Db() *husky.Db                           { return mi.from.From().Db() }
func (mi *MaterialIndex[K, V, I]) Sync() *quiesce.Synchronizer            { return mi.sync }
func (mi *MaterialIndex[K, V, I]) Wait()                                  { mi.sync.Wait() }
