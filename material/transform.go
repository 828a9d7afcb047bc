package material

import (
	"sync"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
	"github.com/nugget/husky/internal/stablevec"
	"github.com/nugget/husky/ops"
)

// MaterialTransform is the queryable, incrementally-maintained form of an
// ops.Transform: a full View/Watch over the re-keyed (NK, NV) pairs the
// transformer derives from the source, kept current the same way
// MaterialIndex keeps a fwd/bwd pair current, except the forward store
// holds derived values directly rather than back-references into the
// source.
type MaterialTransform[K comparable, V any, NK comparable, NV any] struct {
	from *ops.Transform[K, V, NK, NV]

	mu  sync.RWMutex
	fwd map[NK]*stablevec.Vec[NV]
	bwd map[K]*stablevec.Vec[fwdPos[NK]]

	bus  *bus.Bus[husky.Event[NK, []NV]]
	sync *quiesce.Synchronizer
}

// NewMaterialTransform builds a MaterialTransform over tr.
func NewMaterialTransform[K comparable, V any, NK comparable, NV any](tr *ops.Transform[K, V, NK, NV]) *MaterialTransform[K, V, NK, NV] {
	source := tr.From()
	sync := quiesce.From([]*quiesce.Synchronizer{source.Sync()})
	bs := bus.New[husky.Event[NK, []NV]](128)
	mt := &MaterialTransform[K, V, NK, NV]{
		from: tr,
		fwd:  make(map[NK]*stablevec.Vec[NV]),
		bwd:  make(map[K]*stablevec.Vec[fwdPos[NK]]),
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
			events := mt.reindex(ev)
			sync.Received()
			for _, e := range events {
				bs.Broadcast(e)
			}
		}
	}()
	return mt
}

func (mt *MaterialTransform[K, V, NK, NV]) reindex(ev husky.Event[K, V]) []husky.Event[NK, []NV] {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	changed := make(map[NK]bool)

	if old, ok := mt.bwd[ev.Key]; ok {
		for _, pos := range old.Values() {
			if fv, ok := mt.fwd[pos.Index]; ok {
				fv.Remove(pos.Position)
				changed[pos.Index] = true
			}
		}
		delete(mt.bwd, ev.Key)
	}

	if ev.IsInsert() {
		newBwd := stablevec.New[fwdPos[NK]]()
		for _, pair := range mt.from.Transformer(ev.Key, ev.Value) {
			fv, ok := mt.fwd[pair.Key]
			if !ok {
				fv = stablevec.New[NV]()
				mt.fwd[pair.Key] = fv
			}
			position := fv.Push(pair.Value)
			newBwd.Push(fwdPos[NK]{Index: pair.Key, Position: position})
			changed[pair.Key] = true
		}
		if !newBwd.IsEmpty() {
			mt.bwd[ev.Key] = newBwd
		}
	}

	events := make([]husky.Event[NK, []NV], 0, len(changed))
	for nk := range changed {
		fv, ok := mt.fwd[nk]
		if !ok || fv.IsEmpty() {
			delete(mt.fwd, nk)
			events = append(events, husky.Remove[NK, []NV](nk))
			continue
		}
		events = append(events, husky.Insert(nk, fv.Values()))
	}
	return events
}

// Rebuild clears fwd and bwd and repopulates them from a full scan of the
// transform's source, then resets the synchronizer.
func (mt *MaterialTransform[K, V, NK, NV]) Rebuild() error {
	source := mt.from.From()
	seq, err := source.Iter()
	if err != nil {
		return err
	}

	mt.mu.Lock()
	mt.fwd = make(map[NK]*stablevec.Vec[NV])
	mt.bwd = make(map[K]*stablevec.Vec[fwdPos[NK]])
	for e := range seq {
		newBwd := stablevec.New[fwdPos[NK]]()
		for _, pair := range mt.from.Transformer(e.Key, e.Value) {
			fv, ok := mt.fwd[pair.Key]
			if !ok {
				fv = stablevec.New[NV]()
				mt.fwd[pair.Key] = fv
			}
			position := fv.Push(pair.Value)
			newBwd.Push(fwdPos[NK]{Index: pair.Key, Position: position})
		}
		if !newBwd.IsEmpty() {
			mt.bwd[e.Key] = newBwd
		}
	}
	mt.mu.Unlock()

	mt.sync.Reset()
	return nil
}

func (mt *MaterialTransform[K, V, NK, NV]) Get(key NK) ([]NV, bool, error) {
	mt.sync.Wait()
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	fv, ok := mt.fwd[key]
	if !ok || fv.IsEmpty() {
		return nil, false, nil
	}
	return fv.Values(), true, nil
}

func (mt *MaterialTransform[K, V, NK, NV]) Contains(key NK) (bool, error) {
	_, ok, err := mt.Get(key)
	return ok, err
}

func (mt *MaterialTransform[K, V, NK, NV]) IsEmpty() (bool, error) {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return len(mt.fwd) == 0, nil
}

func (mt *MaterialTransform[K, V, NK, NV]) Keys() []NK {
	mt.sync.Wait()
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	keys := make([]NK, 0, len(mt.fwd))
	for k := range mt.fwd {
		keys = append(keys, k)
	}
	return keys
}

func (mt *MaterialTransform[K, V, NK, NV]) Watch() *bus.Reader[husky.Event[NK, []NV]] {
	return mt.bus.NewReader()
}
func (mt *MaterialTransform[K, V, NK, NV]) Db() *husky.Db              { return mt.from.From().Db() }
func (mt *MaterialTransform[K, V, NK, NV]) Sync() *quiesce.Synchronizer { return mt.sync }
func (mt *MaterialTransform[K, V, NK, NV]) Wait()                      { mt.sync.Wait() }
