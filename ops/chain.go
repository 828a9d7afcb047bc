package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Chain derives a view over two sources of the same key and value types: a
// key visible in both resolves to A's value. cmp must order keys
// consistently with both sources' own iteration order.
type Chain[K any, V any] struct {
	a, b Source[K, V]
	cmp  func(K, K) int
	bus  *bus.Bus[husky.Event[K, V]]
	sync *quiesce.Synchronizer
}

// NewChain builds a Chain stage preferring a over b on key collision.
func NewChain[K any, V any](a, b Source[K, V], cmp func(K, K) int) *Chain[K, V] {
	sync := syncFrom(a.Sync(), b.Sync())
	bs := bus.New[husky.Event[K, V]](128)
	c := &Chain[K, V]{a: a, b: b, cmp: cmp, bus: bs, sync: sync}

	readerA := a.Watch()
	go func() {
		for {
			ev, ok := readerA.Recv()
			if !ok {
				return
			}
			sync.Received()
			sync.Outgoing(1)
			if ev.IsRemove() {
				// A's key may still be covered by B; downstream must see
				// B's value surface rather than the key vanish outright.
				if bv, hasB, err := b.Get(ev.Key); err == nil && hasB {
					bs.Broadcast(husky.Insert(ev.Key, bv))
				} else {
					bs.Broadcast(ev)
				}
				continue
			}
			bs.Broadcast(ev)
		}
	}()
	readerB := b.Watch()
	go func() {
		for {
			ev, ok := readerB.Recv()
			if !ok {
				return
			}
			sync.Received()
			// A shadows B: only forward B's event if A doesn't have the key.
			if _, hasA, err := a.Get(ev.Key); err == nil && !hasA {
				sync.Outgoing(1)
				bs.Broadcast(ev)
			} else {
				sync.Outgoing(0)
			}
		}
	}()
	return c
}

func (c *Chain[K, V]) Get(key K) (V, bool, error) {
	v, ok, err := c.a.Get(key)
	if err != nil || ok {
		return v, ok, err
	}
	return c.b.Get(key)
}

func (c *Chain[K, V]) Contains(key K) (bool, error) {
	_, ok, err := c.Get(key)
	return ok, err
}

func (c *Chain[K, V]) IsEmpty() (bool, error) {
	ae, err := c.a.IsEmpty()
	if err != nil {
		return false, err
	}
	be, err := c.b.IsEmpty()
	if err != nil {
		return false, err
	}
	return ae && be, nil
}

func (c *Chain[K, V]) First() (husky.Entry[K, V], bool, error) {
	seq, err := c.Iter()
	if err != nil {
		return husky.Entry[K, V]{}, false, err
	}
	for e := range seq {
		return e, true, nil
	}
	return husky.Entry[K, V]{}, false, nil
}

func (c *Chain[K, V]) Last() (husky.Entry[K, V], bool, error) {
	seq, err := c.Iter()
	if err != nil {
		return husky.Entry[K, V]{}, false, err
	}
	var last husky.Entry[K, V]
	found := false
	for e := range seq {
		last, found = e, true
	}
	return last, found, nil
}

func (c *Chain[K, V]) GetLT(key K) (husky.Entry[K, V], bool, error) {
	seq, err := c.Range(husky.Unbounded[K](), husky.Excluded(key))
	if err != nil {
		return husky.Entry[K, V]{}, false, err
	}
	var last husky.Entry[K, V]
	found := false
	for e := range seq {
		last, found = e, true
	}
	return last, found, nil
}

func (c *Chain[K, V]) GetGT(key K) (husky.Entry[K, V], bool, error) {
	seq, err := c.Range(husky.Excluded(key), husky.Unbounded[K]())
	if err != nil {
		return husky.Entry[K, V]{}, false, err
	}
	for e := range seq {
		return e, true, nil
	}
	return husky.Entry[K, V]{}, false, nil
}

func (c *Chain[K, V]) Iter() (iter.Seq[husky.Entry[K, V]], error) {
	return c.Range(husky.Unbounded[K](), husky.Unbounded[K]())
}

// Range merges the two sources' ranges in key order, preferring A's entry
// whenever both sources have the same key.
func (c *Chain[K, V]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, V]], error) {
	aSeq, err := c.a.Range(lo, hi)
	if err != nil {
		return nil, err
	}
	bSeq, err := c.b.Range(lo, hi)
	if err != nil {
		return nil, err
	}

	return func(yield func(husky.Entry[K, V]) bool) {
		nextA, stopA := iter.Pull(aSeq)
		defer stopA()
		nextB, stopB := iter.Pull(bSeq)
		defer stopB()

		ea, oka := nextA()
		eb, okb := nextB()
		for oka || okb {
			switch {
			case oka && (!okb || c.cmp(ea.Key, eb.Key) <= 0):
				if c.cmp2(ea.Key, eb.Key, oka, okb) {
					// ea.Key == eb.Key: A shadows B, advance both
					eb, okb = nextB()
				}
				if !yield(ea) {
					return
				}
				ea, oka = nextA()
			default:
				if !yield(eb) {
					return
				}
				eb, okb = nextB()
			}
		}
	}, nil
}

// cmp2 reports whether both entries exist and share a key, without
// assuming cmp total-orders keys that are equal under it but not ==.
func (c *Chain[K, V]) cmp2(ak, bk K, oka, okb bool) bool {
	return oka && okb && c.cmp(ak, bk) == 0
}

func (c *Chain[K, V]) Watch() *bus.Reader[husky.Event[K, V]] { return c.bus.NewReader() }
func (c *Chain[K, V]) Db() *husky.Db                         { return c.a.Db() }
func (c *Chain[K, V]) Sync() *quiesce.Synchronizer           { return c.sync }
func (c *Chain[K, V]) Wait()                                 { c.sync.Wait() }
