package ops

import (
	"iter"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Pair holds the optional values from each side of a Zip at a shared key.
type Pair[A any, B any] struct {
	A    A
	HasA bool
	B    B
	HasB bool
}

// Zip derives a view keyed identically to its two sources, pairing up
// whichever of A's and B's values exist at each key.
type Zip[K any, A any, B any] struct {
	a    Source[K, A]
	b    Source[K, B]
	cmp  func(K, K) int
	bus  *bus.Bus[husky.Event[K, Pair[A, B]]]
	sync *quiesce.Synchronizer
}

// NewZip builds a Zip stage over a and b.
func NewZip[K any, A any, B any](a Source[K, A], b Source[K, B], cmp func(K, K) int) *Zip[K, A, B] {
	sync := syncFrom(a.Sync(), b.Sync())
	bs := bus.New[husky.Event[K, Pair[A, B]]](128)
	z := &Zip[K, A, B]{a: a, b: b, cmp: cmp, bus: bs, sync: sync}

	readerA := a.Watch()
	go func() {
		for {
			ev, ok := readerA.Recv()
			if !ok {
				return
			}
			sync.Received()
			sync.Outgoing(1)
			bs.Broadcast(z.translate(ev.Key))
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
			sync.Outgoing(1)
			bs.Broadcast(z.translate(ev.Key))
		}
	}()
	return z
}

func (z *Zip[K, A, B]) translate(key K) husky.Event[K, Pair[A, B]] {
	pair, found, _ := z.Get(key)
	if !found {
		return husky.Remove[K, Pair[A, B]](key)
	}
	return husky.Insert(key, pair)
}

func (z *Zip[K, A, B]) pairAt(key K) (Pair[A, B], bool, error) {
	va, hasA, err := z.a.Get(key)
	if err != nil {
		return Pair[A, B]{}, false, err
	}
	vb, hasB, err := z.b.Get(key)
	if err != nil {
		return Pair[A, B]{}, false, err
	}
	if !hasA && !hasB {
		return Pair[A, B]{}, false, nil
	}
	return Pair[A, B]{A: va, HasA: hasA, B: vb, HasB: hasB}, true, nil
}

func (z *Zip[K, A, B]) Get(key K) (Pair[A, B], bool, error) { return z.pairAt(key) }

func (z *Zip[K, A, B]) Contains(key K) (bool, error) {
	_, ok, err := z.pairAt(key)
	return ok, err
}

func (z *Zip[K, A, B]) IsEmpty() (bool, error) {
	ae, err := z.a.IsEmpty()
	if err != nil {
		return false, err
	}
	be, err := z.b.IsEmpty()
	if err != nil {
		return false, err
	}
	return ae && be, nil
}

func (z *Zip[K, A, B]) entryAt(key K) (husky.Entry[K, Pair[A, B]], bool, error) {
	pair, ok, err := z.pairAt(key)
	if err != nil || !ok {
		return husky.Entry[K, Pair[A, B]]{}, false, err
	}
	return husky.Entry[K, Pair[A, B]]{Key: key, Value: pair}, true, nil
}

func (z *Zip[K, A, B]) First() (husky.Entry[K, Pair[A, B]], bool, error) {
	seq, err := z.Iter()
	if err != nil {
		return husky.Entry[K, Pair[A, B]]{}, false, err
	}
	for e := range seq {
		return e, true, nil
	}
	return husky.Entry[K, Pair[A, B]]{}, false, nil
}

func (z *Zip[K, A, B]) Last() (husky.Entry[K, Pair[A, B]], bool, error) {
	seq, err := z.Iter()
	if err != nil {
		return husky.Entry[K, Pair[A, B]]{}, false, err
	}
	var last husky.Entry[K, Pair[A, B]]
	found := false
	for e := range seq {
		last, found = e, true
	}
	return last, found, nil
}

func (z *Zip[K, A, B]) GetLT(key K) (husky.Entry[K, Pair[A, B]], bool, error) {
	seq, err := z.Range(husky.Unbounded[K](), husky.Excluded(key))
	if err != nil {
		return husky.Entry[K, Pair[A, B]]{}, false, err
	}
	var last husky.Entry[K, Pair[A, B]]
	found := false
	for e := range seq {
		last, found = e, true
	}
	return last, found, nil
}

func (z *Zip[K, A, B]) GetGT(key K) (husky.Entry[K, Pair[A, B]], bool, error) {
	seq, err := z.Range(husky.Excluded(key), husky.Unbounded[K]())
	if err != nil {
		return husky.Entry[K, Pair[A, B]]{}, false, err
	}
	for e := range seq {
		return e, true, nil
	}
	return husky.Entry[K, Pair[A, B]]{}, false, nil
}

func (z *Zip[K, A, B]) Iter() (iter.Seq[husky.Entry[K, Pair[A, B]]], error) {
	return z.Range(husky.Unbounded[K](), husky.Unbounded[K]())
}

// Range merges both sources' key sets in order, yielding a Pair for each
// key present in either side.
func (z *Zip[K, A, B]) Range(lo, hi husky.Bound[K]) (iter.Seq[husky.Entry[K, Pair[A, B]]], error) {
	aSeq, err := z.a.Range(lo, hi)
	if err != nil {
		return nil, err
	}
	bSeq, err := z.b.Range(lo, hi)
	if err != nil {
		return nil, err
	}

	return func(yield func(husky.Entry[K, Pair[A, B]]) bool) {
		nextA, stopA := iter.Pull(aSeq)
		defer stopA()
		nextB, stopB := iter.Pull(bSeq)
		defer stopB()

		ea, oka := nextA()
		eb, okb := nextB()
		for oka || okb {
			switch {
			case oka && okb && z.cmp(ea.Key, eb.Key) == 0:
				if !yield(husky.Entry[K, Pair[A, B]]{Key: ea.Key, Value: Pair[A, B]{A: ea.Value, HasA: true, B: eb.Value, HasB: true}}) {
					return
				}
				ea, oka = nextA()
				eb, okb = nextB()
			case oka && (!okb || z.cmp(ea.Key, eb.Key) < 0):
				if !yield(husky.Entry[K, Pair[A, B]]{Key: ea.Key, Value: Pair[A, B]{A: ea.Value, HasA: true}}) {
					return
				}
				ea, oka = nextA()
			default:
				if !yield(husky.Entry[K, Pair[A, B]]{Key: eb.Key, Value: Pair[A, B]{B: eb.Value, HasB: true}}) {
					return
				}
				eb, okb = nextB()
			}
		}
	}, nil
}

func (z *Zip[K, A, B]) Watch() *bus.Reader[husky.Event[K, Pair[A, B]]] { return z.bus.NewReader() }
func (z *Zip[K, A, B]) Db() *husky.Db                                  { return z.a.Db() }
func (z *Zip[K, A, B]) Sync() *quiesce.Synchronizer                    { return z.sync }
func (z *Zip[K, A, B]) Wait()                                          { z.sync.Wait() }
