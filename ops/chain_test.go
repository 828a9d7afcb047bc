package ops

import (
	"cmp"
	"testing"
	"time"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/codec"
)

func openNamedTree(t *testing.T, db *husky.Db, name string) *husky.Tree[string, uint64] {
	t.Helper()
	tr, err := husky.OpenTree(db, name, codec.String(), codec.BigEndianUint64())
	if err != nil {
		t.Fatalf("OpenTree %s: %v", name, err)
	}
	return tr
}

func TestChainPrefersAOnCollision(t *testing.T) {
	db := openTestDb(t)
	a := openNamedTree(t, db, "a")
	b := openNamedTree(t, db, "b")

	a.Insert("shared", 1)
	b.Insert("shared", 2)
	b.Insert("only-b", 3)

	c := NewChain[string, uint64](a, b, cmp.Compare[string])

	v, ok, err := c.Get("shared")
	if err != nil || !ok || v != 1 {
		t.Fatalf("Get(shared): got (%d, %v, %v) want A's value 1", v, ok, err)
	}
	v, ok, err = c.Get("only-b")
	if err != nil || !ok || v != 3 {
		t.Fatalf("Get(only-b): got (%d, %v, %v)", v, ok, err)
	}
}

func TestChainIterMergesInOrder(t *testing.T) {
	db := openTestDb(t)
	a := openNamedTree(t, db, "a")
	b := openNamedTree(t, db, "b")

	a.Insert("b", 1)
	a.Insert("d", 1)
	b.Insert("a", 1)
	b.Insert("c", 1)

	c := NewChain[string, uint64](a, b, cmp.Compare[string])
	seq, err := c.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	var keys []string
	for e := range seq {
		keys = append(keys, e.Key)
	}
	want := []string{"a", "b", "c", "d"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestChainForwardsOnlyUnshadowedBEvents(t *testing.T) {
	db := openTestDb(t)
	a := openNamedTree(t, db, "a")
	b := openNamedTree(t, db, "b")
	a.Insert("shared", 1)

	c := NewChain[string, uint64](a, b, cmp.Compare[string])
	r := c.Watch()

	b.Insert("shared", 2) // shadowed by A, must not be forwarded
	b.Insert("only-b", 9) // A doesn't have this key, must be forwarded
	time.Sleep(50 * time.Millisecond)

	ev, ok := r.Recv()
	if !ok || ev.Key != "only-b" || ev.Value != 9 {
		t.Fatalf("expected only the non-shadowed event, got %+v ok=%v", ev, ok)
	}
}

func TestChainRemovingFromAUncoversB(t *testing.T) {
	db := openTestDb(t)
	a := openNamedTree(t, db, "a")
	b := openNamedTree(t, db, "b")
	a.Insert("shared", 1)
	b.Insert("shared", 2)

	c := NewChain[string, uint64](a, b, cmp.Compare[string])
	r := c.Watch()

	a.Remove("shared")

	ev, ok := r.Recv()
	if !ok || !ev.IsInsert() || ev.Key != "shared" || ev.Value != 2 {
		t.Fatalf("expected B's value to surface once A's shadow is removed, got %+v ok=%v", ev, ok)
	}

	v, ok, err := c.Get("shared")
	if err != nil || !ok || v != 2 {
		t.Fatalf("Get(shared) after A removal: got (%d, %v, %v)", v, ok, err)
	}
}

func TestChainRemovingFromAWithNoBRemoves(t *testing.T) {
	db := openTestDb(t)
	a := openNamedTree(t, db, "a")
	b := openNamedTree(t, db, "b")
	a.Insert("only-a", 1)

	c := NewChain[string, uint64](a, b, cmp.Compare[string])
	r := c.Watch()

	a.Remove("only-a")

	ev, ok := r.Recv()
	if !ok || !ev.IsRemove() || ev.Key != "only-a" {
		t.Fatalf("expected a plain remove when B doesn't cover the key, got %+v ok=%v", ev, ok)
	}
}
