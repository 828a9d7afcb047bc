package ops

import (
	"cmp"
	"testing"
	"time"
)

func TestZipPairsUpBothSides(t *testing.T) {
	db := openTestDb(t)
	a := openNamedTree(t, db, "a")
	b := openNamedTree(t, db, "b")

	a.Insert("both", 1)
	b.Insert("both", 2)
	a.Insert("only-a", 3)
	b.Insert("only-b", 4)

	z := NewZip[string, uint64, uint64](a, b, cmp.Compare[string])

	p, ok, err := z.Get("both")
	if err != nil || !ok || !p.HasA || !p.HasB || p.A != 1 || p.B != 2 {
		t.Fatalf("Get(both): got (%+v, %v, %v)", p, ok, err)
	}
	p, ok, err = z.Get("only-a")
	if err != nil || !ok || !p.HasA || p.HasB {
		t.Fatalf("Get(only-a): got (%+v, %v, %v)", p, ok, err)
	}
	p, ok, err = z.Get("only-b")
	if err != nil || !ok || p.HasA || !p.HasB {
		t.Fatalf("Get(only-b): got (%+v, %v, %v)", p, ok, err)
	}
}

func TestZipIterMergesKeySpace(t *testing.T) {
	db := openTestDb(t)
	a := openNamedTree(t, db, "a")
	b := openNamedTree(t, db, "b")

	a.Insert("b", 1)
	b.Insert("a", 1)
	b.Insert("c", 1)

	z := NewZip[string, uint64, uint64](a, b, cmp.Compare[string])
	seq, err := z.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	var keys []string
	for e := range seq {
		keys = append(keys, e.Key)
	}
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestZipBroadcastsOnEitherSideChange(t *testing.T) {
	db := openTestDb(t)
	a := openNamedTree(t, db, "a")
	b := openNamedTree(t, db, "b")

	z := NewZip[string, uint64, uint64](a, b, cmp.Compare[string])
	r := z.Watch()

	a.Insert("k", 1)
	time.Sleep(50 * time.Millisecond)
	ev, ok := r.Recv()
	if !ok || !ev.IsInsert() || ev.Key != "k" || !ev.Value.HasA || ev.Value.HasB {
		t.Fatalf("got %+v, ok=%v", ev, ok)
	}

	b.Insert("k", 2)
	time.Sleep(50 * time.Millisecond)
	ev, ok = r.Recv()
	if !ok || !ev.IsInsert() || ev.Key != "k" || !ev.Value.HasA || !ev.Value.HasB {
		t.Fatalf("got %+v, ok=%v", ev, ok)
	}
}
