package ops

import (
	"testing"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/codec"
)

func openTestDb(t *testing.T) *husky.Db {
	t.Helper()
	db, err := husky.OpenTemp()
	if err != nil {
		t.Fatalf("OpenTemp: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func openTestTree(t *testing.T) *husky.Tree[string, uint64] {
	t.Helper()
	db := openTestDb(t)
	tr, err := husky.OpenTree(db, "t", codec.String(), codec.BigEndianUint64())
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}
	return tr
}

func TestMapTranslatesReads(t *testing.T) {
	tr := openTestTree(t)
	tr.Insert("a", 1)
	tr.Insert("b", 2)

	m := NewMap[string, uint64, string](tr, func(k string, v uint64) string {
		if v == 1 {
			return "one"
		}
		return "many"
	})

	v, ok, err := m.Get("a")
	if err != nil || !ok || v != "one" {
		t.Fatalf("Get(a): got (%q, %v, %v)", v, ok, err)
	}
	v, ok, err = m.Get("b")
	if err != nil || !ok || v != "many" {
		t.Fatalf("Get(b): got (%q, %v, %v)", v, ok, err)
	}
}

func TestMapBroadcastsTranslatedEvents(t *testing.T) {
	tr := openTestTree(t)
	m := NewMap[string, uint64, string](tr, func(k string, v uint64) string {
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	})
	r := m.Watch()

	tr.Insert("a", 4)
	ev, ok := r.Recv()
	if !ok || !ev.IsInsert() || ev.Key != "a" || ev.Value != "even" {
		t.Fatalf("got %+v, ok=%v", ev, ok)
	}

	tr.Remove("a")
	ev, ok = r.Recv()
	if !ok || !ev.IsRemove() || ev.Key != "a" {
		t.Fatalf("got %+v, ok=%v", ev, ok)
	}
}

func TestMapIterPreservesOrder(t *testing.T) {
	tr := openTestTree(t)
	tr.Insert("c", 3)
	tr.Insert("a", 1)
	tr.Insert("b", 2)

	m := NewMap[string, uint64, uint64](tr, func(k string, v uint64) uint64 { return v * 10 })
	seq, err := m.Iter()
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	var keys []string
	var values []uint64
	for e := range seq {
		keys = append(keys, e.Key)
		values = append(values, e.Value)
	}
	wantKeys := []string{"a", "b", "c"}
	wantValues := []uint64{10, 20, 30}
	for i := range wantKeys {
		if keys[i] != wantKeys[i] || values[i] != wantValues[i] {
			t.Fatalf("got keys=%v values=%v, want keys=%v values=%v", keys, values, wantKeys, wantValues)
		}
	}
}

func TestMapSyncTracksUpstream(t *testing.T) {
	tr := openTestTree(t)
	m := NewMap[string, uint64, string](tr, func(k string, v uint64) string { return "" })
	tr.Insert("a", 1)
	m.Wait() // returns once Map's translation goroutine has caught up
}
