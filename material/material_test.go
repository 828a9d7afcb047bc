package material

import (
	"testing"
	"time"

	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/codec"
	"github.com/nugget/husky/ops"
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

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition did not become true within the deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoadPopulatesFromSourceUpFront(t *testing.T) {
	tr := openTestTree(t)
	tr.Insert("a", 1)
	tr.Insert("b", 2)

	m, err := Load[string, uint64](tr, tr.Db())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	v, ok, err := m.Get("a")
	if err != nil || !ok || v != 1 {
		t.Fatalf("Get(a): got (%d, %v, %v)", v, ok, err)
	}
}

func TestMaterialTracksSourceUpdates(t *testing.T) {
	tr := openTestTree(t)
	m, err := Load[string, uint64](tr, tr.Db())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tr.Insert("a", 1)
	waitUntil(t, func() bool {
		v, ok, _ := m.Get("a")
		return ok && v == 1
	})

	tr.Remove("a")
	waitUntil(t, func() bool {
		ok, _ := m.Contains("a")
		return !ok
	})
}

func TestMaterialWriteForwardsToSource(t *testing.T) {
	tr := openTestTree(t)
	m, err := Load[string, uint64](tr, tr.Db())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, _, err := m.Insert("a", 5); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	v, ok, err := tr.Get("a")
	if err != nil || !ok || v != 5 {
		t.Fatalf("write should land on the source tree: got (%d, %v, %v)", v, ok, err)
	}
}

func TestMaterialOverNonWritableSourceReturnsErrNotWritable(t *testing.T) {
	tr := openTestTree(t)
	// Map has no Change methods of its own, so it is a Source but not a
	// ChangeSource — Material's write path must refuse rather than panic.
	mapped := ops.NewMap[string, uint64, uint64](tr, func(k string, v uint64) uint64 { return v })
	m, err := Load[string, uint64](mapped, tr.Db())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, _, err := m.Insert("a", 1); err != ErrNotWritable {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
}

func TestRebuildResyncsFromSource(t *testing.T) {
	tr := openTestTree(t)
	tr.Insert("a", 1)
	m, err := Load[string, uint64](tr, tr.Db())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tr.Insert("b", 2)
	if err := m.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	v, ok, err := m.Get("b")
	if err != nil || !ok || v != 2 {
		t.Fatalf("Get(b) after Rebuild: got (%d, %v, %v)", v, ok, err)
	}
}
