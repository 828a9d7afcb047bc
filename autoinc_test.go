package husky

import (
	"testing"

	"github.com/nugget/husky/internal/codec"
)

func TestAutoIncKeyedAppendAssignsSequentialKeys(t *testing.T) {
	db := openTestDb(t)
	tree, err := OpenTree(db, "items", codec.BigEndianUint64(), codec.String())
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}
	cursor, err := OpenSingle(db, "items-cursor", codec.BigEndianUint64())
	if err != nil {
		t.Fatalf("OpenSingle: %v", err)
	}
	a := NewAutoIncKeyed(tree, cursor)

	k1, err := a.Append("first")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if k1 != uint64(FirstAutoIncUint64) {
		t.Fatalf("first key: got %d, want %d", k1, FirstAutoIncUint64)
	}

	k2, err := a.Append("second")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if k2 != k1+1 {
		t.Fatalf("second key: got %d, want %d", k2, k1+1)
	}

	v, ok, err := a.Tree().Get(k2)
	if err != nil || !ok || v != "second" {
		t.Fatalf("Tree().Get(%d): got (%q, %v, %v)", k2, v, ok, err)
	}
}

func TestUUIDKeyedAppendAssignsDistinctKeys(t *testing.T) {
	db := openTestDb(t)
	tree, err := OpenTree(db, "events", codec.String(), codec.String())
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}
	a := NewUUIDKeyed(tree)

	k1, err := a.Append("first")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	k2, err := a.Append("second")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if k1 == k2 {
		t.Fatalf("two appends should get distinct keys, both got %q", k1)
	}

	v, ok, err := a.Tree().Get(k1)
	if err != nil || !ok || v != "first" {
		t.Fatalf("Tree().Get(%q): got (%q, %v, %v)", k1, v, ok, err)
	}
}

func TestAutoIncUint64Next(t *testing.T) {
	v := AutoIncUint64(5)
	next := v.Next()
	if next.Uint64() != 6 {
		t.Fatalf("Next().Uint64(): got %d, want 6", next.Uint64())
	}
}
