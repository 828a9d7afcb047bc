package husky

import (
	"testing"

	"github.com/nugget/husky/internal/codec"
)

func TestApplyBatchInsertsAndRemoves(t *testing.T) {
	db := openTestDb(t)
	tr, err := OpenTree(db, "t", codec.String(), codec.String())
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}
	tr.Insert("stale", "x")

	var b Batch[string, string]
	b.Insert("a", "1")
	b.Insert("b", "2")
	b.Remove("stale")

	if err := tr.ApplyBatch(b); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	if v, ok, err := tr.Get("a"); err != nil || !ok || v != "1" {
		t.Fatalf("Get(a): got (%q, %v, %v)", v, ok, err)
	}
	if v, ok, err := tr.Get("b"); err != nil || !ok || v != "2" {
		t.Fatalf("Get(b): got (%q, %v, %v)", v, ok, err)
	}
	if ok, _ := tr.Contains("stale"); ok {
		t.Fatal("stale key should have been removed by the batch")
	}
}

func TestApplyBatchBroadcastsEachOp(t *testing.T) {
	db := openTestDb(t)
	tr, err := OpenTree(db, "t", codec.String(), codec.String())
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}
	r := tr.Watch()

	var b Batch[string, string]
	b.Insert("a", "1")
	b.Insert("b", "2")
	if err := tr.ApplyBatch(b); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	ev1, ok := r.Recv()
	if !ok || ev1.Key != "a" {
		t.Fatalf("first event: got %+v, ok=%v", ev1, ok)
	}
	ev2, ok := r.Recv()
	if !ok || ev2.Key != "b" {
		t.Fatalf("second event: got %+v, ok=%v", ev2, ok)
	}
}
