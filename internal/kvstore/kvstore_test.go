package kvstore

import (
	"path/filepath"
	"testing"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	e, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestBucketPutGet(t *testing.T) {
	e := openTestEngine(t)
	b, err := e.Bucket([]byte("tree"))
	if err != nil {
		t.Fatalf("Bucket: %v", err)
	}

	if _, _, err := b.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := b.Get([]byte("k"))
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get: got (%q, %v, %v)", got, ok, err)
	}
}

func TestBucketDeleteAndHas(t *testing.T) {
	e := openTestEngine(t)
	b, _ := e.Bucket([]byte("tree"))
	b.Put([]byte("k"), []byte("v"))

	if has, err := b.Has([]byte("k")); err != nil || !has {
		t.Fatalf("Has before delete: (%v, %v)", has, err)
	}
	if _, _, err := b.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if has, err := b.Has([]byte("k")); err != nil || has {
		t.Fatalf("Has after delete: (%v, %v)", has, err)
	}
}

func TestBucketOrderedScans(t *testing.T) {
	e := openTestEngine(t)
	b, _ := e.Bucket([]byte("tree"))
	for _, k := range []string{"b", "a", "c"} {
		b.Put([]byte(k), []byte(k))
	}

	first, _, ok, err := b.First()
	if err != nil || !ok || string(first) != "a" {
		t.Fatalf("First: got (%q, %v, %v)", first, ok, err)
	}
	last, _, ok, err := b.Last()
	if err != nil || !ok || string(last) != "c" {
		t.Fatalf("Last: got (%q, %v, %v)", last, ok, err)
	}

	lt, _, ok, err := b.GetLT([]byte("c"))
	if err != nil || !ok || string(lt) != "b" {
		t.Fatalf("GetLT: got (%q, %v, %v)", lt, ok, err)
	}
	gt, _, ok, err := b.GetGT([]byte("a"))
	if err != nil || !ok || string(gt) != "b" {
		t.Fatalf("GetGT: got (%q, %v, %v)", gt, ok, err)
	}
}

func TestBucketFetchAndUpdate(t *testing.T) {
	e := openTestEngine(t)
	b, _ := e.Bucket([]byte("tree"))

	_, had, err := b.FetchAndUpdate([]byte("k"), func(old []byte, ok bool) ([]byte, bool) {
		if ok {
			t.Fatal("expected no prior value")
		}
		return []byte("v1"), true
	})
	if err != nil || had {
		t.Fatalf("first FetchAndUpdate: (%v, %v)", had, err)
	}

	old, had, err := b.FetchAndUpdate([]byte("k"), func(old []byte, ok bool) ([]byte, bool) {
		if !ok || string(old) != "v1" {
			t.Fatalf("expected v1, got %q (had=%v)", old, ok)
		}
		return nil, false
	})
	if err != nil || !had || string(old) != "v1" {
		t.Fatalf("second FetchAndUpdate: (%q, %v, %v)", old, had, err)
	}

	if has, _ := b.Has([]byte("k")); has {
		t.Fatal("key should have been removed by write=false")
	}
}

func TestBucketClearLenIsEmpty(t *testing.T) {
	e := openTestEngine(t)
	b, _ := e.Bucket([]byte("tree"))

	if empty, err := b.IsEmpty(); err != nil || !empty {
		t.Fatalf("new bucket should be empty: (%v, %v)", empty, err)
	}
	b.Put([]byte("a"), []byte("1"))
	b.Put([]byte("b"), []byte("2"))
	if n, err := b.Len(); err != nil || n != 2 {
		t.Fatalf("Len: got (%d, %v)", n, err)
	}
	if err := b.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if empty, err := b.IsEmpty(); err != nil || !empty {
		t.Fatalf("bucket should be empty after Clear: (%v, %v)", empty, err)
	}
}

func TestEngineSizeOnDiskAndChecksum(t *testing.T) {
	e := openTestEngine(t)
	b, _ := e.Bucket([]byte("tree"))
	b.Put([]byte("k"), []byte("v"))

	size, err := e.SizeOnDisk()
	if err != nil || size <= 0 {
		t.Fatalf("SizeOnDisk: (%d, %v)", size, err)
	}
	sum1, err := e.Checksum([]byte("tree"))
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	b.Put([]byte("k2"), []byte("v2"))
	sum2, err := e.Checksum([]byte("tree"))
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if sum1 == sum2 {
		t.Fatal("checksum should change after a write")
	}
}

func TestDropBucket(t *testing.T) {
	e := openTestEngine(t)
	e.Bucket([]byte("tree"))

	names, err := e.BucketNames()
	if err != nil || len(names) != 1 {
		t.Fatalf("BucketNames: (%v, %v)", names, err)
	}

	dropped, err := e.DropBucket(names[0])
	if err != nil || !dropped {
		t.Fatalf("DropBucket: (%v, %v)", dropped, err)
	}
	names, err = e.BucketNames()
	if err != nil || len(names) != 0 {
		t.Fatalf("BucketNames after drop: (%v, %v)", names, err)
	}
}
