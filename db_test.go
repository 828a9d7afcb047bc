package husky

import (
	"fmt"
	"testing"

	"github.com/nugget/husky/internal/codec"
)

func TestDbOpenAndPath(t *testing.T) {
	db := openTestDb(t)
	if db.Path() == "" {
		t.Fatal("Path should not be empty")
	}
	if db.WasRecovered() {
		t.Fatal("a freshly created db should not require recovery")
	}
}

func TestDbTreeNamesAndDropTree(t *testing.T) {
	db := openTestDb(t)
	if _, err := OpenTree(db, "t1", codec.String(), codec.String()); err != nil {
		t.Fatalf("OpenTree: %v", err)
	}

	names, err := db.TreeNames()
	if err != nil || len(names) != 1 {
		t.Fatalf("TreeNames: (%v, %v)", names, err)
	}

	dropped, err := db.DropTree("t1")
	if err != nil || !dropped {
		t.Fatalf("DropTree: (%v, %v)", dropped, err)
	}
	dropped, err = db.DropTree("t1")
	if err != nil || dropped {
		t.Fatalf("DropTree on an already-dropped tree: (%v, %v)", dropped, err)
	}
}

func TestDbSizeOnDiskGrowsWithData(t *testing.T) {
	db := openTestDb(t)
	tr, err := OpenTree(db, "t", codec.String(), codec.String())
	if err != nil {
		t.Fatalf("OpenTree: %v", err)
	}

	before, err := db.SizeOnDisk()
	if err != nil {
		t.Fatalf("SizeOnDisk: %v", err)
	}
	for i := 0; i < 200; i++ {
		tr.Insert(fmt.Sprintf("key-%04d", i), "value")
	}
	after, err := db.SizeOnDisk()
	if err != nil {
		t.Fatalf("SizeOnDisk: %v", err)
	}
	if after < before {
		t.Fatalf("size should not shrink after inserts: before=%d after=%d", before, after)
	}
}
