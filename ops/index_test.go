package ops

import "testing"

func TestIndexDelegatesViewAndChangeToFrom(t *testing.T) {
	tr := openTestTree(t)
	idx := NewIndex[string, uint64, string](tr, func(k string, v uint64) []string {
		if v%2 == 0 {
			return []string{"even"}
		}
		return []string{"odd"}
	})

	if _, had, err := idx.Insert("a", 4); err != nil || had {
		t.Fatalf("Insert: (%v, %v)", had, err)
	}
	v, ok, err := idx.Get("a")
	if err != nil || !ok || v != 4 {
		t.Fatalf("Get: got (%d, %v, %v)", v, ok, err)
	}
	v, ok, err = tr.Get("a")
	if err != nil || !ok || v != 4 {
		t.Fatalf("write should land on the underlying tree: got (%d, %v, %v)", v, ok, err)
	}

	if idx.From() != tr {
		t.Fatal("From() should return the exact source passed to NewIndex")
	}
	tags := idx.Indexer("a", 4)
	if len(tags) != 1 || tags[0] != "even" {
		t.Fatalf("Indexer: got %v", tags)
	}
}
