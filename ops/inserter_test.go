package ops

import "testing"

func TestInserterConvertsOnWrite(t *testing.T) {
	tr := openTestTree(t)
	ins := NewInserter[string, uint64, string](tr, func(s string) uint64 {
		return uint64(len(s))
	})

	if _, had, err := ins.Insert("a", "hello"); err != nil || had {
		t.Fatalf("Insert: (%v, %v)", had, err)
	}
	v, ok, err := tr.Get("a")
	if err != nil || !ok || v != 5 {
		t.Fatalf("converted value: got (%d, %v, %v)", v, ok, err)
	}
}

func TestInserterFetchAndUpdateConverts(t *testing.T) {
	tr := openTestTree(t)
	ins := NewInserter[string, uint64, string](tr, func(s string) uint64 {
		return uint64(len(s))
	})

	_, _, err := ins.FetchAndUpdate("a", func(old uint64, had bool) (string, bool) {
		return "abc", true
	})
	if err != nil {
		t.Fatalf("FetchAndUpdate: %v", err)
	}
	v, ok, err := tr.Get("a")
	if err != nil || !ok || v != 3 {
		t.Fatalf("got (%d, %v, %v)", v, ok, err)
	}
}
