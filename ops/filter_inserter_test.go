package ops

import "testing"

func TestFilterInserterVetoesConversion(t *testing.T) {
	tr := openTestTree(t)

	ins := NewFilterInserter[string, uint64, string](tr, func(s string) (uint64, bool) {
		if len(s) == 0 {
			return 0, false
		}
		return uint64(len(s)), true
	})

	if _, had, err := ins.Insert("a", ""); err != nil || had {
		t.Fatalf("vetoed Insert on empty store: (%v, %v)", had, err)
	}
	if ok, _ := tr.Contains("a"); ok {
		t.Fatal("store should be untouched after a vetoed insert")
	}

	if _, had, err := ins.Insert("a", "hello"); err != nil || had {
		t.Fatalf("accepted Insert: (%v, %v)", had, err)
	}
	v, ok, err := tr.Get("a")
	if err != nil || !ok || v != 5 {
		t.Fatalf("got (%d, %v, %v)", v, ok, err)
	}
}
