package husky

import (
	"testing"

	"github.com/nugget/husky/internal/codec"
)

func TestSingleInsertGet(t *testing.T) {
	db := openTestDb(t)
	s, err := OpenSingle(db, "counter", codec.BigEndianUint64())
	if err != nil {
		t.Fatalf("OpenSingle: %v", err)
	}

	if _, had, err := s.Get(); err != nil || had {
		t.Fatalf("Get before Insert: (%v, %v)", had, err)
	}
	if _, had, err := s.Insert(1); err != nil || had {
		t.Fatalf("first Insert: (%v, %v)", had, err)
	}
	v, ok, err := s.Get()
	if err != nil || !ok || v != 1 {
		t.Fatalf("Get: got (%d, %v, %v)", v, ok, err)
	}

	old, had, err := s.Insert(2)
	if err != nil || !had || old != 1 {
		t.Fatalf("second Insert: (%d, %v, %v)", old, had, err)
	}
}

func TestSingleFetchAndUpdate(t *testing.T) {
	db := openTestDb(t)
	s, err := OpenSingle(db, "counter", codec.BigEndianUint64())
	if err != nil {
		t.Fatalf("OpenSingle: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, _, err := s.FetchAndUpdate(func(old uint64, had bool) (uint64, bool) {
			if !had {
				return 1, true
			}
			return old + 1, true
		})
		if err != nil {
			t.Fatalf("FetchAndUpdate iteration %d: %v", i, err)
		}
	}

	v, ok, err := s.Get()
	if err != nil || !ok || v != 3 {
		t.Fatalf("final value: got (%d, %v, %v)", v, ok, err)
	}
}
