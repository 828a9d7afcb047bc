package ops

import (
	"testing"
	"time"
)

func TestPipeMirrorsInsertsAndRemoves(t *testing.T) {
	db := openTestDb(t)
	source := openNamedTree(t, db, "source")
	target := openNamedTree(t, db, "target")

	Pipe[string, uint64](source, target)

	source.Insert("a", 1)
	deadline := time.Now().Add(time.Second)
	for {
		if v, ok, _ := target.Get("a"); ok && v == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Pipe did not mirror the insert within the deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	source.Remove("a")
	deadline = time.Now().Add(time.Second)
	for {
		if ok, _ := target.Contains("a"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Pipe did not mirror the remove within the deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPipePushesSourceAsUpstreamDependency(t *testing.T) {
	db := openTestDb(t)
	source := openNamedTree(t, db, "source")
	target := openNamedTree(t, db, "target")

	before := target.Sync()
	Pipe[string, uint64](source, target)
	if target.Sync() != before {
		t.Fatal("Pipe should not replace the target's synchronizer, only add a source to it")
	}
}
