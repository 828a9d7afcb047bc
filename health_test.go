package husky

import (
	"context"
	"testing"
	"time"

	"github.com/nugget/husky/internal/healthwatch"
)

func TestWatchHealthBecomesReady(t *testing.T) {
	db := openTestDb(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := db.WatchHealth(ctx, nil, healthwatch.WatcherConfig{})
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !w.IsReady() {
		if time.Now().After(deadline) {
			t.Fatalf("watcher never became ready: last error %v", w.LastError())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatchHealthDefaultsName(t *testing.T) {
	db := openTestDb(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := db.WatchHealth(ctx, nil, healthwatch.WatcherConfig{})
	defer w.Stop()

	if w.Status().Name == "" {
		t.Fatal("WatchHealth should default Name when the caller leaves it empty")
	}
}
