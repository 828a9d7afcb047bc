package husky

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/nugget/husky/internal/healthwatch"
)

// WatchHealth starts a background watcher that periodically probes this
// database's on-disk size and logs it in human-readable form, so size
// creep from an unbounded tree or a runaway materialization shows up in
// logs before it becomes an operational surprise. The returned Watcher
// follows the startup-backoff-then-poll schedule described in
// healthwatch.DefaultBackoffConfig; callers wanting a different schedule
// can pass their own BackoffConfig in cfg.
//
// The watcher's probe never reports unhealthy on its own — there is no
// size ceiling built into husky — so Ready is mostly useful as a liveness
// signal that the poll loop itself hasn't wedged. Callers that do want a
// ceiling should set cfg.OnReady/OnDown and check SizeOnDisk there.
func (db *Db) WatchHealth(ctx context.Context, logger *slog.Logger, cfg healthwatch.WatcherConfig) *healthwatch.Watcher {
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("husky-db:%s", db.Path())
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Logger = logger
	cfg.Probe = func(context.Context) error {
		size, err := db.SizeOnDisk()
		if err != nil {
			return fmt.Errorf("stat db file: %w", err)
		}
		logger.Debug("db size", "path", db.Path(), "size", humanize.Bytes(uint64(size)))
		return nil
	}

	manager := healthwatch.NewManager(logger)
	return manager.Watch(ctx, cfg)
}
