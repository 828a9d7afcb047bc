package ops

// Pipe subscribes a goroutine that mirrors every event from source into to:
// inserts become Insert calls, removes become Remove calls. to's
// synchronizer gains source's synchronizer as an upstream source, so
// waiting on to also waits for source to quiesce.
func Pipe[K any, V any](source Source[K, V], to ChangeSource[K, V, V]) {
	to.Sync().PushSource(source.Sync())
	reader := source.Watch()
	go func() {
		for {
			ev, ok := reader.Recv()
			if !ok {
				return
			}
			if ev.IsInsert() {
				to.Insert(ev.Key, ev.Value)
			} else {
				to.Remove(ev.Key)
			}
			// No extra Outgoing bump: Insert/Remove on to already account
			// for it via to's own write path. Received acknowledges the
			// source event so that waiting on to can return.
			to.Sync().Received()
		}
	}()
}
