package husky

import (
	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Watch is the subscription surface of a store or stage: a reader of its
// event stream, the database it belongs to, and the synchronization handle
// used to wait for in-flight events to settle.
type Watch[K any, V any] interface {
	// Watch subscribes to this view's change stream. The subscription only
	// sees events broadcast after the call returns.
	Watch() *bus.Reader[Event[K, V]]
	// Db returns the database this view's storage belongs to.
	Db() *Db
	// Sync returns the synchronizer tracking this view's quiescence.
	Sync() *quiesce.Synchronizer
	// Wait blocks until every event currently in flight into this view has
	// been applied.
	Wait()
}
