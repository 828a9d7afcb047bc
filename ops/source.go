// Package ops builds derived views over a husky store or another stage:
// mapped, filtered, indexed, joined, or write-rewritten. Every constructor
// here returns a concrete type implementing the husky View/Change/Watch
// surface it makes sense for that stage to support — a stage like Index,
// whose index keys can only be read once it is materialized, delegates
// View, Change and Watch to its source unchanged.
package ops

import (
	"github.com/nugget/husky"
	"github.com/nugget/husky/internal/quiesce"
)

// Source is anything a read-and-watch stage can be built from: a Tree, a
// Loaded store, or another stage.
type Source[K any, V any] interface {
	husky.View[K, V]
	husky.Watch[K, V]
}

// ChangeSource is a Source that also accepts writes, required by the
// write-rewriting stages (Reducer, Inserter, FilterReducer, FilterInserter)
// and by Pipe's target.
type ChangeSource[K any, V any, I any] interface {
	husky.View[K, V]
	husky.Change[K, V, I]
	husky.Watch[K, V]
}

func syncFrom(sources ...*quiesce.Synchronizer) *quiesce.Synchronizer {
	return quiesce.From(sources)
}
