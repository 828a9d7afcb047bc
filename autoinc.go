package husky

import "github.com/google/uuid"

// AutoInc is a key type with a well-defined starting value and successor,
// letting a store assign keys itself instead of the caller picking them.
type AutoInc interface {
	// Next returns the value that follows this one in the sequence.
	Next() AutoInc
	// Uint64 returns the value as a plain integer, for encoding.
	Uint64() uint64
}

// AutoIncUint64 is the built-in AutoInc sequence starting at 1.
type AutoIncUint64 uint64

// FirstAutoIncUint64 is the first value AutoIncKeyed assigns.
const FirstAutoIncUint64 AutoIncUint64 = 1

func (v AutoIncUint64) Next() AutoInc  { return v + 1 }
func (v AutoIncUint64) Uint64() uint64 { return uint64(v) }

// AutoIncKeyed wraps a Tree[uint64, V] with a persisted cursor so callers
// can append values without picking their own keys.
type AutoIncKeyed[V any] struct {
	tree   *Tree[uint64, V]
	cursor *Single[uint64]
}

// NewAutoIncKeyed wires an auto-incrementing appender around tree, using
// cursor to persist the next key to assign. cursor should not be shared
// with any other use.
func NewAutoIncKeyed[V any](tree *Tree[uint64, V], cursor *Single[uint64]) *AutoIncKeyed[V] {
	return &AutoIncKeyed[V]{tree: tree, cursor: cursor}
}

// Append assigns the next key in sequence to value, inserts it, and
// returns the assigned key.
func (a *AutoIncKeyed[V]) Append(value V) (uint64, error) {
	var assigned uint64
	_, _, err := a.cursor.FetchAndUpdate(func(old uint64, had bool) (uint64, bool) {
		next := old
		if !had {
			next = uint64(FirstAutoIncUint64)
		}
		assigned = next
		return next + 1, true
	})
	if err != nil {
		return 0, err
	}
	// The tree write runs after the cursor's write transaction has
	// committed: the engine admits one write transaction at a time.
	if _, _, err := a.tree.Insert(assigned, value); err != nil {
		return 0, err
	}
	return assigned, nil
}

// Tree returns the underlying tree, for reads and subscriptions.
func (a *AutoIncKeyed[V]) Tree() *Tree[uint64, V] {
	return a.tree
}

// UUIDKeyed wraps a Tree[string, V] with a key generator that mints a
// random UUID per append, the other ID strategy alongside AutoIncKeyed:
// no cursor to persist, no ordering between assigned keys, but no
// contention on a shared counter either.
type UUIDKeyed[V any] struct {
	tree *Tree[string, V]
}

// NewUUIDKeyed wraps tree with a random-key appender.
func NewUUIDKeyed[V any](tree *Tree[string, V]) *UUIDKeyed[V] {
	return &UUIDKeyed[V]{tree: tree}
}

// Append assigns a fresh UUID to value, inserts it, and returns the
// assigned key.
func (a *UUIDKeyed[V]) Append(value V) (string, error) {
	key := uuid.New().String()
	if _, _, err := a.tree.Insert(key, value); err != nil {
		return "", err
	}
	return key, nil
}

// Tree returns the underlying tree, for reads and subscriptions.
func (a *UUIDKeyed[V]) Tree() *Tree[string, V] {
	return a.tree
}
