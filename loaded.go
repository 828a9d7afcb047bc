package husky

import (
	"cmp"
	"iter"
	"sort"
	"sync"

	"github.com/nugget/husky/internal/bus"
	"github.com/nugget/husky/internal/quiesce"
)

// Loaded is an in-memory, ordered key-value store with the same View,
// Change, and Watch surface as Tree. Stages use it to Load() a derived
// view for fast repeated reads without paying for durable storage.
type Loaded[K cmp.Ordered, V any] struct {
	db *Db

	mu     sync.RWMutex
	keys   []K // sorted ascending
	values map[K]V

	watcher *bus.Watcher[Event[K, V]]
	sync    *quiesce.Synchronizer
}

// NewLoaded returns an empty in-memory store belonging to db.
func NewLoaded[K cmp.Ordered, V any](db *Db) *Loaded[K, V] {
	l := &Loaded[K, V]{
		db:     db,
		values: make(map[K]V),
		sync:   quiesce.New(),
	}
	l.watcher = bus.NewWatcher(func() *bus.Bus[Event[K, V]] {
		return bus.New[Event[K, V]](128)
	})
	quiesce.Register(l.sync)
	return l
}

func (l *Loaded[K, V]) search(key K) int {
	return sort.Search(len(l.keys), func(i int) bool { return l.keys[i] >= key })
}

// Get returns the value for key, if present.
func (l *Loaded[K, V]) Get(key K) (V, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.values[key]
	return v, ok, nil
}

// Contains reports whether key has a value.
func (l *Loaded[K, V]) Contains(key K) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.values[key]
	return ok, nil
}

// GetLT returns the entry with the greatest key strictly less than key.
func (l *Loaded[K, V]) GetLT(key K) (Entry[K, V], bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.search(key)
	if i == 0 {
		return Entry[K, V]{}, false, nil
	}
	k := l.keys[i-1]
	return Entry[K, V]{Key: k, Value: l.values[k]}, true, nil
}

// GetGT returns the entry with the least key strictly greater than key.
func (l *Loaded[K, V]) GetGT(key K) (Entry[K, V], bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.search(key)
	if i < len(l.keys) && l.keys[i] == key {
		i++
	}
	if i >= len(l.keys) {
		return Entry[K, V]{}, false, nil
	}
	k := l.keys[i]
	return Entry[K, V]{Key: k, Value: l.values[k]}, true, nil
}

// First returns the entry with the least key.
func (l *Loaded[K, V]) First() (Entry[K, V], bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.keys) == 0 {
		return Entry[K, V]{}, false, nil
	}
	k := l.keys[0]
	return Entry[K, V]{Key: k, Value: l.values[k]}, true, nil
}

// Last returns the entry with the greatest key.
func (l *Loaded[K, V]) Last() (Entry[K, V], bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.keys) == 0 {
		return Entry[K, V]{}, false, nil
	}
	k := l.keys[len(l.keys)-1]
	return Entry[K, V]{Key: k, Value: l.values[k]}, true, nil
}

// IsEmpty reports whether the store has no entries.
func (l *Loaded[K, V]) IsEmpty() (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.keys) == 0, nil
}

// Iter returns every entry in key order.
func (l *Loaded[K, V]) Iter() (iter.Seq[Entry[K, V]], error) {
	return l.Range(Unbounded[K](), Unbounded[K]())
}

// Range returns every entry whose key falls between lo and hi, in key order.
// Each bound is inclusive, exclusive or unbounded as given.
func (l *Loaded[K, V]) Range(lo, hi Bound[K]) (iter.Seq[Entry[K, V]], error) {
	l.mu.RLock()
	start := 0
	if !lo.IsUnbounded() {
		start = l.search(lo.Value())
		if !lo.Inclusive() && start < len(l.keys) && l.keys[start] == lo.Value() {
			start++
		}
	}
	end := len(l.keys)
	if !hi.IsUnbounded() {
		end = l.search(hi.Value())
		if hi.Inclusive() && end < len(l.keys) && l.keys[end] == hi.Value() {
			end++
		}
	}
	snapshot := make([]Entry[K, V], 0, end-start)
	for _, k := range l.keys[start:end] {
		snapshot = append(snapshot, Entry[K, V]{Key: k, Value: l.values[k]})
	}
	l.mu.RUnlock()

	return func(yield func(Entry[K, V]) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}, nil
}

// Insert stores value under key, returning the previous value if any.
func (l *Loaded[K, V]) Insert(key K, value V) (V, bool, error) {
	var old V
	var had bool
	l.mu.Lock()
	old, had = l.values[key]
	if !had {
		i := l.search(key)
		l.keys = append(l.keys, key)
		copy(l.keys[i+1:], l.keys[i:])
		l.keys[i] = key
	}
	l.values[key] = value
	l.mu.Unlock()

	l.sync.Outgoing(1)
	l.watcher.Send(Insert(key, value))
	return old, had, nil
}

// Remove deletes key, returning the value it held if any.
func (l *Loaded[K, V]) Remove(key K) (V, bool, error) {
	l.mu.Lock()
	old, had := l.values[key]
	if had {
		delete(l.values, key)
		i := l.search(key)
		l.keys = append(l.keys[:i], l.keys[i+1:]...)
	}
	l.mu.Unlock()

	l.sync.Outgoing(1)
	l.watcher.Send(Remove[K, V](key))
	return old, had, nil
}

// Clear removes every entry.
func (l *Loaded[K, V]) Clear() error {
	l.mu.Lock()
	l.keys = nil
	l.values = make(map[K]V)
	l.mu.Unlock()
	return nil
}

// FetchAndUpdate atomically replaces the value at key.
func (l *Loaded[K, V]) FetchAndUpdate(key K, f func(old V, had bool) (V, bool)) (V, bool, error) {
	l.mu.Lock()
	old, had := l.values[key]
	newV, write := f(old, had)
	if write {
		if !had {
			i := l.search(key)
			l.keys = append(l.keys, key)
			copy(l.keys[i+1:], l.keys[i:])
			l.keys[i] = key
		}
		l.values[key] = newV
	} else if had {
		delete(l.values, key)
		i := l.search(key)
		l.keys = append(l.keys[:i], l.keys[i+1:]...)
	}
	l.mu.Unlock()

	l.sync.Outgoing(1)
	if write {
		l.watcher.Send(Insert(key, newV))
	} else {
		l.watcher.Send(Remove[K, V](key))
	}
	return old, had, nil
}

// Watch subscribes to this store's change stream.
func (l *Loaded[K, V]) Watch() *bus.Reader[Event[K, V]] {
	return l.watcher.NewReader()
}

// Db returns the database this store belongs to.
func (l *Loaded[K, V]) Db() *Db {
	return l.db
}

// Sync returns the synchronizer tracking this store's quiescence.
func (l *Loaded[K, V]) Sync() *quiesce.Synchronizer {
	return l.sync
}

// Wait blocks until every event currently in flight into this store has
// been applied.
func (l *Loaded[K, V]) Wait() {
	l.sync.Wait()
}
