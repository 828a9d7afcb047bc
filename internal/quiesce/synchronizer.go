// Package quiesce tracks how far a stage has fallen behind the stages that
// feed it, so a reader can wait for "no more events in flight" without a
// global barrier. Each stage owns a Synchronizer; every event a stage emits
// bumps its own outgoing count, and every event a downstream goroutine
// finishes applying bumps that goroutine's received count. A stage is quiet
// when it has received as many events as its sources have sent, recursively.
package quiesce

import (
	"sync"
	"sync/atomic"
)

// Synchronizer coordinates quiescence between a stage and the stages that
// feed it. The zero value (via New) is a root synchronizer with no sources:
// it reports quiet immediately, which is correct for a base store that has
// no upstream stage pushing events into it asynchronously.
type Synchronizer struct {
	mu     sync.RWMutex
	source []*Synchronizer

	received atomic.Uint32
	outgoing atomic.Uint32

	waitMu  sync.Mutex
	waiting []chan struct{}
}

// New returns a root synchronizer with no sources.
func New() *Synchronizer {
	return &Synchronizer{}
}

// From returns a synchronizer seeded from the given sources, with its
// received count initialized to their current outgoing totals. This mirrors
// what happens when a stage subscribes after its sources have already
// emitted events: without this seed the stage would wait forever for events
// that were broadcast before it started listening.
func From(sources []*Synchronizer) *Synchronizer {
	s := &Synchronizer{source: append([]*Synchronizer(nil), sources...)}
	s.received.Store(s.incoming())
	return s
}

// PushSource adds another synchronizer as a source. Used when a stage gains
// an additional upstream dependency after construction (Pipe).
func (s *Synchronizer) PushSource(src *Synchronizer) {
	s.mu.Lock()
	s.source = append(s.source, src)
	s.mu.Unlock()
}

// Reset realigns received with the current incoming total. Called after a
// rebuild-from-scratch, where events seen during iteration must not be
// double-counted against events the source will replay asynchronously.
func (s *Synchronizer) Reset() {
	s.received.Store(s.incoming())
}

func (s *Synchronizer) incoming() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint32
	for _, src := range s.source {
		total += src.outgoing.Load()
	}
	return total
}

func (s *Synchronizer) isSync() bool {
	received := s.received.Load()
	incoming := s.incoming()

	s.mu.RLock()
	sources := s.source
	s.mu.RUnlock()
	for _, src := range sources {
		if !src.isSync() {
			return false
		}
	}
	// Equality, not >=: received and incoming both wrap at the same rate,
	// so the comparison stays correct across uint32 overflow.
	return received == incoming
}

// Received records that one incoming event has been fully applied. Wakes
// any goroutines parked in Wait if this makes the synchronizer quiet.
func (s *Synchronizer) Received() {
	s.received.Add(1)
	if s.isSync() {
		s.wake()
	}
}

// Outgoing records that n events have been broadcast downstream.
func (s *Synchronizer) Outgoing(n uint32) {
	s.outgoing.Add(n)
}

func (s *Synchronizer) wake() {
	s.waitMu.Lock()
	waiting := s.waiting
	s.waiting = nil
	s.waitMu.Unlock()
	for _, ch := range waiting {
		close(ch)
	}
}

// Wait blocks until the synchronizer is quiet: every event its sources have
// emitted (recursively) has been received and applied here.
func (s *Synchronizer) Wait() {
	for {
		if s.isSync() {
			return
		}
		ch := make(chan struct{})
		s.waitMu.Lock()
		s.waiting = append(s.waiting, ch)
		s.waitMu.Unlock()
		// Re-check after registering: the quiescing event may have fired
		// between the check above and the registration.
		if s.isSync() {
			return
		}
		<-ch
	}
}

var (
	registryMu sync.Mutex
	registry   []*Synchronizer
)

// Register adds s to the process-wide registry used by WaitAll. Stores call
// this once at construction.
func Register(s *Synchronizer) {
	registryMu.Lock()
	registry = append(registry, s)
	registryMu.Unlock()
}

// WaitAll blocks until every registered synchronizer is quiet. Useful in
// tests and shutdown paths that want to drain the whole pipeline.
func WaitAll() {
	registryMu.Lock()
	snapshot := append([]*Synchronizer(nil), registry...)
	registryMu.Unlock()
	for _, s := range snapshot {
		s.Wait()
	}
}
