// Package seqlock implements a single-writer/multi-reader
// versioned-snapshot structure (spec §4.2.3, §5): the writer increments
// a version counter, writes the payload, then increments the version
// again; readers retry until they observe an unchanging even version
// bracketing their read. No reader ever blocks the writer and no
// reader ever observes a torn snapshot.
package seqlock

import "sync/atomic"

// SeqLock publishes snapshots of T from a single writer goroutine to
// any number of concurrent readers without locking on the read path.
// The writer must not be called concurrently with itself.
type SeqLock[T any] struct {
	version atomic.Uint64
	value   T
}

// New returns a SeqLock initialized with an initial snapshot.
func New[T any](initial T) *SeqLock[T] {
	s := &SeqLock[T]{}
	s.value = initial
	return s
}

// Write publishes a new snapshot. The version is odd for the duration
// of the copy so concurrent readers know to retry.
func (s *SeqLock[T]) Write(v T) {
	s.version.Add(1) // now odd: a write is in progress
	s.value = v
	s.version.Add(1) // now even: the write is visible
}

// Read returns the most recently published snapshot. It spins only
// while a write is concurrently in flight, which is at most the width
// of one assignment of T.
func (s *SeqLock[T]) Read() T {
	for {
		before := s.version.Load()
		if before%2 != 0 {
			continue // writer in progress, retry
		}
		snapshot := s.value
		after := s.version.Load()
		if before == after {
			return snapshot
		}
	}
}
