package observer

import "sync/atomic"

// sequencer assigns a monotonically increasing number to every published
// change event, so subscribers can detect gaps left by dropped events.
//
// Adapted from the teacher's testutil.DeterministicClock: same
// increment-and-return shape, but promoted out of test-only code since
// here the sequence is a real production invariant (spec.md §5 "events for
// a single transaction are published as one atomic batch, in the order the
// pre-update hook fired"), not a test determinism aid.
type sequencer struct {
	n atomic.Uint64
}

// next returns the next sequence number. The first call returns 1.
func (s *sequencer) next() uint64 {
	return s.n.Add(1)
}
