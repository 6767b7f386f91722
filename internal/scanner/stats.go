package scanner

import "sync/atomic"

// Stats tracks how much of a partition's input the scanner actually turned
// into rows. This mirrors the teacher's internal/parsing.ParseStats: lflog
// has no HTTP dashboard to surface it on, but the physical scan node
// aggregates it per table and the CLI logs it at Debug when a query
// completes (spec §5: "a parse exception in one line never terminates the
// partition... the line is dropped" — Stats is how an operator observes
// that silent drop).
type Stats struct {
	linesScanned int64
	linesMatched int64
	linesSkipped int64
}

func (s *Stats) RecordMatch() {
	atomic.AddInt64(&s.linesScanned, 1)
	atomic.AddInt64(&s.linesMatched, 1)
}

func (s *Stats) RecordSkip() {
	atomic.AddInt64(&s.linesScanned, 1)
	atomic.AddInt64(&s.linesSkipped, 1)
}

func (s *Stats) Snapshot() (scanned, matched, skipped int64) {
	return atomic.LoadInt64(&s.linesScanned),
		atomic.LoadInt64(&s.linesMatched),
		atomic.LoadInt64(&s.linesSkipped)
}

// Add merges other's counts into s, for aggregating per-partition stats
// into a whole-scan total.
func (s *Stats) Add(other *Stats) {
	scanned, matched, skipped := other.Snapshot()
	atomic.AddInt64(&s.linesScanned, scanned)
	atomic.AddInt64(&s.linesMatched, matched)
	atomic.AddInt64(&s.linesSkipped, skipped)
}
