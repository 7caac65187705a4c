package stats

import (
	"sync"
	"time"

	"github.com/screa/puzzle-hunter/pkg/types"
)

// Stats aggregates the counters shared by every worker. A single mutex
// guards all fields so a snapshot is always internally consistent.
type Stats struct {
	mu            sync.RWMutex
	trials        uint64
	sessions      uint64
	matches       uint64
	currentPuzzle int
	startedAt     time.Time
}

// New creates a stats collector with the start time set to now.
func New() *Stats {
	return &Stats{startedAt: time.Now()}
}

// AddTrials adds a batch of completed trials to the running total.
// Workers flush local counters in batches to keep lock traffic low.
func (s *Stats) AddTrials(n uint64) {
	s.mu.Lock()
	s.trials += n
	s.mu.Unlock()
}

// CompleteSession records one finished burst.
func (s *Stats) CompleteSession() {
	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()
}

// RecordMatch increments the match counter.
func (s *Stats) RecordMatch() {
	s.mu.Lock()
	s.matches++
	s.mu.Unlock()
}

// SetCurrentPuzzle records the puzzle a worker most recently drew from.
func (s *Stats) SetCurrentPuzzle(n int) {
	s.mu.Lock()
	s.currentPuzzle = n
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of every counter.
func (s *Stats) Snapshot() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.Snapshot{
		Trials:        s.trials,
		Sessions:      s.sessions,
		Matches:       s.matches,
		CurrentPuzzle: s.currentPuzzle,
		StartedAt:     s.startedAt,
	}
}
