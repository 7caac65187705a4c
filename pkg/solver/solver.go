package solver

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	mrand "math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/screa/puzzle-hunter/internal/config"
	"github.com/screa/puzzle-hunter/internal/crypto"
	"github.com/screa/puzzle-hunter/internal/logger"
	"github.com/screa/puzzle-hunter/pkg/registry"
	"github.com/screa/puzzle-hunter/pkg/stats"
	"github.com/screa/puzzle-hunter/pkg/types"
	"github.com/screa/puzzle-hunter/pkg/worker"
)

// State is the lifecycle phase of the solver loop.
type State int32

// Solver states
const (
	StateIdle State = iota
	StateRunning
	StateResting
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateResting:
		return "resting"
	default:
		return "idle"
	}
}

const (
	// statsFlushInterval is how many trials a worker completes before
	// flushing its local counter to the shared stats.
	statsFlushInterval = 256

	// matchBuffer is the capacity of the worker-to-consumer match channel.
	matchBuffer = 16

	// maxDrawFailures is how many consecutive entropy errors a worker
	// tolerates before giving up for the session.
	maxDrawFailures = 32

	persistAttempts = 3
	persistBackoff  = 200 * time.Millisecond
	notifyAttempts  = 3
	notifyBackoff   = 2 * time.Second
)

// Journal persists matches durably.
type Journal interface {
	Append(m *types.Match, p *types.Puzzle) error
}

// Notifier pushes match and error reports to an external channel.
type Notifier interface {
	NotifyMatch(m *types.Match, p *types.Puzzle) error
	NotifyError(msg string) error
}

// Solver owns the burst-and-rest search loop: Idle until started,
// Running for a fixed session, Resting between sessions. Start and
// Stop flip a flag that workers observe at trial boundaries, so a stop
// never discards partial counts.
type Solver struct {
	config   *config.Config
	logger   *logger.Logger
	registry *registry.Registry
	stats    *stats.Stats
	journal  Journal
	notifier Notifier

	entropy io.Reader
	active  atomic.Bool
	state   atomic.Int32
	wake    chan struct{}

	mu   sync.Mutex
	seen map[string]struct{} // winning scalars already handled
}

// NewSolver wires the solver. journal must be non-nil; notifier may be
// nil when no control plane is configured.
func NewSolver(cfg *config.Config, reg *registry.Registry, st *stats.Stats, jrnl Journal, ntf Notifier, log *logger.Logger) *Solver {
	return &Solver{
		config:   cfg,
		logger:   log,
		registry: reg,
		stats:    st,
		journal:  jrnl,
		notifier: ntf,
		entropy:  rand.Reader,
		wake:     make(chan struct{}, 1),
		seen:     make(map[string]struct{}),
	}
}

// Start arms the solver; the loop picks it up at the next checkpoint.
func (s *Solver) Start() {
	if s.active.CompareAndSwap(false, true) {
		s.logger.Println("Solver started")
		s.nudge()
	}
}

// Stop disarms the solver. Workers exit at their next trial boundary.
func (s *Solver) Stop() {
	if s.active.CompareAndSwap(true, false) {
		s.logger.Println("Solver stopping")
		s.nudge()
	}
}

// Active reports whether the solver is armed.
func (s *Solver) Active() bool {
	return s.active.Load()
}

// CurrentState returns the lifecycle phase the loop is in right now.
func (s *Solver) CurrentState() State {
	return State(s.state.Load())
}

// StateName returns the phase as a lowercase string.
func (s *Solver) StateName() string {
	return s.CurrentState().String()
}

// nudge wakes the loop without blocking; the buffer of one collapses
// repeated nudges.
func (s *Solver) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the state machine until ctx is cancelled.
func (s *Solver) Run(ctx context.Context) {
	defer s.state.Store(int32(StateIdle))
	for {
		if ctx.Err() != nil {
			return
		}

		if !s.active.Load() {
			s.state.Store(int32(StateIdle))
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		s.state.Store(int32(StateRunning))
		if err := s.runSession(ctx); err != nil {
			if errors.Is(err, registry.ErrNoEligibleTargets) {
				s.active.Store(false)
				s.logger.Println("No puzzles pass the configured filters, solver going idle")
				s.notifyError("No puzzles pass the configured filters. Adjust min-bits, max-bits or min-reward and send /start again.")
				continue
			}
			s.logger.Printf("Session aborted: %v", err)
		}
		if ctx.Err() != nil || !s.active.Load() {
			continue
		}

		s.state.Store(int32(StateResting))
		s.logger.Printf("Resting for %s", s.config.RestDuration)
		timer := time.NewTimer(s.config.RestDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// runSession runs one timed burst: a worker pool feeding a single
// match consumer.
func (s *Solver) runSession(ctx context.Context) error {
	filter := s.config.Filter()
	eligible := s.registry.Eligible(filter)
	if len(eligible) == 0 {
		return registry.ErrNoEligibleTargets
	}

	sessCtx, cancel := context.WithTimeout(ctx, s.config.SessionDuration)
	defer cancel()

	before := s.stats.Snapshot()
	start := time.Now()
	s.logger.Printf("Session starting: %d workers, %d eligible puzzles, %s burst",
		s.config.Workers, len(eligible), s.config.SessionDuration)

	matches := make(chan *types.Match, matchBuffer)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		s.consume(matches, cancel)
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.runWorker(sessCtx, id, eligible, matches)
		}(i)
	}
	wg.Wait()
	close(matches)
	<-consumed

	s.stats.CompleteSession()
	after := s.stats.Snapshot()
	elapsed := time.Since(start)
	trials := after.Trials - before.Trials
	rate := 0.0
	if elapsed.Seconds() > 0 {
		rate = float64(trials) / elapsed.Seconds()
	}
	s.logger.Printf("Session #%d complete: %d keys in %s (%.0f keys/sec)",
		after.Sessions, trials, elapsed.Round(time.Millisecond), rate)
	return nil
}

// runWorker is the per-goroutine trial loop. Counters stay local and
// are flushed in batches; the tail flush in the deferred block keeps
// session totals exact.
func (s *Solver) runWorker(ctx context.Context, id int, eligible []*types.Puzzle, matches chan<- *types.Match) {
	rng := mrand.New(mrand.NewSource(time.Now().UnixNano() ^ int64(id)<<32))
	w := worker.NewWorker(eligible, s.config.Mode(), s.entropy, rng)
	s.logger.Debugf("worker %d online with %d puzzles", id, len(eligible))

	var pending uint64
	var last int
	defer func() {
		if pending > 0 {
			s.stats.AddTrials(pending)
		}
		if last != 0 {
			s.stats.SetCurrentPuzzle(last)
		}
	}()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !s.active.Load() {
			return
		}

		m, p, err := w.Trial()
		if err != nil {
			if errors.Is(err, crypto.ErrInvalidScalar) {
				// Drawn scalar fell outside [1, N-1]; redraw.
				continue
			}
			failures++
			if failures >= maxDrawFailures {
				s.logger.Printf("Worker %d stopping, entropy source failing: %v", id, err)
				return
			}
			continue
		}
		failures = 0

		pending++
		last = p.Number
		if pending >= statsFlushInterval {
			s.stats.AddTrials(pending)
			s.stats.SetCurrentPuzzle(last)
			pending = 0
		}

		if m != nil {
			matches <- m
		}
	}
}

// consume is the single sink for worker matches. It deduplicates,
// persists, then notifies, keeping slow IO off the trial path.
func (s *Solver) consume(matches <-chan *types.Match, cancel context.CancelFunc) {
	for m := range matches {
		if !s.firstSighting(m.PrivateKeyHex) {
			s.logger.Printf("Duplicate find for puzzle %d ignored", m.Puzzle)
			continue
		}
		p := s.registry.ByNumber(m.Puzzle)

		err := withRetry(persistAttempts, persistBackoff, func() error {
			return s.journal.Append(m, p)
		})
		m.Persisted = err == nil
		if err != nil {
			s.logger.Printf("FAILED to persist puzzle %d solution after %d attempts: %v", m.Puzzle, persistAttempts, err)
			s.logger.Printf("Recover the key manually: %s", m.PrivateKeyHex)
		}

		s.stats.RecordMatch()
		s.logger.Printf("PUZZLE %d SOLVED! Private key %s, address %s (%s)",
			m.Puzzle, m.PrivateKeyHex, m.Address, m.Encoding)

		if s.notifier != nil {
			if err := withRetry(notifyAttempts, notifyBackoff, func() error {
				return s.notifier.NotifyMatch(m, p)
			}); err != nil {
				s.logger.Printf("Match notification failed after %d attempts: %v", notifyAttempts, err)
			}
		}

		if s.config.StopOnFound {
			if s.active.CompareAndSwap(true, false) {
				s.logger.Println("Stopping after solve; send /start or restart to continue")
			}
			cancel()
		}
	}
}

// firstSighting records the scalar and reports whether it was new.
func (s *Solver) firstSighting(keyHex string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[keyHex]; ok {
		return false
	}
	s.seen[keyHex] = struct{}{}
	return true
}

func (s *Solver) notifyError(msg string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyError(msg); err != nil {
		s.logger.Printf("Error notification failed: %v", err)
	}
}

// withRetry runs fn up to attempts times with linearly growing backoff.
func withRetry(attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(backoff * time.Duration(i+1))
		}
	}
	return err
}
