package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/screa/puzzle-hunter/pkg/types"
)

func TestStatsCounters(t *testing.T) {
	st := New()

	st.AddTrials(100)
	st.AddTrials(28)
	st.CompleteSession()
	st.CompleteSession()
	st.RecordMatch()
	st.SetCurrentPuzzle(71)

	snap := st.Snapshot()
	if snap.Trials != 128 {
		t.Errorf("Trials = %d, want 128", snap.Trials)
	}
	if snap.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", snap.Sessions)
	}
	if snap.Matches != 1 {
		t.Errorf("Matches = %d, want 1", snap.Matches)
	}
	if snap.CurrentPuzzle != 71 {
		t.Errorf("CurrentPuzzle = %d, want 71", snap.CurrentPuzzle)
	}
	if snap.StartedAt.IsZero() {
		t.Error("StartedAt not set")
	}
}

func TestStatsConcurrentAdds(t *testing.T) {
	st := New()

	const workers = 8
	const batches = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < batches; j++ {
				st.AddTrials(3)
			}
		}()
	}
	wg.Wait()

	if got := st.Snapshot().Trials; got != workers*batches*3 {
		t.Errorf("Trials = %d, want %d", got, workers*batches*3)
	}
}

func TestSnapshotRate(t *testing.T) {
	snap := types.Snapshot{
		Trials:    3600,
		StartedAt: time.Now().Add(-time.Hour),
	}
	if rate := snap.Rate(); rate < 0.9 || rate > 1.1 {
		t.Errorf("Rate() = %f, want about 1.0", rate)
	}

	fresh := types.Snapshot{StartedAt: time.Now().Add(time.Second)}
	if rate := fresh.Rate(); rate != 0 {
		t.Errorf("Rate() with no elapsed time = %f, want 0", rate)
	}
}
