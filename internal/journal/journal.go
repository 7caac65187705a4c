package journal

import (
	"fmt"
	"os"
	"sync"

	"github.com/screa/puzzle-hunter/pkg/types"
)

// timeLayout is the timestamp format used in the solutions log.
const timeLayout = "2006-01-02 15:04:05 UTC"

// Journal appends solved puzzles to a log file. Each append opens,
// writes, syncs and closes the file, so a line is on disk before the
// call returns.
type Journal struct {
	path string
	mu   sync.Mutex
}

// New creates a journal writing to path. The file is created on the
// first append, with owner-only permissions since it holds private keys.
func New(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one solved line and syncs it to disk before returning.
func (j *Journal) Append(m *types.Match, p *types.Puzzle) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open solutions log: %w", err)
	}
	defer f.Close()

	reward := 0.0
	if p != nil {
		reward = p.RewardBTC
	}
	line := fmt.Sprintf("[%s] PUZZLE %d SOLVED - Private Key: %s, Address: %s, Reward: %.8f BTC\n",
		m.FoundAt.UTC().Format(timeLayout), m.Puzzle, m.PrivateKeyHex, m.Address, reward)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write solution: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync solutions log: %w", err)
	}
	return nil
}
