package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/screa/puzzle-hunter/pkg/sampler"
)

// AddressMode selects which P2PKH encodings are derived for each
// candidate key.
type AddressMode string

// Address modes
const (
	ModeCompressed   AddressMode = "compressed"
	ModeUncompressed AddressMode = "uncompressed"
	ModeBoth         AddressMode = "both"
)

// ParseAddressMode parses a mode name, case-insensitively.
func ParseAddressMode(s string) (AddressMode, error) {
	switch m := AddressMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCompressed, ModeUncompressed, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("unknown address mode %q (use compressed, uncompressed or both)", s)
	}
}

// Puzzle is one entry from the puzzle list: a published address whose
// private key is known to lie inside a fixed scalar range.
type Puzzle struct {
	Number     int     `json:"puzzle"`
	Bits       int     `json:"bits"`
	RangeStart string  `json:"range_start"`
	RangeEnd   string  `json:"range_end"`
	Address    string  `json:"address"`
	RewardBTC  float64 `json:"reward_btc"`

	// Range holds the parsed bounds, populated when the registry vets
	// the entry.
	Range *sampler.Range `json:"-"`
}

// Filter narrows the puzzle set a session draws targets from.
type Filter struct {
	MinBits   int
	MaxBits   int // 0 disables the upper bound
	MinReward float64
}

// Allows reports whether the puzzle passes every filter predicate.
func (f Filter) Allows(p *Puzzle) bool {
	if p.Bits < f.MinBits {
		return false
	}
	if f.MaxBits > 0 && p.Bits > f.MaxBits {
		return false
	}
	return p.RewardBTC >= f.MinReward
}

// Match records a drawn scalar whose derived address equals a puzzle's
// target address.
type Match struct {
	Puzzle        int
	PrivateKeyHex string
	Address       string
	Encoding      string // "compressed" or "uncompressed"
	FoundAt       time.Time
	Persisted     bool
}

// Snapshot is a consistent copy of the shared search counters.
type Snapshot struct {
	Trials        uint64
	Sessions      uint64
	Matches       uint64
	CurrentPuzzle int
	StartedAt     time.Time
}

// Uptime returns the time elapsed since counting started.
func (s Snapshot) Uptime() time.Duration {
	return time.Since(s.StartedAt)
}

// Rate returns trials per second over the whole uptime.
func (s Snapshot) Rate() float64 {
	secs := s.Uptime().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Trials) / secs
}
