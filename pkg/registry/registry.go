package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/screa/puzzle-hunter/internal/logger"
	"github.com/screa/puzzle-hunter/pkg/sampler"
	"github.com/screa/puzzle-hunter/pkg/types"
)

// Errors
var (
	ErrNoPuzzles         = errors.New("puzzle list contains no usable entries")
	ErrNoEligibleTargets = errors.New("no puzzles pass the configured filters")
)

// Registry holds the vetted puzzle list for the lifetime of the
// process. It is immutable after construction, so reads need no lock.
type Registry struct {
	puzzles  []*types.Puzzle
	byNumber map[int]*types.Puzzle
}

// Load reads a puzzle list from a JSON file and vets every entry.
func Load(path string, log *logger.Logger) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read puzzle file: %w", err)
	}

	var puzzles []types.Puzzle
	if err := json.Unmarshal(data, &puzzles); err != nil {
		return nil, fmt.Errorf("parse puzzle file %s: %w", path, err)
	}
	return New(puzzles, log)
}

// New builds a registry from an in-memory puzzle list. Entries that
// fail vetting are logged and skipped so one bad record cannot take
// the whole list down.
func New(puzzles []types.Puzzle, log *logger.Logger) (*Registry, error) {
	r := &Registry{byNumber: make(map[int]*types.Puzzle)}
	for i := range puzzles {
		p := puzzles[i]
		if err := vet(&p); err != nil {
			log.Printf("Skipping puzzle %d: %v", p.Number, err)
			continue
		}
		if _, dup := r.byNumber[p.Number]; dup {
			log.Printf("Skipping duplicate puzzle %d", p.Number)
			continue
		}
		r.puzzles = append(r.puzzles, &p)
		r.byNumber[p.Number] = &p
	}
	if len(r.puzzles) == 0 {
		return nil, ErrNoPuzzles
	}
	return r, nil
}

// vet parses the range bounds and checks the target address.
func vet(p *types.Puzzle) error {
	if p.Bits <= 0 || p.Bits > 256 {
		return fmt.Errorf("bit width %d out of range", p.Bits)
	}

	low, err := sampler.ParseHex(p.RangeStart)
	if err != nil {
		return fmt.Errorf("range start: %w", err)
	}
	high, err := sampler.ParseHex(p.RangeEnd)
	if err != nil {
		return fmt.Errorf("range end: %w", err)
	}
	rng, err := sampler.NewRange(low, high)
	if err != nil {
		return err
	}

	addr, err := btcutil.DecodeAddress(p.Address, &chaincfg.MainNetParams)
	if err != nil {
		return fmt.Errorf("address %s: %w", p.Address, err)
	}
	if _, ok := addr.(*btcutil.AddressPubKeyHash); !ok {
		return fmt.Errorf("address %s is not pay-to-pubkey-hash", p.Address)
	}

	p.Range = rng
	return nil
}

// All returns every vetted puzzle in list order.
func (r *Registry) All() []*types.Puzzle {
	return r.puzzles
}

// Len returns the number of vetted puzzles.
func (r *Registry) Len() int {
	return len(r.puzzles)
}

// ByNumber returns the puzzle with the given number, or nil.
func (r *Registry) ByNumber(n int) *types.Puzzle {
	return r.byNumber[n]
}

// Eligible returns the puzzles that pass the filter, in list order.
func (r *Registry) Eligible(f types.Filter) []*types.Puzzle {
	var out []*types.Puzzle
	for _, p := range r.puzzles {
		if f.Allows(p) {
			out = append(out, p)
		}
	}
	return out
}

// Pick selects one eligible puzzle uniformly at random.
func (r *Registry) Pick(rng *rand.Rand, f types.Filter) (*types.Puzzle, error) {
	eligible := r.Eligible(f)
	if len(eligible) == 0 {
		return nil, ErrNoEligibleTargets
	}
	return eligible[rng.Intn(len(eligible))], nil
}
