package worker

import (
	"io"
	"math/rand"
	"time"

	"github.com/screa/puzzle-hunter/internal/crypto"
	"github.com/screa/puzzle-hunter/pkg/types"
)

// Worker runs trials over a fixed set of eligible puzzles. Each worker
// owns its puzzle selector and entropy reader, so the trial loop needs
// no shared locks.
type Worker struct {
	puzzles []*types.Puzzle
	mode    types.AddressMode
	entropy io.Reader
	rng     *rand.Rand
}

// NewWorker creates a worker over a non-empty eligible puzzle set.
// entropy feeds the key draws; rng only shuffles which puzzle each
// trial targets.
func NewWorker(puzzles []*types.Puzzle, mode types.AddressMode, entropy io.Reader, rng *rand.Rand) *Worker {
	return &Worker{
		puzzles: puzzles,
		mode:    mode,
		entropy: entropy,
		rng:     rng,
	}
}

// Trial runs one draw-derive-compare cycle and reports which puzzle it
// targeted. A nil match with nil error is the common miss case.
func (w *Worker) Trial() (*types.Match, *types.Puzzle, error) {
	p := w.puzzles[w.rng.Intn(len(w.puzzles))]

	k, err := p.Range.Draw(w.entropy)
	if err != nil {
		return nil, p, err
	}

	compressed, uncompressed, err := crypto.DeriveAddresses(k, w.mode)
	if err != nil {
		return nil, p, err
	}

	var encoding string
	switch p.Address {
	case compressed:
		encoding = "compressed"
	case uncompressed:
		encoding = "uncompressed"
	default:
		return nil, p, nil
	}

	return &types.Match{
		Puzzle:        p.Number,
		PrivateKeyHex: k.Hex(),
		Address:       p.Address,
		Encoding:      encoding,
		FoundAt:       time.Now().UTC(),
	}, p, nil
}
