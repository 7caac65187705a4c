package sampler

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"strings"
)

// ScalarSize is the width of a private key scalar in bytes.
const ScalarSize = 32

// Errors
var (
	ErrEmptyHex      = errors.New("empty hex scalar")
	ErrHexTooLong    = errors.New("hex scalar longer than 64 digits")
	ErrRangeInverted = errors.New("range start exceeds range end")
)

// Scalar is a 256-bit unsigned integer stored as big-endian bytes.
// The fixed layout keeps draws and comparisons free of heap allocations.
type Scalar [ScalarSize]byte

// ParseHex parses a hex string (with or without 0x prefix) into a Scalar.
// Short strings are left-padded with zeros.
func ParseHex(s string) (Scalar, error) {
	var out Scalar
	h := strings.TrimSpace(s)
	if len(h) >= 2 && (h[0:2] == "0x" || h[0:2] == "0X") {
		h = h[2:]
	}
	if h == "" {
		return out, ErrEmptyHex
	}
	if len(h) > 2*ScalarSize {
		return out, ErrHexTooLong
	}
	if len(h)%2 != 0 {
		h = "0" + h
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return out, fmt.Errorf("invalid hex scalar: %w", err)
	}
	copy(out[ScalarSize-len(raw):], raw)
	return out, nil
}

// Hex returns the scalar as 64 lowercase hex digits.
func (s Scalar) Hex() string {
	return hex.EncodeToString(s[:])
}

// Cmp compares two scalars, returning -1, 0, or 1.
func (s Scalar) Cmp(other Scalar) int {
	return bytes.Compare(s[:], other[:])
}

// IsZero reports whether every byte of the scalar is zero.
func (s Scalar) IsZero() bool {
	return s == Scalar{}
}

// BitLen returns the minimum number of bits needed to represent the
// scalar. BitLen of zero is 0.
func (s Scalar) BitLen() int {
	for i := 0; i < ScalarSize; i++ {
		if s[i] != 0 {
			return (ScalarSize-i-1)*8 + bits.Len8(s[i])
		}
	}
	return 0
}

// sub returns a-b. The caller must ensure a >= b.
func sub(a, b Scalar) Scalar {
	var out Scalar
	var borrow uint16
	for i := ScalarSize - 1; i >= 0; i-- {
		d := uint16(a[i]) - uint16(b[i]) - borrow
		out[i] = byte(d)
		borrow = (d >> 15) & 1
	}
	return out
}

// add returns a+b. Callers keep the operands small enough that the
// result fits in 256 bits.
func add(a, b Scalar) Scalar {
	var out Scalar
	var carry uint16
	for i := ScalarSize - 1; i >= 0; i-- {
		sum := uint16(a[i]) + uint16(b[i]) + carry
		out[i] = byte(sum)
		carry = sum >> 8
	}
	return out
}

// Range is an inclusive span of scalars with the draw geometry
// precomputed: how many entropy bytes one candidate needs and the mask
// that trims the top byte to the span's bit width.
type Range struct {
	low       Scalar
	high      Scalar
	span      Scalar // high - low
	spanBytes int
	topMask   byte
}

// NewRange builds a range over [low, high]. Both bounds are inclusive
// and low must not exceed high.
func NewRange(low, high Scalar) (*Range, error) {
	if low.Cmp(high) > 0 {
		return nil, ErrRangeInverted
	}
	r := &Range{low: low, high: high, span: sub(high, low)}
	bl := r.span.BitLen()
	r.spanBytes = (bl + 7) / 8
	if rem := bl % 8; rem == 0 {
		r.topMask = 0xff
	} else {
		r.topMask = byte(1<<rem) - 1
	}
	return r, nil
}

// Low returns the inclusive lower bound.
func (r *Range) Low() Scalar { return r.low }

// High returns the inclusive upper bound.
func (r *Range) High() Scalar { return r.high }

// BitLen returns the bit length of the upper bound, the usual way a
// puzzle range is sized.
func (r *Range) BitLen() int { return r.high.BitLen() }

// Contains reports whether s falls inside the range.
func (r *Range) Contains(s Scalar) bool {
	return s.Cmp(r.low) >= 0 && s.Cmp(r.high) <= 0
}

// Draw samples a uniformly distributed scalar from the range using
// entropy read from rnd. Candidates above the span are rejected and
// redrawn; masking the top byte to the span's bit width keeps the
// rejection rate below one half per attempt.
func (r *Range) Draw(rnd io.Reader) (Scalar, error) {
	if r.spanBytes == 0 {
		return r.low, nil
	}
	var offset Scalar
	chunk := offset[ScalarSize-r.spanBytes:]
	for {
		if _, err := io.ReadFull(rnd, chunk); err != nil {
			return Scalar{}, fmt.Errorf("read entropy: %w", err)
		}
		chunk[0] &= r.topMask
		if offset.Cmp(r.span) <= 0 {
			return add(r.low, offset), nil
		}
	}
}
