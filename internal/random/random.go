// Package random provides the deterministic pseudorandom stream a sketch
// draws its hash salts and approximate-counter rounding from.
//
// The stream is a PCG generator (math/rand/v2) whose sequence is fixed by
// its seed on every platform and Go release. Its state can be marshalled into
// StateSize bytes so a sketch file resumes the stream where it left off.
package random

import (
	"errors"
	"math/rand/v2"
)

// StateSize is the length of a marshalled stream state.
const StateSize = 20

// ErrInvalidState is returned when a persisted state cannot be restored.
var ErrInvalidState = errors.New("random: invalid state")

// golden separates the two PCG seed words.
const golden = 0x9E3779B97F4A7C15

// Random is a seeded stream. It is not safe for concurrent use.
type Random struct {
	seed uint64
	pcg  *rand.PCG
	rng  *rand.Rand
}

// New returns the stream for seed.
func New(seed uint64) *Random {
	pcg := rand.NewPCG(seed, seed^golden)
	return &Random{seed: seed, pcg: pcg, rng: rand.New(pcg)}
}

// Seed returns the seed the stream was created from.
func (r *Random) Seed() uint64 { return r.seed }

// Uint64 returns the next 64 random bits.
func (r *Random) Uint64() uint64 { return r.pcg.Uint64() }

// Uint64N returns a uniform value in [0, n). It panics if n == 0.
func (r *Random) Uint64N(n uint64) uint64 { return r.rng.Uint64N(n) }

// Reset rewinds the stream to its seed.
func (r *Random) Reset() { r.pcg.Seed(r.seed, r.seed^golden) }

// MarshalState writes the stream position into dst, which must hold
// StateSize bytes.
func (r *Random) MarshalState(dst []byte) error {
	b, err := r.pcg.MarshalBinary()
	if err != nil {
		return err
	}
	if len(b) != StateSize || len(dst) < StateSize {
		return ErrInvalidState
	}
	copy(dst, b)
	return nil
}

// UnmarshalState restores a position written by MarshalState. An all-zero
// src leaves the stream at its seed.
func (r *Random) UnmarshalState(src []byte) error {
	if len(src) < StateSize {
		return ErrInvalidState
	}
	if isZero(src[:StateSize]) {
		r.Reset()
		return nil
	}
	if err := r.pcg.UnmarshalBinary(src[:StateSize]); err != nil {
		return errors.Join(ErrInvalidState, err)
	}
	return nil
}

// Salts returns n values drawn from a fresh stream for seed. They depend on
// the seed alone, never on the position of any other stream.
func Salts(seed uint64, n int) []uint64 {
	r := New(seed)
	out := make([]uint64, n)
	for i := range out {
		out[i] = r.Uint64()
	}
	return out
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
