package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandom_Deterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}

	c := New(43)
	assert.NotEqual(t, New(42).Uint64(), c.Uint64())
}

func TestRandom_Reset(t *testing.T) {
	r := New(7)
	first := r.Uint64()
	r.Uint64()
	r.Reset()
	assert.Equal(t, first, r.Uint64())
}

func TestRandom_StateRoundTrip(t *testing.T) {
	r := New(9)
	for i := 0; i < 10; i++ {
		r.Uint64()
	}

	state := make([]byte, StateSize)
	require.NoError(t, r.MarshalState(state))
	want := r.Uint64()

	resumed := New(9)
	require.NoError(t, resumed.UnmarshalState(state))
	assert.Equal(t, want, resumed.Uint64())
}

func TestRandom_ZeroStateMeansSeed(t *testing.T) {
	r := New(11)
	r.Uint64()
	require.NoError(t, r.UnmarshalState(make([]byte, StateSize)))
	assert.Equal(t, New(11).Uint64(), r.Uint64())
}

func TestRandom_InvalidState(t *testing.T) {
	r := New(1)
	assert.ErrorIs(t, r.UnmarshalState([]byte{1, 2}), ErrInvalidState)

	garbage := make([]byte, StateSize)
	copy(garbage, "xyz:")
	assert.ErrorIs(t, r.UnmarshalState(garbage), ErrInvalidState)
}

func TestSalts(t *testing.T) {
	s := Salts(5, 3)
	require.Len(t, s, 3)
	assert.Equal(t, s, Salts(5, 3))
	assert.NotEqual(t, s[0], s[1])
	assert.NotEqual(t, s, Salts(6, 3))
}

func TestRandom_Uint64N(t *testing.T) {
	r := New(3)
	for i := 0; i < 1000; i++ {
		assert.Less(t, r.Uint64N(10), uint64(10))
	}
}
