package testutil

import (
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	pcg  *rand.PCG
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	pcg := rand.NewPCG(seed, seed)
	return &RNG{
		rand: rand.New(pcg),
		pcg:  pcg,
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pcg.Seed(r.seed, r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// IntN returns a non-negative pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Uint64N returns a pseudo-random number in [0,n).
func (r *RNG) Uint64N(n uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64N(n)
}

// Keys returns n distinct keys of size bytes (at least 8). The first 8
// bytes encode the key's index, the rest is random.
func (r *RNG) Keys(n, size int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	size = max(size, 8)
	data := make([]byte, n*size)
	keys := make([][]byte, n)
	for i := range n {
		k := data[i*size : (i+1)*size : (i+1)*size]
		binary.LittleEndian.PutUint64(k, uint64(i))
		for j := 8; j < size; j++ {
			k[j] = byte(r.rand.Uint32())
		}
		keys[i] = k
	}
	return keys
}

// Workload is a stream of key indexes with the exact count of every key.
type Workload struct {
	Keys   [][]byte
	Stream []int
	Counts []uint64
}

// Total returns the length of the stream.
func (w Workload) Total() uint64 {
	return uint64(len(w.Stream))
}

// ZipfWorkload draws n events over distinct keys with Zipf skew s (> 1).
// Key 0 is the most frequent.
func (r *RNG) ZipfWorkload(distinct, n int, s float64) Workload {
	keys := r.Keys(distinct, 16)

	r.mu.Lock()
	defer r.mu.Unlock()

	zipf := rand.NewZipf(r.rand, s, 1, uint64(distinct-1))
	w := Workload{
		Keys:   keys,
		Stream: make([]int, n),
		Counts: make([]uint64, distinct),
	}
	for i := range w.Stream {
		k := int(zipf.Uint64())
		w.Stream[i] = k
		w.Counts[k]++
	}
	return w
}

// UniformWorkload draws n events uniformly over distinct keys.
func (r *RNG) UniformWorkload(distinct, n int) Workload {
	keys := r.Keys(distinct, 16)

	r.mu.Lock()
	defer r.mu.Unlock()

	w := Workload{
		Keys:   keys,
		Stream: make([]int, n),
		Counts: make([]uint64, distinct),
	}
	for i := range w.Stream {
		k := r.rand.IntN(distinct)
		w.Stream[i] = k
		w.Counts[k]++
	}
	return w
}
