// Package testutil provides testing utilities for cmsketch.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic key generators and skewed workloads with exact
// ground-truth counts, so estimates can be checked against the truth.
//
//	rng := testutil.NewRNG(seed)
//	w := rng.ZipfWorkload(10_000, 1_000_000, 1.2)
//	for _, k := range w.Stream {
//	    sk.Inc(w.Keys[k])
//	}
//	// sk.Get(w.Keys[i]) >= w.Counts[i] for every i
package testutil
