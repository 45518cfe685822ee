// Package testutil provides testing utilities for dframe.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, goroutine-safe random source for row data and
// row masks.
//
//	rng := testutil.NewRNG(seed)
//	rows := rng.UniformRows(5000, 10)  // uniform [0, 1)
//	mask := rng.RunMask(5000, 200)     // alternating random runs
package testutil
