// Package parallel partitions point-index ranges across goroutines for the
// embarrassingly-parallel per-point kernels used by the codec: the fused
// numeric kernels, Morton code computation, radix-sort counting, and chunk
// bit-pack/unpack. The radix sort's scatter step is not run through this
// package; it is a single sequential pass.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MinChunk is the smallest amount of work worth handing to its own
// goroutine; ranges shorter than this run inline on the caller's goroutine.
const MinChunk = 4096

// Range partitions [0, n) into contiguous chunks and runs fn over each
// chunk concurrently, one goroutine per available core. fn must not panic;
// a panic inside fn propagates as a panic from Range (errgroup does not
// recover). Range blocks until every chunk has run.
func Range(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if n < MinChunk || workers <= 1 {
		fn(0, n)
		return
	}

	var g errgroup.Group
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait() // fn never returns an error
}

// ReduceCounts runs fn(lo, hi) -> per-bucket counts over [0, n) on each
// worker's slice of the range and sums the partial results into a single
// counts slice of length numBuckets. Used by the chunked codec's radix sort
// to tally per-digit bucket counts without a shared mutable accumulator.
func ReduceCounts(n, numBuckets int, fn func(lo, hi int, counts []int)) []int {
	total := make([]int, numBuckets)
	if n <= 0 {
		return total
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if n < MinChunk || workers <= 1 {
		fn(0, n, total)
		return total
	}

	partials := make([][]int, workers)
	var g errgroup.Group
	chunk := (n + workers - 1) / workers
	w := 0
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		idx := w
		lo, hi := lo, hi
		partials[idx] = make([]int, numBuckets)
		g.Go(func() error {
			fn(lo, hi, partials[idx])
			return nil
		})
		w++
	}
	_ = g.Wait()
	for _, p := range partials {
		for b, c := range p {
			total[b] += c
		}
	}
	return total
}
