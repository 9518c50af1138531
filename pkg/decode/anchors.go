package decode

import (
	"runtime"
	"sync"
)

// Anchor scans are embarrassingly parallel: every anchor reads disjoint
// input, and no anchor depends on another's result. parallelScan fans the
// range [0, n) out over workers, each appending to its own local list, and
// merges the lists in worker order afterward. Contiguous chunks merged in
// order mean the output preserves anchor order, so decode results stay
// deterministic.

// Below this many anchors, the fan-out overhead isn't worth it.
const minAnchorsPerWorker = 2048

func parallelScan[T any](n int, scan func(start, end int, out *[]T)) []T {
	nWorkers := runtime.NumCPU()
	if maxUseful := (n + minAnchorsPerWorker - 1) / minAnchorsPerWorker; nWorkers > maxUseful {
		nWorkers = maxUseful
	}
	if nWorkers <= 1 {
		out := []T{}
		scan(0, n, &out)
		return out
	}

	locals := make([][]T, nWorkers)
	chunk := (n + nWorkers - 1) / nWorkers
	wg := sync.WaitGroup{}
	for w := 0; w < nWorkers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			scan(start, end, &locals[w])
		}(w, start, end)
	}
	wg.Wait()

	total := 0
	for _, l := range locals {
		total += len(l)
	}
	merged := make([]T, 0, total)
	for _, l := range locals {
		merged = append(merged, l...)
	}
	return merged
}
