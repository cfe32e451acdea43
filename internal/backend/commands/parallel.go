package commands

import (
	"runtime"
	"sync"
)

// parallelRows runs fn over contiguous row bands of [0, n) using up to GOMAXPROCS workers.
func parallelRows(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	band := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += band {
		end := start + band
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}
