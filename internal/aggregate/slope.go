package aggregate

import (
	"runtime"
	"sync"
	"time"
)

// WeeklySlope computes, per key, the ordinary least-squares slope of event
// count versus bucket index, where bucket index = whole days back from the
// anchor divided by bucketDays. Fewer than two populated buckets, or zero
// bucket-index variance, yields a slope of 0 so nothing undefined leaks
// into the modeling table.
//
// Keys are partitioned across workers; a key's whole series stays on one
// worker, so parallelism cannot change results.
func WeeklySlope[E any](
	events []E,
	key func(E) string,
	ts func(E) time.Time,
	match func(E) bool,
	anchor time.Time,
	lookbackDays, bucketDays int,
) map[string]float64 {
	counts := make(map[string]map[int]float64)
	for _, e := range events {
		if match != nil && !match(e) {
			continue
		}
		t := ts(e)
		if !inWindow(t, anchor, lookbackDays) {
			continue
		}
		k := key(e)
		if counts[k] == nil {
			counts[k] = make(map[int]float64)
		}
		counts[k][DaysBetween(anchor, t)/bucketDays]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}

	out := make(map[string]float64, len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	if workers > len(keys) {
		workers = len(keys)
	}
	if workers < 1 {
		workers = 1
	}

	work := make(chan string)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range work {
				slope := olsSlope(counts[k])
				mu.Lock()
				out[k] = slope
				mu.Unlock()
			}
		}()
	}
	for _, k := range keys {
		work <- k
	}
	close(work)
	wg.Wait()

	return out
}

func olsSlope(series map[int]float64) float64 {
	if len(series) < 2 {
		return 0
	}

	var xMean, yMean float64
	for x, y := range series {
		xMean += float64(x)
		yMean += y
	}
	n := float64(len(series))
	xMean /= n
	yMean /= n

	var num, den float64
	for x, y := range series {
		dx := float64(x) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
