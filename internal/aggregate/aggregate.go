// Package aggregate computes per-entity statistics over fixed look-back
// windows anchored at the run's reference time. Every function is pure and
// deterministic; callers own default filling when an entity has no
// qualifying events.
package aggregate

import (
	"time"
)

// Kind selects the aggregate function.
type Kind int

const (
	Count Kind = iota
	Sum
	Mean
	Max
	// DistinctDays counts distinct calendar days carrying at least one event.
	DistinctDays
)

const day = 24 * time.Hour

// DaysBetween returns the whole days from t back to the anchor, truncated
// toward zero.
func DaysBetween(anchor, t time.Time) int {
	return int(anchor.Sub(t) / day)
}

// Input adapts an event stream to the engine.
type Input[E any] struct {
	Key  func(E) string
	Time func(E) time.Time
	// Value feeds Sum/Mean/Max; Count and DistinctDays ignore it.
	Value func(E) float64
}

func inWindow(ts, anchor time.Time, windowDays int) bool {
	if ts.After(anchor) {
		return false
	}
	if windowDays <= 0 {
		return true
	}
	start := anchor.AddDate(0, 0, -windowDays)
	return !ts.Before(start)
}

// Windowed aggregates the stream restricted to [anchor-window, anchor].
// windowDays <= 0 means lifetime. The result only holds keys that had at
// least one qualifying event; absent keys take the feature's default.
func Windowed[E any](events []E, in Input[E], anchor time.Time, windowDays int, kind Kind) map[string]float64 {
	switch kind {
	case DistinctDays:
		days := make(map[string]map[string]struct{})
		for _, e := range events {
			ts := in.Time(e)
			if !inWindow(ts, anchor, windowDays) {
				continue
			}
			k := in.Key(e)
			if days[k] == nil {
				days[k] = make(map[string]struct{})
			}
			days[k][ts.Format("2006-01-02")] = struct{}{}
		}
		out := make(map[string]float64, len(days))
		for k, set := range days {
			out[k] = float64(len(set))
		}
		return out

	case Mean:
		sums := make(map[string]float64)
		counts := make(map[string]int)
		for _, e := range events {
			if !inWindow(in.Time(e), anchor, windowDays) {
				continue
			}
			k := in.Key(e)
			sums[k] += in.Value(e)
			counts[k]++
		}
		out := make(map[string]float64, len(sums))
		for k, sum := range sums {
			out[k] = sum / float64(counts[k])
		}
		return out

	default:
		out := make(map[string]float64)
		seen := make(map[string]bool)
		for _, e := range events {
			if !inWindow(in.Time(e), anchor, windowDays) {
				continue
			}
			k := in.Key(e)
			switch kind {
			case Count:
				out[k]++
			case Sum:
				out[k] += in.Value(e)
			case Max:
				v := in.Value(e)
				if !seen[k] || v > out[k] {
					out[k] = v
				}
				seen[k] = true
			}
		}
		return out
	}
}

// LastTimestamp returns the latest event time per key, ignoring anything
// past the anchor.
func LastTimestamp[E any](events []E, key func(E) string, ts func(E) time.Time, anchor time.Time) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, e := range events {
		t := ts(e)
		if t.After(anchor) {
			continue
		}
		if t.After(out[key(e)]) {
			out[key(e)] = t
		}
	}
	return out
}

// DaysSince converts last-seen timestamps into whole-day recency relative
// to the anchor.
func DaysSince(last map[string]time.Time, anchor time.Time) map[string]float64 {
	out := make(map[string]float64, len(last))
	for k, t := range last {
		out[k] = float64(DaysBetween(anchor, t))
	}
	return out
}
