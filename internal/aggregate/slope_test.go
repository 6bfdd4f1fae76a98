package aggregate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// weeklyEvents lays out count events in the bucket daysAgo/7 for one key.
func weeklyEvents(id string, countsByWeek []int) []event {
	var out []event
	for week, count := range countsByWeek {
		for i := 0; i < count; i++ {
			out = append(out, event{id: id, ts: testAnchor.AddDate(0, 0, -(week*7 + 1)).Add(time.Duration(i) * time.Minute)})
		}
	}
	return out
}

func weeklySlope(events []event) map[string]float64 {
	return WeeklySlope(events,
		func(e event) string { return e.id },
		func(e event) time.Time { return e.ts },
		nil,
		testAnchor,
		56,
		7,
	)
}

func TestWeeklySlopeDecliningEngagement(t *testing.T) {
	// Counts rise going back in time: the older weeks were busier, so the
	// slope of count against weeks-back is positive.
	got := weeklySlope(weeklyEvents("A", []int{2, 3, 4, 5}))
	assert.InDelta(t, 1.0, got["A"], 1e-9)
}

func TestWeeklySlopeGrowingEngagement(t *testing.T) {
	got := weeklySlope(weeklyEvents("A", []int{5, 4, 3, 2}))
	assert.InDelta(t, -1.0, got["A"], 1e-9)
}

func TestWeeklySlopeSingleBucket(t *testing.T) {
	got := weeklySlope(weeklyEvents("A", []int{9}))
	assert.Equal(t, 0.0, got["A"])
}

func TestWeeklySlopeFlat(t *testing.T) {
	got := weeklySlope(weeklyEvents("A", []int{3, 3, 3}))
	assert.InDelta(t, 0.0, got["A"], 1e-9)
}

func TestWeeklySlopeRespectsLookback(t *testing.T) {
	events := weeklyEvents("A", []int{4, 2})
	// Well outside the 56 day lookback.
	events = append(events, event{id: "A", ts: testAnchor.AddDate(0, 0, -120)})

	got := weeklySlope(events)
	assert.InDelta(t, -2.0, got["A"], 1e-9)
}

func TestWeeklySlopeMatchFilter(t *testing.T) {
	events := []event{
		{id: "A", ts: at(1, 0), value: 1},
		{id: "A", ts: at(8, 0), value: 1},
		{id: "A", ts: at(9, 0), value: 0},
	}

	got := WeeklySlope(events,
		func(e event) string { return e.id },
		func(e event) time.Time { return e.ts },
		func(e event) bool { return e.value == 1 },
		testAnchor,
		56,
		7,
	)
	// One match per bucket in weeks 0 and 1.
	assert.InDelta(t, 0.0, got["A"], 1e-9)
}

func TestWeeklySlopeManyKeysDeterministic(t *testing.T) {
	var events []event
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("K%03d", i)
		events = append(events, weeklyEvents(id, []int{1 + i%3, 2, 3})...)
	}

	first := weeklySlope(events)
	second := weeklySlope(events)
	assert.Equal(t, first, second)
	assert.Len(t, first, 50)
}
