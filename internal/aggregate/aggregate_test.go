package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type event struct {
	id    string
	ts    time.Time
	value float64
}

var testInput = Input[event]{
	Key:   func(e event) string { return e.id },
	Time:  func(e event) time.Time { return e.ts },
	Value: func(e event) float64 { return e.value },
}

var testAnchor = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func at(daysAgo int, hour int) time.Time {
	return testAnchor.AddDate(0, 0, -daysAgo).Add(time.Duration(hour) * time.Hour)
}

func TestDaysBetweenTruncates(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(testAnchor, testAnchor))
	assert.Equal(t, 0, DaysBetween(testAnchor, testAnchor.Add(-23*time.Hour)))
	assert.Equal(t, 1, DaysBetween(testAnchor, testAnchor.Add(-25*time.Hour)))
	assert.Equal(t, 91, DaysBetween(testAnchor, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))
}

func TestWindowedCount(t *testing.T) {
	events := []event{
		{id: "A", ts: at(1, 0)},
		{id: "A", ts: at(6, 0)},
		{id: "A", ts: at(8, 0)},
		{id: "B", ts: at(40, 0)},
	}

	week := Windowed(events, testInput, testAnchor, 7, Count)
	assert.Equal(t, map[string]float64{"A": 2}, week)

	month := Windowed(events, testInput, testAnchor, 30, Count)
	assert.Equal(t, map[string]float64{"A": 3}, month)
}

func TestWindowedIgnoresEventsPastAnchor(t *testing.T) {
	events := []event{
		{id: "A", ts: testAnchor.Add(time.Hour)},
		{id: "A", ts: at(2, 0)},
	}
	got := Windowed(events, testInput, testAnchor, 7, Count)
	assert.Equal(t, map[string]float64{"A": 1}, got)
}

func TestWindowedBoundaryIsInclusive(t *testing.T) {
	events := []event{
		{id: "A", ts: testAnchor.AddDate(0, 0, -30)},
		{id: "A", ts: testAnchor},
	}
	got := Windowed(events, testInput, testAnchor, 30, Count)
	assert.Equal(t, map[string]float64{"A": 2}, got)
}

func TestWindowedSumMeanMax(t *testing.T) {
	events := []event{
		{id: "A", ts: at(1, 0), value: 10},
		{id: "A", ts: at(2, 0), value: 30},
		{id: "B", ts: at(3, 0), value: 7},
	}

	assert.Equal(t, map[string]float64{"A": 40, "B": 7}, Windowed(events, testInput, testAnchor, 30, Sum))
	assert.Equal(t, map[string]float64{"A": 20, "B": 7}, Windowed(events, testInput, testAnchor, 30, Mean))
	assert.Equal(t, map[string]float64{"A": 30, "B": 7}, Windowed(events, testInput, testAnchor, 30, Max))
}

func TestWindowedLifetime(t *testing.T) {
	events := []event{
		{id: "A", ts: at(500, 0), value: 100},
		{id: "A", ts: at(1, 0), value: 50},
	}
	got := Windowed(events, testInput, testAnchor, 0, Sum)
	assert.Equal(t, map[string]float64{"A": 150}, got)
}

func TestWindowedDistinctDays(t *testing.T) {
	events := []event{
		{id: "A", ts: at(1, 8)},
		{id: "A", ts: at(1, 17)},
		{id: "A", ts: at(4, 9)},
	}
	got := Windowed(events, testInput, testAnchor, 30, DistinctDays)
	assert.Equal(t, map[string]float64{"A": 2}, got)
}

func TestWindowMonotonicity(t *testing.T) {
	events := []event{
		{id: "A", ts: at(2, 0)},
		{id: "A", ts: at(12, 0)},
		{id: "A", ts: at(25, 0)},
		{id: "A", ts: at(70, 0)},
	}

	short := Windowed(events, testInput, testAnchor, 7, Count)["A"]
	mid := Windowed(events, testInput, testAnchor, 30, Count)["A"]
	long := Windowed(events, testInput, testAnchor, 90, Count)["A"]
	assert.LessOrEqual(t, short, mid)
	assert.LessOrEqual(t, mid, long)
}

func TestLastTimestamp(t *testing.T) {
	events := []event{
		{id: "A", ts: at(10, 0)},
		{id: "A", ts: at(3, 0)},
		{id: "A", ts: testAnchor.Add(time.Hour)},
		{id: "B", ts: at(90, 0)},
	}

	last := LastTimestamp(events,
		func(e event) string { return e.id },
		func(e event) time.Time { return e.ts },
		testAnchor,
	)
	assert.Equal(t, at(3, 0), last["A"])
	assert.Equal(t, at(90, 0), last["B"])

	days := DaysSince(last, testAnchor)
	assert.Equal(t, map[string]float64{"A": 3, "B": 90}, days)
}
