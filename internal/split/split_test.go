package split

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/churnpipe/internal/dataset"
	"github.com/smallbiznis/churnpipe/internal/label"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func population(signups ...time.Time) (label.Result, *dataset.CustomerIndex) {
	tables := dataset.Tables{}
	var labels label.Result
	for i, s := range signups {
		id := string(rune('A' + i))
		tables.Customers = append(tables.Customers, dataset.Customer{CustomerID: id, SignupDate: s})
		labels.Labels = append(labels.Labels, label.Outcome{CustomerID: id})
	}
	return labels, tables.Index()
}

func TestByCohortSplitsAtQuantile(t *testing.T) {
	labels, index := population(day(0), day(10), day(20), day(30))

	sets, err := ByCohort(labels, index, 0.75)
	require.NoError(t, err)

	// Quantile 0.75 over 4 sorted dates interpolates to rank 2.25, which
	// lands between day 20 and day 30.
	assert.Equal(t, []string{"A", "B", "C"}, sets.Train)
	assert.Equal(t, []string{"D"}, sets.Test)
	assert.True(t, sets.Cutoff.After(day(20)))
	assert.True(t, sets.Cutoff.Before(day(30)))
}

func TestByCohortKeepsLabelOrder(t *testing.T) {
	labels, index := population(day(30), day(0), day(20), day(10))

	sets, err := ByCohort(labels, index, 0.75)
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "C", "D"}, sets.Train)
	assert.Equal(t, []string{"A"}, sets.Test)
}

func TestByCohortSingleCustomer(t *testing.T) {
	labels, index := population(day(5))

	sets, err := ByCohort(labels, index, 0.75)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, sets.Train)
	assert.Empty(t, sets.Test)
}

func TestByCohortEmpty(t *testing.T) {
	_, index := population(day(0))
	_, err := ByCohort(label.Result{}, index, 0.75)
	assert.ErrorIs(t, err, ErrEmptyPopulation)
}
