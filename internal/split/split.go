// Package split divides the labeled population into train and test sets by
// signup-date quantile. Splitting on signup time instead of at random keeps
// the evaluation honest: the model is scored on cohorts newer than anything
// it trained on.
package split

import (
	"errors"
	"sort"
	"time"

	"github.com/smallbiznis/churnpipe/internal/dataset"
	"github.com/smallbiznis/churnpipe/internal/label"
)

var ErrEmptyPopulation = errors.New("split: no labeled customers")

// Sets holds the two customer-id partitions in label order.
type Sets struct {
	Cutoff time.Time
	Train  []string
	Test   []string
}

// quantile interpolates linearly between the two order statistics
// straddling the requested rank. vs must be sorted ascending.
func quantile(vs []int64, q float64) int64 {
	n := len(vs)
	if n == 1 {
		return vs[0]
	}
	pos := q * float64(n-1)
	lo := int(pos)
	if lo >= n-1 {
		return vs[n-1]
	}
	frac := pos - float64(lo)
	return vs[lo] + int64(frac*float64(vs[lo+1]-vs[lo]))
}

// ByCohort splits labeled customers at the ratio quantile of their signup
// dates. Customers signed up at or before the cutoff train; the rest test.
func ByCohort(labels label.Result, index *dataset.CustomerIndex, ratio float64) (Sets, error) {
	if len(labels.Labels) == 0 {
		return Sets{}, ErrEmptyPopulation
	}

	signups := make([]int64, 0, len(labels.Labels))
	for _, o := range labels.Labels {
		c, ok := index.Lookup(o.CustomerID)
		if !ok {
			continue
		}
		signups = append(signups, c.SignupDate.UnixNano())
	}
	if len(signups) == 0 {
		return Sets{}, ErrEmptyPopulation
	}
	sort.Slice(signups, func(i, j int) bool { return signups[i] < signups[j] })

	cutoff := time.Unix(0, quantile(signups, ratio)).UTC()

	sets := Sets{Cutoff: cutoff}
	for _, o := range labels.Labels {
		c, ok := index.Lookup(o.CustomerID)
		if !ok {
			continue
		}
		if c.SignupDate.After(cutoff) {
			sets.Test = append(sets.Test, o.CustomerID)
		} else {
			sets.Train = append(sets.Train, o.CustomerID)
		}
	}
	return sets, nil
}
