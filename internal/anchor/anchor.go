package anchor

import (
	"errors"
	"time"

	"github.com/smallbiznis/churnpipe/internal/dataset"
)

// ErrNoEvents means no event log carries a single timestamp, so there is
// nothing to anchor a window on.
var ErrNoEvents = errors.New("anchor: no event timestamps in any log table")

// Resolve derives the reference time for a run: the maximum timestamp
// observed across the usage, billing and ticket logs. Anchoring on the data
// instead of the wall clock keeps every downstream window reproducible on a
// frozen dataset.
func Resolve(tables dataset.Tables) (time.Time, error) {
	var ref time.Time
	for _, e := range tables.Usage {
		if e.Timestamp.After(ref) {
			ref = e.Timestamp
		}
	}
	for _, b := range tables.Billing {
		if b.BillingDate.After(ref) {
			ref = b.BillingDate
		}
	}
	for _, t := range tables.Tickets {
		if t.TicketDate.After(ref) {
			ref = t.TicketDate
		}
	}
	if ref.IsZero() {
		return time.Time{}, ErrNoEvents
	}
	return ref, nil
}
