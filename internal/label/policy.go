// Package label applies the segment-dependent churn rule. One canonical,
// configurable formulation lives here; keep any variant logic out of the
// feature builders.
package label

import (
	"time"

	"github.com/smallbiznis/churnpipe/internal/aggregate"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
)

// Outcome is one labeled customer. The diagnostics are retained for audit
// but must never reach a classifier's feature set: they are direct
// functions of the label.
type Outcome struct {
	CustomerID              string
	ChurnLabel              int
	TenureDays              int
	DaysSinceUsage          int
	DaysSinceSuccessPayment int
}

// Result is the labeled population plus the customers excluded for
// insufficient tenure.
type Result struct {
	Labels      []Outcome
	ExcludedNew int
}

// Churned counts labeled churners.
func (r Result) Churned() int {
	n := 0
	for _, o := range r.Labels {
		n += o.ChurnLabel
	}
	return n
}

// ChurnRate is the churned fraction of the labeled population.
func (r Result) ChurnRate() float64 {
	if len(r.Labels) == 0 {
		return 0
	}
	return float64(r.Churned()) / float64(len(r.Labels))
}

// Evaluate applies the decision rule to one customer. The second return is
// false when the customer is too new to be judged.
//
// lastUsage falls back to the signup date when the customer never produced
// a usage event, so a never-active customer's inactivity is measured from
// signup rather than treated as infinite. lastSuccessPayment has no such
// fallback; a customer who never paid carries the sentinel.
func Evaluate(c dataset.Customer, lastUsage, lastSuccessPayment *time.Time, anchor time.Time, cfg config.Pipeline) (Outcome, bool) {
	tenure := aggregate.DaysBetween(anchor, c.SignupDate)
	if tenure < cfg.InactivityThresholdDays {
		return Outcome{}, false
	}

	usageAt := c.SignupDate
	if lastUsage != nil {
		usageAt = *lastUsage
	}
	daysSinceUsage := aggregate.DaysBetween(anchor, usageAt)

	daysSincePayment := cfg.SentinelDays
	if lastSuccessPayment != nil {
		daysSincePayment = aggregate.DaysBetween(anchor, *lastSuccessPayment)
	}

	usageLapsed := daysSinceUsage >= cfg.InactivityThresholdDays
	paymentLapsed := daysSincePayment >= cfg.InactivityThresholdDays

	churned := 0
	if c.PlanType == dataset.PlanFree {
		if usageLapsed {
			churned = 1
		}
	} else {
		// A paying customer is churned only when both signals agree: usage
		// lapse alone is not churn while money keeps arriving, and a
		// payment lapse alone is not churn while the product is in use.
		if usageLapsed && paymentLapsed {
			churned = 1
		}
	}

	return Outcome{
		CustomerID:              c.CustomerID,
		ChurnLabel:              churned,
		TenureDays:              tenure,
		DaysSinceUsage:          daysSinceUsage,
		DaysSinceSuccessPayment: daysSincePayment,
	}, true
}

// Apply labels every eligible customer in universe order.
func Apply(tables dataset.Tables, anchor time.Time, cfg config.Pipeline) Result {
	lastUsage := aggregate.LastTimestamp(tables.Usage,
		func(e dataset.UsageEvent) string { return e.CustomerID },
		func(e dataset.UsageEvent) time.Time { return e.Timestamp },
		anchor,
	)

	var successPays []dataset.BillingEvent
	for _, b := range tables.Billing {
		if b.Status == dataset.StatusSuccess {
			successPays = append(successPays, b)
		}
	}
	lastPayment := aggregate.LastTimestamp(successPays,
		func(b dataset.BillingEvent) string { return b.CustomerID },
		func(b dataset.BillingEvent) time.Time { return b.BillingDate },
		anchor,
	)

	var res Result
	for _, c := range tables.Customers {
		var usagePtr, payPtr *time.Time
		if t, ok := lastUsage[c.CustomerID]; ok {
			usagePtr = &t
		}
		if t, ok := lastPayment[c.CustomerID]; ok {
			payPtr = &t
		}

		outcome, eligible := Evaluate(c, usagePtr, payPtr, anchor, cfg)
		if !eligible {
			res.ExcludedNew++
			continue
		}
		res.Labels = append(res.Labels, outcome)
	}
	return res
}
