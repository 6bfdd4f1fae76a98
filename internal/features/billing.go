package features

import (
	"time"

	"github.com/smallbiznis/churnpipe/internal/aggregate"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
)

const GroupBilling = "billing"

// ColDaysSinceSuccessPayment is a direct decision input of the churn label
// and is stripped before the modeling table is assembled.
const ColDaysSinceSuccessPayment = "days_since_last_success_payment"

var billingInput = aggregate.Input[dataset.BillingEvent]{
	Key:   func(b dataset.BillingEvent) string { return b.CustomerID },
	Time:  func(b dataset.BillingEvent) time.Time { return b.BillingDate },
	Value: func(b dataset.BillingEvent) float64 { return b.Amount },
}

// Billing builds payment health features over paid-plan billing events.
func Billing(tables dataset.Tables, anchor time.Time, cfg config.Pipeline) *Table {
	var success, failed []dataset.BillingEvent
	for _, b := range tables.Billing {
		if b.PlanType == dataset.PlanFree {
			continue
		}
		switch b.Status {
		case dataset.StatusSuccess:
			success = append(success, b)
		case dataset.StatusFailed:
			failed = append(failed, b)
		}
	}

	lastSuccess := aggregate.LastTimestamp(success,
		func(b dataset.BillingEvent) string { return b.CustomerID },
		func(b dataset.BillingEvent) time.Time { return b.BillingDate },
		anchor,
	)

	return &Table{
		Group: GroupBilling,
		Columns: []Column{
			{
				Name:   "successful_payments_last_90d",
				Values: aggregate.Windowed(success, billingInput, anchor, cfg.LongWindowDays, aggregate.Count),
			},
			{
				Name:   "failed_payments_last_30d",
				Values: aggregate.Windowed(failed, billingInput, anchor, cfg.MidWindowDays, aggregate.Count),
			},
			{
				Name:   "avg_payment_last_90d",
				Values: aggregate.Windowed(success, billingInput, anchor, cfg.LongWindowDays, aggregate.Mean),
			},
			{
				Name:    ColDaysSinceSuccessPayment,
				Values:  aggregate.DaysSince(lastSuccess, anchor),
				Default: float64(cfg.SentinelDays),
			},
			{
				Name:   "total_revenue_lifetime",
				Values: aggregate.Windowed(success, billingInput, anchor, 0, aggregate.Sum),
			},
		},
	}
}
