// Package modeling joins the label set with the feature groups into the
// flat table a classifier trains on. The label set is the row universe:
// customers excluded at labeling never appear here, and a labeled customer
// with no events in some group gets that group's defaults.
package modeling

import (
	"fmt"

	"github.com/smallbiznis/churnpipe/internal/features"
	"github.com/smallbiznis/churnpipe/internal/label"
)

// Row is one training example. Label diagnostics (tenure, recency of usage
// and payment) are deliberately absent: each one is a direct input of the
// labeling rule and would leak the target.
type Row struct {
	CustomerID string `parquet:"customer_id" gorm:"column:customer_id;primaryKey"`
	ChurnLabel int32  `parquet:"churn_label" gorm:"column:churn_label"`

	LoginsLast7d        float64 `parquet:"logins_last_7d" gorm:"column:logins_last_7d"`
	LoginsLast30d       float64 `parquet:"logins_last_30d" gorm:"column:logins_last_30d"`
	FeatureUseLast30d   float64 `parquet:"feature_use_last_30d" gorm:"column:feature_use_last_30d"`
	ActivityDaysLast30d float64 `parquet:"activity_days_last_30d" gorm:"column:activity_days_last_30d"`

	SuccessfulPaymentsLast90d float64 `parquet:"successful_payments_last_90d" gorm:"column:successful_payments_last_90d"`
	FailedPaymentsLast30d     float64 `parquet:"failed_payments_last_30d" gorm:"column:failed_payments_last_30d"`
	AvgPaymentLast90d         float64 `parquet:"avg_payment_last_90d" gorm:"column:avg_payment_last_90d"`
	TotalRevenueLifetime      float64 `parquet:"total_revenue_lifetime" gorm:"column:total_revenue_lifetime"`

	TicketsLast30d           float64 `parquet:"tickets_last_30d" gorm:"column:tickets_last_30d"`
	TicketsLast90d           float64 `parquet:"tickets_last_90d" gorm:"column:tickets_last_90d"`
	AvgResolutionTime90d     float64 `parquet:"avg_resolution_time_90d" gorm:"column:avg_resolution_time_90d"`
	BillingRelatedTickets90d float64 `parquet:"billing_related_tickets_90d" gorm:"column:billing_related_tickets_90d"`

	EngagementDecaySlope float64 `parquet:"engagement_decay_slope" gorm:"column:engagement_decay_slope"`
}

// Groups bundles the four feature groups the table joins.
type Groups struct {
	Engagement *features.Table
	Billing    *features.Table
	Tickets    *features.Table
	Trend      *features.Table
}

func must(t *features.Table, id, column string) (float64, error) {
	v, ok := t.Value(id, column)
	if !ok {
		return 0, fmt.Errorf("feature group %q has no column %q", t.Group, column)
	}
	return v, nil
}

// Assemble joins labels and feature groups in label order.
func Assemble(labels label.Result, groups Groups) ([]Row, error) {
	rows := make([]Row, 0, len(labels.Labels))
	for _, o := range labels.Labels {
		row := Row{
			CustomerID: o.CustomerID,
			ChurnLabel: int32(o.ChurnLabel),
		}

		var err error
		for _, bind := range []struct {
			table  *features.Table
			column string
			dst    *float64
		}{
			{groups.Engagement, "logins_last_7d", &row.LoginsLast7d},
			{groups.Engagement, "logins_last_30d", &row.LoginsLast30d},
			{groups.Engagement, "feature_use_last_30d", &row.FeatureUseLast30d},
			{groups.Engagement, "activity_days_last_30d", &row.ActivityDaysLast30d},
			{groups.Billing, "successful_payments_last_90d", &row.SuccessfulPaymentsLast90d},
			{groups.Billing, "failed_payments_last_30d", &row.FailedPaymentsLast30d},
			{groups.Billing, "avg_payment_last_90d", &row.AvgPaymentLast90d},
			{groups.Billing, "total_revenue_lifetime", &row.TotalRevenueLifetime},
			{groups.Tickets, "tickets_last_30d", &row.TicketsLast30d},
			{groups.Tickets, "tickets_last_90d", &row.TicketsLast90d},
			{groups.Tickets, "avg_resolution_time_90d", &row.AvgResolutionTime90d},
			{groups.Tickets, "billing_related_tickets_90d", &row.BillingRelatedTickets90d},
			{groups.Trend, "engagement_decay_slope", &row.EngagementDecaySlope},
		} {
			if *bind.dst, err = must(bind.table, o.CustomerID, bind.column); err != nil {
				return nil, err
			}
		}

		rows = append(rows, row)
	}
	return rows, nil
}
