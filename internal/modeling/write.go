package modeling

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/smallbiznis/churnpipe/internal/dataset"
)

// Header is the modeling table column order, shared by the CSV and
// columnar artifacts.
var Header = []string{
	"customer_id",
	"churn_label",
	"logins_last_7d",
	"logins_last_30d",
	"feature_use_last_30d",
	"activity_days_last_30d",
	"successful_payments_last_90d",
	"failed_payments_last_30d",
	"avg_payment_last_90d",
	"total_revenue_lifetime",
	"tickets_last_30d",
	"tickets_last_90d",
	"avg_resolution_time_90d",
	"billing_related_tickets_90d",
	"engagement_decay_slope",
}

func (r Row) record() []string {
	return []string{
		r.CustomerID,
		strconv.Itoa(int(r.ChurnLabel)),
		dataset.FormatFloat(r.LoginsLast7d),
		dataset.FormatFloat(r.LoginsLast30d),
		dataset.FormatFloat(r.FeatureUseLast30d),
		dataset.FormatFloat(r.ActivityDaysLast30d),
		dataset.FormatFloat(r.SuccessfulPaymentsLast90d),
		dataset.FormatFloat(r.FailedPaymentsLast30d),
		dataset.FormatFloat(r.AvgPaymentLast90d),
		dataset.FormatFloat(r.TotalRevenueLifetime),
		dataset.FormatFloat(r.TicketsLast30d),
		dataset.FormatFloat(r.TicketsLast90d),
		dataset.FormatFloat(r.AvgResolutionTime90d),
		dataset.FormatFloat(r.BillingRelatedTickets90d),
		dataset.FormatFloat(r.EngagementDecaySlope),
	}
}

// WriteCSV emits the modeling table as CSV.
func WriteCSV(path string, rows []Row) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return dataset.WriteCSV(path, Header, records)
}

// WriteParquet emits the modeling table in columnar form for downstream
// training jobs that skip the CSV.
func WriteParquet(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[Row](f)
	if _, err := w.Write(rows); err != nil {
		w.Close()
		f.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}
