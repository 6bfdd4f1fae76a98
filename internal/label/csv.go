package label

import (
	"strconv"

	"github.com/smallbiznis/churnpipe/internal/dataset"
)

// Header is the churn_labels artifact layout.
var Header = []string{
	"customer_id",
	"churn_label",
	"tenure_days",
	"days_since_usage",
	"days_since_success_payment",
}

// WriteCSV emits the label artifact, one row per labeled customer in
// universe order.
func (r Result) WriteCSV(path string) error {
	rows := make([][]string, 0, len(r.Labels))
	for _, o := range r.Labels {
		rows = append(rows, []string{
			o.CustomerID,
			strconv.Itoa(o.ChurnLabel),
			strconv.Itoa(o.TenureDays),
			strconv.Itoa(o.DaysSinceUsage),
			strconv.Itoa(o.DaysSinceSuccessPayment),
		})
	}
	return dataset.WriteCSV(path, Header, rows)
}
