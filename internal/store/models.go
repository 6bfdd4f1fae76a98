package store

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/smallbiznis/churnpipe/internal/modeling"
)

// Run is one pipeline execution's record: the reference time it anchored
// on, the validation findings it produced, and the population counts.
type Run struct {
	ID            snowflake.ID `gorm:"column:id;primaryKey"`
	ReferenceTime time.Time    `gorm:"column:reference_time"`
	RawDir        string       `gorm:"column:raw_dir"`

	Findings datatypes.JSON `gorm:"column:findings"`

	CustomerRows     int `gorm:"column:customer_rows"`
	SubscriptionRows int `gorm:"column:subscription_rows"`
	UsageRows        int `gorm:"column:usage_rows"`
	TicketRows       int `gorm:"column:ticket_rows"`

	LabeledCustomers int     `gorm:"column:labeled_customers"`
	ExcludedNew      int     `gorm:"column:excluded_new"`
	ChurnRate        float64 `gorm:"column:churn_rate"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Run) TableName() string { return "runs" }

// LabelRecord is one labeled customer within a run, diagnostics included.
type LabelRecord struct {
	RunID                   snowflake.ID `gorm:"column:run_id;primaryKey"`
	CustomerID              string       `gorm:"column:customer_id;primaryKey"`
	ChurnLabel              int          `gorm:"column:churn_label"`
	TenureDays              int          `gorm:"column:tenure_days"`
	DaysSinceUsage          int          `gorm:"column:days_since_usage"`
	DaysSinceSuccessPayment int          `gorm:"column:days_since_success_payment"`
}

func (LabelRecord) TableName() string { return "churn_labels" }

// ModelingRecord is one modeling-table row within a run.
type ModelingRecord struct {
	RunID snowflake.ID `gorm:"column:run_id;primaryKey"`
	modeling.Row `gorm:"embedded"`
}

func (ModelingRecord) TableName() string { return "modeling_rows" }
