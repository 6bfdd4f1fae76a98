package validate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/churnpipe/internal/clock"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
)

var testNow = time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

func newTestValidator() *Validator {
	return New(Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(testNow),
	})
}

func validFrames() dataset.Frames {
	return dataset.Frames{
		Customers: dataset.NewFrame(dataset.TableCustomers, dataset.CustomerColumns, [][]string{
			{"C001", "2023-06-01", "free", "US", "small"},
			{"C002", "2023-01-15", "pro", "EU", "medium"},
		}),
		Subscriptions: dataset.NewFrame(dataset.TableSubscriptions, dataset.SubscriptionColumns, [][]string{
			{"C002", "2024-02-20", "100", "success", "pro"},
		}),
		Usage: dataset.NewFrame(dataset.TableUsageEvents, dataset.UsageEventColumns, [][]string{
			{"C001", "login", "2024-06-01 00:00:00"},
			{"C002", "login", "2024-03-01 08:00:00"},
		}),
		Tickets: dataset.NewFrame(dataset.TableSupportTickets, dataset.TicketColumns, [][]string{
			{"C002", "2024-05-15", "billing", "12.5"},
		}),
	}
}

func runValidator(t *testing.T, frames dataset.Frames) (dataset.Tables, *Report, error) {
	t.Helper()
	return newTestValidator().Run(context.Background(), frames, config.DefaultPipeline())
}

func TestRunCleanDataset(t *testing.T) {
	tables, report, err := runValidator(t, validFrames())
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Len(t, tables.Customers, 2)

	lines := report.Render()
	assert.Contains(t, lines, "Customers validation passed.")
	assert.Contains(t, lines, "ALL DATA VALIDATION CHECKS PASSED SUCCESSFULLY")
}

func TestRunMissingColumn(t *testing.T) {
	frames := validFrames()
	frames.Customers = dataset.NewFrame(dataset.TableCustomers,
		[]string{"customer_id", "signup_date", "plan_type"},
		[][]string{{"C001", "2023-06-01", "free"}},
	)

	_, report, err := runValidator(t, frames)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, dataset.TableCustomers, schemaErr.Table)
	assert.Contains(t, schemaErr.Missing, "region")
	assert.Contains(t, schemaErr.Missing, "company_size")
	assert.True(t, report.Failed())
}

func TestRunMalformedCell(t *testing.T) {
	frames := validFrames()
	frames.Usage = dataset.NewFrame(dataset.TableUsageEvents, dataset.UsageEventColumns, [][]string{
		{"C001", "login", "yesterday"},
	})

	_, _, err := runValidator(t, frames)
	var intErr *IntegrityError
	require.ErrorAs(t, err, &intErr)
	assert.Equal(t, "parse", intErr.Check)
	assert.Equal(t, dataset.TableUsageEvents, intErr.Table)
}

func TestRunDuplicateCustomerID(t *testing.T) {
	frames := validFrames()
	frames.Customers = dataset.NewFrame(dataset.TableCustomers, dataset.CustomerColumns, [][]string{
		{"C001", "2023-06-01", "free", "US", "small"},
		{"C001", "2023-07-01", "pro", "EU", "medium"},
	})

	_, _, err := runValidator(t, frames)
	var intErr *IntegrityError
	require.ErrorAs(t, err, &intErr)
	assert.Equal(t, "duplicate_customer_id", intErr.Check)
	assert.Equal(t, []string{"C001"}, intErr.Sample)
}

func TestRunInvalidPlanType(t *testing.T) {
	frames := validFrames()
	frames.Customers = dataset.NewFrame(dataset.TableCustomers, dataset.CustomerColumns, [][]string{
		{"C001", "2023-06-01", "platinum", "US", "small"},
	})

	_, _, err := runValidator(t, frames)
	var intErr *IntegrityError
	require.ErrorAs(t, err, &intErr)
	assert.Equal(t, "domain", intErr.Check)
	assert.Equal(t, []string{"platinum"}, intErr.Sample)
}

func TestRunFutureTimestamp(t *testing.T) {
	frames := validFrames()
	frames.Usage = dataset.NewFrame(dataset.TableUsageEvents, dataset.UsageEventColumns, [][]string{
		{"C001", "login", "2030-01-01 00:00:00"},
	})

	_, _, err := runValidator(t, frames)
	var intErr *IntegrityError
	require.ErrorAs(t, err, &intErr)
	assert.Equal(t, "future_timestamp", intErr.Check)
}

func TestRunNegativeAmount(t *testing.T) {
	frames := validFrames()
	frames.Subscriptions = dataset.NewFrame(dataset.TableSubscriptions, dataset.SubscriptionColumns, [][]string{
		{"C002", "2024-02-20", "-5", "success", "pro"},
	})

	_, _, err := runValidator(t, frames)
	var intErr *IntegrityError
	require.ErrorAs(t, err, &intErr)
	assert.Equal(t, "negative_amount", intErr.Check)
}

func TestRunUnknownCustomerReference(t *testing.T) {
	frames := validFrames()
	frames.Tickets = dataset.NewFrame(dataset.TableSupportTickets, dataset.TicketColumns, [][]string{
		{"C999", "2024-05-15", "billing", "2"},
	})

	_, _, err := runValidator(t, frames)
	var intErr *IntegrityError
	require.ErrorAs(t, err, &intErr)
	assert.Equal(t, "referential", intErr.Check)
	assert.Equal(t, dataset.TableSupportTickets, intErr.Table)
	assert.Equal(t, []string{"C999"}, intErr.Sample)
}

func TestRunLowChurnPopulationWarnsOnly(t *testing.T) {
	frames := validFrames()
	// Every customer was active at the max usage timestamp, so the
	// churn-like fraction is zero.
	frames.Usage = dataset.NewFrame(dataset.TableUsageEvents, dataset.UsageEventColumns, [][]string{
		{"C001", "login", "2024-06-01 00:00:00"},
		{"C002", "login", "2024-06-01 00:00:00"},
	})

	_, report, err := runValidator(t, frames)
	require.NoError(t, err)
	assert.False(t, report.Failed())
	assert.Equal(t, 1, report.Warnings())

	lines := report.Render()
	found := false
	for _, l := range lines {
		if l == "[WARNING] Churn population seems unusually low (0.0% of customers)" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Contains(t, lines, "ALL DATA VALIDATION CHECKS PASSED SUCCESSFULLY")
}

func TestRunChurnPopulationHealthy(t *testing.T) {
	_, report, err := runValidator(t, validFrames())
	require.NoError(t, err)
	assert.Zero(t, report.Warnings())
}
