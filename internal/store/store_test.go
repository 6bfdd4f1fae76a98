package store

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/churnpipe/internal/clock"
	"github.com/smallbiznis/churnpipe/internal/label"
	"github.com/smallbiznis/churnpipe/internal/modeling"
	"github.com/smallbiznis/churnpipe/internal/validate"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc, err := New(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return svc
}

func testSnapshot() Snapshot {
	report := validate.NewReport(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	return Snapshot{
		ReferenceTime:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		RawDir:           "data/raw",
		Report:           report,
		CustomerRows:     3,
		SubscriptionRows: 5,
		UsageRows:        10,
		TicketRows:       2,
		Labels: label.Result{
			Labels: []label.Outcome{
				{CustomerID: "C002", ChurnLabel: 1, TenureDays: 120, DaysSinceUsage: 90, DaysSinceSuccessPayment: 999},
				{CustomerID: "C001", ChurnLabel: 0, TenureDays: 300, DaysSinceUsage: 2, DaysSinceSuccessPayment: 12},
			},
			ExcludedNew: 1,
		},
		Rows: []modeling.Row{
			{CustomerID: "C002", ChurnLabel: 1},
			{CustomerID: "C001", ChurnLabel: 0, LoginsLast30d: 12},
		},
	}
}

func TestPersistAndReadBack(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	runID, err := svc.Persist(ctx, testSnapshot())
	require.NoError(t, err)
	require.NotZero(t, runID)

	run, err := svc.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, 2, run.LabeledCustomers)
	assert.Equal(t, 1, run.ExcludedNew)
	assert.InDelta(t, 0.5, run.ChurnRate, 1e-12)
	assert.Equal(t, time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC), run.CreatedAt.UTC())

	labels, err := svc.LabelsForRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "C001", labels[0].CustomerID)
	assert.Equal(t, 0, labels[0].ChurnLabel)
	assert.Equal(t, "C002", labels[1].CustomerID)
	assert.Equal(t, 999, labels[1].DaysSinceSuccessPayment)
}

func TestPersistKeepsRunsSeparate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Persist(ctx, testSnapshot())
	require.NoError(t, err)
	second, err := svc.Persist(ctx, testSnapshot())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	labels, err := svc.LabelsForRun(ctx, second)
	require.NoError(t, err)
	assert.Len(t, labels, 2)
}
