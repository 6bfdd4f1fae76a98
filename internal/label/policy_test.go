package label

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
)

var anchor = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return anchor.AddDate(0, 0, -n)
}

func TestEvaluateFreeInactive(t *testing.T) {
	cfg := config.DefaultPipeline()
	c := dataset.Customer{
		CustomerID: "C001",
		SignupDate: daysAgo(200),
		PlanType:   dataset.PlanFree,
	}
	usage := daysAgo(50)

	out, eligible := Evaluate(c, &usage, nil, anchor, cfg)
	assert.True(t, eligible)
	assert.Equal(t, 1, out.ChurnLabel)
	assert.Equal(t, 200, out.TenureDays)
	assert.Equal(t, 50, out.DaysSinceUsage)
	assert.Equal(t, cfg.SentinelDays, out.DaysSinceSuccessPayment)
}

func TestEvaluatePaidActive(t *testing.T) {
	cfg := config.DefaultPipeline()
	c := dataset.Customer{
		CustomerID: "C002",
		SignupDate: daysAgo(300),
		PlanType:   dataset.PlanPro,
	}
	usage := daysAgo(10)
	payment := daysAgo(20)

	out, eligible := Evaluate(c, &usage, &payment, anchor, cfg)
	assert.True(t, eligible)
	assert.Equal(t, 0, out.ChurnLabel)
	assert.Equal(t, 10, out.DaysSinceUsage)
	assert.Equal(t, 20, out.DaysSinceSuccessPayment)
}

func TestEvaluatePaidNeedsBothLapses(t *testing.T) {
	cfg := config.DefaultPipeline()
	c := dataset.Customer{
		CustomerID: "C003",
		SignupDate: daysAgo(300),
		PlanType:   dataset.PlanBusiness,
	}

	// Usage lapsed but a success payment landed recently.
	usage := daysAgo(60)
	payment := daysAgo(5)
	out, _ := Evaluate(c, &usage, &payment, anchor, cfg)
	assert.Equal(t, 0, out.ChurnLabel)

	// Both lapsed.
	payment = daysAgo(90)
	out, _ = Evaluate(c, &usage, &payment, anchor, cfg)
	assert.Equal(t, 1, out.ChurnLabel)
}

func TestEvaluateExcludesNewCustomer(t *testing.T) {
	cfg := config.DefaultPipeline()
	c := dataset.Customer{
		CustomerID: "C004",
		SignupDate: daysAgo(20),
		PlanType:   dataset.PlanFree,
	}

	_, eligible := Evaluate(c, nil, nil, anchor, cfg)
	assert.False(t, eligible)
}

func TestEvaluateNeverActiveFallsBackToSignup(t *testing.T) {
	cfg := config.DefaultPipeline()
	c := dataset.Customer{
		CustomerID: "C005",
		SignupDate: daysAgo(100),
		PlanType:   dataset.PlanFree,
	}

	out, eligible := Evaluate(c, nil, nil, anchor, cfg)
	assert.True(t, eligible)
	assert.Equal(t, 100, out.DaysSinceUsage)
	assert.Equal(t, 1, out.ChurnLabel)
}

func TestApplyOrdersAndCounts(t *testing.T) {
	cfg := config.DefaultPipeline()
	tables := dataset.Tables{
		Customers: []dataset.Customer{
			{CustomerID: "C010", SignupDate: daysAgo(365), PlanType: dataset.PlanFree},
			{CustomerID: "C011", SignupDate: daysAgo(10), PlanType: dataset.PlanFree},
			{CustomerID: "C012", SignupDate: daysAgo(400), PlanType: dataset.PlanPro},
		},
		Usage: []dataset.UsageEvent{
			{CustomerID: "C010", EventType: dataset.EventLogin, Timestamp: daysAgo(80)},
			{CustomerID: "C012", EventType: dataset.EventLogin, Timestamp: daysAgo(2)},
		},
		Billing: []dataset.BillingEvent{
			{CustomerID: "C012", BillingDate: daysAgo(15), Amount: 99, Status: dataset.StatusSuccess, PlanType: dataset.PlanPro},
			{CustomerID: "C012", BillingDate: daysAgo(100), Amount: 99, Status: dataset.StatusFailed, PlanType: dataset.PlanPro},
		},
	}

	res := Apply(tables, anchor, cfg)

	assert.Equal(t, 1, res.ExcludedNew)
	if assert.Len(t, res.Labels, 2) {
		assert.Equal(t, "C010", res.Labels[0].CustomerID)
		assert.Equal(t, 1, res.Labels[0].ChurnLabel)
		assert.Equal(t, "C012", res.Labels[1].CustomerID)
		assert.Equal(t, 0, res.Labels[1].ChurnLabel)
		assert.Equal(t, 15, res.Labels[1].DaysSinceSuccessPayment)
	}
	assert.Equal(t, 1, res.Churned())
	assert.InDelta(t, 0.5, res.ChurnRate(), 1e-12)
}

func TestFailedPaymentsDoNotResetPaymentRecency(t *testing.T) {
	cfg := config.DefaultPipeline()
	tables := dataset.Tables{
		Customers: []dataset.Customer{
			{CustomerID: "C020", SignupDate: daysAgo(365), PlanType: dataset.PlanPro},
		},
		Usage: []dataset.UsageEvent{
			{CustomerID: "C020", EventType: dataset.EventLogin, Timestamp: daysAgo(70)},
		},
		Billing: []dataset.BillingEvent{
			{CustomerID: "C020", BillingDate: daysAgo(3), Amount: 49, Status: dataset.StatusFailed, PlanType: dataset.PlanPro},
			{CustomerID: "C020", BillingDate: daysAgo(60), Amount: 49, Status: dataset.StatusSuccess, PlanType: dataset.PlanPro},
		},
	}

	res := Apply(tables, anchor, cfg)
	if assert.Len(t, res.Labels, 1) {
		assert.Equal(t, 60, res.Labels[0].DaysSinceSuccessPayment)
		assert.Equal(t, 1, res.Labels[0].ChurnLabel)
	}
}
