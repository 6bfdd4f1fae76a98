package validate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/churnpipe/internal/clock"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
}

// Validator runs the structural, semantic and statistical checks that gate
// the pipeline. Hard failures abort before any artifact is written.
type Validator struct {
	log   *zap.Logger
	clock clock.Clock
}

func New(p Params) *Validator {
	return &Validator{
		log:   p.Log.Named("validate"),
		clock: p.Clock,
	}
}

// Run validates the four raw tables and decodes them. It returns the typed
// error of the first hard failure; soft anomalies only add warnings to the
// report.
func (v *Validator) Run(ctx context.Context, frames dataset.Frames, cfg config.Pipeline) (dataset.Tables, *Report, error) {
	_ = ctx
	now := v.clock.Now()
	report := NewReport(now)

	if err := v.checkStructure(report, frames); err != nil {
		return dataset.Tables{}, report, err
	}

	tables, err := dataset.DecodeTables(frames.Customers, frames.Subscriptions, frames.Usage, frames.Tickets)
	if err != nil {
		var rowErr *dataset.RowError
		if errors.As(err, &rowErr) {
			intErr := &IntegrityError{
				Table:   rowErr.Table,
				Check:   "parse",
				Message: fmt.Sprintf("row %d column %s is malformed: %v", rowErr.Row, rowErr.Column, rowErr.Err),
			}
			report.fail("parse", rowErr.Table, intErr.Error())
			return dataset.Tables{}, report, intErr
		}
		return dataset.Tables{}, report, err
	}

	if err := v.checkCustomers(report, tables, now); err != nil {
		return dataset.Tables{}, report, err
	}
	if err := v.checkSubscriptions(report, tables, now); err != nil {
		return dataset.Tables{}, report, err
	}
	if err := v.checkUsageEvents(report, tables, now); err != nil {
		return dataset.Tables{}, report, err
	}
	if err := v.checkTickets(report, tables, now); err != nil {
		return dataset.Tables{}, report, err
	}
	if err := v.checkReferentialIntegrity(report, tables); err != nil {
		return dataset.Tables{}, report, err
	}
	v.checkChurnPopulation(report, tables, cfg)

	return tables, report, nil
}

func (v *Validator) checkStructure(report *Report, frames dataset.Frames) error {
	for _, tc := range []struct {
		frame    dataset.Frame
		required []string
	}{
		{frames.Customers, dataset.CustomerColumns},
		{frames.Subscriptions, dataset.SubscriptionColumns},
		{frames.Usage, dataset.UsageEventColumns},
		{frames.Tickets, dataset.TicketColumns},
	} {
		if missing := tc.frame.Missing(tc.required); len(missing) > 0 {
			err := &SchemaError{Table: tc.frame.Table, Missing: missing}
			report.fail("schema", tc.frame.Table, err.Error())
			return err
		}
	}
	return nil
}

func (v *Validator) checkCustomers(report *Report, tables dataset.Tables, now time.Time) error {
	seen := make(map[string]struct{}, len(tables.Customers))
	var nullRows, dupIDs []string
	for i, c := range tables.Customers {
		if c.CustomerID == "" {
			nullRows = append(nullRows, fmt.Sprintf("row %d", i))
			continue
		}
		if _, dup := seen[c.CustomerID]; dup {
			dupIDs = append(dupIDs, c.CustomerID)
		}
		seen[c.CustomerID] = struct{}{}
	}
	if len(nullRows) > 0 {
		return v.hardFail(report, &IntegrityError{
			Table: dataset.TableCustomers, Check: "null_customer_id",
			Message: "null customer_id found", Sample: sampleOf(nullRows),
		})
	}
	if len(dupIDs) > 0 {
		return v.hardFail(report, &IntegrityError{
			Table: dataset.TableCustomers, Check: "duplicate_customer_id",
			Message: "duplicate customer_id found", Sample: sampleOf(dupIDs),
		})
	}
	for _, c := range tables.Customers {
		if c.SignupDate.After(now) {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableCustomers, Check: "future_timestamp",
				Message: "future signup_date detected", Sample: []string{c.CustomerID},
			})
		}
	}
	if bad := outOfDomain(tables.Customers, func(c dataset.Customer) string { return c.PlanType }, dataset.PlanTypes); len(bad) > 0 {
		return v.hardFail(report, &IntegrityError{
			Table: dataset.TableCustomers, Check: "domain",
			Message: "invalid plan_type detected", Sample: sampleOf(bad),
		})
	}

	report.pass("customers", dataset.TableCustomers, "Customers validation passed.")
	return nil
}

func (v *Validator) checkSubscriptions(report *Report, tables dataset.Tables, now time.Time) error {
	for _, b := range tables.Billing {
		if b.CustomerID == "" {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableSubscriptions, Check: "null_customer_id",
				Message: "null customer_id found",
			})
		}
		if b.Amount < 0 {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableSubscriptions, Check: "negative_amount",
				Message: "negative billing amount detected", Sample: []string{b.CustomerID},
			})
		}
		if b.BillingDate.After(now) {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableSubscriptions, Check: "future_timestamp",
				Message: "future billing_date detected", Sample: []string{b.CustomerID},
			})
		}
	}
	if bad := outOfDomain(tables.Billing, func(b dataset.BillingEvent) string { return b.Status }, dataset.BillingStatuses); len(bad) > 0 {
		return v.hardFail(report, &IntegrityError{
			Table: dataset.TableSubscriptions, Check: "domain",
			Message: "invalid payment status detected", Sample: sampleOf(bad),
		})
	}
	if bad := outOfDomain(tables.Billing, func(b dataset.BillingEvent) string { return b.PlanType }, dataset.PlanTypes); len(bad) > 0 {
		return v.hardFail(report, &IntegrityError{
			Table: dataset.TableSubscriptions, Check: "domain",
			Message: "invalid plan_type detected", Sample: sampleOf(bad),
		})
	}

	report.pass("subscriptions", dataset.TableSubscriptions, "Subscriptions validation passed.")
	return nil
}

func (v *Validator) checkUsageEvents(report *Report, tables dataset.Tables, now time.Time) error {
	for _, e := range tables.Usage {
		if e.CustomerID == "" {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableUsageEvents, Check: "null_customer_id",
				Message: "null customer_id found",
			})
		}
		if e.Timestamp.After(now) {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableUsageEvents, Check: "future_timestamp",
				Message: "future event timestamp detected", Sample: []string{e.CustomerID},
			})
		}
	}
	if bad := outOfDomain(tables.Usage, func(e dataset.UsageEvent) string { return e.EventType }, dataset.EventTypes); len(bad) > 0 {
		return v.hardFail(report, &IntegrityError{
			Table: dataset.TableUsageEvents, Check: "domain",
			Message: "invalid event_type detected", Sample: sampleOf(bad),
		})
	}

	report.pass("usage_events", dataset.TableUsageEvents, "Usage events validation passed.")
	return nil
}

func (v *Validator) checkTickets(report *Report, tables dataset.Tables, now time.Time) error {
	for _, t := range tables.Tickets {
		if t.CustomerID == "" {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableSupportTickets, Check: "null_customer_id",
				Message: "null customer_id found",
			})
		}
		if t.ResolutionHours <= 0 {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableSupportTickets, Check: "non_positive_resolution",
				Message: "invalid resolution_hours detected", Sample: []string{t.CustomerID},
			})
		}
		if t.TicketDate.After(now) {
			return v.hardFail(report, &IntegrityError{
				Table: dataset.TableSupportTickets, Check: "future_timestamp",
				Message: "future ticket_date detected", Sample: []string{t.CustomerID},
			})
		}
	}
	if bad := outOfDomain(tables.Tickets, func(t dataset.SupportTicket) string { return t.IssueType }, dataset.IssueTypes); len(bad) > 0 {
		return v.hardFail(report, &IntegrityError{
			Table: dataset.TableSupportTickets, Check: "domain",
			Message: "invalid issue_type detected", Sample: sampleOf(bad),
		})
	}

	report.pass("support_tickets", dataset.TableSupportTickets, "Support tickets validation passed.")
	return nil
}

func (v *Validator) checkReferentialIntegrity(report *Report, tables dataset.Tables) error {
	idx := tables.Index()

	check := func(table string, ids []string) error {
		seen := make(map[string]struct{})
		var unknown []string
		for _, id := range ids {
			if idx.Has(id) {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			unknown = append(unknown, id)
		}
		if len(unknown) > 0 {
			return v.hardFail(report, &IntegrityError{
				Table: table, Check: "referential",
				Message: fmt.Sprintf("%s contains %d unknown customer_id(s)", table, len(unknown)),
				Sample:  sampleOf(unknown),
			})
		}
		return nil
	}

	subIDs := make([]string, 0, len(tables.Billing))
	for _, b := range tables.Billing {
		subIDs = append(subIDs, b.CustomerID)
	}
	if err := check(dataset.TableSubscriptions, subIDs); err != nil {
		return err
	}

	eventIDs := make([]string, 0, len(tables.Usage))
	for _, e := range tables.Usage {
		eventIDs = append(eventIDs, e.CustomerID)
	}
	if err := check(dataset.TableUsageEvents, eventIDs); err != nil {
		return err
	}

	ticketIDs := make([]string, 0, len(tables.Tickets))
	for _, t := range tables.Tickets {
		ticketIDs = append(ticketIDs, t.CustomerID)
	}
	if err := check(dataset.TableSupportTickets, ticketIDs); err != nil {
		return err
	}

	report.pass("referential", "", "Relational integrity checks passed.")
	return nil
}

// checkChurnPopulation guards against a stale or mis-generated dataset: a
// healthy extract should show at least a minimal churn-like population. The
// anchor is the max observed usage timestamp, not wall clock, so the check
// is reproducible on frozen data.
func (v *Validator) checkChurnPopulation(report *Report, tables dataset.Tables, cfg config.Pipeline) {
	if len(tables.Customers) == 0 || len(tables.Usage) == 0 {
		report.pass("churn_sanity", "", "Churn sanity check skipped (no usage data).")
		return
	}

	var maxUsage time.Time
	lastSeen := make(map[string]time.Time)
	for _, e := range tables.Usage {
		if e.Timestamp.After(maxUsage) {
			maxUsage = e.Timestamp
		}
		if e.Timestamp.After(lastSeen[e.CustomerID]) {
			lastSeen[e.CustomerID] = e.Timestamp
		}
	}

	churnLike := 0
	for _, c := range tables.Customers {
		last, ok := lastSeen[c.CustomerID]
		if !ok {
			continue
		}
		inactivity := int(maxUsage.Sub(last) / (24 * time.Hour))
		if inactivity >= cfg.InactivityThresholdDays {
			churnLike++
		}
	}

	fraction := float64(churnLike) / float64(len(tables.Customers))
	if fraction < cfg.MinChurnRate {
		msg := fmt.Sprintf("Churn population seems unusually low (%.1f%% of customers)", fraction*100)
		report.warn("churn_sanity", "", msg)
		v.log.Warn("churn population below expected rate",
			zap.Float64("fraction", fraction),
			zap.Float64("min_rate", cfg.MinChurnRate),
		)
		return
	}
	report.pass("churn_sanity", "", "Churn sanity check passed.")
}

func (v *Validator) hardFail(report *Report, err *IntegrityError) error {
	report.fail(err.Check, err.Table, err.Error())
	v.log.Error("integrity check failed", zap.String("table", err.Table), zap.String("check", err.Check))
	return err
}

func outOfDomain[E any](rows []E, value func(E) string, domain []string) []string {
	allowed := make(map[string]struct{}, len(domain))
	for _, d := range domain {
		allowed[d] = struct{}{}
	}
	seen := make(map[string]struct{})
	var bad []string
	for _, r := range rows {
		val := value(r)
		if _, ok := allowed[val]; ok {
			continue
		}
		if _, dup := seen[val]; dup {
			continue
		}
		seen[val] = struct{}{}
		bad = append(bad, val)
	}
	return bad
}
