package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frame is an undecoded table: header plus string cells. Structural checks
// run against frames before any value is parsed.
type Frame struct {
	Table   string
	Columns []string
	Rows    [][]string

	cols map[string]int
}

func NewFrame(table string, columns []string, rows [][]string) Frame {
	f := Frame{Table: table, Columns: columns, Rows: rows}
	f.cols = make(map[string]int, len(columns))
	for i, c := range columns {
		f.cols[strings.TrimSpace(c)] = i
	}
	return f
}

// Missing reports which of the required columns the frame lacks.
func (f Frame) Missing(required []string) []string {
	var missing []string
	for _, c := range required {
		if _, ok := f.cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

func (f Frame) col(name string) (int, bool) {
	i, ok := f.cols[name]
	return i, ok
}

// RowError pins a malformed cell to its table, row and column.
type RowError struct {
	Table  string
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d column %s: %v", e.Table, e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// ParseTime accepts the timestamp layouts observed in the raw exports.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (f Frame) timeCell(row int, column string) (time.Time, error) {
	i, ok := f.col(column)
	if !ok {
		return time.Time{}, &RowError{Table: f.Table, Row: row, Column: column, Err: fmt.Errorf("column absent")}
	}
	t, err := ParseTime(f.Rows[row][i])
	if err != nil {
		return time.Time{}, &RowError{Table: f.Table, Row: row, Column: column, Err: err}
	}
	return t, nil
}

func (f Frame) floatCell(row int, column string) (float64, error) {
	i, ok := f.col(column)
	if !ok {
		return 0, &RowError{Table: f.Table, Row: row, Column: column, Err: fmt.Errorf("column absent")}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(f.Rows[row][i]), 64)
	if err != nil {
		return 0, &RowError{Table: f.Table, Row: row, Column: column, Err: err}
	}
	return v, nil
}

func (f Frame) stringCell(row int, column string) string {
	i, ok := f.col(column)
	if !ok {
		return ""
	}
	return strings.TrimSpace(f.Rows[row][i])
}

// DecodeTables parses the four frames into typed tables. Callers must have
// passed the structural check first; parse failures surface as RowErrors.
func DecodeTables(customers, subscriptions, usage, tickets Frame) (Tables, error) {
	var t Tables

	t.Customers = make([]Customer, 0, len(customers.Rows))
	for i := range customers.Rows {
		signup, err := customers.timeCell(i, "signup_date")
		if err != nil {
			return Tables{}, err
		}
		t.Customers = append(t.Customers, Customer{
			CustomerID:  customers.stringCell(i, "customer_id"),
			SignupDate:  signup,
			PlanType:    customers.stringCell(i, "plan_type"),
			Region:      customers.stringCell(i, "region"),
			CompanySize: customers.stringCell(i, "company_size"),
		})
	}

	t.Billing = make([]BillingEvent, 0, len(subscriptions.Rows))
	for i := range subscriptions.Rows {
		billedAt, err := subscriptions.timeCell(i, "billing_date")
		if err != nil {
			return Tables{}, err
		}
		amount, err := subscriptions.floatCell(i, "amount")
		if err != nil {
			return Tables{}, err
		}
		t.Billing = append(t.Billing, BillingEvent{
			CustomerID:  subscriptions.stringCell(i, "customer_id"),
			BillingDate: billedAt,
			Amount:      amount,
			Status:      subscriptions.stringCell(i, "status"),
			PlanType:    subscriptions.stringCell(i, "plan_type"),
		})
	}

	t.Usage = make([]UsageEvent, 0, len(usage.Rows))
	for i := range usage.Rows {
		at, err := usage.timeCell(i, "timestamp")
		if err != nil {
			return Tables{}, err
		}
		t.Usage = append(t.Usage, UsageEvent{
			CustomerID: usage.stringCell(i, "customer_id"),
			EventType:  usage.stringCell(i, "event_type"),
			Timestamp:  at,
		})
	}

	t.Tickets = make([]SupportTicket, 0, len(tickets.Rows))
	for i := range tickets.Rows {
		openedAt, err := tickets.timeCell(i, "ticket_date")
		if err != nil {
			return Tables{}, err
		}
		hours, err := tickets.floatCell(i, "resolution_hours")
		if err != nil {
			return Tables{}, err
		}
		t.Tickets = append(t.Tickets, SupportTicket{
			CustomerID:      tickets.stringCell(i, "customer_id"),
			TicketDate:      openedAt,
			IssueType:       tickets.stringCell(i, "issue_type"),
			ResolutionHours: hours,
		})
	}

	return t, nil
}
