package dataset

import (
	"time"
)

// Raw table names, matching the input file basenames.
const (
	TableCustomers      = "customers"
	TableSubscriptions  = "subscriptions"
	TableUsageEvents    = "usage_events"
	TableSupportTickets = "support_tickets"
)

const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"

	StatusSuccess = "success"
	StatusFailed  = "failed"

	EventLogin      = "login"
	EventFeatureUse = "feature_use"

	IssueBilling = "billing"
	IssueBug     = "bug"
	IssueFeature = "feature"
)

// Enumerated domains for categorical columns.
var (
	PlanTypes       = []string{PlanFree, PlanPro, PlanBusiness}
	BillingStatuses = []string{StatusSuccess, StatusFailed}
	EventTypes      = []string{EventLogin, EventFeatureUse}
	IssueTypes      = []string{IssueBilling, IssueBug, IssueFeature}
)

// Required column sets per raw table.
var (
	CustomerColumns     = []string{"customer_id", "signup_date", "plan_type", "region", "company_size"}
	SubscriptionColumns = []string{"customer_id", "billing_date", "amount", "status", "plan_type"}
	UsageEventColumns   = []string{"customer_id", "event_type", "timestamp"}
	TicketColumns       = []string{"customer_id", "ticket_date", "issue_type", "resolution_hours"}
)

// Customer is one row of the customer registry, immutable after signup.
type Customer struct {
	CustomerID  string
	SignupDate  time.Time
	PlanType    string
	Region      string
	CompanySize string
}

// BillingEvent is one row of the append-only billing log.
type BillingEvent struct {
	CustomerID  string
	BillingDate time.Time
	Amount      float64
	Status      string
	PlanType    string
}

// UsageEvent is one row of the append-only product-usage log.
type UsageEvent struct {
	CustomerID string
	EventType  string
	Timestamp  time.Time
}

// SupportTicket is one row of the append-only support log.
type SupportTicket struct {
	CustomerID      string
	TicketDate      time.Time
	IssueType       string
	ResolutionHours float64
}

// Tables bundles the four decoded raw tables of one run.
type Tables struct {
	Customers []Customer
	Billing   []BillingEvent
	Usage     []UsageEvent
	Tickets   []SupportTicket
}

// CustomerIndex is the keyed lookup built once per run and reused by every
// join, instead of repeated table-wide merges.
type CustomerIndex struct {
	byID  map[string]Customer
	order []string
}

// Index builds the customer index. Order follows the input file, so joins
// that iterate the universe are deterministic.
func (t Tables) Index() *CustomerIndex {
	idx := &CustomerIndex{
		byID:  make(map[string]Customer, len(t.Customers)),
		order: make([]string, 0, len(t.Customers)),
	}
	for _, c := range t.Customers {
		if _, dup := idx.byID[c.CustomerID]; dup {
			continue
		}
		idx.byID[c.CustomerID] = c
		idx.order = append(idx.order, c.CustomerID)
	}
	return idx
}

func (i *CustomerIndex) Lookup(id string) (Customer, bool) {
	c, ok := i.byID[id]
	return c, ok
}

func (i *CustomerIndex) Has(id string) bool {
	_, ok := i.byID[id]
	return ok
}

// Universe returns every customer id in input order.
func (i *CustomerIndex) Universe() []string {
	return i.order
}

func (i *CustomerIndex) Len() int {
	return len(i.order)
}
