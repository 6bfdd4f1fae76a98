package features

import (
	"time"

	"github.com/smallbiznis/churnpipe/internal/aggregate"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
)

const GroupTickets = "tickets"

var ticketInput = aggregate.Input[dataset.SupportTicket]{
	Key:   func(t dataset.SupportTicket) string { return t.CustomerID },
	Time:  func(t dataset.SupportTicket) time.Time { return t.TicketDate },
	Value: func(t dataset.SupportTicket) float64 { return t.ResolutionHours },
}

// Tickets builds support-load features.
func Tickets(tables dataset.Tables, anchor time.Time, cfg config.Pipeline) *Table {
	var billingIssues []dataset.SupportTicket
	for _, t := range tables.Tickets {
		if t.IssueType == dataset.IssueBilling {
			billingIssues = append(billingIssues, t)
		}
	}

	return &Table{
		Group: GroupTickets,
		Columns: []Column{
			{
				Name:   "tickets_last_30d",
				Values: aggregate.Windowed(tables.Tickets, ticketInput, anchor, cfg.MidWindowDays, aggregate.Count),
			},
			{
				Name:   "tickets_last_90d",
				Values: aggregate.Windowed(tables.Tickets, ticketInput, anchor, cfg.LongWindowDays, aggregate.Count),
			},
			{
				Name:   "avg_resolution_time_90d",
				Values: aggregate.Windowed(tables.Tickets, ticketInput, anchor, cfg.LongWindowDays, aggregate.Mean),
			},
			{
				Name:   "billing_related_tickets_90d",
				Values: aggregate.Windowed(billingIssues, ticketInput, anchor, cfg.LongWindowDays, aggregate.Count),
			},
		},
	}
}
