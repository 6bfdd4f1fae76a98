package features

import (
	"time"

	"github.com/smallbiznis/churnpipe/internal/aggregate"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
)

const GroupEngagement = "engagement"

var usageInput = aggregate.Input[dataset.UsageEvent]{
	Key:  func(e dataset.UsageEvent) string { return e.CustomerID },
	Time: func(e dataset.UsageEvent) time.Time { return e.Timestamp },
}

func filterUsage(events []dataset.UsageEvent, eventType string) []dataset.UsageEvent {
	out := make([]dataset.UsageEvent, 0, len(events))
	for _, e := range events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Engagement builds login and feature-use recency counts plus the distinct
// active-day count.
func Engagement(tables dataset.Tables, anchor time.Time, cfg config.Pipeline) *Table {
	logins := filterUsage(tables.Usage, dataset.EventLogin)
	featureUse := filterUsage(tables.Usage, dataset.EventFeatureUse)

	return &Table{
		Group: GroupEngagement,
		Columns: []Column{
			{
				Name:   "logins_last_7d",
				Values: aggregate.Windowed(logins, usageInput, anchor, cfg.ShortWindowDays, aggregate.Count),
			},
			{
				Name:   "logins_last_30d",
				Values: aggregate.Windowed(logins, usageInput, anchor, cfg.MidWindowDays, aggregate.Count),
			},
			{
				Name:   "feature_use_last_30d",
				Values: aggregate.Windowed(featureUse, usageInput, anchor, cfg.MidWindowDays, aggregate.Count),
			},
			{
				Name:   "activity_days_last_30d",
				Values: aggregate.Windowed(tables.Usage, usageInput, anchor, cfg.MidWindowDays, aggregate.DistinctDays),
			},
		},
	}
}
