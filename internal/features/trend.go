package features

import (
	"time"

	"github.com/smallbiznis/churnpipe/internal/aggregate"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
)

const GroupTrend = "trend"

// Trend builds the engagement-decay slope: the OLS slope of weekly login
// counts against weeks-back-from-anchor. Negative means logins were higher
// in recent weeks than older ones; positive means engagement is fading.
func Trend(tables dataset.Tables, anchor time.Time, cfg config.Pipeline) *Table {
	slopes := aggregate.WeeklySlope(tables.Usage,
		func(e dataset.UsageEvent) string { return e.CustomerID },
		func(e dataset.UsageEvent) time.Time { return e.Timestamp },
		func(e dataset.UsageEvent) bool { return e.EventType == dataset.EventLogin },
		anchor,
		cfg.TrendLookbackDays,
		cfg.TrendBucketDays,
	)

	return &Table{
		Group: GroupTrend,
		Columns: []Column{
			{Name: "engagement_decay_slope", Values: slopes},
		},
	}
}
