package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineIsValid(t *testing.T) {
	require.NoError(t, ValidatePipeline(DefaultPipeline()))
}

func TestValidatePipelineRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Pipeline)
		field  string
	}{
		{"zero threshold", func(p *Pipeline) { p.InactivityThresholdDays = 0 }, "inactivityThresholdDays"},
		{"sentinel below threshold", func(p *Pipeline) { p.SentinelDays = 10 }, "sentinelDays"},
		{"negative churn rate", func(p *Pipeline) { p.MinChurnRate = -0.1 }, "minChurnRate"},
		{"zero window", func(p *Pipeline) { p.MidWindowDays = 0 }, "windows"},
		{"unordered windows", func(p *Pipeline) { p.ShortWindowDays = 120 }, "windows"},
		{"zero trend bucket", func(p *Pipeline) { p.TrendBucketDays = 0 }, "trend"},
		{"split ratio one", func(p *Pipeline) { p.SplitRatio = 1 }, "splitRatio"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultPipeline()
			tc.mutate(&cfg)

			err := ValidatePipeline(cfg)
			require.Error(t, err)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}
