package config

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Pipeline holds the tunables that shape every derived artifact. Changing
// any of these changes the meaning of the outputs, so they are validated on
// load and snapshotted per run.
type Pipeline struct {
	// InactivityThresholdDays is the churn horizon: a customer must be at
	// least this old to be labeled, and this many days of silence counts
	// as a lapse.
	InactivityThresholdDays int `mapstructure:"inactivityThresholdDays"`

	// SentinelDays stands in for "no qualifying event ever occurred" in
	// days-since metrics.
	SentinelDays int `mapstructure:"sentinelDays"`

	// MinChurnRate is the soft lower bound on the churn-like population
	// fraction checked by the validator.
	MinChurnRate float64 `mapstructure:"minChurnRate"`

	ShortWindowDays int `mapstructure:"shortWindowDays"`
	MidWindowDays   int `mapstructure:"midWindowDays"`
	LongWindowDays  int `mapstructure:"longWindowDays"`

	TrendLookbackDays int `mapstructure:"trendLookbackDays"`
	TrendBucketDays   int `mapstructure:"trendBucketDays"`

	// SplitRatio is the signup-date quantile separating train from test.
	SplitRatio float64 `mapstructure:"splitRatio"`
}

func DefaultPipeline() Pipeline {
	return Pipeline{
		InactivityThresholdDays: 45,
		SentinelDays:            999,
		MinChurnRate:            0.05,
		ShortWindowDays:         7,
		MidWindowDays:           30,
		LongWindowDays:          90,
		TrendLookbackDays:       56,
		TrendBucketDays:         7,
		SplitRatio:              0.75,
	}
}

// ConfigurationError reports a malformed or missing tunable. It is fatal
// and never retried.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// PipelineHolder serves the current pipeline config and hot-reloads it when
// the backing file changes. A run snapshots the config once via Get; a
// reload only affects subsequent runs.
type PipelineHolder struct {
	current atomic.Value // holds Pipeline
}

func NewPipelineHolder() (*PipelineHolder, error) {
	v := viper.New()

	v.SetConfigName("pipeline")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/churnpipe")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHURNPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPipeline()
	v.SetDefault("pipeline.inactivityThresholdDays", defaults.InactivityThresholdDays)
	v.SetDefault("pipeline.sentinelDays", defaults.SentinelDays)
	v.SetDefault("pipeline.minChurnRate", defaults.MinChurnRate)
	v.SetDefault("pipeline.shortWindowDays", defaults.ShortWindowDays)
	v.SetDefault("pipeline.midWindowDays", defaults.MidWindowDays)
	v.SetDefault("pipeline.longWindowDays", defaults.LongWindowDays)
	v.SetDefault("pipeline.trendLookbackDays", defaults.TrendLookbackDays)
	v.SetDefault("pipeline.trendBucketDays", defaults.TrendBucketDays)
	v.SetDefault("pipeline.splitRatio", defaults.SplitRatio)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigurationError{Field: "pipeline", Message: err.Error()}
		}
	}

	var cfg Pipeline
	if err := v.UnmarshalKey("pipeline", &cfg); err != nil {
		return nil, &ConfigurationError{Field: "pipeline", Message: err.Error()}
	}
	if err := ValidatePipeline(cfg); err != nil {
		return nil, err
	}

	holder := &PipelineHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Pipeline
		if err := v.UnmarshalKey("pipeline", &updated); err != nil {
			log.Printf("[pipeline-config] reload failed: %v", err)
			return
		}
		if err := ValidatePipeline(updated); err != nil {
			log.Printf("[pipeline-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pipeline-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticHolder pins the holder to cfg with no file watching. Used by
// tests and embedders that manage configuration themselves.
func NewStaticHolder(cfg Pipeline) *PipelineHolder {
	h := &PipelineHolder{}
	h.current.Store(cfg)
	return h
}

func (h *PipelineHolder) Get() Pipeline {
	return h.current.Load().(Pipeline)
}

func ValidatePipeline(cfg Pipeline) error {
	if cfg.InactivityThresholdDays <= 0 {
		return &ConfigurationError{Field: "inactivityThresholdDays", Message: "must be positive"}
	}
	if cfg.SentinelDays <= cfg.InactivityThresholdDays {
		return &ConfigurationError{Field: "sentinelDays", Message: "must exceed the inactivity threshold"}
	}
	if cfg.MinChurnRate < 0 || cfg.MinChurnRate > 1 {
		return &ConfigurationError{Field: "minChurnRate", Message: "must be within [0, 1]"}
	}
	if cfg.ShortWindowDays <= 0 || cfg.MidWindowDays <= 0 || cfg.LongWindowDays <= 0 {
		return &ConfigurationError{Field: "windows", Message: "window lengths must be positive"}
	}
	if cfg.ShortWindowDays > cfg.MidWindowDays || cfg.MidWindowDays > cfg.LongWindowDays {
		return &ConfigurationError{Field: "windows", Message: "windows must be ordered short <= mid <= long"}
	}
	if cfg.TrendLookbackDays <= 0 || cfg.TrendBucketDays <= 0 {
		return &ConfigurationError{Field: "trend", Message: "trend lookback and bucket must be positive"}
	}
	if cfg.SplitRatio <= 0 || cfg.SplitRatio >= 1 {
		return &ConfigurationError{Field: "splitRatio", Message: "must be within (0, 1)"}
	}
	return nil
}
