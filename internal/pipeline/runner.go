// Package pipeline drives one batch run end to end: load, validate, anchor,
// aggregate, label, assemble, split, persist. Stages run in a fixed order
// and the first hard failure aborts the run before later artifacts are
// written.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/churnpipe/internal/anchor"
	"github.com/smallbiznis/churnpipe/internal/clock"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/dataset"
	"github.com/smallbiznis/churnpipe/internal/features"
	"github.com/smallbiznis/churnpipe/internal/label"
	"github.com/smallbiznis/churnpipe/internal/modeling"
	"github.com/smallbiznis/churnpipe/internal/observability/metrics"
	"github.com/smallbiznis/churnpipe/internal/split"
	"github.com/smallbiznis/churnpipe/internal/store"
	"github.com/smallbiznis/churnpipe/internal/validate"
)

type Params struct {
	fx.In

	Config    config.Config
	Holder    *config.PipelineHolder
	Log       *zap.Logger
	Clock     clock.Clock
	Validator *validate.Validator
	Metrics   *metrics.Metrics
	Summary   *metrics.BatchSummary
	Store     *store.Service
}

type Runner struct {
	cfg       config.Config
	holder    *config.PipelineHolder
	log       *zap.Logger
	clock     clock.Clock
	validator *validate.Validator
	metrics   *metrics.Metrics
	summary   *metrics.BatchSummary
	store     *store.Service
	tracer    trace.Tracer
}

func New(p Params) *Runner {
	return &Runner{
		cfg:       p.Config,
		holder:    p.Holder,
		log:       p.Log.Named("pipeline"),
		clock:     p.Clock,
		validator: p.Validator,
		metrics:   p.Metrics,
		summary:   p.Summary,
		store:     p.Store,
		tracer:    otel.Tracer("churnpipe/pipeline"),
	}
}

// Result summarizes one finished run.
type Result struct {
	RunID         snowflake.ID
	ReferenceTime time.Time

	Labeled     int
	ExcludedNew int
	ChurnRate   float64

	TrainSize int
	TestSize  int
}

func (r *Runner) runStage(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := r.clock.Now()
	ctx, span := r.tracer.Start(parent, "stage."+name)
	defer span.End()

	log := r.log.With(zap.String("stage", name))
	log.Debug("stage started")

	err := fn(ctx)
	elapsed := r.clock.Now().Sub(start)
	r.metrics.RecordStage(ctx, name, elapsed)
	r.summary.ObserveStage(name, elapsed.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("stage failed", zap.Duration("took", elapsed), zap.Error(err))
		return fmt.Errorf("stage %s: %w", name, err)
	}
	log.Info("stage finished", zap.Duration("took", elapsed))
	return nil
}

// Run executes the full pipeline once. The pipeline config is snapshotted
// up front so a hot reload mid-run cannot mix two parameter sets.
func (r *Runner) Run(parent context.Context) (Result, error) {
	pcfg := r.holder.Get()
	outDir := r.cfg.OutDir

	ctx, span := r.tracer.Start(parent, "pipeline.run")
	defer span.End()

	started := r.clock.Now()
	r.log.Info("run started",
		zap.String("raw_dir", r.cfg.RawDir),
		zap.String("out_dir", outDir),
		zap.Int("inactivity_threshold_days", pcfg.InactivityThresholdDays),
	)

	var (
		frames  dataset.Frames
		tables  dataset.Tables
		index   *dataset.CustomerIndex
		report  *validate.Report
		tref    time.Time
		groups  modeling.Groups
		labels  label.Result
		rows    []modeling.Row
		sets    split.Sets
		result  Result
	)

	if err := r.runStage(ctx, "load", func(ctx context.Context) error {
		var err error
		frames, err = dataset.ReadFrames(r.cfg.RawDir)
		if err != nil {
			return err
		}
		for _, t := range []struct {
			name string
			rows int
		}{
			{dataset.TableCustomers, len(frames.Customers.Rows)},
			{dataset.TableSubscriptions, len(frames.Subscriptions.Rows)},
			{dataset.TableUsageEvents, len(frames.Usage.Rows)},
			{dataset.TableSupportTickets, len(frames.Tickets.Rows)},
		} {
			r.metrics.RecordRowsLoaded(ctx, t.name, t.rows)
			r.summary.SetTableRows(t.name, t.rows)
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	err := r.runStage(ctx, "validate", func(ctx context.Context) error {
		var verr error
		tables, report, verr = r.validator.Run(ctx, frames, pcfg)
		if report != nil {
			r.logReport(ctx, report)
		}
		return verr
	})
	if report != nil && r.cfg.ReportPDF != "" {
		if perr := report.WritePDF(r.cfg.ReportPDF); perr != nil {
			r.log.Warn("validation report export failed", zap.Error(perr))
		}
	}
	if err != nil {
		return Result{}, err
	}
	index = tables.Index()

	if err := r.runStage(ctx, "anchor", func(ctx context.Context) error {
		var aerr error
		tref, aerr = anchor.Resolve(tables)
		if aerr != nil {
			return aerr
		}
		r.log.Info("reference time resolved", zap.Time("reference_time", tref))
		return nil
	}); err != nil {
		return Result{}, err
	}

	if err := r.runStage(ctx, "features", func(ctx context.Context) error {
		var wg sync.WaitGroup
		builders := []struct {
			build func(dataset.Tables, time.Time, config.Pipeline) *features.Table
			dst   **features.Table
		}{
			{features.Engagement, &groups.Engagement},
			{features.Billing, &groups.Billing},
			{features.Tickets, &groups.Tickets},
			{features.Trend, &groups.Trend},
		}
		wg.Add(len(builders))
		for _, b := range builders {
			go func() {
				defer wg.Done()
				*b.dst = b.build(tables, tref, pcfg)
			}()
		}
		wg.Wait()

		universe := index.Universe()
		for _, t := range []*features.Table{groups.Engagement, groups.Billing, groups.Tickets, groups.Trend} {
			path := filepath.Join(outDir, t.Group+"_features.csv")
			if err := t.WriteCSV(path, universe); err != nil {
				return err
			}
			r.metrics.RecordFeatureRows(ctx, t.Group, len(universe))
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	if err := r.runStage(ctx, "label", func(ctx context.Context) error {
		labels = label.Apply(tables, tref, pcfg)
		if err := labels.WriteCSV(filepath.Join(outDir, "churn_labels.csv")); err != nil {
			return err
		}
		churned := labels.Churned()
		r.metrics.RecordLabels(ctx, "churned", churned)
		r.metrics.RecordLabels(ctx, "retained", len(labels.Labels)-churned)
		r.summary.SetLabelStats(len(labels.Labels), labels.ExcludedNew, labels.ChurnRate())
		r.log.Info("labels produced",
			zap.Int("labeled", len(labels.Labels)),
			zap.Int("excluded_new", labels.ExcludedNew),
			zap.Float64("churn_rate", labels.ChurnRate()),
		)
		return nil
	}); err != nil {
		return Result{}, err
	}

	if err := r.runStage(ctx, "assemble", func(ctx context.Context) error {
		var aerr error
		rows, aerr = modeling.Assemble(labels, groups)
		if aerr != nil {
			return aerr
		}
		if err := modeling.WriteCSV(filepath.Join(outDir, "modeling_table.csv"), rows); err != nil {
			return err
		}
		return modeling.WriteParquet(filepath.Join(outDir, "modeling_table.parquet"), rows)
	}); err != nil {
		return Result{}, err
	}

	if err := r.runStage(ctx, "split", func(ctx context.Context) error {
		var serr error
		sets, serr = split.ByCohort(labels, index, pcfg.SplitRatio)
		if serr != nil {
			return serr
		}
		train, test := partitionRows(rows, sets)
		if err := modeling.WriteCSV(filepath.Join(outDir, "modeling_train.csv"), train); err != nil {
			return err
		}
		if err := modeling.WriteCSV(filepath.Join(outDir, "modeling_test.csv"), test); err != nil {
			return err
		}
		r.log.Info("population split",
			zap.Time("cutoff", sets.Cutoff),
			zap.Int("train", len(train)),
			zap.Int("test", len(test)),
		)
		result.TrainSize = len(train)
		result.TestSize = len(test)
		return nil
	}); err != nil {
		return Result{}, err
	}

	if r.cfg.StoreEnabled {
		if err := r.runStage(ctx, "persist", func(ctx context.Context) error {
			runID, perr := r.store.Persist(ctx, store.Snapshot{
				ReferenceTime:    tref,
				RawDir:           r.cfg.RawDir,
				Report:           report,
				CustomerRows:     len(tables.Customers),
				SubscriptionRows: len(tables.Billing),
				UsageRows:        len(tables.Usage),
				TicketRows:       len(tables.Tickets),
				Labels:           labels,
				Rows:             rows,
			})
			if perr != nil {
				return perr
			}
			result.RunID = runID
			return nil
		}); err != nil {
			return Result{}, err
		}
	}

	r.summary.SetWarnings(report.Warnings())
	if err := r.summary.WriteTo(filepath.Join(outDir, "metrics.prom")); err != nil {
		r.log.Warn("metrics export failed", zap.Error(err))
	}

	result.ReferenceTime = tref
	result.Labeled = len(labels.Labels)
	result.ExcludedNew = labels.ExcludedNew
	result.ChurnRate = labels.ChurnRate()

	r.log.Info("run finished",
		zap.Duration("took", r.clock.Now().Sub(started)),
		zap.Int("labeled", result.Labeled),
		zap.Int("train", result.TrainSize),
		zap.Int("test", result.TestSize),
	)
	return result, nil
}

func (r *Runner) logReport(ctx context.Context, report *validate.Report) {
	for _, f := range report.Findings {
		r.metrics.RecordFinding(ctx, string(f.Level))
	}
	log := r.log.Named("report").With(zap.String("report_id", report.ID))
	for _, f := range report.Findings {
		fields := []zap.Field{zap.String("check", f.Check), zap.String("table", f.Table)}
		switch f.Level {
		case validate.LevelFail:
			log.Error(f.Message, fields...)
		case validate.LevelWarn:
			log.Warn(f.Message, fields...)
		default:
			log.Info(f.Message, fields...)
		}
	}
	if !report.Failed() {
		log.Info("all data validation checks passed")
	}
}

func partitionRows(rows []modeling.Row, sets split.Sets) (train, test []modeling.Row) {
	testSet := make(map[string]struct{}, len(sets.Test))
	for _, id := range sets.Test {
		testSet[id] = struct{}{}
	}
	for _, row := range rows {
		if _, ok := testSet[row.CustomerID]; ok {
			test = append(test, row)
		} else {
			train = append(train, row)
		}
	}
	return train, test
}
