// Package store persists run artifacts to the database so past runs stay
// queryable after their files are overwritten by the next run.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/churnpipe/internal/clock"
	"github.com/smallbiznis/churnpipe/internal/label"
	"github.com/smallbiznis/churnpipe/internal/modeling"
	"github.com/smallbiznis/churnpipe/internal/validate"
	"github.com/smallbiznis/churnpipe/pkg/db"
)

const insertBatchSize = 500

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) (*Service, error) {
	if err := p.DB.AutoMigrate(&Run{}, &LabelRecord{}, &ModelingRecord{}); err != nil {
		return nil, fmt.Errorf("migrate artifact store: %w", err)
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("store"),
		genID: p.GenID,
		clock: p.Clock,
	}, nil
}

// Snapshot is everything a run persists.
type Snapshot struct {
	ReferenceTime time.Time
	RawDir        string
	Report        *validate.Report

	CustomerRows     int
	SubscriptionRows int
	UsageRows        int
	TicketRows       int

	Labels label.Result
	Rows   []modeling.Row
}

// Persist writes one run and its label and modeling rows atomically.
func (s *Service) Persist(ctx context.Context, snap Snapshot) (snowflake.ID, error) {
	findings, err := json.Marshal(snap.Report.Findings)
	if err != nil {
		return 0, fmt.Errorf("encode findings: %w", err)
	}

	run := Run{
		ID:               s.genID.Generate(),
		ReferenceTime:    snap.ReferenceTime.UTC(),
		RawDir:           snap.RawDir,
		Findings:         findings,
		CustomerRows:     snap.CustomerRows,
		SubscriptionRows: snap.SubscriptionRows,
		UsageRows:        snap.UsageRows,
		TicketRows:       snap.TicketRows,
		LabeledCustomers: len(snap.Labels.Labels),
		ExcludedNew:      snap.Labels.ExcludedNew,
		ChurnRate:        snap.Labels.ChurnRate(),
		CreatedAt:        s.clock.Now(),
	}

	labels := make([]LabelRecord, 0, len(snap.Labels.Labels))
	for _, o := range snap.Labels.Labels {
		labels = append(labels, LabelRecord{
			RunID:                   run.ID,
			CustomerID:              o.CustomerID,
			ChurnLabel:              o.ChurnLabel,
			TenureDays:              o.TenureDays,
			DaysSinceUsage:          o.DaysSinceUsage,
			DaysSinceSuccessPayment: o.DaysSinceSuccessPayment,
		})
	}

	rows := make([]ModelingRecord, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		rows = append(rows, ModelingRecord{RunID: run.ID, Row: r})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("run %s already recorded: %w", run.ID, err)
			}
			return err
		}
		if len(labels) > 0 {
			if err := tx.CreateInBatches(labels, insertBatchSize).Error; err != nil {
				return err
			}
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("run persisted",
		zap.String("run_id", run.ID.String()),
		zap.Time("reference_time", run.ReferenceTime),
		zap.Int("labels", len(labels)),
		zap.Int("modeling_rows", len(rows)),
	)
	return run.ID, nil
}

// LatestRun returns the most recently created run record.
func (s *Service) LatestRun(ctx context.Context) (Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").First(&run).Error
	return run, err
}

// LabelsForRun returns a run's label records in customer order.
func (s *Service) LabelsForRun(ctx context.Context, runID snowflake.ID) ([]LabelRecord, error) {
	var out []LabelRecord
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("customer_id ASC").
		Find(&out).Error
	return out, err
}
