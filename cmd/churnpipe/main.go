package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/churnpipe/internal/clock"
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/smallbiznis/churnpipe/internal/observability"
	"github.com/smallbiznis/churnpipe/internal/pipeline"
	"github.com/smallbiznis/churnpipe/internal/store"
	"github.com/smallbiznis/churnpipe/internal/validate"
	"github.com/smallbiznis/churnpipe/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Pipeline stages
		validate.Module,
		store.Module,
		pipeline.Module,

		fx.Invoke(runOnce),
	)
	app.Run()
}

// runOnce executes a single batch run once the app has started and shuts
// the process down with the run's exit status.
func runOnce(lc fx.Lifecycle, runner *pipeline.Runner, shutdowner fx.Shutdowner, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				code := 0
				if _, err := runner.Run(context.Background()); err != nil {
					log.Error("pipeline run failed", zap.Error(err))
					code = 1
				}
				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					log.Error("shutdown failed", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
