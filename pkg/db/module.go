// Package db opens the artifact database. The dialect is chosen from
// configuration; sqlite is the default so a local run needs no server.
package db

import (
	"github.com/smallbiznis/churnpipe/internal/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Options(
	fx.Provide(New),
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func New(p Params) (*gorm.DB, error) {
	dialector, err := Dialect(p.Config)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if p.Config.OtelEnabled {
		if err := gdb.Use(otelgorm.NewPlugin()); err != nil {
			return nil, err
		}
	}

	p.Log.Named("db").Info("database opened", zap.String("dialect", dialector.Name()))
	return gdb, nil
}
