package db

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gormLogger adapts gorm's logger interface onto pkg/logger so statement
// failures carry the request fields already on the context.
type gormLogger struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

func newGormLogger(logg *logger.Logger, slow time.Duration) *gormLogger {
	level := gormlogger.Warn
	if logg == nil {
		level = gormlogger.Silent
	}
	return &gormLogger{logg: logg, slow: slow, level: level}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLogger) Info(ctx context.Context, msg string, _ ...any) {
	if g.level >= gormlogger.Info {
		g.logg.Debug(ctx, msg)
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, _ ...any) {
	if g.level >= gormlogger.Warn {
		g.logg.Warn(ctx, msg)
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, _ ...any) {
	if g.level >= gormlogger.Error {
		g.logg.Error(ctx, msg, nil)
	}
}

// Trace is called after every statement. Not-found lookups are expected and
// are never logged.
func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.slow > 0 && elapsed > g.slow
	if !failed && !slow {
		return
	}

	query, rows := fc()
	fields := map[string]any{
		"sql":        query,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if failed {
		fields["error"] = err.Error()
		g.logg.Warn(g.logg.WithFields(ctx, fields), "db.query_failed")
		return
	}
	g.logg.Warn(g.logg.WithFields(ctx, fields), "db.slow_query")
}
