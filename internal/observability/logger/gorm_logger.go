package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQuery = 200 * time.Millisecond

// QueryLogger routes gorm output through zap with request-scoped fields.
// Bound parameters are never logged since stream rows carry creator data.
type QueryLogger struct {
	base  *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewQueryLogger accepts "silent", "error", "warn" or "info"; anything else
// falls back to warn.
func NewQueryLogger(base *zap.Logger, level string, slow time.Duration) *QueryLogger {
	if base == nil {
		base = zap.NewNop()
	}
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	return &QueryLogger{
		base:  base.Named("gorm"),
		level: parseGormLevel(level),
		slow:  slow,
	}
}

func parseGormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (l *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		WithContext(ctx, l.base).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		WithContext(ctx, l.base).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		WithContext(ctx, l.base).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed queries at error, slow queries at warn and everything
// else at debug when the level is info. Missing rows are not failures.
func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := elapsed > l.slow

	var level string
	switch {
	case failed && l.level >= gormlogger.Error:
		level = "error"
	case slow && l.level >= gormlogger.Warn:
		level = "warn"
	case l.level >= gormlogger.Info:
		level = "debug"
	default:
		return
	}

	sql, rows := fc()
	op, table := describeSQL(sql)
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("table", table),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}

	log := WithContext(ctx, l.base)
	switch level {
	case "error":
		log.Error("query failed", append(fields, zap.String("sql", strings.TrimSpace(sql)), zap.Error(err))...)
	case "warn":
		log.Warn("slow query", append(fields, zap.String("sql", strings.TrimSpace(sql)))...)
	default:
		log.Debug("query", fields...)
	}
}

// ParamsFilter drops bound values from the rendered SQL.
func (l *QueryLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

// describeSQL extracts the statement verb and the first table it touches.
func describeSQL(sql string) (string, string) {
	tokens := strings.Fields(strings.TrimSpace(sql))
	op, table := "UNKNOWN", ""
	for i, token := range tokens {
		word := strings.ToUpper(strings.Trim(token, "();"))
		switch word {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			if op == "UNKNOWN" {
				op = word
			}
		case "FROM", "INTO":
			if table == "" && i+1 < len(tokens) {
				table = strings.Trim(tokens[i+1], "\"`();")
			}
		}
		if word == "UPDATE" && table == "" && i+1 < len(tokens) {
			table = strings.Trim(tokens[i+1], "\"`();")
		}
	}
	return op, table
}

var _ gormlogger.Interface = (*QueryLogger)(nil)
