package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

type GormLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

// DefaultGormLoggerConfig logs failed and slow statements only. Record-not-found
// is never logged: every lookup in the invoice pipeline maps it to a domain error.
func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// GormLogger routes GORM output through the request-scoped zap logger.
type GormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{level: cfg.Level, slowThreshold: cfg.SlowThreshold}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, zap.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, zap.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, zap.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.level < min {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		l.logQuery(ctx, fc, elapsed, err, zap.ErrorLevel)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		l.logQuery(ctx, fc, elapsed, nil, zap.WarnLevel)
	case l.level >= gormlogger.Info:
		l.logQuery(ctx, fc, elapsed, nil, zap.DebugLevel)
	}
}

// ParamsFilter drops bound values; phone numbers and addresses travel as parameters.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) logQuery(ctx context.Context, fc func() (string, int64), elapsed time.Duration, err error, level zapcore.Level) {
	sql, rows := fc()
	sql = strings.TrimSpace(sql)
	op := operationFromSQL(sql)

	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", sql),
		zap.String("operation", op),
		zap.String("table", tableFromSQL(sql, op)),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if strings.Contains(strings.ToUpper(sql), "FOR UPDATE") {
		fields = append(fields, zap.Bool("row_lock", true))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	if ce := FromContext(ctx).Check(level, "gorm.query"); ce != nil {
		ce.Write(fields...)
	}
}

func operationFromSQL(sql string) string {
	for _, token := range strings.Fields(strings.ToUpper(sql)) {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE", "MERGE":
			return token
		}
	}
	return "UNKNOWN"
}

// tableFromSQL finds the first table the statement targets.
func tableFromSQL(sql, op string) string {
	keyword := "FROM"
	switch op {
	case "INSERT":
		keyword = "INTO"
	case "UPDATE":
		keyword = "UPDATE"
	}

	tokens := strings.Fields(sql)
	for i := 0; i < len(tokens)-1; i++ {
		if strings.EqualFold(tokens[i], keyword) {
			return strings.Trim(tokens[i+1], "\"`();")
		}
	}
	return ""
}

var _ gormlogger.Interface = (*GormLogger)(nil)
