package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_LogMode(t *testing.T) {
	gormLog := NewGormLogger(zap.NewNop(), gormlogger.Info)
	newLogger := gormLog.LogMode(gormlogger.Warn)

	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	newGormLog, ok := newLogger.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, newGormLog.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return `UPDATE "leads" SET "status"=$1 WHERE id = $2`, 1 }

	t.Run("logs errors with target", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		l.Trace(WithUserID(context.Background(), 4), time.Now(), query, errors.New("deadlock detected"))

		logs := recorded.FilterMessage("SQL error").All()
		require.Len(t, logs, 1)
		fields := logs[0].ContextMap()
		assert.Equal(t, "update", fields["op"])
		assert.Equal(t, "leads", fields["table"])
		assert.Equal(t, int64(4), fields["user_id"])
	})

	t.Run("ignores record not found", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		assert.Zero(t, recorded.Len())
	})

	t.Run("warns on slow query", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		l.Trace(WithRequestID(context.Background(), "req-9"), time.Now().Add(-time.Second), query, nil)

		require.Equal(t, 1, recorded.Len())
		entry := recorded.All()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Equal(t, "Slow SQL", entry.Message)
		assert.Equal(t, "req-9", entry.ContextMap()["request_id"])
	})

	t.Run("fast query below info is not built", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		called := false
		l.Trace(context.Background(), time.Now(), func() (string, int64) { called = true; return "", 0 }, nil)

		assert.False(t, called)
		assert.Zero(t, recorded.Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Silent)

		l.Trace(context.Background(), time.Now(), query, errors.New("boom"))

		assert.Zero(t, recorded.Len())
	})
}

func TestStatementTarget(t *testing.T) {
	tests := []struct {
		sql   string
		op    string
		table string
	}{
		{`SELECT * FROM "leads" WHERE "leads"."id" = ?`, "select", "leads"},
		{"INSERT INTO `activity_logs` (`entity_type`) VALUES (?)", "insert", "activity_logs"},
		{`UPDATE users SET manager_id = NULL`, "update", "users"},
		{`DELETE FROM refresh_tokens WHERE expires_at < ?`, "delete", "refresh_tokens"},
		{`BEGIN`, "begin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			op, table := statementTarget(tt.sql)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.table, table)
		})
	}
}

type loggedLead struct {
	ID       uint
	Last4SSN string
}

func TestGormLogger_BoundValues(t *testing.T) {
	open := func(t *testing.T, opts ...GormLoggerOption) (*gorm.DB, *observer.ObservedLogs) {
		t.Helper()
		core, recorded := observer.New(zapcore.DebugLevel)
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: NewGormLogger(zap.New(core), gormlogger.Info, opts...),
		})
		require.NoError(t, err)
		require.NoError(t, db.AutoMigrate(&loggedLead{}))
		return db, recorded
	}
	insertedSQL := func(recorded *observer.ObservedLogs) string {
		for _, e := range recorded.All() {
			if e.ContextMap()["op"] == "insert" {
				return e.ContextMap()["sql"].(string)
			}
		}
		return ""
	}

	t.Run("placeholders by default", func(t *testing.T) {
		db, recorded := open(t)
		require.NoError(t, db.Create(&loggedLead{Last4SSN: "9876"}).Error)

		sql := insertedSQL(recorded)
		require.NotEmpty(t, sql)
		assert.NotContains(t, sql, "9876")
	})

	t.Run("values when enabled", func(t *testing.T) {
		db, recorded := open(t, WithBoundValues(true))
		require.NoError(t, db.Create(&loggedLead{Last4SSN: "9876"}).Error)

		assert.Contains(t, insertedSQL(recorded), "9876")
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("whatever"))
}
