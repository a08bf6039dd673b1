package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type queryStartKey struct{ plugin string }

// registerTimed installs a before hook stamping the start time and an after
// hook receiving the elapsed duration and operation verb. With beforeOtel the
// after hook runs while the otelgorm span is still open.
func registerTimed(db *gorm.DB, plugin string, beforeOtel bool, after func(db *gorm.DB, operation string, elapsed time.Duration)) error {
	key := queryStartKey{plugin: plugin}
	before := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
	afterFor := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			var elapsed time.Duration
			if db.Statement.Context != nil {
				if start, ok := db.Statement.Context.Value(key).(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			op := operation
			if op == "" {
				op = detectOperationType(db.Statement.SQL.String())
			}
			after(db, op, elapsed)
		}
	}

	cb := db.Callback()
	// otelgorm names its hooks after these verbs; running ahead of its after
	// hook keeps the query span open for annotation.
	steps := []struct {
		name, otelName, operation string
		before, after             func(name, precede string, f func(*gorm.DB)) error
	}{
		{"create", "create", "INSERT",
			func(n, _ string, f func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, f) },
			func(n, p string, f func(*gorm.DB)) error { return cb.Create().After("gorm:create").Before(p).Register(n, f) }},
		{"query", "select", "SELECT",
			func(n, _ string, f func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, f) },
			func(n, p string, f func(*gorm.DB)) error { return cb.Query().After("gorm:query").Before(p).Register(n, f) }},
		{"update", "update", "UPDATE",
			func(n, _ string, f func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, f) },
			func(n, p string, f func(*gorm.DB)) error { return cb.Update().After("gorm:update").Before(p).Register(n, f) }},
		{"delete", "delete", "DELETE",
			func(n, _ string, f func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, f) },
			func(n, p string, f func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Before(p).Register(n, f) }},
		{"row", "row", "",
			func(n, _ string, f func(*gorm.DB)) error { return cb.Row().Before("gorm:row").Register(n, f) },
			func(n, p string, f func(*gorm.DB)) error { return cb.Row().After("gorm:row").Before(p).Register(n, f) }},
		{"raw", "raw", "",
			func(n, _ string, f func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, f) },
			func(n, p string, f func(*gorm.DB)) error { return cb.Raw().After("gorm:raw").Before(p).Register(n, f) }},
	}
	for _, s := range steps {
		if err := s.before(plugin+":before_"+s.name, "", before); err != nil {
			return err
		}
		precede := ""
		if beforeOtel {
			precede = "otel:after:" + s.otelName
		}
		if err := s.after(plugin+":after_"+s.name, precede, afterFor(s.operation)); err != nil {
			return err
		}
	}
	return nil
}

// detectOperationType returns the SQL verb of a raw statement
func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"} {
		if strings.HasPrefix(sql, verb) {
			if verb == "WITH" {
				return "SELECT"
			}
			return verb
		}
	}
	return "OTHER"
}
