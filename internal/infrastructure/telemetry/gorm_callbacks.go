package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type queryStartKey struct{}

// gormStage hooks one GORM processor around its core callback
type gormStage struct {
	name      string
	operation string // SQL verb, empty for row/raw where the SQL decides
	before    func(name string, fn func(*gorm.DB)) error
	after     func(name, runBefore string, fn func(*gorm.DB)) error
}

// chainable is GORM's unexported callback builder
type chainable[C any] interface {
	Before(name string) C
	Register(name string, fn func(*gorm.DB)) error
}

func register[C chainable[C]](c C, runBefore, name string, fn func(*gorm.DB)) error {
	if runBefore != "" {
		c = c.Before(runBefore)
	}
	return c.Register(name, fn)
}

func gormStages(db *gorm.DB) []gormStage {
	cb := db.Callback()
	return []gormStage{
		{
			name:      "create",
			operation: "INSERT",
			before: func(name string, fn func(*gorm.DB)) error {
				return cb.Create().Before("gorm:create").Register(name, fn)
			},
			after: func(name, runBefore string, fn func(*gorm.DB)) error {
				return register(cb.Create().After("gorm:create"), runBefore, name, fn)
			},
		},
		{
			name:      "query",
			operation: "SELECT",
			before: func(name string, fn func(*gorm.DB)) error {
				return cb.Query().Before("gorm:query").Register(name, fn)
			},
			after: func(name, runBefore string, fn func(*gorm.DB)) error {
				return register(cb.Query().After("gorm:query"), runBefore, name, fn)
			},
		},
		{
			name:      "update",
			operation: "UPDATE",
			before: func(name string, fn func(*gorm.DB)) error {
				return cb.Update().Before("gorm:update").Register(name, fn)
			},
			after: func(name, runBefore string, fn func(*gorm.DB)) error {
				return register(cb.Update().After("gorm:update"), runBefore, name, fn)
			},
		},
		{
			name:      "delete",
			operation: "DELETE",
			before: func(name string, fn func(*gorm.DB)) error {
				return cb.Delete().Before("gorm:delete").Register(name, fn)
			},
			after: func(name, runBefore string, fn func(*gorm.DB)) error {
				return register(cb.Delete().After("gorm:delete"), runBefore, name, fn)
			},
		},
		{
			name:      "row",
			operation: "",
			before: func(name string, fn func(*gorm.DB)) error {
				return cb.Row().Before("gorm:row").Register(name, fn)
			},
			after: func(name, runBefore string, fn func(*gorm.DB)) error {
				return register(cb.Row().After("gorm:row"), runBefore, name, fn)
			},
		},
		{
			name:      "raw",
			operation: "",
			before: func(name string, fn func(*gorm.DB)) error {
				return cb.Raw().Before("gorm:raw").Register(name, fn)
			},
			after: func(name, runBefore string, fn func(*gorm.DB)) error {
				return register(cb.Raw().After("gorm:raw"), runBefore, name, fn)
			},
		},
	}
}

// registerAround installs before/after on every processor. Callback names
// are prefix:before_<n> and prefix:after_<n>. With runBefore set, the after
// hook is ordered ahead of the callback named runBefore+<n>.
func registerAround(db *gorm.DB, prefix, runBefore string, before func(*gorm.DB), after func(db *gorm.DB, operation string)) error {
	for _, stage := range gormStages(db) {
		if before != nil {
			if err := stage.before(prefix+":before_"+stage.name, before); err != nil {
				return err
			}
		}
		anchor := ""
		if runBefore != "" {
			anchor = runBefore + stage.name
		}
		op := stage.operation
		if err := stage.after(prefix+":after_"+stage.name, anchor, func(db *gorm.DB) {
			verb := op
			if verb == "" {
				verb = detectOperationType(db.Statement.SQL.String())
			}
			after(db, verb)
		}); err != nil {
			return err
		}
	}
	return nil
}

// markQueryStart stamps the statement context with the current time
func markQueryStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
}

// queryElapsed returns the time since markQueryStart, or false without a stamp
func queryElapsed(db *gorm.DB) (time.Duration, bool) {
	if db.Statement.Context == nil {
		return 0, false
	}
	start, ok := db.Statement.Context.Value(queryStartKey{}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// detectOperationType reads the SQL verb of a raw statement
func detectOperationType(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
