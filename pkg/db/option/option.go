package option

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a statement before it runs.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

type Operator string

const (
	EQ  Operator = "="
	GTE Operator = ">="
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func ApplyOperator(cond Condition) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		op := cond.Operator
		if op == "" {
			op = EQ
		}
		return db.Where(fmt.Sprintf("%s %s ?", field, op), cond.Value)
	})
}

func WithLimit(limit int) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

// ForUpdate takes row locks on the selected rows. SQLite has no row locks;
// its single writer already serializes the transaction.
func ForUpdate() QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if db.Dialector != nil && db.Dialector.Name() == "sqlite" {
			return db
		}
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	})
}

// Before keeps rows strictly older than the (created_at, id) keyset position,
// matching an ORDER BY created_at desc, id desc scan.
func Before(createdAt time.Time, id int64) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	})
}
