package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsConcurrencyErr reports whether err means the transaction lost a race
// with another writer and may be retried by the caller.
func IsConcurrencyErr(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
	}

	msg := err.Error()
	// MySQL deadlock / lock wait timeout
	if strings.Contains(msg, "Error 1213") || strings.Contains(msg, "Error 1205") {
		return true
	}
	// SQLite
	if strings.Contains(msg, "database is locked") {
		return true
	}
	return false
}
