package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique-constraint violation.
// The redemption engine relies on this to turn a lost insert race into an
// idempotent replay.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()

	// PostgreSQL (23505)
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		return true
	}

	// MySQL (1062)
	if strings.Contains(msg, "Error 1062") || strings.Contains(msg, "Duplicate entry") {
		return true
	}

	// SQLite (2067)
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsSerializationErr reports whether err looks like transient lock or
// serialization contention that is safe to retry.
func IsSerializationErr(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	// PostgreSQL (40001 serialization_failure, 40P01 deadlock_detected)
	if strings.Contains(msg, "could not serialize access") || strings.Contains(msg, "deadlock detected") {
		return true
	}

	// MySQL (1213 deadlock, 1205 lock wait timeout)
	if strings.Contains(msg, "Deadlock found") || strings.Contains(msg, "Lock wait timeout") {
		return true
	}

	// SQLite (5 SQLITE_BUSY, 6 SQLITE_LOCKED)
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return true
	}

	return false
}
