package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

var (
	// ErrPoolInitialized is returned when the process-wide pool is initialized twice.
	ErrPoolInitialized = errors.New("connection pool already initialized")

	// ErrInvalidPoolSize is returned when min/max sizes are inconsistent.
	ErrInvalidPoolSize = errors.New("invalid connection pool size")

	// ErrPoolClosed is returned by operations on a closed pool.
	ErrPoolClosed = errors.New("connection pool is closed")
)

const (
	mysqlDuplicateEntry = 1062
	pgUniqueViolation   = "23505"
)

// IsUniqueViolation reports whether err is a primary key or unique index
// violation raised by any of the supported drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}

	// modernc.org/sqlite
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
