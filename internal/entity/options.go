package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidLimit is returned by FindAll for a negative row count or offset.
var ErrInvalidLimit = errors.New("invalid limit")

// QueryOption shapes the statement built by FindAll.
type QueryOption func(*query)

type query struct {
	where   string
	args    []interface{}
	orderBy string
	limited bool
	offset  int
	count   int
	err     error
}

// Where appends a where clause. The clause uses `?` placeholders bound to args.
func Where(clause string, args ...interface{}) QueryOption {
	return func(q *query) {
		q.where = clause
		q.args = args
	}
}

// OrderBy appends an order by clause.
func OrderBy(expr string) QueryOption {
	return func(q *query) {
		q.orderBy = expr
	}
}

// Limit returns at most n rows from the start of the result.
func Limit(n int) QueryOption {
	return func(q *query) {
		if n < 0 {
			q.err = fmt.Errorf("%w: %d", ErrInvalidLimit, n)
			return
		}
		q.limited = true
		q.offset = -1
		q.count = n
	}
}

// Page skips offset rows and returns at most count rows.
func Page(offset, count int) QueryOption {
	return func(q *query) {
		if offset < 0 || count < 0 {
			q.err = fmt.Errorf("%w: (%d, %d)", ErrInvalidLimit, offset, count)
			return
		}
		q.limited = true
		q.offset = offset
		q.count = count
	}
}
