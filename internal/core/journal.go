package core

import (
	"context"
	"time"
)

// OperationType represents the kind of write that produced a change event.
type OperationType string

const (
	// OperationInsert is emitted by a successful save.
	OperationInsert OperationType = "INSERT"

	// OperationUpdate is emitted by a successful update.
	OperationUpdate OperationType = "UPDATE"

	// OperationDelete is emitted by a successful remove.
	OperationDelete OperationType = "DELETE"
)

// ChangeEvent describes one persisted write against a mapped table.
type ChangeEvent struct {
	// Table is the name of the table the statement targeted.
	Table string `json:"table" dynamodbav:"table"`

	// Operation is the kind of statement that was executed.
	Operation OperationType `json:"operation" dynamodbav:"operation"`

	// Key is the primary key value of the affected row.
	Key interface{} `json:"key" dynamodbav:"key"`

	// Data holds the bound column values for inserts and updates.
	// It is nil for deletes.
	Data Row `json:"data,omitempty" dynamodbav:"data,omitempty"`

	// Affected is the row count reported by the database.
	// Anything other than 1 means the write did not land as intended.
	Affected int64 `json:"affected" dynamodbav:"affected"`

	// Timestamp is when the statement completed.
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// ChangeJournal is an append-only log of change events that can be
// consumed in batches, e.g. to replicate or audit writes.
type ChangeJournal interface {
	// Append adds an event to the end of the journal.
	Append(ctx context.Context, event *ChangeEvent) error

	// Read removes and returns up to batchSize events in append order.
	// Returns an empty slice if the journal is empty.
	Read(ctx context.Context, batchSize int) ([]*ChangeEvent, error)

	// Size returns the (possibly approximate) number of unread events.
	Size() int

	// Close releases the journal's resources.
	Close() error
}
