// Package journal provides an append-only durable log abstraction used
// for the security audit trail and the tool usage history. Records are
// immutable once appended and are streamed back in timestamp order.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Record is a single immutable journal entry
type Record struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Journal is an append-only durable log. Append must not return before
// the record is durable. Implementations preserve a single total order
// of records per journal, even under concurrent writers.
type Journal interface {
	// Append durably writes a record. A zero timestamp is assigned
	// by the journal; assigned timestamps are strictly increasing.
	Append(ctx context.Context, rec Record) error

	// Stream invokes fn for every record with a timestamp at or
	// after from, in timestamp order. Re-streaming from the start
	// yields the same sequence, assuming no new appends. fn may
	// return ErrStop to end iteration early without error.
	Stream(ctx context.Context, from time.Time, fn func(Record) error) error

	// Len returns the number of records in the journal
	Len() (int, error)

	Close() error
}

// ErrStop stops a Stream iteration early without error
var ErrStop = errors.New("journal: stop iteration")

// ErrClosed is returned when operating on a closed journal
var ErrClosed = errors.New("journal: closed")
