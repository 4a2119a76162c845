package reconciliation

import (
	"errors"
	"fmt"
)

// Common reconciliation errors
var (
	// ErrCapacityExceeded is returned by InvoicePool.Reserve when a
	// reservation would push an invoice's paid amount past its total.
	// Callers treat this as "no match", never as a batch abort.
	ErrCapacityExceeded = errors.New("invoice capacity exceeded")

	// ErrUnknownInvoice is returned when a reservation references an
	// invoice that is not part of the pool.
	ErrUnknownInvoice = errors.New("invoice not in pool")

	// ErrRunClosed is returned when Run is called on an engine that has
	// already processed its batch. Engines are single-use.
	ErrRunClosed = errors.New("reconciliation run already closed")
)

// FetchError wraps a collaborator read failure. It is fatal to the run and
// always precedes any remote mutation.
type FetchError struct {
	// Entity is the entity type whose fetch failed ("paymentin", "invoiceout").
	Entity string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("reconciliation: fetching %s failed: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// SendError wraps a sender rejection. The computed batch is lost for this
// run; callers retry at the batch level.
type SendError struct {
	// Entity is the entity type whose send failed.
	Entity string

	// Records is the number of records in the rejected batch.
	Records int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return fmt.Sprintf("reconciliation: sending %d %s records failed: %v", e.Records, e.Entity, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *SendError) Unwrap() error {
	return e.Err
}
