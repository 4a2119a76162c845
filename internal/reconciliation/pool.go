package reconciliation

import (
	"fmt"
)

// InvoicePool holds the unpaid invoices for one run together with the
// capacity ledger: the per-invoice running paid amount, seeded from the
// persisted value and advanced in-memory as payments are reserved against
// it. The ledger is what prevents two payments in the same batch from
// double-booking one invoice.
//
// The pool is exclusively owned by the engine during Processing; it is not
// safe for concurrent use.
type InvoicePool struct {
	invoices []*Invoice
	byID     map[string]*Invoice
	ledger   map[string]int64 // live payedSum per invoice, kopecks
}

// NewInvoicePool builds a pool from an invoice snapshot, keeping only
// invoices that are unpaid at load time. Snapshot order is preserved so
// enumeration stays stable across the run.
func NewInvoicePool(snapshot []Invoice) *InvoicePool {
	pool := &InvoicePool{
		byID:   make(map[string]*Invoice),
		ledger: make(map[string]int64),
	}

	for i := range snapshot {
		inv := &snapshot[i]
		if !inv.Unpaid() {
			continue
		}
		pool.invoices = append(pool.invoices, inv)
		pool.byID[inv.ID] = inv
		pool.ledger[inv.ID] = inv.PayedSum
	}

	return pool
}

// Unpaid returns the invoices that were unpaid at load time, in stable
// snapshot order. Capacity consumed during the run does not remove entries;
// callers check RemainingCapacity.
func (p *InvoicePool) Unpaid() []*Invoice {
	return p.invoices
}

// RemainingCapacity returns the invoice's unpaid remainder using the
// ledger's live value, not the original snapshot. Unknown invoices have
// zero capacity.
func (p *InvoicePool) RemainingCapacity(invoiceID string) int64 {
	inv, ok := p.byID[invoiceID]
	if !ok {
		return 0
	}
	return inv.Sum - p.ledger[invoiceID]
}

// Reserve books amount kopecks of the invoice's capacity for the current
// payment. It fails with ErrCapacityExceeded when the reservation would
// push the ledger past the invoice total; the snapshot record is never
// modified.
func (p *InvoicePool) Reserve(invoiceID string, amount int64) error {
	const op = "Reserve"

	inv, ok := p.byID[invoiceID]
	if !ok {
		return fmt.Errorf("%s: %s: %w", op, invoiceID, ErrUnknownInvoice)
	}

	if p.ledger[invoiceID]+amount > inv.Sum {
		return fmt.Errorf("%s: %s: %w", op, invoiceID, ErrCapacityExceeded)
	}

	p.ledger[invoiceID] += amount
	return nil
}

// Paid returns the ledger's current paid amount for the invoice. The batch
// builder reads this to produce the invoice's final outbound record.
func (p *InvoicePool) Paid(invoiceID string) int64 {
	return p.ledger[invoiceID]
}
