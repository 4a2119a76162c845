package reconciliation

import (
	"context"
	"time"
)

// Entity type names used by the accounting system for the two update sets.
const (
	EntityPaymentIn  = "paymentin"
	EntityInvoiceOut = "invoiceout"
)

// Payment represents an incoming customer payment (paymentin) that has not
// yet been attached to an invoice.
type Payment struct {
	ID             string
	OrganizationID string
	AgentID        string    // counterparty the payment came from
	AccountID      string    // organization bank account the payment arrived on
	Sum            int64     // amount in kopecks
	Purpose        string    // free-text payment purpose (назначение платежа)
	Moment         time.Time // when the payment was registered
}

// Eligible reports whether the payment can participate in matching.
// A payment without a bank account reference or purpose text carries no
// usable evidence and is skipped silently.
func (p *Payment) Eligible() bool {
	return p.AccountID != "" && p.Purpose != ""
}

// Invoice represents a sales invoice (invoiceout) issued to a customer.
type Invoice struct {
	ID             string
	Name           string // human-readable invoice number referenced in payment text
	OrganizationID string
	AgentID        string
	AccountID      string
	Sum            int64     // total amount in kopecks
	PayedSum       int64     // amount already paid in kopecks
	Moment         time.Time // issue date
}

// Unpaid reports whether the invoice still has outstanding balance
// at snapshot time. Both sums are in kopecks.
func (inv *Invoice) Unpaid() bool {
	return inv.PayedSum < inv.Sum
}

// MatchCandidate pairs a payment with a scored invoice. Transient: exists
// only while a payment is being scored, never persisted.
type MatchCandidate struct {
	Payment *Payment
	Invoice *Invoice
	Score   int
}

// beats reports whether c wins over other under the deterministic ordering:
// higher score first, then earlier issue date, then lower invoice ID.
func (c MatchCandidate) beats(other MatchCandidate) bool {
	if c.Score != other.Score {
		return c.Score > other.Score
	}
	if !c.Invoice.Moment.Equal(other.Invoice.Moment) {
		return c.Invoice.Moment.Before(other.Invoice.Moment)
	}
	return c.Invoice.ID < other.Invoice.ID
}

// AttributeMeta is the opaque reference to the tenant's custom attachment
// attribute on paymentin entities.
type AttributeMeta struct {
	Href string
	Type string
}

// AttributeDescriptor is the per-tenant attachment attribute template,
// fetched once per run and passed into the engine at construction time.
type AttributeDescriptor struct {
	Meta AttributeMeta
}

// WithValue instantiates the descriptor as a concrete attribute value.
func (d AttributeDescriptor) WithValue(v bool) AttributeValue {
	return AttributeValue{Meta: d.Meta, Value: v}
}

// AttributeValue is the attachment flag as it will be written back to a
// matched payment.
type AttributeValue struct {
	Meta  AttributeMeta
	Value bool
}

// Update is one outbound record of the batch, keyed by entity identifier.
type Update interface {
	UpdateKey() string
}

// PaymentUpdate marks a payment as attached and links it to its invoice.
type PaymentUpdate struct {
	PaymentID string
	InvoiceID string
	Attribute AttributeValue
}

func (u PaymentUpdate) UpdateKey() string { return u.PaymentID }

// InvoiceUpdate advances an invoice's paid amount to the ledger's cumulative
// value for this run.
type InvoiceUpdate struct {
	InvoiceID string
	PayedSum  int64 // kopecks
}

func (u InvoiceUpdate) UpdateKey() string { return u.InvoiceID }

// PaymentSource exposes the unattached payments for a run.
type PaymentSource interface {
	FetchPayments(ctx context.Context) ([]Payment, error)
}

// InvoiceSource exposes the invoice snapshot for a run. It returns all
// candidate invoices regardless of paid status; the pool applies the
// unpaid filter.
type InvoiceSource interface {
	FetchUnpaidCandidates(ctx context.Context) ([]Invoice, error)
}

// Sender persists one entity type's update records in the accounting
// system. It is called at most twice per run, once per entity type, and
// only with a non-empty record set.
type Sender interface {
	SendEntity(ctx context.Context, entityType string, records map[string]Update) error
}
