package reconciliation

// UpdateBatch accumulates the two outbound update sets for one run.
// Payment updates are keyed by payment ID, invoice updates by invoice ID
// with last-write-wins dedup: an invoice reserved against by several
// payments appears exactly once, carrying the cumulative paid amount.
type UpdateBatch struct {
	payments map[string]PaymentUpdate
	invoices map[string]InvoiceUpdate
}

// NewUpdateBatch returns an empty batch.
func NewUpdateBatch() *UpdateBatch {
	return &UpdateBatch{
		payments: make(map[string]PaymentUpdate),
		invoices: make(map[string]InvoiceUpdate),
	}
}

// AddPaymentUpdate records a payment mutation. The engine touches each
// payment at most once per run, so collisions do not occur in practice;
// last write wins if they do.
func (b *UpdateBatch) AddPaymentUpdate(u PaymentUpdate) {
	b.payments[u.PaymentID] = u
}

// AddInvoiceUpdate records an invoice mutation, overwriting any prior entry
// for the same invoice within the run.
func (b *UpdateBatch) AddInvoiceUpdate(u InvoiceUpdate) {
	b.invoices[u.InvoiceID] = u
}

// Build hands back both update sets as key-unique mappings ready for
// transmission. Empty mappings are valid and mean "nothing to send".
func (b *UpdateBatch) Build() (map[string]PaymentUpdate, map[string]InvoiceUpdate) {
	payments := make(map[string]PaymentUpdate, len(b.payments))
	for k, v := range b.payments {
		payments[k] = v
	}

	invoices := make(map[string]InvoiceUpdate, len(b.invoices))
	for k, v := range b.invoices {
		invoices[k] = v
	}

	return payments, invoices
}
