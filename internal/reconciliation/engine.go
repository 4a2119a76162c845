// Package reconciliation implements the payment→invoice matching core:
// candidate filtering, priority-ranked scoring, per-invoice capacity
// tracking across the batch, and idempotent construction of the two
// outbound update sets.
//
// The engine is single-threaded: invoice capacity is shared, mutable
// state, and serializing reservations across payments within one run is
// what prevents double attachment. All external reads happen
// before Processing begins; all external writes happen after the run closes.
package reconciliation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"payrecon/internal/logger"
)

// State of a reconciliation engine. Engines are single-use: one batch run,
// then Closed forever.
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateClosed
)

// Engine drives one batch run: it validates each payment, asks the scorer
// for the best candidate against the live pool, reserves capacity on the
// winning invoice, and records the two-sided update.
type Engine struct {
	payments  PaymentSource
	invoices  InvoiceSource
	sender    Sender
	attribute AttributeDescriptor

	state State
	log   zerolog.Logger
}

// NewEngine creates an engine for a single run. The attachment attribute
// descriptor is tenant configuration resolved by the caller before
// construction.
func NewEngine(payments PaymentSource, invoices InvoiceSource, sender Sender, attribute AttributeDescriptor) *Engine {
	return &Engine{
		payments:  payments,
		invoices:  invoices,
		sender:    sender,
		attribute: attribute,
		state:     StateIdle,
		log:       logger.WithComponent("reconciliation-engine"),
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// RunResult summarizes one completed run.
type RunResult struct {
	RunID string

	// Payments is the number of payments read from the source.
	Payments int

	Matched           int
	SkippedIneligible int
	SkippedNoMatch    int
	SkippedCapacity   int

	// Matches lists every successful reservation, in processing order.
	Matches []MatchCandidate

	PaymentUpdates map[string]PaymentUpdate
	InvoiceUpdates map[string]InvoiceUpdate
}

// Run executes the batch: fetch, match, send. A collaborator fetch failure
// aborts the run before any remote mutation; a send failure loses the
// computed batch, and the caller retries the whole run. Payments are
// processed strictly in input order so results are reproducible.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	if e.state != StateIdle {
		return nil, ErrRunClosed
	}

	runID := uuid.NewString()
	log := e.log.With().Str("run_id", runID).Logger()

	payments, err := e.payments.FetchPayments(ctx)
	if err != nil {
		return nil, &FetchError{Entity: EntityPaymentIn, Err: err}
	}

	invoices, err := e.invoices.FetchUnpaidCandidates(ctx)
	if err != nil {
		return nil, &FetchError{Entity: EntityInvoiceOut, Err: err}
	}

	pool := NewInvoicePool(invoices)
	batch := NewUpdateBatch()
	e.state = StateProcessing

	log.Info().
		Int("payments", len(payments)).
		Int("unpaid_invoices", len(pool.Unpaid())).
		Msg("Starting reconciliation run")

	result := &RunResult{RunID: runID, Payments: len(payments)}

	for i := range payments {
		payment := &payments[i]

		if !payment.Eligible() {
			result.SkippedIneligible++
			log.Debug().Str("payment", payment.ID).Msg("Skipping ineligible payment")
			continue
		}

		candidate, ok := BestMatch(payment, pool)
		if !ok {
			result.SkippedNoMatch++
			log.Debug().Str("payment", payment.ID).Msg("No matching invoice")
			continue
		}

		if err := pool.Reserve(candidate.Invoice.ID, payment.Sum); err != nil {
			// Treat an exhausted invoice as no-match for this payment.
			// No retry with the second-best candidate within this run.
			if errors.Is(err, ErrCapacityExceeded) {
				result.SkippedCapacity++
				log.Debug().
					Str("payment", payment.ID).
					Str("invoice", candidate.Invoice.ID).
					Msg("Invoice capacity exhausted, skipping payment")
				continue
			}
			e.state = StateClosed
			return nil, err
		}

		batch.AddPaymentUpdate(PaymentUpdate{
			PaymentID: payment.ID,
			InvoiceID: candidate.Invoice.ID,
			Attribute: e.attribute.WithValue(true),
		})
		batch.AddInvoiceUpdate(InvoiceUpdate{
			InvoiceID: candidate.Invoice.ID,
			PayedSum:  pool.Paid(candidate.Invoice.ID),
		})

		result.Matched++
		result.Matches = append(result.Matches, candidate)

		log.Info().
			Str("payment", payment.ID).
			Str("invoice", candidate.Invoice.ID).
			Int("score", candidate.Score).
			Int64("sum", payment.Sum).
			Msg("Payment matched")
	}

	e.state = StateClosed
	result.PaymentUpdates, result.InvoiceUpdates = batch.Build()

	log.Info().
		Int("matched", result.Matched).
		Int("skipped_ineligible", result.SkippedIneligible).
		Int("skipped_no_match", result.SkippedNoMatch).
		Int("skipped_capacity", result.SkippedCapacity).
		Msg("Reconciliation run closed")

	if len(result.PaymentUpdates) > 0 {
		if err := e.sender.SendEntity(ctx, EntityPaymentIn, paymentRecords(result.PaymentUpdates)); err != nil {
			return nil, &SendError{Entity: EntityPaymentIn, Records: len(result.PaymentUpdates), Err: err}
		}
	}

	if len(result.InvoiceUpdates) > 0 {
		if err := e.sender.SendEntity(ctx, EntityInvoiceOut, invoiceRecords(result.InvoiceUpdates)); err != nil {
			return nil, &SendError{Entity: EntityInvoiceOut, Records: len(result.InvoiceUpdates), Err: err}
		}
	}

	return result, nil
}

func paymentRecords(updates map[string]PaymentUpdate) map[string]Update {
	records := make(map[string]Update, len(updates))
	for k, v := range updates {
		records[k] = v
	}
	return records
}

func invoiceRecords(updates map[string]InvoiceUpdate) map[string]Update {
	records := make(map[string]Update, len(updates))
	for k, v := range updates {
		records[k] = v
	}
	return records
}

// DryRunSender logs what would be sent without touching the accounting
// system. Used by the reconcile command's --dry-run mode.
type DryRunSender struct {
	log zerolog.Logger
}

// NewDryRunSender returns a sender that only logs.
func NewDryRunSender() *DryRunSender {
	return &DryRunSender{log: logger.WithComponent("dry-run-sender")}
}

// SendEntity implements Sender.
func (s *DryRunSender) SendEntity(_ context.Context, entityType string, records map[string]Update) error {
	s.log.Info().
		Str("entity", entityType).
		Int("records", len(records)).
		Msg("Dry run: updates not sent")
	return nil
}
