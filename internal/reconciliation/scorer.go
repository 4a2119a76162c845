package reconciliation

// Evidence strength between a payment and a candidate invoice.
const (
	// ScoreNumberMatch: the invoice's display number is referenced as a
	// whole token in the payment's purpose text.
	ScoreNumberMatch = 2

	// ScoreAmountDate: the invoice amount equals the payment amount and the
	// invoice's issue date is referenced in the purpose text.
	ScoreAmountDate = 1
)

// BestMatch finds the strongest-scoring invoice for the payment, or reports
// that none qualifies.
//
// Invoices survive the hard filter only when they still have remaining
// capacity and their organization, agent and bank account references all
// exactly equal the payment's. Every surviving invoice is scored; there is
// no early return on the first hit, so a weak (amount+date) candidate never
// shadows a later exact-number candidate. Ties are broken by earliest issue
// date, then lowest invoice ID, keeping runs reproducible.
func BestMatch(payment *Payment, pool *InvoicePool) (MatchCandidate, bool) {
	var candidates []MatchCandidate

	for _, inv := range pool.Unpaid() {
		if pool.RemainingCapacity(inv.ID) <= 0 {
			continue
		}
		if inv.OrganizationID != payment.OrganizationID ||
			inv.AgentID != payment.AgentID ||
			inv.AccountID != payment.AccountID {
			continue
		}

		var score int
		switch {
		case InvoiceNumberReferenced(inv.Name, payment.Purpose):
			score = ScoreNumberMatch
		case inv.Sum == payment.Sum && InvoiceDateReferenced(inv.Moment, payment.Purpose):
			score = ScoreAmountDate
		default:
			continue
		}

		candidates = append(candidates, MatchCandidate{
			Payment: payment,
			Invoice: inv,
			Score:   score,
		})
	}

	if len(candidates) == 0 {
		return MatchCandidate{}, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.beats(best) {
			best = c
		}
	}
	return best, true
}
