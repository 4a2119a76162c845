package reconciliation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrecon/internal/reconciliation"
)

func testPayment(id string, sum int64, purpose string) reconciliation.Payment {
	return reconciliation.Payment{
		ID:             id,
		OrganizationID: "org-1",
		AgentID:        "agent-1",
		AccountID:      "acc-1",
		Sum:            sum,
		Purpose:        purpose,
	}
}

func TestBestMatchExactNumberPriority(t *testing.T) {
	// Invoice "102" precedes "1020" in enumeration order; a first-match
	// scorer would misattach here.
	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{
		testInvoice("inv-102", "102", 5000000, 0),
		testInvoice("inv-1020", "1020", 5000000, 0),
	})
	payment := testPayment("pay-1", 5000000, "Оплата по сч/ф 1020")

	candidate, ok := reconciliation.BestMatch(&payment, pool)
	require.True(t, ok)
	assert.Equal(t, "inv-1020", candidate.Invoice.ID)
	assert.Equal(t, reconciliation.ScoreNumberMatch, candidate.Score)
}

func TestBestMatchAmountDateFallback(t *testing.T) {
	date := time.Date(2025, 2, 19, 0, 0, 0, 0, time.UTC)

	matching := testInvoice("inv-1", "77", 4048700, 0)
	matching.Moment = date
	wrongAmount := testInvoice("inv-2", "78", 9999900, 0)
	wrongAmount.Moment = date

	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{wrongAmount, matching})
	payment := testPayment("pay-1", 4048700, "Оплата по счету от 19.02.2025")

	candidate, ok := reconciliation.BestMatch(&payment, pool)
	require.True(t, ok)
	assert.Equal(t, "inv-1", candidate.Invoice.ID)
	assert.Equal(t, reconciliation.ScoreAmountDate, candidate.Score)
}

func TestBestMatchStrongBeatsWeak(t *testing.T) {
	date := time.Date(2025, 2, 19, 0, 0, 0, 0, time.UTC)

	// The weak candidate enumerates first; the scorer must still collect
	// all candidates and prefer the number match.
	weak := testInvoice("inv-weak", "500", 4048700, 0)
	weak.Moment = date
	strong := testInvoice("inv-strong", "1020", 7000000, 0)
	strong.Moment = date

	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{weak, strong})
	payment := testPayment("pay-1", 4048700, "Оплата по сч/ф 1020 от 19.02.2025")

	candidate, ok := reconciliation.BestMatch(&payment, pool)
	require.True(t, ok)
	assert.Equal(t, "inv-strong", candidate.Invoice.ID)
}

func TestBestMatchHardFilter(t *testing.T) {
	otherAgent := testInvoice("inv-1", "1020", 5000000, 0)
	otherAgent.AgentID = "agent-other"
	otherAccount := testInvoice("inv-2", "1020", 5000000, 0)
	otherAccount.AccountID = "acc-other"
	otherOrg := testInvoice("inv-3", "1020", 5000000, 0)
	otherOrg.OrganizationID = "org-other"

	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{otherAgent, otherAccount, otherOrg})
	payment := testPayment("pay-1", 5000000, "Оплата по сч/ф 1020")

	_, ok := reconciliation.BestMatch(&payment, pool)
	assert.False(t, ok)
}

func TestBestMatchSkipsExhaustedInvoice(t *testing.T) {
	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{
		testInvoice("inv-1", "1020", 5000000, 0),
	})
	require.NoError(t, pool.Reserve("inv-1", 5000000))

	payment := testPayment("pay-1", 5000000, "Оплата по сч/ф 1020")

	_, ok := reconciliation.BestMatch(&payment, pool)
	assert.False(t, ok)
}

func TestBestMatchNoEvidence(t *testing.T) {
	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{
		testInvoice("inv-1", "1020", 5000000, 0),
	})
	payment := testPayment("pay-1", 7777700, "Оплата без реквизитов")

	_, ok := reconciliation.BestMatch(&payment, pool)
	assert.False(t, ok)
}

func TestBestMatchTieBreak(t *testing.T) {
	earlier := testInvoice("inv-b", "1020", 5000000, 0)
	earlier.Moment = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	later := testInvoice("inv-a", "1020", 5000000, 0)
	later.Moment = time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{later, earlier})
	payment := testPayment("pay-1", 5000000, "Оплата по сч/ф 1020")

	candidate, ok := reconciliation.BestMatch(&payment, pool)
	require.True(t, ok)
	assert.Equal(t, "inv-b", candidate.Invoice.ID, "earliest issue date wins the tie")

	// Equal dates fall back to the lower invoice ID.
	later.Moment = earlier.Moment
	pool = reconciliation.NewInvoicePool([]reconciliation.Invoice{later, earlier})
	candidate, ok = reconciliation.BestMatch(&payment, pool)
	require.True(t, ok)
	assert.Equal(t, "inv-a", candidate.Invoice.ID)
}
