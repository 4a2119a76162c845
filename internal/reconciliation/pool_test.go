package reconciliation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payrecon/internal/reconciliation"
)

func testInvoice(id, name string, sum, payed int64) reconciliation.Invoice {
	return reconciliation.Invoice{
		ID:             id,
		Name:           name,
		OrganizationID: "org-1",
		AgentID:        "agent-1",
		AccountID:      "acc-1",
		Sum:            sum,
		PayedSum:       payed,
		Moment:         time.Date(2025, 2, 19, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewInvoicePoolFiltersPaid(t *testing.T) {
	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{
		testInvoice("inv-1", "1", 10000, 0),
		testInvoice("inv-2", "2", 10000, 10000), // fully paid
		testInvoice("inv-3", "3", 10000, 5000),
	})

	unpaid := pool.Unpaid()
	require.Len(t, unpaid, 2)
	assert.Equal(t, "inv-1", unpaid[0].ID)
	assert.Equal(t, "inv-3", unpaid[1].ID)
}

func TestRemainingCapacityTracksLedger(t *testing.T) {
	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{
		testInvoice("inv-1", "1", 10000, 3000),
	})

	assert.Equal(t, int64(7000), pool.RemainingCapacity("inv-1"))

	require.NoError(t, pool.Reserve("inv-1", 4000))
	assert.Equal(t, int64(3000), pool.RemainingCapacity("inv-1"))
	assert.Equal(t, int64(7000), pool.Paid("inv-1"))

	// The snapshot record itself is untouched.
	assert.Equal(t, int64(3000), pool.Unpaid()[0].PayedSum)
}

func TestReserveCapacityExceeded(t *testing.T) {
	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{
		testInvoice("inv-1", "1", 10000, 0),
	})

	require.NoError(t, pool.Reserve("inv-1", 10000))

	err := pool.Reserve("inv-1", 1)
	assert.ErrorIs(t, err, reconciliation.ErrCapacityExceeded)

	// The failed reservation must not advance the ledger.
	assert.Equal(t, int64(10000), pool.Paid("inv-1"))
}

func TestReserveUnknownInvoice(t *testing.T) {
	pool := reconciliation.NewInvoicePool(nil)

	err := pool.Reserve("missing", 100)
	assert.ErrorIs(t, err, reconciliation.ErrUnknownInvoice)
	assert.Equal(t, int64(0), pool.RemainingCapacity("missing"))
}

func TestReserveExactCapacity(t *testing.T) {
	pool := reconciliation.NewInvoicePool([]reconciliation.Invoice{
		testInvoice("inv-1", "1", 10000, 9000),
	})

	require.NoError(t, pool.Reserve("inv-1", 1000))
	assert.Equal(t, int64(0), pool.RemainingCapacity("inv-1"))
}
