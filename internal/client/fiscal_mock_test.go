package client

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

// fastMock builds a gateway with no latency and a fixed failure rate.
func fastMock(failureRate float64) *MockFiscalGateway {
	return NewMockFiscalGateway(MockFiscalConfig{
		FailureRate: &failureRate,
		MinLatency:  0,
		MaxLatency:  time.Nanosecond,
		Seed:        1,
	}, zerolog.Nop())
}

func testInvoice() *repository.Invoice {
	return &repository.Invoice{
		ID: "inv-1",
		Lines: []*repository.InvoiceLine{
			{LineNumber: 1, TaxType: "B", LineTotal: 1000},
			{LineNumber: 2, TaxType: "A", LineTotal: 600},
		},
	}
}

func TestMockSubmitInvoice(t *testing.T) {
	g := fastMock(0)

	res, err := g.SubmitInvoice(context.Background(), testInvoice())
	require.NoError(t, err)

	assert.Equal(t, "EBM-000001", res.InvoiceNumber)
	assert.NotEmpty(t, res.VerificationCode)
	assert.NotEmpty(t, res.QRCode)
	assert.NotEmpty(t, res.ReceiptSignature)

	// 18% of the standard-rated line only
	assert.Equal(t, int64(180), res.TotalTax)
}

func TestMockSubmitSequentialNumbers(t *testing.T) {
	g := fastMock(0)

	first, err := g.SubmitInvoice(context.Background(), testInvoice())
	require.NoError(t, err)
	second, err := g.SubmitInvoice(context.Background(), testInvoice())
	require.NoError(t, err)

	assert.Equal(t, "EBM-000001", first.InvoiceNumber)
	assert.Equal(t, "EBM-000002", second.InvoiceNumber)
}

func TestMockSubmitFailure(t *testing.T) {
	g := fastMock(1.0)

	_, err := g.SubmitInvoice(context.Background(), testInvoice())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnavailable, errors.CodeOf(err))
}

func TestMockVerifyAndCancel(t *testing.T) {
	g := fastMock(0)
	ctx := context.Background()

	res, err := g.SubmitInvoice(ctx, testInvoice())
	require.NoError(t, err)

	ok, err := g.VerifyInvoice(ctx, res.InvoiceNumber, res.VerificationCode)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.VerifyInvoice(ctx, res.InvoiceNumber, "WRONG")
	require.NoError(t, err)
	assert.False(t, ok)

	cancelled, err := g.CancelInvoice(ctx, res.InvoiceNumber, "test")
	require.NoError(t, err)
	assert.True(t, cancelled)

	// Cancelled invoices no longer verify
	ok, err = g.VerifyInvoice(ctx, res.InvoiceNumber, res.VerificationCode)
	require.NoError(t, err)
	assert.False(t, ok)

	cancelled, err = g.CancelInvoice(ctx, res.InvoiceNumber, "again")
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestMockCancelUnknownInvoice(t *testing.T) {
	g := fastMock(0)

	cancelled, err := g.CancelInvoice(context.Background(), "EBM-999999", "test")
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestMockSubmitHonorsContext(t *testing.T) {
	g := NewMockFiscalGateway(MockFiscalConfig{
		MinLatency: time.Second,
		MaxLatency: 2 * time.Second,
		Seed:       1,
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.SubmitInvoice(ctx, testInvoice())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
