package client

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

// MockFiscalConfig tunes the simulated gateway. Zero values get defaults.
type MockFiscalConfig struct {
	FailureRate *float64 // defaults to 0.05
	MinLatency  time.Duration
	MaxLatency  time.Duration
	Seed        int64 // 0 seeds from the clock
}

// MockFiscalGateway simulates the EBM: latency in the hundreds of
// milliseconds, a small random submission failure rate, and 18% tax on
// standard-rated (tax type "B") line totals.
type MockFiscalGateway struct {
	mu          sync.Mutex
	rng         *rand.Rand
	seq         int
	registered  map[string]string // invoice number -> verification code
	failureRate float64
	minLatency  time.Duration
	maxLatency  time.Duration
	log         zerolog.Logger
}

// NewMockFiscalGateway creates a simulated fiscal gateway.
func NewMockFiscalGateway(cfg MockFiscalConfig, log zerolog.Logger) *MockFiscalGateway {
	failureRate := 0.05
	if cfg.FailureRate != nil {
		failureRate = *cfg.FailureRate
	}
	minLatency := cfg.MinLatency
	maxLatency := cfg.MaxLatency
	if maxLatency == 0 {
		minLatency = 200 * time.Millisecond
		maxLatency = 500 * time.Millisecond
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &MockFiscalGateway{
		rng:         rand.New(rand.NewSource(seed)),
		registered:  make(map[string]string),
		failureRate: failureRate,
		minLatency:  minLatency,
		maxLatency:  maxLatency,
		log:         log,
	}
}

// SubmitInvoice registers an invoice, returning a sequential invoice number
// and verification artifacts, or a simulated failure.
func (g *MockFiscalGateway) SubmitInvoice(ctx context.Context, invoice *repository.Invoice) (*repository.FiscalResult, error) {
	if err := g.sleep(ctx); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rng.Float64() < g.failureRate {
		return nil, errors.New(errors.ErrCodeUnavailable, "EBM submission failed: service temporarily unavailable")
	}

	var totalTax int64
	for _, line := range invoice.Lines {
		if line.TaxType == "B" {
			totalTax += line.LineTotal * 18 / 100
		}
	}

	g.seq++
	number := fmt.Sprintf("EBM-%06d", g.seq)
	code := fmt.Sprintf("%08X", g.rng.Uint32())
	g.registered[number] = code

	g.log.Debug().
		Str("invoice_number", number).
		Int64("total_tax", totalTax).
		Msg("mock EBM: invoice registered")

	return &repository.FiscalResult{
		InvoiceNumber:    number,
		VerificationCode: code,
		TotalTax:         totalTax,
		QRCode:           fmt.Sprintf("https://ebm.example/verify/%s/%s", number, code),
		ReceiptSignature: fmt.Sprintf("%016X", g.rng.Uint64()),
	}, nil
}

// VerifyInvoice checks a number/code pair against registered invoices.
func (g *MockFiscalGateway) VerifyInvoice(ctx context.Context, invoiceNumber, code string) (bool, error) {
	if err := g.sleep(ctx); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	stored, ok := g.registered[invoiceNumber]
	return ok && stored == code, nil
}

// CancelInvoice cancels a registered invoice.
func (g *MockFiscalGateway) CancelInvoice(ctx context.Context, invoiceNumber, reason string) (bool, error) {
	if err := g.sleep(ctx); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.registered[invoiceNumber]; !ok {
		return false, nil
	}
	delete(g.registered, invoiceNumber)

	g.log.Debug().
		Str("invoice_number", invoiceNumber).
		Str("reason", reason).
		Msg("mock EBM: invoice cancelled")

	return true, nil
}

func (g *MockFiscalGateway) sleep(ctx context.Context) error {
	g.mu.Lock()
	latency := g.minLatency
	if span := g.maxLatency - g.minLatency; span > 0 {
		latency += time.Duration(g.rng.Int63n(int64(span)))
	}
	g.mu.Unlock()

	if latency <= 0 {
		return ctx.Err()
	}

	select {
	case <-time.After(latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
