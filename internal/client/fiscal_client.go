package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

// HTTPFiscalGateway talks to a real EBM endpoint over JSON.
type HTTPFiscalGateway struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPFiscalGateway creates a gateway client for the given base URL.
func NewHTTPFiscalGateway(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPFiscalGateway {
	return &HTTPFiscalGateway{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type submitInvoicePayload struct {
	InvoiceID   string               `json:"invoice_id"`
	SellerTIN   string               `json:"seller_tin"`
	SellerName  string               `json:"seller_name"`
	BuyerTIN    string               `json:"buyer_tin"`
	BuyerName   string               `json:"buyer_name"`
	TotalAmount int64                `json:"total_amount"`
	IssuedAt    time.Time            `json:"issued_at"`
	Lines       []submitInvoiceLine  `json:"lines"`
}

type submitInvoiceLine struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
	TaxType     string `json:"tax_type"`
}

type submitInvoiceResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error"`
	InvoiceNumber    string `json:"invoiceNumber"`
	VerificationCode string `json:"verificationCode"`
	TotalTax         int64  `json:"totalTax"`
	QRCode           string `json:"qrCode"`
	ReceiptSignature string `json:"receiptSignature"`
}

// SubmitInvoice registers an invoice with the EBM.
func (g *HTTPFiscalGateway) SubmitInvoice(ctx context.Context, invoice *repository.Invoice) (*repository.FiscalResult, error) {
	payload := submitInvoicePayload{
		InvoiceID:   invoice.ID,
		SellerTIN:   invoice.SellerTIN,
		SellerName:  invoice.SellerName,
		BuyerTIN:    invoice.BuyerTIN,
		BuyerName:   invoice.BuyerName,
		TotalAmount: invoice.TotalAmount,
		IssuedAt:    invoice.IssuedAt,
	}
	for _, line := range invoice.Lines {
		payload.Lines = append(payload.Lines, submitInvoiceLine{
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
			TaxType:     line.TaxType,
		})
	}

	var resp submitInvoiceResponse
	if err := g.post(ctx, "/api/v1/invoices", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(errors.ErrCodeUnavailable, "EBM rejected invoice: "+resp.Error)
	}

	return &repository.FiscalResult{
		InvoiceNumber:    resp.InvoiceNumber,
		VerificationCode: resp.VerificationCode,
		TotalTax:         resp.TotalTax,
		QRCode:           resp.QRCode,
		ReceiptSignature: resp.ReceiptSignature,
	}, nil
}

// VerifyInvoice checks a registration with the EBM.
func (g *HTTPFiscalGateway) VerifyInvoice(ctx context.Context, invoiceNumber, code string) (bool, error) {
	req := map[string]string{"invoiceNumber": invoiceNumber, "verificationCode": code}
	var resp struct {
		Verified bool `json:"verified"`
	}
	if err := g.post(ctx, "/api/v1/invoices/verify", req, &resp); err != nil {
		return false, err
	}
	return resp.Verified, nil
}

// CancelInvoice cancels a registered invoice with the EBM.
func (g *HTTPFiscalGateway) CancelInvoice(ctx context.Context, invoiceNumber, reason string) (bool, error) {
	req := map[string]string{"invoiceNumber": invoiceNumber, "reason": reason}
	var resp struct {
		Cancelled bool `json:"cancelled"`
	}
	if err := g.post(ctx, "/api/v1/invoices/cancel", req, &resp); err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}

func (g *HTTPFiscalGateway) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode EBM request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build EBM request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "EBM unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeUnavailable,
			fmt.Sprintf("EBM returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "failed to decode EBM response")
	}
	return nil
}
