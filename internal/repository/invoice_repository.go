package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/supplylane/be-fulfillment/internal/platform/database"
	"github.com/supplylane/be-fulfillment/internal/platform/errors"
)

// InvoiceRepository handles invoice data operations. Invoices are immutable
// apart from the one-time fiscal registration fill-in.
type InvoiceRepository struct {
	db *database.DB
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *database.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// insertInvoiceTx inserts an invoice with its lines inside an existing
// transaction. The unique order_id constraint enforces one invoice per
// approved order.
func insertInvoiceTx(ctx context.Context, tx pgx.Tx, invoice *Invoice) error {
	query := `
		INSERT INTO invoices (id, order_id, seller_id, seller_name, seller_tin,
		                      buyer_id, buyer_name, buyer_tin,
		                      total_amount, fiscal_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::fiscal_status)
		RETURNING issued_at
	`

	err := tx.QueryRow(ctx, query,
		invoice.ID,
		invoice.OrderID,
		invoice.SellerID,
		invoice.SellerName,
		invoice.SellerTIN,
		invoice.BuyerID,
		invoice.BuyerName,
		invoice.BuyerTIN,
		invoice.TotalAmount,
		invoice.FiscalStatus,
	).Scan(&invoice.IssuedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create invoice")
	}

	lineQuery := `
		INSERT INTO invoice_lines (invoice_id, line_number, product_id, product_name,
		                           unit, quantity, unit_price, line_total,
		                           vat_type, tax_type, vat_rate_bps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	for _, line := range invoice.Lines {
		line.InvoiceID = invoice.ID
		err := tx.QueryRow(ctx, lineQuery,
			line.InvoiceID,
			line.LineNumber,
			line.ProductID,
			line.ProductName,
			line.Unit,
			line.Quantity,
			line.UnitPrice,
			line.LineTotal,
			line.VatType,
			line.TaxType,
			line.VatRateBps,
		).Scan(&line.ID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create invoice line")
		}
	}

	return nil
}

// GetByID retrieves an invoice with all lines.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*Invoice, error) {
	query := `
		SELECT id, order_id, seller_id, seller_name, seller_tin,
		       buyer_id, buyer_name, buyer_tin,
		       total_amount, issued_at, fiscal_status,
		       invoice_number, verification_code, total_tax, qr_code, receipt_signature
		FROM invoices
		WHERE id = $1
	`

	invoice := &Invoice{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&invoice.ID,
		&invoice.OrderID,
		&invoice.SellerID,
		&invoice.SellerName,
		&invoice.SellerTIN,
		&invoice.BuyerID,
		&invoice.BuyerName,
		&invoice.BuyerTIN,
		&invoice.TotalAmount,
		&invoice.IssuedAt,
		&invoice.FiscalStatus,
		&invoice.InvoiceNumber,
		&invoice.VerificationCode,
		&invoice.TotalTax,
		&invoice.QRCode,
		&invoice.ReceiptSignature,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("invoice", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get invoice")
	}

	lineQuery := `
		SELECT id, invoice_id, line_number, product_id, product_name, unit,
		       quantity, unit_price, line_total, vat_type, tax_type, vat_rate_bps
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY line_number
	`

	rows, err := r.db.Query(ctx, lineQuery, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get invoice lines")
	}
	defer rows.Close()

	lines := make([]*InvoiceLine, 0)
	for rows.Next() {
		line := &InvoiceLine{}
		err := rows.Scan(
			&line.ID,
			&line.InvoiceID,
			&line.LineNumber,
			&line.ProductID,
			&line.ProductName,
			&line.Unit,
			&line.Quantity,
			&line.UnitPrice,
			&line.LineTotal,
			&line.VatType,
			&line.TaxType,
			&line.VatRateBps,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan invoice line")
		}
		lines = append(lines, line)
	}
	invoice.Lines = lines

	return invoice, nil
}

// SetFiscalResult records the gateway response on an unregistered invoice.
func (r *InvoiceRepository) SetFiscalResult(ctx context.Context, id string, res *FiscalResult) error {
	query := `
		UPDATE invoices
		SET fiscal_status     = 'registered'::fiscal_status,
		    invoice_number    = $2,
		    verification_code = $3,
		    total_tax         = $4,
		    qr_code           = $5,
		    receipt_signature = $6
		WHERE id = $1 AND fiscal_status = 'unregistered'
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id,
		res.InvoiceNumber, res.VerificationCode, res.TotalTax, res.QRCode, res.ReceiptSignature,
	).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.New(errors.ErrCodeConflict, "invoice is not unregistered")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to record fiscal result")
	}

	return nil
}

// MarkCancelled flags a registered invoice as cancelled with the authority.
func (r *InvoiceRepository) MarkCancelled(ctx context.Context, id string) error {
	query := `
		UPDATE invoices
		SET fiscal_status = 'cancelled'::fiscal_status
		WHERE id = $1 AND fiscal_status = 'registered'
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.New(errors.ErrCodeConflict, "invoice is not registered")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to cancel invoice")
	}

	return nil
}
