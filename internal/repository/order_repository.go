package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/supplylane/be-fulfillment/internal/platform/database"
	"github.com/supplylane/be-fulfillment/internal/platform/errors"
)

// OrderRepository handles purchase order data operations.
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts an order with its lines in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *PurchaseOrder) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO purchase_orders (seller_id, buyer_id, buyer_tin, buyer_name,
			                             buyer_phone, buyer_address, buyer_role,
			                             status, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::order_status, $9)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, query,
			order.SellerID,
			order.BuyerID,
			order.BuyerTIN,
			order.BuyerName,
			order.BuyerPhone,
			order.BuyerAddress,
			order.BuyerRole,
			order.Status,
			order.TotalAmount,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create purchase order")
		}

		lineQuery := `
			INSERT INTO order_lines (order_id, line_number, product_id, stock_id,
			                         product_name, unit, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`

		for _, line := range order.Lines {
			line.OrderID = order.ID
			err := tx.QueryRow(ctx, lineQuery,
				line.OrderID,
				line.LineNumber,
				line.ProductID,
				line.StockID,
				line.ProductName,
				line.Unit,
				line.Quantity,
				line.UnitPrice,
				line.LineTotal,
			).Scan(&line.ID)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create order line")
			}
		}

		return nil
	})
}

const orderColumns = `
	id, seller_id, buyer_id,
	COALESCE(buyer_tin, ''), COALESCE(buyer_name, ''),
	COALESCE(buyer_phone, ''), COALESCE(buyer_address, ''), COALESCE(buyer_role, ''),
	status, total_amount, invoice_id, rejection_reason, inventory_transferred,
	COALESCE(created_at, 'epoch'::timestamptz), COALESCE(updated_at, 'epoch'::timestamptz),
	approved_at, rejected_at
`

// GetByID retrieves an order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("purchase_order", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get purchase order")
	}

	lines, err := r.getLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

// ListBySeller retrieves all orders for a seller, newest first. Orders lacking
// a creation timestamp sort last.
func (r *OrderRepository) ListBySeller(ctx context.Context, sellerID string) ([]*PurchaseOrder, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM purchase_orders
		WHERE seller_id = $1
		ORDER BY COALESCE(created_at, 'epoch'::timestamptz) DESC
	`

	rows, err := r.db.Query(ctx, query, sellerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list purchase orders")
	}
	defer rows.Close()

	orders := make([]*PurchaseOrder, 0)
	byID := make(map[string]*PurchaseOrder)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan purchase order")
		}
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	lineQuery := `
		SELECT id, order_id, line_number, product_id, stock_id, product_name, unit,
		       quantity, unit_price, line_total, vat_type, tax_type, vat_rate_bps
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_number
	`

	lineRows, err := r.db.Query(ctx, lineQuery, ids)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list order lines")
	}
	defer lineRows.Close()

	for lineRows.Next() {
		line := &OrderLine{}
		if err := scanOrderLine(lineRows, line); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan order line")
		}
		if order, ok := byID[line.OrderID]; ok {
			order.Lines = append(order.Lines, line)
		}
	}

	return orders, nil
}

// Reject transitions a pending order to rejected. A non-pending order yields
// a conflict, never a silent overwrite.
func (r *OrderRepository) Reject(ctx context.Context, id, reason string) error {
	query := `
		UPDATE purchase_orders
		SET status           = 'rejected'::order_status,
		    rejection_reason = $2,
		    rejected_at      = NOW(),
		    updated_at       = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, reason).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.New(errors.ErrCodeConflict, "order is not pending")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to reject purchase order")
	}

	return nil
}

// UpdateTotalAmount lazily patches a missing stored total from line items.
func (r *OrderRepository) UpdateTotalAmount(ctx context.Context, id string, total int64) error {
	query := `
		UPDATE purchase_orders
		SET total_amount = $2,
		    updated_at   = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, total).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("purchase_order", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update order total")
	}

	return nil
}

func (r *OrderRepository) getLines(ctx context.Context, orderID string) ([]*OrderLine, error) {
	query := `
		SELECT id, order_id, line_number, product_id, stock_id, product_name, unit,
		       quantity, unit_price, line_total, vat_type, tax_type, vat_rate_bps
		FROM order_lines
		WHERE order_id = $1
		ORDER BY line_number
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get order lines")
	}
	defer rows.Close()

	lines := make([]*OrderLine, 0)
	for rows.Next() {
		line := &OrderLine{}
		if err := scanOrderLine(rows, line); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan order line")
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*PurchaseOrder, error) {
	order := &PurchaseOrder{}
	err := row.Scan(
		&order.ID,
		&order.SellerID,
		&order.BuyerID,
		&order.BuyerTIN,
		&order.BuyerName,
		&order.BuyerPhone,
		&order.BuyerAddress,
		&order.BuyerRole,
		&order.Status,
		&order.TotalAmount,
		&order.InvoiceID,
		&order.RejectionReason,
		&order.InventoryTransferred,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ApprovedAt,
		&order.RejectedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrderLine(row rowScanner, line *OrderLine) error {
	return row.Scan(
		&line.ID,
		&line.OrderID,
		&line.LineNumber,
		&line.ProductID,
		&line.StockID,
		&line.ProductName,
		&line.Unit,
		&line.Quantity,
		&line.UnitPrice,
		&line.LineTotal,
		&line.VatType,
		&line.TaxType,
		&line.VatRateBps,
	)
}
