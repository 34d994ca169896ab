package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/supplylane/be-fulfillment/internal/platform/database"
	"github.com/supplylane/be-fulfillment/internal/platform/errors"
)

// FulfillmentRepository applies the full write set of an order approval
// (status transition, seller debits, buyer credits and invoice) in one
// transaction, so a failure at any step leaves nothing applied.
type FulfillmentRepository struct {
	db *database.DB
}

// NewFulfillmentRepository creates a new FulfillmentRepository.
func NewFulfillmentRepository(db *database.DB) *FulfillmentRepository {
	return &FulfillmentRepository{db: db}
}

// ApproveOrder executes an approval record atomically. The status update is
// conditional on status='pending' at write time, which makes re-approval a
// conflict rather than a double debit.
func (r *FulfillmentRepository) ApproveOrder(ctx context.Context, rec *ApprovalRecord) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		// Claim the order. Zero rows means it was already approved or
		// rejected by a concurrent operator.
		claimQuery := `
			UPDATE purchase_orders
			SET status                 = 'approved'::order_status,
			    invoice_id             = $2,
			    approved_at            = NOW(),
			    inventory_transferred  = TRUE,
			    total_amount           = $3,
			    updated_at             = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING id
		`

		var claimedID string
		err := tx.QueryRow(ctx, claimQuery, rec.OrderID, rec.Invoice.ID, rec.Invoice.TotalAmount).Scan(&claimedID)
		if err == pgx.ErrNoRows {
			return errors.New(errors.ErrCodeConflict, "order is not pending")
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to claim order for approval")
		}

		// Persist resolved tax fields on the order lines.
		lineQuery := `
			UPDATE order_lines
			SET line_total   = $2,
			    vat_type     = $3,
			    tax_type     = $4,
			    vat_rate_bps = $5
			WHERE id = $1
		`
		for _, line := range rec.Lines {
			if _, err := tx.Exec(ctx, lineQuery,
				line.ID, line.LineTotal, line.VatType, line.TaxType, line.VatRateBps); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to update order line tax fields")
			}
		}

		for _, debit := range rec.Debits {
			if err := applyDebit(ctx, tx, debit); err != nil {
				return err
			}
		}

		for _, credit := range rec.Credits {
			if err := applyCredit(ctx, tx, credit); err != nil {
				return err
			}
		}

		return insertInvoiceTx(ctx, tx, rec.Invoice)
	})
}

// applyDebit decrements seller inventory, guarded against under-supply. The
// guard also catches a missing source row.
func applyDebit(ctx context.Context, tx pgx.Tx, debit InventoryDebit) error {
	table := "stock_items"
	if debit.Source == DebitSourceProduct {
		table = "products"
	}

	query := `
		UPDATE ` + table + `
		SET quantity   = quantity - $2,
		    updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
		RETURNING id
	`

	var returnedID string
	err := tx.QueryRow(ctx, query, debit.TargetID, debit.Quantity).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.New(errors.ErrCodeConflict,
			"insufficient seller inventory for "+debit.Source+" "+debit.TargetID)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to debit seller inventory")
	}

	return nil
}

// applyCredit upserts buyer inventory keyed by (owner_id, product_id). The
// unique index plus ON CONFLICT makes concurrent credits increment a single
// row instead of racing into duplicates.
func applyCredit(ctx context.Context, tx pgx.Tx, credit InventoryTransfer) error {
	switch credit.Kind {
	case TransferKindStock:
		query := `
			INSERT INTO stock_items (owner_id, product_id, product_name, unit, quantity,
			                         purchase_price, selling_price, vat_type, tax_type,
			                         source_seller_id, source_seller_name)
			VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8, $9, $10)
			ON CONFLICT (owner_id, product_id)
			DO UPDATE SET quantity   = stock_items.quantity + EXCLUDED.quantity,
			              updated_at = NOW()
		`
		_, err := tx.Exec(ctx, query,
			credit.OwnerID,
			credit.ProductID,
			credit.ProductName,
			credit.Unit,
			credit.Quantity,
			credit.PurchasePrice,
			credit.VatType,
			credit.TaxType,
			credit.SourceSellerID,
			credit.SourceSellerName,
		)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to credit buyer stock")
		}
		return nil

	case TransferKindRawMaterial:
		query := `
			INSERT INTO raw_materials (owner_id, product_id, product_name, unit, quantity,
			                           unit_price, non_resellable,
			                           source_seller_id, source_seller_name)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
			ON CONFLICT (owner_id, product_id)
			DO UPDATE SET quantity   = raw_materials.quantity + EXCLUDED.quantity,
			              updated_at = NOW()
		`
		_, err := tx.Exec(ctx, query,
			credit.OwnerID,
			credit.ProductID,
			credit.ProductName,
			credit.Unit,
			credit.Quantity,
			credit.UnitPrice,
			credit.SourceSellerID,
			credit.SourceSellerName,
		)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to credit buyer raw materials")
		}
		return nil

	default:
		return errors.New(errors.ErrCodeInternal, "unknown inventory transfer kind: "+credit.Kind)
	}
}
