package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/supplylane/be-fulfillment/internal/platform/database"
	"github.com/supplylane/be-fulfillment/internal/platform/errors"
)

// InventoryRepository reads stock and raw-material holdings. All quantity
// mutation happens through FulfillmentRepository's transactional write set.
type InventoryRepository struct {
	db *database.DB
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *database.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

const stockColumns = `
	id, owner_id, product_id, product_name, unit, quantity,
	purchase_price, selling_price, vat_type, tax_type,
	source_seller_id, source_seller_name, created_at, updated_at
`

// GetStockItem retrieves a stock row by id.
func (r *InventoryRepository) GetStockItem(ctx context.Context, id string) (*StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE id = $1`

	item, err := scanStockItem(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("stock_item", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get stock item")
	}
	return item, nil
}

// ListStockByOwner returns an owner's resale inventory.
func (r *InventoryRepository) ListStockByOwner(ctx context.Context, ownerID string) ([]*StockItem, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_items
		WHERE owner_id = $1
		ORDER BY product_name
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list stock items")
	}
	defer rows.Close()

	items := make([]*StockItem, 0)
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan stock item")
		}
		items = append(items, item)
	}
	return items, nil
}

// ListRawMaterialsByOwner returns a manufacturer's production inputs.
func (r *InventoryRepository) ListRawMaterialsByOwner(ctx context.Context, ownerID string) ([]*RawMaterial, error) {
	query := `
		SELECT id, owner_id, product_id, product_name, unit, quantity,
		       unit_price, non_resellable,
		       source_seller_id, source_seller_name, created_at, updated_at
		FROM raw_materials
		WHERE owner_id = $1
		ORDER BY product_name
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list raw materials")
	}
	defer rows.Close()

	materials := make([]*RawMaterial, 0)
	for rows.Next() {
		m := &RawMaterial{}
		err := rows.Scan(
			&m.ID,
			&m.OwnerID,
			&m.ProductID,
			&m.ProductName,
			&m.Unit,
			&m.Quantity,
			&m.UnitPrice,
			&m.NonResellable,
			&m.SourceSellerID,
			&m.SourceSellerName,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan raw material")
		}
		materials = append(materials, m)
	}
	return materials, nil
}

// SetSellingPrice lets a stock owner price an item for resale.
func (r *InventoryRepository) SetSellingPrice(ctx context.Context, id string, price int64) error {
	query := `
		UPDATE stock_items
		SET selling_price = $2,
		    updated_at    = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, price).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("stock_item", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to set selling price")
	}
	return nil
}

func scanStockItem(row rowScanner) (*StockItem, error) {
	item := &StockItem{}
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.ProductID,
		&item.ProductName,
		&item.Unit,
		&item.Quantity,
		&item.PurchasePrice,
		&item.SellingPrice,
		&item.VatType,
		&item.TaxType,
		&item.SourceSellerID,
		&item.SourceSellerName,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}
