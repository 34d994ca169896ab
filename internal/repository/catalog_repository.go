package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/supplylane/be-fulfillment/internal/platform/database"
	"github.com/supplylane/be-fulfillment/internal/platform/errors"
)

// CatalogRepository reads the seller product master used for tax
// classification and manufacturer inventory.
type CatalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const productColumns = `
	id, seller_id, product_code, name, unit, unit_price, quantity, vat_type,
	created_at, updated_at
`

// GetProduct retrieves a product by its internal id.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("product", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get product")
	}
	return p, nil
}

// FindProductByCode falls back to the external product code, first match.
func (r *CatalogRepository) FindProductByCode(ctx context.Context, sellerID, code string) (*Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE seller_id = $1 AND product_code = $2
		LIMIT 1
	`

	p, err := scanProduct(r.db.QueryRow(ctx, query, sellerID, code))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("product", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to find product by code")
	}
	return p, nil
}

func scanProduct(row rowScanner) (*Product, error) {
	p := &Product{}
	err := row.Scan(
		&p.ID,
		&p.SellerID,
		&p.ProductCode,
		&p.Name,
		&p.Unit,
		&p.UnitPrice,
		&p.Quantity,
		&p.VatType,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
