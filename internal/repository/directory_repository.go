package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/supplylane/be-fulfillment/internal/platform/database"
	"github.com/supplylane/be-fulfillment/internal/platform/errors"
)

// DirectoryRepository resolves opaque user ids to role-tagged business
// profiles.
type DirectoryRepository struct {
	db *database.DB
}

// NewDirectoryRepository creates a new directory repository.
func NewDirectoryRepository(db *database.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetBusiness retrieves a business profile by id.
func (r *DirectoryRepository) GetBusiness(ctx context.Context, id string) (*BusinessProfile, error) {
	query := `
		SELECT id, name, tin, COALESCE(phone, ''), COALESCE(address, ''), role
		FROM businesses
		WHERE id = $1
	`

	b := &BusinessProfile{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Name,
		&b.TIN,
		&b.Phone,
		&b.Address,
		&b.Role,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("business", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get business profile")
	}

	return b, nil
}
