package service

import (
	"context"
	"strings"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/platform/logger"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

// MissPolicy controls what happens when a line's product or stock record
// cannot be found during tax resolution.
type MissPolicy string

const (
	// MissPolicyDefault annotates the standard classification and proceeds.
	MissPolicyDefault MissPolicy = "default"
	// MissPolicyStrict fails the approval.
	MissPolicyStrict MissPolicy = "strict"
)

const (
	standardRateBps = 1800
	taxTypeExempt   = "A"
	taxTypeStandard = "B"
	vatTypeStandard = "Standard"
)

// TaxResolution is the authoritative classification for one order line,
// together with whichever seller record supplied it.
type TaxResolution struct {
	VatType    string
	TaxType    string
	VatRateBps int32
	Product    *repository.Product   // set on the manufacturer path
	Stock      *repository.StockItem // set on the reseller path
}

// TaxService resolves VAT classification from the seller's own records.
// Buyer-submitted cart snapshots are never trusted for tax fields, since
// sellers can change tax codes after a product is listed.
type TaxService struct {
	catalog   CatalogStore
	inventory InventoryStore
	policy    MissPolicy
	log       *logger.Logger
}

// NewTaxService creates a new TaxService.
func NewTaxService(catalog CatalogStore, inventory InventoryStore, policy MissPolicy, log *logger.Logger) *TaxService {
	return &TaxService{
		catalog:   catalog,
		inventory: inventory,
		policy:    policy,
		log:       log,
	}
}

// ResolveLine classifies one order line for a seller. Manufacturer sellers
// resolve against their product master (internal id first, external code as
// fallback); resellers resolve against the stock record the line references.
func (s *TaxService) ResolveLine(ctx context.Context, sellerID, sellerRole string, line *repository.OrderLine) (*TaxResolution, error) {
	if sellerRole == repository.RoleManufacturer {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil && errors.CodeOf(err) == errors.ErrCodeNotFound {
			product, err = s.catalog.FindProductByCode(ctx, sellerID, line.ProductID)
		}
		if err != nil {
			if errors.CodeOf(err) == errors.ErrCodeNotFound {
				return s.resolveMiss(line)
			}
			return nil, err
		}

		res := classify(product.VatType)
		res.Product = product
		return res, nil
	}

	if line.StockID == nil {
		return s.resolveMiss(line)
	}

	stock, err := s.inventory.GetStockItem(ctx, *line.StockID)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return s.resolveMiss(line)
		}
		return nil, err
	}

	res := classify(stock.VatType)
	res.Stock = stock
	return res, nil
}

// classify maps a record's vat type to a rate. Exempt markers are matched
// case-insensitively; anything else is standard rate.
func classify(vatType string) *TaxResolution {
	switch strings.ToLower(strings.TrimSpace(vatType)) {
	case "exempt", "zero", "a":
		return &TaxResolution{VatType: vatType, TaxType: taxTypeExempt, VatRateBps: 0}
	default:
		return &TaxResolution{VatType: vatType, TaxType: taxTypeStandard, VatRateBps: standardRateBps}
	}
}

func (s *TaxService) resolveMiss(line *repository.OrderLine) (*TaxResolution, error) {
	if s.policy == MissPolicyStrict {
		return nil, errors.InvalidInput("product_id",
			"no product or stock record found for line "+line.ProductID)
	}

	s.log.Warn().
		Str("product_id", line.ProductID).
		Msg("Tax lookup miss, defaulting to standard classification")

	return &TaxResolution{
		VatType:    vatTypeStandard,
		TaxType:    taxTypeStandard,
		VatRateBps: standardRateBps,
	}, nil
}
