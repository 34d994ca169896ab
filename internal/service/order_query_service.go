package service

import (
	"context"
	"sort"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/platform/logger"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

// SellerOrders partitions a seller's orders for display. Approved orders
// with an invoice are reclassified as invoiced.
type SellerOrders struct {
	Pending  []*repository.PurchaseOrder
	Approved []*repository.PurchaseOrder
	Rejected []*repository.PurchaseOrder
	Invoiced []*repository.PurchaseOrder
}

// OrderQueryService serves the seller dashboard: partitioned order lists,
// inventory holdings and owner-side stock pricing. It holds no cross-call
// state; every invocation reads fresh.
type OrderQueryService struct {
	orders    OrderStore
	inventory InventoryStore
	directory DirectoryStore
	log       *logger.Logger
}

// NewOrderQueryService creates a new OrderQueryService.
func NewOrderQueryService(orders OrderStore, inventory InventoryStore, directory DirectoryStore, log *logger.Logger) *OrderQueryService {
	return &OrderQueryService{
		orders:    orders,
		inventory: inventory,
		directory: directory,
		log:       log,
	}
}

// ListSellerOrders returns all of a seller's orders, newest first, with buyer
// display fields backfilled for legacy rows and missing totals patched from
// line items.
func (s *OrderQueryService) ListSellerOrders(ctx context.Context, sellerID string) (*SellerOrders, error) {
	orders, err := s.orders.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	// Newest first; orders lacking a timestamp sort last
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	result := &SellerOrders{
		Pending:  make([]*repository.PurchaseOrder, 0),
		Approved: make([]*repository.PurchaseOrder, 0),
		Rejected: make([]*repository.PurchaseOrder, 0),
		Invoiced: make([]*repository.PurchaseOrder, 0),
	}

	for _, order := range orders {
		s.backfillBuyer(ctx, order)
		s.patchTotal(ctx, order)

		switch {
		case order.Status == repository.OrderStatusRejected:
			result.Rejected = append(result.Rejected, order)
		case order.Status == repository.OrderStatusApproved && order.InvoiceID != nil:
			result.Invoiced = append(result.Invoiced, order)
		case order.Status == repository.OrderStatusApproved:
			result.Approved = append(result.Approved, order)
		default:
			result.Pending = append(result.Pending, order)
		}
	}

	return result, nil
}

// OwnerInventory bundles both holding shapes for one owner.
type OwnerInventory struct {
	Stock        []*repository.StockItem
	RawMaterials []*repository.RawMaterial
}

// PriceStockItem sets the resale price on a stock item. Only the owner may
// price their own stock.
func (s *OrderQueryService) PriceStockItem(ctx context.Context, ownerID, stockID string, price int64) (*repository.StockItem, error) {
	if price <= 0 {
		return nil, errors.InvalidInput("selling_price", "selling price must be positive")
	}

	item, err := s.inventory.GetStockItem(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, errors.NotFound("stock_item", stockID)
	}

	if err := s.inventory.SetSellingPrice(ctx, stockID, price); err != nil {
		return nil, err
	}
	item.SellingPrice = &price

	s.log.Info().
		Str("stock_id", stockID).
		Str("owner_id", ownerID).
		Int64("selling_price", price).
		Msg("Stock item priced")

	return item, nil
}

// ListOwnerInventory returns an owner's stock and raw-material holdings.
func (s *OrderQueryService) ListOwnerInventory(ctx context.Context, ownerID string) (*OwnerInventory, error) {
	stock, err := s.inventory.ListStockByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	materials, err := s.inventory.ListRawMaterialsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &OwnerInventory{Stock: stock, RawMaterials: materials}, nil
}

// backfillBuyer dereferences the directory for legacy orders lacking the
// denormalized buyer snapshot. Lookup failures degrade to the stored fields.
func (s *OrderQueryService) backfillBuyer(ctx context.Context, order *repository.PurchaseOrder) {
	if order.BuyerName != "" && order.BuyerTIN != "" {
		return
	}

	buyer, err := s.directory.GetBusiness(ctx, order.BuyerID)
	if err != nil {
		s.log.Warn().Err(err).
			Str("order_id", order.ID).
			Str("buyer_id", order.BuyerID).
			Msg("Could not backfill buyer info")
		return
	}

	order.BuyerName = buyer.Name
	order.BuyerTIN = buyer.TIN
	order.BuyerPhone = buyer.Phone
	order.BuyerAddress = buyer.Address
	order.BuyerRole = buyer.Role
}

// patchTotal recomputes a missing stored total from line items and writes it
// back. A patch failure only logs; the computed value is still returned.
func (s *OrderQueryService) patchTotal(ctx context.Context, order *repository.PurchaseOrder) {
	if order.TotalAmount != 0 || len(order.Lines) == 0 {
		return
	}

	var total int64
	for _, line := range order.Lines {
		total += line.Quantity * line.UnitPrice
	}
	if total == 0 {
		return
	}

	order.TotalAmount = total
	if err := s.orders.UpdateTotalAmount(ctx, order.ID, total); err != nil {
		s.log.Warn().Err(err).
			Str("order_id", order.ID).
			Msg("Could not patch order total")
	}
}
