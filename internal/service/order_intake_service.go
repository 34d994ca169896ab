package service

import (
	"context"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/platform/logger"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

// OrderIntakeService lands buyer-created orders in the store.
type OrderIntakeService struct {
	orders    OrderStore
	directory DirectoryStore
	events    EventPublisher
	log       *logger.Logger
}

// NewOrderIntakeService creates a new OrderIntakeService.
func NewOrderIntakeService(orders OrderStore, directory DirectoryStore, events EventPublisher, log *logger.Logger) *OrderIntakeService {
	return &OrderIntakeService{
		orders:    orders,
		directory: directory,
		events:    events,
		log:       log,
	}
}

// CreateOrderRequest is a buyer's cart submission.
type CreateOrderRequest struct {
	BuyerID  string
	SellerID string
	Lines    []*OrderLineRequest
}

// OrderLineRequest is one cart line. StockID is set when the seller is a
// reseller and the line references their stock record.
type OrderLineRequest struct {
	ProductID   string
	StockID     *string
	ProductName string
	Unit        string
	Quantity    int64
	UnitPrice   int64
}

// CreateOrder validates the cart, snapshots buyer identity from the
// directory, derives totals server-side and stores a pending order.
func (s *OrderIntakeService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*repository.PurchaseOrder, error) {
	if req.BuyerID == "" {
		return nil, errors.InvalidInput("buyer_id", "buyer id is required")
	}
	if req.SellerID == "" {
		return nil, errors.InvalidInput("seller_id", "seller id is required")
	}
	if len(req.Lines) == 0 {
		return nil, errors.InvalidInput("lines", "order must have at least 1 line")
	}

	buyer, err := s.directory.GetBusiness(ctx, req.BuyerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.GetBusiness(ctx, req.SellerID); err != nil {
		return nil, err
	}

	order := &repository.PurchaseOrder{
		SellerID:     req.SellerID,
		BuyerID:      buyer.ID,
		BuyerTIN:     buyer.TIN,
		BuyerName:    buyer.Name,
		BuyerPhone:   buyer.Phone,
		BuyerAddress: buyer.Address,
		BuyerRole:    buyer.Role,
		Status:       repository.OrderStatusPending,
		Lines:        make([]*repository.OrderLine, 0, len(req.Lines)),
	}

	var total int64
	for i, lineReq := range req.Lines {
		if lineReq.ProductID == "" {
			return nil, errors.InvalidInput("product_id", "product id is required")
		}
		if lineReq.Quantity <= 0 {
			return nil, errors.InvalidInput("quantity", "quantity must be positive")
		}
		if lineReq.UnitPrice < 0 {
			return nil, errors.InvalidInput("unit_price", "unit price cannot be negative")
		}

		lineTotal := lineReq.Quantity * lineReq.UnitPrice
		total += lineTotal

		order.Lines = append(order.Lines, &repository.OrderLine{
			LineNumber:  i + 1,
			ProductID:   lineReq.ProductID,
			StockID:     lineReq.StockID,
			ProductName: lineReq.ProductName,
			Unit:        lineReq.Unit,
			Quantity:    lineReq.Quantity,
			UnitPrice:   lineReq.UnitPrice,
			LineTotal:   lineTotal,
		})
	}
	order.TotalAmount = total

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", order.ID).
		Str("seller_id", order.SellerID).
		Str("buyer_id", order.BuyerID).
		Int64("total_amount", order.TotalAmount).
		Int("line_count", len(order.Lines)).
		Msg("Order created")

	s.events.PublishOrderEvent(ctx, "created", order)

	return order, nil
}
