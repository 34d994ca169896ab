package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/platform/logger"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

// DefaultRejectionReason is stored when an operator rejects without one.
const DefaultRejectionReason = "No reason provided"

// FulfillmentService runs the order approval and rejection workflow.
type FulfillmentService struct {
	orders      OrderStore
	fulfillment FulfillmentStore
	invoices    InvoiceStore
	directory   DirectoryStore
	tax         *TaxService
	fiscal      FiscalGateway
	events      EventPublisher
	log         *logger.Logger
}

// NewFulfillmentService creates a new FulfillmentService.
func NewFulfillmentService(
	orders OrderStore,
	fulfillment FulfillmentStore,
	invoices InvoiceStore,
	directory DirectoryStore,
	tax *TaxService,
	fiscal FiscalGateway,
	events EventPublisher,
	log *logger.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		orders:      orders,
		fulfillment: fulfillment,
		invoices:    invoices,
		directory:   directory,
		tax:         tax,
		fiscal:      fiscal,
		events:      events,
		log:         log,
	}
}

// ApproveOrderRequest identifies the order and the acting seller.
type ApproveOrderRequest struct {
	OrderID    string
	SellerID   string
	ApprovedBy string
}

// RejectOrderRequest carries the operator's free-text reason.
type RejectOrderRequest struct {
	OrderID    string
	SellerID   string
	Reason     string
	RejectedBy string
}

// ApproveOrder resolves tax classification per line, plans the seller debits
// and buyer credits, assembles the invoice, and applies the whole write set
// in one transaction. The fiscal submission runs after commit and is
// non-fatal: the invoice stays unregistered and can be re-submitted.
func (s *FulfillmentService) ApproveOrder(ctx context.Context, req *ApproveOrderRequest) (*repository.PurchaseOrder, error) {
	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != req.SellerID {
		return nil, errors.NotFound("purchase_order", req.OrderID)
	}
	if order.Status != repository.OrderStatusPending {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot approve order with status '%s'", order.Status))
	}
	if len(order.Lines) == 0 {
		return nil, errors.InvalidInput("lines", "order has no lines")
	}

	seller, err := s.directory.GetBusiness(ctx, order.SellerID)
	if err != nil {
		return nil, err
	}

	buyer, err := s.resolveBuyer(ctx, order)
	if err != nil {
		return nil, err
	}

	rec, err := s.buildApprovalRecord(ctx, order, seller, buyer)
	if err != nil {
		return nil, err
	}

	if err := s.fulfillment.ApproveOrder(ctx, rec); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", order.ID).
		Str("invoice_id", rec.Invoice.ID).
		Str("seller_id", seller.ID).
		Str("buyer_role", buyer.Role).
		Int64("total_amount", rec.Invoice.TotalAmount).
		Int("line_count", len(rec.Invoice.Lines)).
		Str("approved_by", req.ApprovedBy).
		Msg("Order approved")

	s.submitFiscal(ctx, rec.Invoice)
	s.events.PublishOrderEvent(ctx, "approved", order)

	return s.orders.GetByID(ctx, req.OrderID)
}

// RejectOrder records a rejection reason and closes the order. No inventory
// or invoice side effects.
func (s *FulfillmentService) RejectOrder(ctx context.Context, req *RejectOrderRequest) (*repository.PurchaseOrder, error) {
	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != req.SellerID {
		return nil, errors.NotFound("purchase_order", req.OrderID)
	}
	if order.Status != repository.OrderStatusPending {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("cannot reject order with status '%s'", order.Status))
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	if err := s.orders.Reject(ctx, req.OrderID, reason); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("order_id", req.OrderID).
		Str("reason", reason).
		Str("rejected_by", req.RejectedBy).
		Msg("Order rejected")

	s.events.PublishOrderEvent(ctx, "rejected", order)

	return s.orders.GetByID(ctx, req.OrderID)
}

// RegisterInvoice re-submits an unregistered invoice to the fiscal gateway.
func (s *FulfillmentService) RegisterInvoice(ctx context.Context, invoiceID string) (*repository.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.FiscalStatus != repository.FiscalStatusUnregistered {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("invoice fiscal status is '%s'", invoice.FiscalStatus))
	}

	res, err := s.fiscal.SubmitInvoice(ctx, invoice)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "fiscal gateway submission failed")
	}
	if err := s.invoices.SetFiscalResult(ctx, invoiceID, res); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_id", invoiceID).
		Str("invoice_number", res.InvoiceNumber).
		Msg("Invoice registered with fiscal gateway")

	return s.invoices.GetByID(ctx, invoiceID)
}

// VerifyInvoice checks a registration with the fiscal gateway.
func (s *FulfillmentService) VerifyInvoice(ctx context.Context, invoiceNumber, code string) (bool, error) {
	return s.fiscal.VerifyInvoice(ctx, invoiceNumber, code)
}

// CancelInvoice cancels a registered invoice with the fiscal gateway.
func (s *FulfillmentService) CancelInvoice(ctx context.Context, invoiceID, reason string) error {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.FiscalStatus != repository.FiscalStatusRegistered || invoice.InvoiceNumber == nil {
		return errors.New(errors.ErrCodeConflict, "invoice is not registered")
	}

	cancelled, err := s.fiscal.CancelInvoice(ctx, *invoice.InvoiceNumber, reason)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "fiscal gateway cancellation failed")
	}
	if !cancelled {
		return errors.New(errors.ErrCodeConflict, "fiscal gateway refused cancellation")
	}

	return s.invoices.MarkCancelled(ctx, invoiceID)
}

// resolveBuyer prefers the denormalized order snapshot and falls back to the
// directory for legacy orders lacking it.
func (s *FulfillmentService) resolveBuyer(ctx context.Context, order *repository.PurchaseOrder) (*repository.BusinessProfile, error) {
	if order.BuyerName != "" && order.BuyerTIN != "" && order.BuyerRole != "" {
		return &repository.BusinessProfile{
			ID:      order.BuyerID,
			Name:    order.BuyerName,
			TIN:     order.BuyerTIN,
			Phone:   order.BuyerPhone,
			Address: order.BuyerAddress,
			Role:    order.BuyerRole,
		}, nil
	}
	return s.directory.GetBusiness(ctx, order.BuyerID)
}

// buildApprovalRecord plans the complete write set for an approval.
func (s *FulfillmentService) buildApprovalRecord(
	ctx context.Context,
	order *repository.PurchaseOrder,
	seller, buyer *repository.BusinessProfile,
) (*repository.ApprovalRecord, error) {
	rec := &repository.ApprovalRecord{
		OrderID: order.ID,
		Invoice: &repository.Invoice{
			ID:           uuid.NewString(),
			OrderID:      order.ID,
			SellerID:     seller.ID,
			SellerName:   seller.Name,
			SellerTIN:    seller.TIN,
			BuyerID:      buyer.ID,
			BuyerName:    buyer.Name,
			BuyerTIN:     buyer.TIN,
			FiscalStatus: repository.FiscalStatusUnregistered,
		},
	}

	var total int64
	for _, line := range order.Lines {
		if line.Quantity <= 0 {
			return nil, errors.InvalidInput("quantity", "quantity must be positive")
		}
		if line.UnitPrice < 0 {
			return nil, errors.InvalidInput("unit_price", "unit price cannot be negative")
		}

		// Never trust the stored total
		line.LineTotal = line.Quantity * line.UnitPrice
		total += line.LineTotal

		res, err := s.tax.ResolveLine(ctx, seller.ID, seller.Role, line)
		if err != nil {
			return nil, err
		}

		vatType, taxType, rate := res.VatType, res.TaxType, res.VatRateBps
		line.VatType = &vatType
		line.TaxType = &taxType
		line.VatRateBps = &rate
		rec.Lines = append(rec.Lines, line)

		rec.Debits = append(rec.Debits, planDebit(seller.Role, line, res))

		if credit, ok := planCredit(order, buyer, seller, line, res); ok {
			rec.Credits = append(rec.Credits, credit)
		}

		rec.Invoice.Lines = append(rec.Invoice.Lines, &repository.InvoiceLine{
			LineNumber:  line.LineNumber,
			ProductID:   creditProductID(line, res),
			ProductName: lineProductName(line, res),
			Unit:        lineUnit(line, res),
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
			VatType:     vatType,
			TaxType:     taxType,
			VatRateBps:  rate,
		})
	}
	rec.Invoice.TotalAmount = total

	return rec, nil
}

// planDebit targets the resolved record when one exists; on a policy-default
// tax miss it falls back to the line's own ids and lets the transaction's
// quantity guard decide whether the debit can be applied.
func planDebit(sellerRole string, line *repository.OrderLine, res *TaxResolution) repository.InventoryDebit {
	if sellerRole == repository.RoleManufacturer {
		target := line.ProductID
		if res.Product != nil {
			target = res.Product.ID
		}
		return repository.InventoryDebit{
			Source:   repository.DebitSourceProduct,
			TargetID: target,
			Quantity: line.Quantity,
		}
	}

	target := ""
	if res.Stock != nil {
		target = res.Stock.ID
	} else if line.StockID != nil {
		target = *line.StockID
	}
	return repository.InventoryDebit{
		Source:   repository.DebitSourceStock,
		TargetID: target,
		Quantity: line.Quantity,
	}
}

// planCredit shapes the buyer-side transfer by role. Terminal buyers get
// none: the goods leave the tracked supply chain.
func planCredit(
	order *repository.PurchaseOrder,
	buyer, seller *repository.BusinessProfile,
	line *repository.OrderLine,
	res *TaxResolution,
) (repository.InventoryTransfer, bool) {
	switch buyer.Role {
	case repository.RoleManufacturer:
		return repository.InventoryTransfer{
			Kind:             repository.TransferKindRawMaterial,
			OwnerID:          order.BuyerID,
			ProductID:        creditProductID(line, res),
			ProductName:      lineProductName(line, res),
			Unit:             lineUnit(line, res),
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			SourceSellerID:   seller.ID,
			SourceSellerName: seller.Name,
		}, true

	case repository.RoleDistributor, repository.RoleRetailer:
		return repository.InventoryTransfer{
			Kind:             repository.TransferKindStock,
			OwnerID:          order.BuyerID,
			ProductID:        creditProductID(line, res),
			ProductName:      lineProductName(line, res),
			Unit:             lineUnit(line, res),
			Quantity:         line.Quantity,
			PurchasePrice:    line.UnitPrice,
			SellingPrice:     nil, // owner prices it explicitly later
			VatType:          res.VatType,
			TaxType:          res.TaxType,
			SourceSellerID:   seller.ID,
			SourceSellerName: seller.Name,
		}, true

	default:
		return repository.InventoryTransfer{}, false
	}
}

// creditProductID is the underlying product identity the buyer's record is
// keyed by.
func creditProductID(line *repository.OrderLine, res *TaxResolution) string {
	if res.Product != nil {
		return res.Product.ID
	}
	if res.Stock != nil {
		return res.Stock.ProductID
	}
	return line.ProductID
}

func lineProductName(line *repository.OrderLine, res *TaxResolution) string {
	if res.Product != nil {
		return res.Product.Name
	}
	if res.Stock != nil {
		return res.Stock.ProductName
	}
	return line.ProductName
}

func lineUnit(line *repository.OrderLine, res *TaxResolution) string {
	if res.Product != nil && res.Product.Unit != "" {
		return res.Product.Unit
	}
	if res.Stock != nil && res.Stock.Unit != "" {
		return res.Stock.Unit
	}
	return line.Unit
}

// submitFiscal registers the invoice after the approval commit. Failures are
// logged and left recoverable, never propagated.
func (s *FulfillmentService) submitFiscal(ctx context.Context, invoice *repository.Invoice) {
	res, err := s.fiscal.SubmitInvoice(ctx, invoice)
	if err != nil {
		s.log.Warn().Err(err).
			Str("invoice_id", invoice.ID).
			Msg("Fiscal gateway submission failed, invoice left unregistered")
		return
	}

	if err := s.invoices.SetFiscalResult(ctx, invoice.ID, res); err != nil {
		s.log.Warn().Err(err).
			Str("invoice_id", invoice.ID).
			Msg("Failed to record fiscal result")
		return
	}

	s.log.Info().
		Str("invoice_id", invoice.ID).
		Str("invoice_number", res.InvoiceNumber).
		Int64("total_tax", res.TotalTax).
		Msg("Invoice registered with fiscal gateway")
}
