package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/platform/logger"
	"github.com/supplylane/be-fulfillment/internal/repository"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zerolog.Nop()}
}

// fakeBackend is an in-memory stand-in for the repository layer. It applies
// approval records with the same pending-check and quantity-guard semantics
// as the real transaction.
type fakeBackend struct {
	orders     map[string]*repository.PurchaseOrder
	products   map[string]*repository.Product
	stock      map[string]*repository.StockItem
	materials  map[string]*repository.RawMaterial
	businesses map[string]*repository.BusinessProfile
	invoices   map[string]*repository.Invoice

	orderSeq int
	stockSeq int

	rejectCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		orders:     make(map[string]*repository.PurchaseOrder),
		products:   make(map[string]*repository.Product),
		stock:      make(map[string]*repository.StockItem),
		materials:  make(map[string]*repository.RawMaterial),
		businesses: make(map[string]*repository.BusinessProfile),
		invoices:   make(map[string]*repository.Invoice),
	}
}

// OrderStore

func (f *fakeBackend) Create(ctx context.Context, order *repository.PurchaseOrder) error {
	f.orderSeq++
	order.ID = fmt.Sprintf("order-%d", f.orderSeq)
	for _, line := range order.Lines {
		line.OrderID = order.ID
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeBackend) GetByID(ctx context.Context, id string) (*repository.PurchaseOrder, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, errors.NotFound("purchase_order", id)
	}
	return order, nil
}

func (f *fakeBackend) ListBySeller(ctx context.Context, sellerID string) ([]*repository.PurchaseOrder, error) {
	result := make([]*repository.PurchaseOrder, 0)
	for _, o := range f.orders {
		if o.SellerID == sellerID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (f *fakeBackend) Reject(ctx context.Context, id, reason string) error {
	f.rejectCalls++
	order, ok := f.orders[id]
	if !ok {
		return errors.NotFound("purchase_order", id)
	}
	if order.Status != repository.OrderStatusPending {
		return errors.New(errors.ErrCodeConflict, "order is not pending")
	}
	order.Status = repository.OrderStatusRejected
	order.RejectionReason = &reason
	return nil
}

func (f *fakeBackend) UpdateTotalAmount(ctx context.Context, id string, total int64) error {
	order, ok := f.orders[id]
	if !ok {
		return errors.NotFound("purchase_order", id)
	}
	order.TotalAmount = total
	return nil
}

// FulfillmentStore

func (f *fakeBackend) ApproveOrder(ctx context.Context, rec *repository.ApprovalRecord) error {
	order, ok := f.orders[rec.OrderID]
	if !ok {
		return errors.NotFound("purchase_order", rec.OrderID)
	}
	if order.Status != repository.OrderStatusPending {
		return errors.New(errors.ErrCodeConflict, "order is not pending")
	}

	// Validate every debit before applying any, mirroring rollback.
	for _, debit := range rec.Debits {
		if debit.Source == repository.DebitSourceProduct {
			p, ok := f.products[debit.TargetID]
			if !ok || p.Quantity < debit.Quantity {
				return errors.New(errors.ErrCodeConflict, "insufficient seller inventory")
			}
		} else {
			s, ok := f.stock[debit.TargetID]
			if !ok || s.Quantity < debit.Quantity {
				return errors.New(errors.ErrCodeConflict, "insufficient seller inventory")
			}
		}
	}

	for _, debit := range rec.Debits {
		if debit.Source == repository.DebitSourceProduct {
			f.products[debit.TargetID].Quantity -= debit.Quantity
		} else {
			f.stock[debit.TargetID].Quantity -= debit.Quantity
		}
	}

	for _, credit := range rec.Credits {
		f.applyCredit(credit)
	}

	order.Status = repository.OrderStatusApproved
	invoiceID := rec.Invoice.ID
	order.InvoiceID = &invoiceID
	order.InventoryTransferred = true
	order.TotalAmount = rec.Invoice.TotalAmount
	f.invoices[rec.Invoice.ID] = rec.Invoice
	return nil
}

func (f *fakeBackend) applyCredit(credit repository.InventoryTransfer) {
	if credit.Kind == repository.TransferKindRawMaterial {
		for _, m := range f.materials {
			if m.OwnerID == credit.OwnerID && m.ProductID == credit.ProductID {
				m.Quantity += credit.Quantity
				return
			}
		}
		f.stockSeq++
		id := fmt.Sprintf("raw-%d", f.stockSeq)
		f.materials[id] = &repository.RawMaterial{
			ID:               id,
			OwnerID:          credit.OwnerID,
			ProductID:        credit.ProductID,
			ProductName:      credit.ProductName,
			Unit:             credit.Unit,
			Quantity:         credit.Quantity,
			UnitPrice:        credit.UnitPrice,
			NonResellable:    true,
			SourceSellerID:   credit.SourceSellerID,
			SourceSellerName: credit.SourceSellerName,
		}
		return
	}

	for _, s := range f.stock {
		if s.OwnerID == credit.OwnerID && s.ProductID == credit.ProductID {
			s.Quantity += credit.Quantity
			return
		}
	}
	f.stockSeq++
	id := fmt.Sprintf("stock-%d", f.stockSeq)
	f.stock[id] = &repository.StockItem{
		ID:               id,
		OwnerID:          credit.OwnerID,
		ProductID:        credit.ProductID,
		ProductName:      credit.ProductName,
		Unit:             credit.Unit,
		Quantity:         credit.Quantity,
		PurchasePrice:    credit.PurchasePrice,
		SellingPrice:     credit.SellingPrice,
		VatType:          credit.VatType,
		TaxType:          credit.TaxType,
		SourceSellerID:   credit.SourceSellerID,
		SourceSellerName: credit.SourceSellerName,
	}
}

// CatalogStore

func (f *fakeBackend) GetProduct(ctx context.Context, id string) (*repository.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, errors.NotFound("product", id)
	}
	return p, nil
}

func (f *fakeBackend) FindProductByCode(ctx context.Context, sellerID, code string) (*repository.Product, error) {
	for _, p := range f.products {
		if p.SellerID == sellerID && p.ProductCode == code {
			return p, nil
		}
	}
	return nil, errors.NotFound("product", code)
}

// InventoryStore

func (f *fakeBackend) GetStockItem(ctx context.Context, id string) (*repository.StockItem, error) {
	s, ok := f.stock[id]
	if !ok {
		return nil, errors.NotFound("stock_item", id)
	}
	return s, nil
}

func (f *fakeBackend) ListStockByOwner(ctx context.Context, ownerID string) ([]*repository.StockItem, error) {
	result := make([]*repository.StockItem, 0)
	for _, s := range f.stock {
		if s.OwnerID == ownerID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (f *fakeBackend) SetSellingPrice(ctx context.Context, id string, price int64) error {
	s, ok := f.stock[id]
	if !ok {
		return errors.NotFound("stock_item", id)
	}
	s.SellingPrice = &price
	return nil
}

func (f *fakeBackend) ListRawMaterialsByOwner(ctx context.Context, ownerID string) ([]*repository.RawMaterial, error) {
	result := make([]*repository.RawMaterial, 0)
	for _, m := range f.materials {
		if m.OwnerID == ownerID {
			result = append(result, m)
		}
	}
	return result, nil
}

// InvoiceStore

func (f *fakeBackend) GetInvoice(ctx context.Context, id string) (*repository.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, errors.NotFound("invoice", id)
	}
	return inv, nil
}

func (f *fakeBackend) SetFiscalResult(ctx context.Context, id string, res *repository.FiscalResult) error {
	inv, ok := f.invoices[id]
	if !ok {
		return errors.NotFound("invoice", id)
	}
	if inv.FiscalStatus != repository.FiscalStatusUnregistered {
		return errors.New(errors.ErrCodeConflict, "invoice is not unregistered")
	}
	inv.FiscalStatus = repository.FiscalStatusRegistered
	inv.InvoiceNumber = &res.InvoiceNumber
	inv.VerificationCode = &res.VerificationCode
	inv.TotalTax = &res.TotalTax
	inv.QRCode = &res.QRCode
	inv.ReceiptSignature = &res.ReceiptSignature
	return nil
}

func (f *fakeBackend) MarkCancelled(ctx context.Context, id string) error {
	inv, ok := f.invoices[id]
	if !ok {
		return errors.NotFound("invoice", id)
	}
	if inv.FiscalStatus != repository.FiscalStatusRegistered {
		return errors.New(errors.ErrCodeConflict, "invoice is not registered")
	}
	inv.FiscalStatus = repository.FiscalStatusCancelled
	return nil
}

// DirectoryStore

func (f *fakeBackend) GetBusiness(ctx context.Context, id string) (*repository.BusinessProfile, error) {
	b, ok := f.businesses[id]
	if !ok {
		return nil, errors.NotFound("business", id)
	}
	return b, nil
}

// invoiceStoreAdapter narrows fakeBackend to InvoiceStore; the backend's
// GetInvoice avoids a method-name clash with OrderStore.GetByID.
type invoiceStoreAdapter struct {
	backend *fakeBackend
}

func (a invoiceStoreAdapter) GetByID(ctx context.Context, id string) (*repository.Invoice, error) {
	return a.backend.GetInvoice(ctx, id)
}

func (a invoiceStoreAdapter) SetFiscalResult(ctx context.Context, id string, res *repository.FiscalResult) error {
	return a.backend.SetFiscalResult(ctx, id, res)
}

func (a invoiceStoreAdapter) MarkCancelled(ctx context.Context, id string) error {
	return a.backend.MarkCancelled(ctx, id)
}

// fakeFiscalGateway records submissions and can be told to fail.
type fakeFiscalGateway struct {
	fail        bool
	submissions int
	cancelled   []string
	registered  map[string]string
	seq         int
}

func newFakeFiscalGateway() *fakeFiscalGateway {
	return &fakeFiscalGateway{registered: make(map[string]string)}
}

func (g *fakeFiscalGateway) SubmitInvoice(ctx context.Context, invoice *repository.Invoice) (*repository.FiscalResult, error) {
	g.submissions++
	if g.fail {
		return nil, errors.New(errors.ErrCodeUnavailable, "EBM unavailable")
	}

	var totalTax int64
	for _, line := range invoice.Lines {
		if line.TaxType == "B" {
			totalTax += line.LineTotal * 18 / 100
		}
	}

	g.seq++
	number := fmt.Sprintf("EBM-%06d", g.seq)
	g.registered[number] = "CODE"
	return &repository.FiscalResult{
		InvoiceNumber:    number,
		VerificationCode: "CODE",
		TotalTax:         totalTax,
		QRCode:           "https://ebm.example/verify/" + number,
		ReceiptSignature: "SIG",
	}, nil
}

func (g *fakeFiscalGateway) VerifyInvoice(ctx context.Context, invoiceNumber, code string) (bool, error) {
	stored, ok := g.registered[invoiceNumber]
	return ok && stored == code, nil
}

func (g *fakeFiscalGateway) CancelInvoice(ctx context.Context, invoiceNumber, reason string) (bool, error) {
	if _, ok := g.registered[invoiceNumber]; !ok {
		return false, nil
	}
	delete(g.registered, invoiceNumber)
	g.cancelled = append(g.cancelled, invoiceNumber)
	return true, nil
}

// fakeEventPublisher records published event types.
type fakeEventPublisher struct {
	events []string
}

func (p *fakeEventPublisher) PublishOrderEvent(ctx context.Context, eventType string, order *repository.PurchaseOrder) {
	p.events = append(p.events, eventType)
}
