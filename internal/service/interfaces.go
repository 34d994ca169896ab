package service

import (
	"context"

	"github.com/supplylane/be-fulfillment/internal/repository"
)

// OrderStore persists purchase orders.
type OrderStore interface {
	Create(ctx context.Context, order *repository.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*repository.PurchaseOrder, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*repository.PurchaseOrder, error)
	Reject(ctx context.Context, id, reason string) error
	UpdateTotalAmount(ctx context.Context, id string, total int64) error
}

// FulfillmentStore applies an approval write set atomically.
type FulfillmentStore interface {
	ApproveOrder(ctx context.Context, rec *repository.ApprovalRecord) error
}

// CatalogStore reads the seller product master.
type CatalogStore interface {
	GetProduct(ctx context.Context, id string) (*repository.Product, error)
	FindProductByCode(ctx context.Context, sellerID, code string) (*repository.Product, error)
}

// InventoryStore reads stock and raw-material holdings.
type InventoryStore interface {
	GetStockItem(ctx context.Context, id string) (*repository.StockItem, error)
	ListStockByOwner(ctx context.Context, ownerID string) ([]*repository.StockItem, error)
	ListRawMaterialsByOwner(ctx context.Context, ownerID string) ([]*repository.RawMaterial, error)
	SetSellingPrice(ctx context.Context, id string, price int64) error
}

// InvoiceStore reads invoices and records fiscal registration.
type InvoiceStore interface {
	GetByID(ctx context.Context, id string) (*repository.Invoice, error)
	SetFiscalResult(ctx context.Context, id string, res *repository.FiscalResult) error
	MarkCancelled(ctx context.Context, id string) error
}

// DirectoryStore resolves user ids to business profiles.
type DirectoryStore interface {
	GetBusiness(ctx context.Context, id string) (*repository.BusinessProfile, error)
}

// FiscalGateway is the EBM contract.
type FiscalGateway interface {
	SubmitInvoice(ctx context.Context, invoice *repository.Invoice) (*repository.FiscalResult, error)
	VerifyInvoice(ctx context.Context, invoiceNumber, code string) (bool, error)
	CancelInvoice(ctx context.Context, invoiceNumber, reason string) (bool, error)
}

// EventPublisher emits order lifecycle events. Implementations must be
// non-fatal: a failed publish never fails the operation.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, eventType string, order *repository.PurchaseOrder)
}
