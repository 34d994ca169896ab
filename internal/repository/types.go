package repository

import "time"

// Order statuses. Transitions are one-way: pending → approved | rejected.
const (
	OrderStatusPending  = "pending"
	OrderStatusApproved = "approved"
	OrderStatusRejected = "rejected"
)

// Business roles in the supply chain.
const (
	RoleManufacturer = "manufacturer"
	RoleDistributor  = "distributor"
	RoleRetailer     = "retailer"
	RoleBuyer        = "buyer" // terminal consumer; goods leave the tracked chain
)

// Fiscal registration states for an invoice.
const (
	FiscalStatusUnregistered = "unregistered"
	FiscalStatusRegistered   = "registered"
	FiscalStatusCancelled    = "cancelled"
)

// Inventory transfer kinds (buyer-side credit shape).
const (
	TransferKindStock       = "stock"
	TransferKindRawMaterial = "raw_material"
)

// Seller-side debit sources.
const (
	DebitSourceProduct = "product" // manufacturer selling own catalog
	DebitSourceStock   = "stock"   // reseller selling purchased stock
)

// PurchaseOrder is a buyer-created order awaiting seller action.
// Buyer identity is denormalized at creation; legacy rows may lack it.
type PurchaseOrder struct {
	ID                   string
	SellerID             string
	BuyerID              string
	BuyerTIN             string
	BuyerName            string
	BuyerPhone           string
	BuyerAddress         string
	BuyerRole            string
	Status               string // pending | approved | rejected
	TotalAmount          int64  // minor units
	InvoiceID            *string
	RejectionReason      *string
	InventoryTransferred bool
	CreatedAt            time.Time // zero for legacy rows lacking a timestamp
	UpdatedAt            time.Time
	ApprovedAt           *time.Time
	RejectedAt           *time.Time
	Lines                []*OrderLine
}

// OrderLine is one cart line. Tax fields are empty until approval resolves
// them from the seller's own records.
type OrderLine struct {
	ID          string
	OrderID     string
	LineNumber  int
	ProductID   string
	StockID     *string // set when the seller is a reseller
	ProductName string
	Unit        string
	Quantity    int64
	UnitPrice   int64 // minor units
	LineTotal   int64 // quantity × unit price, re-derived server-side
	VatType     *string
	TaxType     *string // "A" exempt, "B" standard
	VatRateBps  *int32  // basis points; 1800 = 18%
}

// Product is a row in a manufacturer's catalog master.
type Product struct {
	ID          string
	SellerID    string
	ProductCode string // external id, fallback lookup key
	Name        string
	Unit        string
	UnitPrice   int64
	Quantity    int64
	VatType     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StockItem is reseller inventory held for resale.
// Unique per (owner_id, product_id); quantity moves only by atomic increment.
type StockItem struct {
	ID               string
	OwnerID          string
	ProductID        string
	ProductName      string
	Unit             string
	Quantity         int64
	PurchasePrice    int64
	SellingPrice     *int64 // nil until the owner prices it
	VatType          string
	TaxType          string
	SourceSellerID   string
	SourceSellerName string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RawMaterial is manufacturer production input, never resold.
// Unique per (owner_id, product_id).
type RawMaterial struct {
	ID               string
	OwnerID          string
	ProductID        string
	ProductName      string
	Unit             string
	Quantity         int64
	UnitPrice        int64
	NonResellable    bool
	SourceSellerID   string
	SourceSellerName string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BusinessProfile is a directory entry keyed by an opaque user id.
type BusinessProfile struct {
	ID      string
	Name    string
	TIN     string
	Phone   string
	Address string
	Role    string // manufacturer | distributor | retailer | buyer
}

// Invoice is the immutable record emitted by an approval. Fiscal fields are
// filled in once when the gateway accepts the submission.
type Invoice struct {
	ID               string
	OrderID          string
	SellerID         string
	SellerName       string
	SellerTIN        string
	BuyerID          string
	BuyerName        string
	BuyerTIN         string
	TotalAmount      int64
	IssuedAt         time.Time
	FiscalStatus     string // unregistered | registered | cancelled
	InvoiceNumber    *string
	VerificationCode *string
	TotalTax         *int64
	QRCode           *string
	ReceiptSignature *string
	Lines            []*InvoiceLine
}

// InvoiceLine mirrors a resolved order line.
type InvoiceLine struct {
	ID          string
	InvoiceID   string
	LineNumber  int
	ProductID   string
	ProductName string
	Unit        string
	Quantity    int64
	UnitPrice   int64
	LineTotal   int64
	VatType     string
	TaxType     string
	VatRateBps  int32
}

// FiscalResult is the gateway's response to a successful submission.
type FiscalResult struct {
	InvoiceNumber    string
	VerificationCode string
	TotalTax         int64
	QRCode           string
	ReceiptSignature string
}

// InventoryDebit decrements seller inventory for one order line.
type InventoryDebit struct {
	Source   string // product | stock
	TargetID string
	Quantity int64
}

// InventoryTransfer credits buyer inventory for one order line. Kind selects
// the stock or raw-material shape; the unused fields stay zero.
type InventoryTransfer struct {
	Kind             string // stock | raw_material
	OwnerID          string
	ProductID        string
	ProductName      string
	Unit             string
	Quantity         int64
	PurchasePrice    int64   // stock kind
	SellingPrice     *int64  // stock kind, nil until owner prices it
	VatType          string  // stock kind
	TaxType          string  // stock kind
	UnitPrice        int64   // raw_material kind
	SourceSellerID   string
	SourceSellerName string
}

// ApprovalRecord is the full write set of one order approval, applied in a
// single transaction. Lines carry the tax resolution to write back onto the
// stored order lines.
type ApprovalRecord struct {
	OrderID string
	Lines   []*OrderLine
	Invoice *Invoice
	Debits  []InventoryDebit
	Credits []InventoryTransfer
}
