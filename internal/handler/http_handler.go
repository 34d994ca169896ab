package handler

import (
	"encoding/json"
	"net/http"

	"github.com/supplylane/be-fulfillment/internal/platform/errors"
	"github.com/supplylane/be-fulfillment/internal/platform/logger"
	"github.com/supplylane/be-fulfillment/internal/service"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	intake      *service.OrderIntakeService
	query       *service.OrderQueryService
	fulfillment *service.FulfillmentService
	orders      service.OrderStore
	invoices    service.InvoiceStore
	log         *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	intake *service.OrderIntakeService,
	query *service.OrderQueryService,
	fulfillment *service.FulfillmentService,
	orders service.OrderStore,
	invoices service.InvoiceStore,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		intake:      intake,
		query:       query,
		fulfillment: fulfillment,
		orders:      orders,
		invoices:    invoices,
		log:         log,
	}
}

// CreateOrder handles order intake requests.
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BuyerID  string `json:"buyer_id"`
		SellerID string `json:"seller_id"`
		Lines    []struct {
			ProductID   string  `json:"product_id"`
			StockID     *string `json:"stock_id"`
			ProductName string  `json:"product_name"`
			Unit        string  `json:"unit"`
			Quantity    int64   `json:"quantity"`
			UnitPrice   int64   `json:"unit_price"`
		} `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	svcReq := &service.CreateOrderRequest{
		BuyerID:  req.BuyerID,
		SellerID: req.SellerID,
	}
	for _, l := range req.Lines {
		svcReq.Lines = append(svcReq.Lines, &service.OrderLineRequest{
			ProductID:   l.ProductID,
			StockID:     l.StockID,
			ProductName: l.ProductName,
			Unit:        l.Unit,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	order, err := h.intake.CreateOrder(r.Context(), svcReq)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

// ListOrders handles partitioned seller order listing.
func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sellerID := r.URL.Query().Get("seller_id")
	if sellerID == "" {
		http.Error(w, "Seller ID is required", http.StatusBadRequest)
		return
	}

	orders, err := h.query.ListSellerOrders(r.Context(), sellerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending":  orders.Pending,
		"approved": orders.Approved,
		"rejected": orders.Rejected,
		"invoiced": orders.Invoiced,
	})
}

// GetOrder handles single order reads.
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("id")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// ApproveOrder handles order approval requests.
func (h *HTTPHandler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID         string `json:"id"`
		SellerID   string `json:"seller_id"`
		ApprovedBy string `json:"approved_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.fulfillment.ApproveOrder(r.Context(), &service.ApproveOrderRequest{
		OrderID:    req.ID,
		SellerID:   req.SellerID,
		ApprovedBy: req.ApprovedBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// RejectOrder handles order rejection requests.
func (h *HTTPHandler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID         string `json:"id"`
		SellerID   string `json:"seller_id"`
		Reason     string `json:"reason"`
		RejectedBy string `json:"rejected_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.fulfillment.RejectOrder(r.Context(), &service.RejectOrderRequest{
		OrderID:    req.ID,
		SellerID:   req.SellerID,
		Reason:     req.Reason,
		RejectedBy: req.RejectedBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// GetInvoice handles invoice reads.
func (h *HTTPHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID := r.URL.Query().Get("id")
	if invoiceID == "" {
		http.Error(w, "Invoice ID is required", http.StatusBadRequest)
		return
	}

	invoice, err := h.invoices.GetByID(r.Context(), invoiceID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, invoice)
}

// RegisterInvoice re-submits an unregistered invoice to the fiscal gateway.
func (h *HTTPHandler) RegisterInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	invoice, err := h.fulfillment.RegisterInvoice(r.Context(), req.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, invoice)
}

// VerifyInvoice checks a registration with the fiscal gateway.
func (h *HTTPHandler) VerifyInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvoiceNumber    string `json:"invoice_number"`
		VerificationCode string `json:"verification_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	verified, err := h.fulfillment.VerifyInvoice(r.Context(), req.InvoiceNumber, req.VerificationCode)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

// CancelInvoice cancels a registered invoice.
func (h *HTTPHandler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.fulfillment.CancelInvoice(r.Context(), req.ID, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// ListInventory returns an owner's stock and raw-material holdings.
func (h *HTTPHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		http.Error(w, "Owner ID is required", http.StatusBadRequest)
		return
	}

	inv, err := h.query.ListOwnerInventory(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"stock":         inv.Stock,
		"raw_materials": inv.RawMaterials,
	})
}

// SetStockPrice sets the resale price on an owner's stock item.
func (h *HTTPHandler) SetStockPrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID      string `json:"owner_id"`
		StockID      string `json:"stock_id"`
		SellingPrice int64  `json:"selling_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.query.PriceStockItem(r.Context(), req.OwnerID, req.StockID, req.SellingPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeConflict:
		status = http.StatusConflict
	case errors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case errors.ErrCodeUnavailable:
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}
