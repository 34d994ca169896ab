package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplylane/be-fulfillment/internal/repository"
)

func newQueryEnv() (*fakeBackend, *OrderQueryService) {
	backend := newFakeBackend()
	return backend, NewOrderQueryService(backend, backend, backend, testLogger())
}

func TestListSellerOrdersPartitioning(t *testing.T) {
	backend, svc := newQueryEnv()

	invoiceID := "inv-1"
	now := time.Now()
	backend.orders["o1"] = &repository.PurchaseOrder{
		ID: "o1", SellerID: "s1", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusPending, TotalAmount: 100, CreatedAt: now,
	}
	backend.orders["o2"] = &repository.PurchaseOrder{
		ID: "o2", SellerID: "s1", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusApproved, TotalAmount: 200, CreatedAt: now,
	}
	backend.orders["o3"] = &repository.PurchaseOrder{
		ID: "o3", SellerID: "s1", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusApproved, InvoiceID: &invoiceID, TotalAmount: 300, CreatedAt: now,
	}
	backend.orders["o4"] = &repository.PurchaseOrder{
		ID: "o4", SellerID: "s1", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusRejected, TotalAmount: 400, CreatedAt: now,
	}
	backend.orders["o5"] = &repository.PurchaseOrder{
		ID: "o5", SellerID: "other", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusPending, TotalAmount: 500, CreatedAt: now,
	}

	result, err := svc.ListSellerOrders(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, result.Pending, 1)
	assert.Equal(t, "o1", result.Pending[0].ID)
	require.Len(t, result.Approved, 1)
	assert.Equal(t, "o2", result.Approved[0].ID)
	require.Len(t, result.Invoiced, 1)
	assert.Equal(t, "o3", result.Invoiced[0].ID)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "o4", result.Rejected[0].ID)
}

func TestListSellerOrdersSortsNewestFirst(t *testing.T) {
	backend, svc := newQueryEnv()

	base := time.Now()
	backend.orders["old"] = &repository.PurchaseOrder{
		ID: "old", SellerID: "s1", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusPending, TotalAmount: 1, CreatedAt: base.Add(-time.Hour),
	}
	backend.orders["new"] = &repository.PurchaseOrder{
		ID: "new", SellerID: "s1", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusPending, TotalAmount: 1, CreatedAt: base,
	}
	// Legacy row with no timestamp sorts last
	backend.orders["legacy"] = &repository.PurchaseOrder{
		ID: "legacy", SellerID: "s1", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusPending, TotalAmount: 1,
	}

	result, err := svc.ListSellerOrders(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, result.Pending, 3)
	assert.Equal(t, "new", result.Pending[0].ID)
	assert.Equal(t, "old", result.Pending[1].ID)
	assert.Equal(t, "legacy", result.Pending[2].ID)
}

func TestListSellerOrdersBackfillsBuyer(t *testing.T) {
	backend, svc := newQueryEnv()

	backend.businesses["b1"] = &repository.BusinessProfile{
		ID: "b1", Name: "Fresh Mart", TIN: "900", Phone: "0788", Role: repository.RoleRetailer,
	}
	backend.orders["o1"] = &repository.PurchaseOrder{
		ID: "o1", SellerID: "s1", BuyerID: "b1",
		Status: repository.OrderStatusPending, TotalAmount: 1, CreatedAt: time.Now(),
	}

	result, err := svc.ListSellerOrders(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, result.Pending, 1)
	assert.Equal(t, "Fresh Mart", result.Pending[0].BuyerName)
	assert.Equal(t, "900", result.Pending[0].BuyerTIN)
	assert.Equal(t, repository.RoleRetailer, result.Pending[0].BuyerRole)
}

func TestListSellerOrdersBackfillFailureDegrades(t *testing.T) {
	backend, svc := newQueryEnv()

	// Buyer no longer in the directory; the order is still returned
	backend.orders["o1"] = &repository.PurchaseOrder{
		ID: "o1", SellerID: "s1", BuyerID: "gone",
		Status: repository.OrderStatusPending, TotalAmount: 1, CreatedAt: time.Now(),
	}

	result, err := svc.ListSellerOrders(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, result.Pending, 1)
	assert.Empty(t, result.Pending[0].BuyerName)
}

func TestListSellerOrdersPatchesMissingTotal(t *testing.T) {
	backend, svc := newQueryEnv()

	backend.orders["o1"] = &repository.PurchaseOrder{
		ID: "o1", SellerID: "s1", BuyerID: "b1", BuyerName: "B", BuyerTIN: "1",
		Status: repository.OrderStatusPending, CreatedAt: time.Now(),
		Lines: []*repository.OrderLine{
			{Quantity: 4, UnitPrice: 250},
			{Quantity: 2, UnitPrice: 500},
		},
	}

	result, err := svc.ListSellerOrders(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, result.Pending, 1)
	assert.Equal(t, int64(2000), result.Pending[0].TotalAmount)
	// Written back through the store
	assert.Equal(t, int64(2000), backend.orders["o1"].TotalAmount)
}

func TestPriceStockItem(t *testing.T) {
	backend, svc := newQueryEnv()
	backend.stock["st-1"] = &repository.StockItem{ID: "st-1", OwnerID: "own-1", ProductID: "p1", Quantity: 5}

	item, err := svc.PriceStockItem(context.Background(), "own-1", "st-1", 450)
	require.NoError(t, err)
	require.NotNil(t, item.SellingPrice)
	assert.Equal(t, int64(450), *item.SellingPrice)
	assert.Equal(t, int64(450), *backend.stock["st-1"].SellingPrice)
}

func TestPriceStockItemValidation(t *testing.T) {
	backend, svc := newQueryEnv()
	backend.stock["st-1"] = &repository.StockItem{ID: "st-1", OwnerID: "own-1", ProductID: "p1"}

	_, err := svc.PriceStockItem(context.Background(), "own-1", "st-1", 0)
	require.Error(t, err)

	// Pricing someone else's stock reads as missing
	_, err = svc.PriceStockItem(context.Background(), "intruder", "st-1", 100)
	require.Error(t, err)
	assert.Nil(t, backend.stock["st-1"].SellingPrice)
}

func TestListOwnerInventory(t *testing.T) {
	backend, svc := newQueryEnv()

	backend.stock["st-1"] = &repository.StockItem{ID: "st-1", OwnerID: "own-1", ProductID: "p1", Quantity: 5}
	backend.stock["st-2"] = &repository.StockItem{ID: "st-2", OwnerID: "other", ProductID: "p2", Quantity: 9}
	backend.materials["rm-1"] = &repository.RawMaterial{ID: "rm-1", OwnerID: "own-1", ProductID: "p3", Quantity: 7}

	inv, err := svc.ListOwnerInventory(context.Background(), "own-1")
	require.NoError(t, err)
	require.Len(t, inv.Stock, 1)
	assert.Equal(t, "st-1", inv.Stock[0].ID)
	require.Len(t, inv.RawMaterials, 1)
	assert.Equal(t, "rm-1", inv.RawMaterials[0].ID)
}
