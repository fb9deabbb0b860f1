package repository

import (
	"testing"
	"time"

	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderRepositoryTest(t *testing.T) (*GormOrderRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.OrderFee{}, &models.OrderNote{}); err != nil {
		t.Fatalf("migrate order tables failed: %v", err)
	}
	return NewOrderRepository(db), db
}

func createTestOrder(t *testing.T, repo *GormOrderRepository, orderNo string, customerID uint, cartHash string, status string) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:    orderNo,
		CustomerID: customerID,
		CartHash:   cartHash,
		Status:     status,
		Currency:   "USD",
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(25.50)),
	}
	items := []models.OrderItem{
		{
			Name:     "测试商品",
			ProductID: 11,
			Quantity: decimal.NewFromInt(1),
			Subtotal: models.NewMoneyFromDecimal(decimal.NewFromFloat(25.50)),
			Total:    models.NewMoneyFromDecimal(decimal.NewFromFloat(25.50)),
		},
	}
	if err := repo.Create(order, items, nil); err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestOrderRepositoryDuplicateFields(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)
	order := createTestOrder(t, repo, "PL-1001", 999, "hash-a", constants.OrderStatusPendingPayment)

	hash, err := repo.GetCartHash(order.ID)
	if err != nil {
		t.Fatalf("get cart hash failed: %v", err)
	}
	if hash != "hash-a" {
		t.Fatalf("unexpected cart hash: %s", hash)
	}

	customerID, err := repo.GetCustomerID(order.ID)
	if err != nil {
		t.Fatalf("get customer id failed: %v", err)
	}
	if customerID != 999 {
		t.Fatalf("unexpected customer id: %d", customerID)
	}

	pending, err := repo.IsPending(order.ID)
	if err != nil {
		t.Fatalf("is pending failed: %v", err)
	}
	if !pending {
		t.Fatalf("expected order pending")
	}

	paid, err := repo.IsPaid(order.ID)
	if err != nil {
		t.Fatalf("is paid failed: %v", err)
	}
	if paid {
		t.Fatalf("expected order not paid")
	}
}

func TestOrderRepositoryMarkPaidOnlyFromPending(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)
	order := createTestOrder(t, repo, "PL-1002", 7, "hash-b", constants.OrderStatusPendingPayment)

	if err := repo.MarkPaid(order.ID, "pi_test_1", time.Now()); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	paid, err := repo.IsPaid(order.ID)
	if err != nil {
		t.Fatalf("is paid failed: %v", err)
	}
	if !paid {
		t.Fatalf("expected order paid")
	}
	intentID, err := repo.GetIntentID(order.ID)
	if err != nil {
		t.Fatalf("get intent id failed: %v", err)
	}
	if intentID != "pi_test_1" {
		t.Fatalf("unexpected intent id: %s", intentID)
	}

	// 再次标记不应改写已支付订单
	if err := repo.MarkPaid(order.ID, "pi_test_2", time.Now()); err != nil {
		t.Fatalf("second mark paid failed: %v", err)
	}
	intentID, _ = repo.GetIntentID(order.ID)
	if intentID != "pi_test_1" {
		t.Fatalf("paid order intent id should be unchanged, got: %s", intentID)
	}
}

func TestOrderRepositoryDeleteRemovesChildren(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	order := createTestOrder(t, repo, "PL-1003", 8, "hash-c", constants.OrderStatusPendingPayment)
	if err := repo.AddNote(order.ID, "note before delete"); err != nil {
		t.Fatalf("add note failed: %v", err)
	}

	if err := repo.Delete(order.ID); err != nil {
		t.Fatalf("delete order failed: %v", err)
	}

	got, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get deleted order failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected order removed")
	}
	var itemCount int64
	db.Model(&models.OrderItem{}).Unscoped().Where("order_id = ?", order.ID).Count(&itemCount)
	if itemCount != 0 {
		t.Fatalf("expected order items removed, got %d", itemCount)
	}
	var noteCount int64
	db.Model(&models.OrderNote{}).Where("order_id = ?", order.ID).Count(&noteCount)
	if noteCount != 0 {
		t.Fatalf("expected order notes removed, got %d", noteCount)
	}
}

func TestOrderRepositoryCancelIfPendingExpired(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t)
	order := createTestOrder(t, repo, "PL-1004", 9, "hash-d", constants.OrderStatusPendingPayment)
	expired := time.Now().Add(-time.Minute)
	db.Model(&models.Order{}).Where("id = ?", order.ID).Update("expires_at", expired)

	canceled, err := repo.CancelIfPendingExpired(order.ID, time.Now())
	if err != nil {
		t.Fatalf("cancel expired failed: %v", err)
	}
	if !canceled {
		t.Fatalf("expected order canceled")
	}

	// 已取消订单不应重复取消
	canceled, err = repo.CancelIfPendingExpired(order.ID, time.Now())
	if err != nil {
		t.Fatalf("second cancel failed: %v", err)
	}
	if canceled {
		t.Fatalf("expected no second cancel")
	}
}

func TestOrderRepositoryListFiltersAndPaginates(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)
	createTestOrder(t, repo, "PL-2001", 100, "hash-l1", constants.OrderStatusPendingPayment)
	createTestOrder(t, repo, "PL-2002", 100, "hash-l2", constants.OrderStatusPaid)
	createTestOrder(t, repo, "PL-2003", 100, "hash-l3", constants.OrderStatusPendingPayment)
	createTestOrder(t, repo, "PL-2004", 200, "hash-l4", constants.OrderStatusPendingPayment)

	rows, total, err := repo.List(OrderListFilter{Page: 1, PageSize: 2, CustomerID: 100})
	if err != nil {
		t.Fatalf("list by customer failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("total want 3 got %d", total)
	}
	if len(rows) != 2 {
		t.Fatalf("page size want 2 got %d", len(rows))
	}
	if rows[0].ID <= rows[1].ID {
		t.Fatalf("list should order by id descending, got %d then %d", rows[0].ID, rows[1].ID)
	}

	rows, total, err = repo.List(OrderListFilter{Page: 1, PageSize: 10, Status: constants.OrderStatusPaid})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].OrderNo != "PL-2002" {
		t.Fatalf("status filter want PL-2002 got total=%d rows=%+v", total, rows)
	}

	rows, total, err = repo.List(OrderListFilter{Page: 1, PageSize: 10, OrderNo: "PL-2004"})
	if err != nil {
		t.Fatalf("list by order_no failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].CustomerID != 200 {
		t.Fatalf("order_no filter want customer 200 got total=%d rows=%+v", total, rows)
	}
}
