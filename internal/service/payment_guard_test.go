package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/payline-next/internal/constants"
	"github.com/payline-next/internal/payment/stripe"
	"github.com/payline-next/internal/repository"
	"github.com/payline-next/internal/session"
)

type guardOrderState struct {
	cartHash   string
	customerID uint
	paid       bool
	pending    bool
	intentID   string
}

type guardOrderRepoStub struct {
	repository.OrderRepository
	orders  map[uint]*guardOrderState
	notes   map[uint][]string
	deleted []uint
	failAll bool
}

func newGuardOrderRepoStub() *guardOrderRepoStub {
	return &guardOrderRepoStub{
		orders: make(map[uint]*guardOrderState),
		notes:  make(map[uint][]string),
	}
}

func (s *guardOrderRepoStub) state(orderID uint) (*guardOrderState, error) {
	if s.failAll {
		return nil, errors.New("db down")
	}
	o, ok := s.orders[orderID]
	if !ok {
		return &guardOrderState{}, nil
	}
	return o, nil
}

func (s *guardOrderRepoStub) GetCartHash(orderID uint) (string, error) {
	o, err := s.state(orderID)
	if err != nil {
		return "", err
	}
	return o.cartHash, nil
}

func (s *guardOrderRepoStub) GetCustomerID(orderID uint) (uint, error) {
	o, err := s.state(orderID)
	if err != nil {
		return 0, err
	}
	return o.customerID, nil
}

func (s *guardOrderRepoStub) IsPaid(orderID uint) (bool, error) {
	o, err := s.state(orderID)
	if err != nil {
		return false, err
	}
	return o.paid, nil
}

func (s *guardOrderRepoStub) IsPending(orderID uint) (bool, error) {
	o, err := s.state(orderID)
	if err != nil {
		return false, err
	}
	return o.pending, nil
}

func (s *guardOrderRepoStub) GetIntentID(orderID uint) (string, error) {
	o, err := s.state(orderID)
	if err != nil {
		return "", err
	}
	return o.intentID, nil
}

func (s *guardOrderRepoStub) AddNote(orderID uint, content string) error {
	if s.failAll {
		return errors.New("db down")
	}
	s.notes[orderID] = append(s.notes[orderID], content)
	return nil
}

func (s *guardOrderRepoStub) Delete(orderID uint) error {
	if s.failAll {
		return errors.New("db down")
	}
	s.deleted = append(s.deleted, orderID)
	delete(s.orders, orderID)
	return nil
}

type intentReaderStub struct {
	intent *stripe.Intent
	err    error
}

func (s *intentReaderStub) GetIntent(_ context.Context, _ string) (*stripe.Intent, error) {
	return s.intent, s.err
}

const guardSession = "sess_1"

func newGuard(repo *guardOrderRepoStub, intents IntentReader) (*PaymentGuard, *session.MemoryStore) {
	store := session.NewMemoryStore()
	return NewPaymentGuard(repo, store, intents), store
}

func seedDuplicatePair(repo *guardOrderRepoStub) {
	repo.orders[100] = &guardOrderState{cartHash: "H", customerID: 999, paid: true}
	repo.orders[200] = &guardOrderState{cartHash: "H", customerID: 999, pending: true}
}

func TestGetPreviousPaidDuplicateOrderIDPositive(t *testing.T) {
	repo := newGuardOrderRepoStub()
	seedDuplicatePair(repo)
	guard, _ := newGuard(repo, &intentReaderStub{})
	ctx := context.Background()

	if err := guard.UpdateSessionProcessingOrder(ctx, guardSession, 100); err != nil {
		t.Fatalf("update slot: %v", err)
	}
	if got := guard.GetPreviousPaidDuplicateOrderID(ctx, guardSession, 200); got != 100 {
		t.Fatalf("expected duplicate order 100, got %d", got)
	}
}

func TestGetPreviousPaidDuplicateOrderIDNegativeCases(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		prepare func(repo *guardOrderRepoStub, guard *PaymentGuard)
	}{
		{"empty slot", func(repo *guardOrderRepoStub, guard *PaymentGuard) {}},
		{"same order id", func(repo *guardOrderRepoStub, guard *PaymentGuard) {
			_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 200)
		}},
		{"different cart hash", func(repo *guardOrderRepoStub, guard *PaymentGuard) {
			repo.orders[100].cartHash = "OTHER"
			_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 100)
		}},
		{"different customer", func(repo *guardOrderRepoStub, guard *PaymentGuard) {
			repo.orders[100].customerID = 123
			_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 100)
		}},
		{"session order not paid", func(repo *guardOrderRepoStub, guard *PaymentGuard) {
			repo.orders[100].paid = false
			_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 100)
		}},
		{"current order not pending", func(repo *guardOrderRepoStub, guard *PaymentGuard) {
			repo.orders[200].pending = false
			_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 100)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newGuardOrderRepoStub()
			seedDuplicatePair(repo)
			guard, _ := newGuard(repo, &intentReaderStub{})
			tc.prepare(repo, guard)
			if got := guard.GetPreviousPaidDuplicateOrderID(ctx, guardSession, 200); got != 0 {
				t.Fatalf("expected no duplicate, got %d", got)
			}
		})
	}
}

func TestGetPreviousPaidDuplicateOrderIDSwallowsLookupFailures(t *testing.T) {
	repo := newGuardOrderRepoStub()
	seedDuplicatePair(repo)
	guard, _ := newGuard(repo, &intentReaderStub{})
	ctx := context.Background()
	_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 100)

	repo.failAll = true
	if got := guard.GetPreviousPaidDuplicateOrderID(ctx, guardSession, 200); got != 0 {
		t.Fatalf("lookup failure must degrade to no duplicate, got %d", got)
	}
}

func TestRemoveSessionProcessingOrderCompareAndClear(t *testing.T) {
	repo := newGuardOrderRepoStub()
	guard, store := newGuard(repo, &intentReaderStub{})
	ctx := context.Background()

	if err := guard.UpdateSessionProcessingOrder(ctx, guardSession, 7); err != nil {
		t.Fatalf("update slot: %v", err)
	}
	writesBefore := store.Writes()

	// 槽位持有 7，移除 9 必须原样保留且零写入
	if err := guard.RemoveSessionProcessingOrder(ctx, guardSession, 9); err != nil {
		t.Fatalf("mismatched remove must be a silent no-op: %v", err)
	}
	if store.Writes() != writesBefore {
		t.Fatalf("mismatched remove must perform zero session writes")
	}
	slot, _ := store.Get(ctx, guardSession, constants.SessionKeyProcessingOrder, "")
	if slot != "7" {
		t.Fatalf("slot must stay unchanged, got %q", slot)
	}

	if err := guard.RemoveSessionProcessingOrder(ctx, guardSession, 7); err != nil {
		t.Fatalf("matched remove: %v", err)
	}
	slot, _ = store.Get(ctx, guardSession, constants.SessionKeyProcessingOrder, "")
	if slot != "" {
		t.Fatalf("matched remove must clear the slot, got %q", slot)
	}
}

func TestUpdateSessionProcessingOrderOverwrites(t *testing.T) {
	repo := newGuardOrderRepoStub()
	guard, store := newGuard(repo, &intentReaderStub{})
	ctx := context.Background()

	_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 1)
	_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 2)
	slot, _ := store.Get(ctx, guardSession, constants.SessionKeyProcessingOrder, "")
	if slot != "2" {
		t.Fatalf("slot must be last-write-wins, got %q", slot)
	}
}

func TestCleanUpWhenDetectingDuplicateOrder(t *testing.T) {
	repo := newGuardOrderRepoStub()
	seedDuplicatePair(repo)
	guard, store := newGuard(repo, &intentReaderStub{})
	ctx := context.Background()
	_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 100)

	if err := guard.CleanUpWhenDetectingDuplicateOrder(ctx, guardSession, 100, 200); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != 200 {
		t.Fatalf("redundant order 200 must be deleted, got %v", repo.deleted)
	}
	if len(repo.notes[100]) != 1 || !strings.Contains(repo.notes[100][0], "200") {
		t.Fatalf("authoritative order must be annotated with the removed order: %v", repo.notes[100])
	}
	slot, _ := store.Get(ctx, guardSession, constants.SessionKeyProcessingOrder, "")
	if slot != "" {
		t.Fatalf("slot referencing the duplicate must be cleared, got %q", slot)
	}
}

func TestGetAuthorizedPaymentIntentAttachedToOrder(t *testing.T) {
	ctx := context.Background()

	repo := newGuardOrderRepoStub()
	repo.orders[42] = &guardOrderState{intentID: "pi_1", pending: true}

	authorized := &stripe.Intent{
		ID:       "pi_1",
		Status:   constants.IntentStatusRequiresCapture,
		Metadata: map[string]string{stripe.MetadataKeyOrderID: "42"},
	}
	guard, _ := newGuard(repo, &intentReaderStub{intent: authorized})
	if got := guard.GetAuthorizedPaymentIntentAttachedToOrder(ctx, 42); got == nil || got.ID != "pi_1" {
		t.Fatalf("authorized intent with matching metadata must be reused, got %+v", got)
	}

	// 元数据回指其他订单时拒绝复用
	foreign := &stripe.Intent{
		ID:       "pi_1",
		Status:   constants.IntentStatusSucceeded,
		Metadata: map[string]string{stripe.MetadataKeyOrderID: "43"},
	}
	guard, _ = newGuard(repo, &intentReaderStub{intent: foreign})
	if got := guard.GetAuthorizedPaymentIntentAttachedToOrder(ctx, 42); got != nil {
		t.Fatalf("intent bound to another order must not be reused")
	}

	// 未授权状态拒绝复用
	unauthorized := &stripe.Intent{
		ID:       "pi_1",
		Status:   constants.IntentStatusRequiresPaymentMethod,
		Metadata: map[string]string{stripe.MetadataKeyOrderID: "42"},
	}
	guard, _ = newGuard(repo, &intentReaderStub{intent: unauthorized})
	if got := guard.GetAuthorizedPaymentIntentAttachedToOrder(ctx, 42); got != nil {
		t.Fatalf("non-authorized intent must not be reused")
	}

	// 传输失败按无可用 Intent 处理
	guard, _ = newGuard(repo, &intentReaderStub{err: errors.New("network down")})
	if got := guard.GetAuthorizedPaymentIntentAttachedToOrder(ctx, 42); got != nil {
		t.Fatalf("transport failure must degrade to nil")
	}

	// 未挂载 Intent 的订单直接返回空
	repo.orders[50] = &guardOrderState{}
	guard, _ = newGuard(repo, &intentReaderStub{intent: authorized})
	if got := guard.GetAuthorizedPaymentIntentAttachedToOrder(ctx, 50); got != nil {
		t.Fatalf("order without an attached intent must yield nil")
	}
}

func TestClearSessionProcessingOrderAfterLandingOrderReceivedPage(t *testing.T) {
	repo := newGuardOrderRepoStub()
	guard, store := newGuard(repo, &intentReaderStub{})
	ctx := context.Background()
	_ = guard.UpdateSessionProcessingOrder(ctx, guardSession, 5)

	// 非完成页或无订单 ID 不触碰槽位
	if err := guard.ClearSessionProcessingOrderAfterLandingOrderReceivedPage(ctx, guardSession, false, 5); err != nil {
		t.Fatalf("non landing page: %v", err)
	}
	if err := guard.ClearSessionProcessingOrderAfterLandingOrderReceivedPage(ctx, guardSession, true, 0); err != nil {
		t.Fatalf("missing order id: %v", err)
	}
	slot, _ := store.Get(ctx, guardSession, constants.SessionKeyProcessingOrder, "")
	if slot != "5" {
		t.Fatalf("slot must survive non-matching hooks, got %q", slot)
	}

	// 页面订单与槽位一致时清除
	if err := guard.ClearSessionProcessingOrderAfterLandingOrderReceivedPage(ctx, guardSession, true, 5); err != nil {
		t.Fatalf("landing hook: %v", err)
	}
	slot, _ = store.Get(ctx, guardSession, constants.SessionKeyProcessingOrder, "")
	if slot != "" {
		t.Fatalf("slot must be cleared on landing, got %q", slot)
	}
}
