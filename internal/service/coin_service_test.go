package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"rewards_backend/internal/util"
)

func newCoinService(store BalanceStore) *CoinService {
	return NewCoinService(store, testConfig())
}

func TestCreditCreatesBalance(t *testing.T) {
	store := newMemBalanceStore()
	svc := newCoinService(store)

	amount, err := svc.Credit(context.Background(), 1, 50, "tok-1", "checkin:day-0")
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if amount != 50 {
		t.Fatalf("expected balance 50, got %v", amount)
	}

	got, err := svc.GetBalance(context.Background(), 1)
	if err != nil || got != 50 {
		t.Fatalf("GetBalance = %v, %v", got, err)
	}
}

func TestGetBalanceMissingIsZero(t *testing.T) {
	svc := newCoinService(newMemBalanceStore())
	got, err := svc.GetBalance(context.Background(), 42)
	if err != nil || got != 0 {
		t.Fatalf("expected 0 for missing balance, got %v, %v", got, err)
	}
}

func TestSpendInsufficientBalance(t *testing.T) {
	store := newMemBalanceStore()
	svc := newCoinService(store)

	if _, err := svc.Credit(context.Background(), 1, 30, "tok-1", "seed"); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	_, err := svc.Spend(context.Background(), 1, 100, "tok-2", "coupon:coupon-0")
	if !errors.Is(err, util.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	got, _ := svc.GetBalance(context.Background(), 1)
	if got != 30 {
		t.Fatalf("failed debit must not change balance, got %v", got)
	}
	if store.entryCount() != 1 {
		t.Fatalf("failed debit must not leave an entry, got %d", store.entryCount())
	}
}

func TestAdjustDebitRequiresPermission(t *testing.T) {
	svc := newCoinService(newMemBalanceStore())
	_, err := svc.Adjust(context.Background(), 1, -10, false, "tok-1", "adjust")
	if !errors.Is(err, util.ErrDebitNotAllowed) {
		t.Fatalf("expected ErrDebitNotAllowed, got %v", err)
	}
}

func TestAdjustDuplicateTokenReplays(t *testing.T) {
	store := newMemBalanceStore()
	svc := newCoinService(store)

	first, err := svc.Credit(context.Background(), 1, 25, "tok-1", "checkin:day-0")
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}
	second, err := svc.Credit(context.Background(), 1, 25, "tok-1", "checkin:day-0")
	if err != nil {
		t.Fatalf("replay credit: %v", err)
	}
	if first != second {
		t.Fatalf("replay must return the original result: %v vs %v", first, second)
	}

	got, _ := svc.GetBalance(context.Background(), 1)
	if got != 25 {
		t.Fatalf("duplicate token must not double-credit, balance %v", got)
	}
	if store.entryCount() != 1 {
		t.Fatalf("expected a single journal entry, got %d", store.entryCount())
	}
}

func TestAdjustConcurrentCredits(t *testing.T) {
	store := newMemBalanceStore()
	svc := NewCoinService(store, contentionConfig())

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Credit(context.Background(), 1, 1, fmt.Sprintf("tok-%d", i), "checkin")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}
	got, _ := svc.GetBalance(context.Background(), 1)
	if got != n {
		t.Fatalf("expected balance %d, got %v", n, got)
	}
}

func TestCompensateRestoresBalanceAndVoidsEntry(t *testing.T) {
	store := newMemBalanceStore()
	svc := newCoinService(store)

	if _, err := svc.Credit(context.Background(), 1, 50, "seed", "seed"); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := svc.Spend(context.Background(), 1, 30, "tok-s", "coupon:coupon-0"); err != nil {
		t.Fatalf("Spend: %v", err)
	}

	amount, err := svc.Compensate(context.Background(), 1, "tok-s", "coupon-rollback:coupon-0")
	if err != nil {
		t.Fatalf("Compensate: %v", err)
	}
	if amount != 50 {
		t.Fatalf("expected balance restored to 50, got %v", amount)
	}

	entry, err := store.FindEntry(context.Background(), "tok-s")
	if err != nil || entry == nil {
		t.Fatalf("FindEntry = %v, %v", entry, err)
	}
	if !entry.Voided {
		t.Fatalf("compensated entry must be voided")
	}
	rb, err := store.FindEntry(context.Background(), "tok-s:rollback")
	if err != nil || rb == nil {
		t.Fatalf("rollback entry missing: %v", err)
	}
	if rb.Delta != 30 {
		t.Fatalf("rollback delta = %v, want 30", rb.Delta)
	}

	// 重复补偿是幂等空操作
	again, err := svc.Compensate(context.Background(), 1, "tok-s", "coupon-rollback:coupon-0")
	if err != nil || again != 50 {
		t.Fatalf("second Compensate = %v, %v", again, err)
	}
	if store.entryCount() != 3 {
		t.Fatalf("expected 3 journal entries, got %d", store.entryCount())
	}
}

func TestSpendAfterCompensateDebitsAgain(t *testing.T) {
	store := newMemBalanceStore()
	svc := newCoinService(store)

	if _, err := svc.Credit(context.Background(), 1, 50, "seed", "seed"); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := svc.Spend(context.Background(), 1, 30, "tok-s", "coupon:coupon-0"); err != nil {
		t.Fatalf("Spend: %v", err)
	}
	if _, err := svc.Compensate(context.Background(), 1, "tok-s", "coupon-rollback:coupon-0"); err != nil {
		t.Fatalf("Compensate: %v", err)
	}

	// 冲正之后同token再来必须真扣款，不能复读旧流水
	amount, err := svc.Spend(context.Background(), 1, 30, "tok-s", "coupon:coupon-0")
	if err != nil {
		t.Fatalf("Spend after compensate: %v", err)
	}
	if amount != 20 {
		t.Fatalf("expected balance 20 after re-debit, got %v", amount)
	}
	entry, _ := store.FindEntry(context.Background(), "tok-s")
	if entry == nil || entry.Voided {
		t.Fatalf("re-applied entry must be live, got %+v", entry)
	}

	// 重新入账后恢复普通幂等重放
	replay, err := svc.Spend(context.Background(), 1, 30, "tok-s", "coupon:coupon-0")
	if err != nil || replay != 20 {
		t.Fatalf("replay = %v, %v", replay, err)
	}
	got, _ := svc.GetBalance(context.Background(), 1)
	if got != 20 {
		t.Fatalf("replay must not double-debit, balance %v", got)
	}
	if store.entryCount() != 3 {
		t.Fatalf("expected 3 journal entries, got %d", store.entryCount())
	}
}

func TestCompensateUnknownTokenIsNoop(t *testing.T) {
	store := newMemBalanceStore()
	svc := newCoinService(store)

	if _, err := svc.Credit(context.Background(), 1, 50, "seed", "seed"); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	amount, err := svc.Compensate(context.Background(), 1, "ghost", "coupon-rollback:coupon-0")
	if err != nil || amount != 50 {
		t.Fatalf("Compensate = %v, %v", amount, err)
	}
	if store.entryCount() != 1 {
		t.Fatalf("no-op compensate must not journal, got %d", store.entryCount())
	}
}
