package biz

import (
	"context"
	"testing"
	"time"

	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/errors"
)

// confirmOrder 开立托管并走物流确认放款，让佣金进入可打款状态
func confirmOrder(t *testing.T, f *testFixture, orderID, amount string) {
	t.Helper()
	openTestHold(t, f, orderID, amount)
	if _, err := f.uc.ReleaseByDeliveryConfirmation(context.Background(), orderID, time.Now().UTC()); err != nil {
		t.Fatalf("confirm order %s: %v", orderID, err)
	}
}

func TestSweepPayoutsCreatesBatch(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	confirmOrder(t, f, "order-1", "400.00")
	confirmOrder(t, f, "order-2", "600.00")

	now := time.Now().UTC()
	result, err := f.uc.SweepPayouts(context.Background(), now)
	if err != nil {
		t.Fatalf("sweep payouts: %v", err)
	}
	if result.CreatedCount != 1 || result.SkippedCount != 0 || result.FailedCount != 0 {
		t.Fatalf("unexpected sweep counts: created=%d skipped=%d failed=%d",
			result.CreatedCount, result.SkippedCount, result.FailedCount)
	}

	payout := result.Payouts[0]
	// 卖家净额 = (400-40) + (600-60)
	if !payout.Amount.Equal(dec("900.00")) {
		t.Fatalf("expected payout amount 900.00, got %s", payout.Amount)
	}
	if payout.Status != constants.PayoutStatusPending {
		t.Fatalf("expected pending, got %s", payout.Status)
	}
	if payout.CommissionCount != 2 {
		t.Fatalf("expected 2 commissions, got %d", payout.CommissionCount)
	}
	if payout.PaymentMethod != "bank_transfer" {
		t.Fatalf("expected bank_transfer, got %s", payout.PaymentMethod)
	}

	members, _ := f.commission.ListCommissionsByPayoutID(context.Background(), payout.ID)
	if len(members) != 2 {
		t.Fatalf("expected 2 assigned commissions, got %d", len(members))
	}
	for _, c := range members {
		if !c.PaidOut {
			t.Fatalf("commission %s must be marked paid out", c.ID)
		}
	}
	if n := f.audit.entriesFor(constants.EntityPayout, payout.ID); n != 1 {
		t.Fatalf("expected 1 audit entry, got %d", n)
	}
}

func TestSweepPayoutsMinimumThreshold(t *testing.T) {
	// min_payout_amount=50，卖家净额 49.99 跳过
	f := newTestFixture(defaultTestSettings())
	confirmOrder(t, f, "order-1", "55.54") // 55.54 - 5.55 = 49.99

	result, err := f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("sweep payouts: %v", err)
	}
	if result.CreatedCount != 0 || result.SkippedCount != 1 {
		t.Fatalf("expected below-threshold skip, got created=%d skipped=%d",
			result.CreatedCount, result.SkippedCount)
	}

	// 佣金保持可打款，追加订单凑够阈值后下一轮归集
	confirmOrder(t, f, "order-2", "0.01") // 佣金舍入为零，净额 +0.01，累计 50.00
	result, err = f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if result.CreatedCount != 1 {
		t.Fatalf("expected payout at exact minimum, got created=%d skipped=%d",
			result.CreatedCount, result.SkippedCount)
	}
	if !result.Payouts[0].Amount.Equal(dec("50.00")) {
		t.Fatalf("expected amount 50.00, got %s", result.Payouts[0].Amount)
	}
}

func TestSweepPayoutsSkipsInFlightSeller(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	confirmOrder(t, f, "order-1", "100.00")

	first, err := f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first.CreatedCount != 1 {
		t.Fatalf("expected 1 payout, got %d", first.CreatedCount)
	}

	// 新订单确认后，批次未完结前不得为同一卖家再开批次
	confirmOrder(t, f, "order-2", "200.00")
	second, err := f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.CreatedCount != 0 || second.SkippedCount != 1 {
		t.Fatalf("expected in-flight skip, got created=%d skipped=%d",
			second.CreatedCount, second.SkippedCount)
	}
}

func TestPayoutLifecycleCompleted(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	confirmOrder(t, f, "order-1", "100.00")
	result, err := f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	payoutID := result.Payouts[0].ID

	processing, err := f.uc.MarkPayoutProcessing(context.Background(), payoutID)
	if err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if processing.Status != constants.PayoutStatusProcessing {
		t.Fatalf("expected processing, got %s", processing.Status)
	}

	completedAt := time.Now().UTC()
	completed, err := f.uc.MarkPayoutCompleted(context.Background(), payoutID, completedAt)
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if completed.Status != constants.PayoutStatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if completed.CompletedAt == nil || !completed.CompletedAt.Equal(completedAt) {
		t.Fatalf("expected completed at %v, got %v", completedAt, completed.CompletedAt)
	}

	// 终态后卖家可再次进入归集
	inFlight, _ := f.payout.HasInFlightPayout(context.Background(), 42)
	if inFlight {
		t.Fatal("completed payout must not count as in-flight")
	}
}

func TestPayoutFailureRequeuesCommissions(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	confirmOrder(t, f, "order-1", "100.00")
	result, err := f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	payoutID := result.Payouts[0].ID

	if _, err := f.uc.MarkPayoutProcessing(context.Background(), payoutID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	failed, err := f.uc.MarkPayoutFailed(context.Background(), payoutID, "bank rejected transfer")
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if failed.Status != constants.PayoutStatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if failed.FailureReason != "bank rejected transfer" {
		t.Fatalf("expected failure reason recorded, got %q", failed.FailureReason)
	}

	commission, _ := f.commission.GetCommissionByOrderID(context.Background(), "order-1")
	if commission.PaidOut || commission.PayoutID != "" {
		t.Fatalf("commission must be requeued after failure: paidOut=%v payoutID=%q",
			commission.PaidOut, commission.PayoutID)
	}

	// 重新归集生成新批次
	resweep, err := f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("re-sweep: %v", err)
	}
	if resweep.CreatedCount != 1 {
		t.Fatalf("expected requeued commissions to form a new payout, got created=%d", resweep.CreatedCount)
	}
	if resweep.Payouts[0].ID == payoutID {
		t.Fatal("new payout must have a new id")
	}
}

func TestPayoutIllegalTransitions(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	confirmOrder(t, f, "order-1", "100.00")
	result, err := f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	payoutID := result.Payouts[0].ID

	// pending 不能直接 completed
	if _, err := f.uc.MarkPayoutCompleted(context.Background(), payoutID, time.Now().UTC()); !errors.IsReason(err, errors.ReasonInvalidState) {
		t.Fatalf("expected invalid state for pending->completed, got %v", err)
	}
	// pending 不能直接 failed
	if _, err := f.uc.MarkPayoutFailed(context.Background(), payoutID, "x"); !errors.IsReason(err, errors.ReasonInvalidState) {
		t.Fatalf("expected invalid state for pending->failed, got %v", err)
	}

	if _, err := f.uc.MarkPayoutProcessing(context.Background(), payoutID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	// processing 不能再次 processing
	if _, err := f.uc.MarkPayoutProcessing(context.Background(), payoutID); !errors.IsReason(err, errors.ReasonInvalidState) {
		t.Fatalf("expected invalid state for processing->processing, got %v", err)
	}
}

func TestGetPayoutNotFound(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	if _, err := f.uc.GetPayout(context.Background(), "missing"); !errors.IsReason(err, errors.ReasonNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.uc.MarkPayoutProcessing(context.Background(), "missing"); !errors.IsReason(err, errors.ReasonNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSweepPayoutsBlockedWithoutMinPayout(t *testing.T) {
	values := defaultTestSettings()
	delete(values, constants.SettingMinPayoutAmount)
	f := newTestFixture(values)

	_, err := f.uc.SweepPayouts(context.Background(), time.Now().UTC())
	if !errors.IsReason(err, errors.ReasonSettingsBlocked) {
		t.Fatalf("expected settings blocked, got %v", err)
	}
}
