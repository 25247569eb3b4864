package biz

import (
	"context"
	"testing"
	"time"

	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/errors"
)

func openTestHold(t *testing.T, f *testFixture, orderID string, amount string) *OpenHoldResult {
	t.Helper()
	result, err := f.uc.OpenHold(context.Background(), &OpenHoldInput{
		OrderID:     orderID,
		SellerID:    42,
		StoreID:     7,
		OrderAmount: dec(amount),
		Currency:    "USD",
	})
	if err != nil {
		t.Fatalf("open hold for %s: %v", orderID, err)
	}
	return result
}

func TestOpenHoldCreatesEscrowAndCommission(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	result := openTestHold(t, f, "order-1", "1000.00")

	escrow := result.Escrow
	if escrow.Status != constants.EscrowStatusHeld {
		t.Fatalf("expected escrow held, got %s", escrow.Status)
	}
	if !escrow.PlatformFee.Equal(dec("100.00")) || !escrow.SellerAmount.Equal(dec("900.00")) {
		t.Fatalf("unexpected split: fee=%s seller=%s", escrow.PlatformFee, escrow.SellerAmount)
	}
	wantHoldUntil := escrow.CreatedAt.AddDate(0, 0, 7)
	if !escrow.HoldUntil.Equal(wantHoldUntil) {
		t.Fatalf("expected hold until %v, got %v", wantHoldUntil, escrow.HoldUntil)
	}

	commission := result.Commission
	if commission.Status != constants.CommissionStatusPending {
		t.Fatalf("expected commission pending, got %s", commission.Status)
	}
	if !commission.CommissionRate.Equal(dec("0.10")) {
		t.Fatalf("expected rate snapshot 0.10, got %s", commission.CommissionRate)
	}
	if commission.PaidOut {
		t.Fatal("new commission must not be paid out")
	}

	if n := f.audit.entriesFor(constants.EntityEscrowTransaction, escrow.ID); n != 1 {
		t.Fatalf("expected 1 audit entry, got %d", n)
	}
}

func TestOpenHoldRateSnapshotIsNotRetroactive(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	first := openTestHold(t, f, "order-1", "100.00")

	// 调整费率只影响新订单
	f.settings.values[constants.SettingGlobalCommissionRate] = "0.20"
	second := openTestHold(t, f, "order-2", "100.00")

	stored, err := f.commission.GetCommissionByOrderID(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("get commission: %v", err)
	}
	if !stored.CommissionRate.Equal(first.Commission.CommissionRate) {
		t.Fatalf("first order rate changed: %s", stored.CommissionRate)
	}
	if !second.Commission.CommissionRate.Equal(dec("0.20")) {
		t.Fatalf("expected new order at 0.20, got %s", second.Commission.CommissionRate)
	}
}

func TestOpenHoldDuplicateOrder(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	openTestHold(t, f, "order-1", "100.00")

	_, err := f.uc.OpenHold(context.Background(), &OpenHoldInput{
		OrderID:     "order-1",
		SellerID:    42,
		OrderAmount: dec("100.00"),
		Currency:    "USD",
	})
	if !errors.IsReason(err, errors.ReasonDuplicateOrder) {
		t.Fatalf("expected duplicate order error, got %v", err)
	}
}

func TestOpenHoldBlockedWhenEscrowDisabled(t *testing.T) {
	values := defaultTestSettings()
	values[constants.SettingEscrowEnabled] = "false"
	f := newTestFixture(values)

	_, err := f.uc.OpenHold(context.Background(), &OpenHoldInput{
		OrderID:     "order-1",
		SellerID:    42,
		OrderAmount: dec("100.00"),
		Currency:    "USD",
	})
	if !errors.IsReason(err, errors.ReasonSettingsBlocked) {
		t.Fatalf("expected settings blocked error, got %v", err)
	}
	if e, _ := f.escrow.GetEscrowByOrderID(context.Background(), "order-1"); e != nil {
		t.Fatal("no escrow must be written when blocked")
	}
}

func TestReleaseByScheduleReleasesDue(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	result := openTestHold(t, f, "order-1", "100.00")

	// 托管期刚过 1 秒
	now := result.Escrow.HoldUntil.Add(time.Second)
	sweep, err := f.uc.ReleaseBySchedule(context.Background(), now, 0)
	if err != nil {
		t.Fatalf("release by schedule: %v", err)
	}
	if sweep.TotalCount != 1 || sweep.SuccessCount != 1 || sweep.FailedCount != 0 {
		t.Fatalf("unexpected sweep counts: total=%d success=%d failed=%d",
			sweep.TotalCount, sweep.SuccessCount, sweep.FailedCount)
	}

	escrow, _ := f.escrow.GetEscrowByOrderID(context.Background(), "order-1")
	if escrow.Status != constants.EscrowStatusReleased {
		t.Fatalf("expected released, got %s", escrow.Status)
	}
	if escrow.ReleasedAt == nil || !escrow.ReleasedAt.Equal(now) {
		t.Fatalf("expected released at %v, got %v", now, escrow.ReleasedAt)
	}
	commission, _ := f.commission.GetCommissionByOrderID(context.Background(), "order-1")
	if commission.Status != constants.CommissionStatusConfirmed {
		t.Fatalf("expected commission confirmed, got %s", commission.Status)
	}
	if n := f.audit.entriesFor(constants.EntityEscrowTransaction, escrow.ID); n != 2 {
		t.Fatalf("expected 2 audit entries (open + release), got %d", n)
	}
}

func TestReleaseByScheduleSkipsNotYetDue(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	result := openTestHold(t, f, "order-1", "100.00")

	// 托管期差 1 秒才到
	now := result.Escrow.HoldUntil.Add(-time.Second)
	sweep, err := f.uc.ReleaseBySchedule(context.Background(), now, 0)
	if err != nil {
		t.Fatalf("release by schedule: %v", err)
	}
	if sweep.TotalCount != 0 {
		t.Fatalf("expected nothing due, got %d", sweep.TotalCount)
	}
	escrow, _ := f.escrow.GetEscrowByOrderID(context.Background(), "order-1")
	if escrow.Status != constants.EscrowStatusHeld {
		t.Fatalf("expected still held, got %s", escrow.Status)
	}
}

func TestReleaseByScheduleBlockedByDeliveryConfirmationMode(t *testing.T) {
	values := defaultTestSettings()
	values[constants.SettingDeliveryConfirmationRequired] = "true"
	f := newTestFixture(values)
	result := openTestHold(t, f, "order-1", "100.00")

	now := result.Escrow.HoldUntil.Add(24 * time.Hour)
	sweep, err := f.uc.ReleaseBySchedule(context.Background(), now, 0)
	if err != nil {
		t.Fatalf("release by schedule: %v", err)
	}
	if sweep.TotalCount != 0 || sweep.SuccessCount != 0 {
		t.Fatalf("schedule release must be a no-op in delivery confirmation mode, got total=%d", sweep.TotalCount)
	}
	escrow, _ := f.escrow.GetEscrowByOrderID(context.Background(), "order-1")
	if escrow.Status != constants.EscrowStatusHeld {
		t.Fatalf("expected still held, got %s", escrow.Status)
	}
}

func TestDeliveryConfirmationReleasesBeforeHoldUntil(t *testing.T) {
	values := defaultTestSettings()
	values[constants.SettingDeliveryConfirmationRequired] = "true"
	f := newTestFixture(values)
	result := openTestHold(t, f, "order-1", "100.00")

	// 托管期远未到，物流确认仍然放款
	now := result.Escrow.CreatedAt.Add(time.Hour)
	released, err := f.uc.ReleaseByDeliveryConfirmation(context.Background(), "order-1", now)
	if err != nil {
		t.Fatalf("release by delivery confirmation: %v", err)
	}
	if released.Status != constants.EscrowStatusReleased {
		t.Fatalf("expected released, got %s", released.Status)
	}
	commission, _ := f.commission.GetCommissionByOrderID(context.Background(), "order-1")
	if commission.Status != constants.CommissionStatusConfirmed {
		t.Fatalf("expected commission confirmed, got %s", commission.Status)
	}
}

func TestDeliveryConfirmationIdempotent(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	result := openTestHold(t, f, "order-1", "100.00")

	now := time.Now().UTC()
	first, err := f.uc.ReleaseByDeliveryConfirmation(context.Background(), "order-1", now)
	if err != nil {
		t.Fatalf("first delivery confirmation: %v", err)
	}
	auditCount := f.audit.entriesFor(constants.EntityEscrowTransaction, result.Escrow.ID)

	// 重复事件幂等成功，不追加审计
	second, err := f.uc.ReleaseByDeliveryConfirmation(context.Background(), "order-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second delivery confirmation: %v", err)
	}
	if second.Status != constants.EscrowStatusReleased {
		t.Fatalf("expected released, got %s", second.Status)
	}
	if !second.ReleasedAt.Equal(*first.ReleasedAt) {
		t.Fatalf("released at must not move on replay: %v vs %v", second.ReleasedAt, first.ReleasedAt)
	}
	if n := f.audit.entriesFor(constants.EntityEscrowTransaction, result.Escrow.ID); n != auditCount {
		t.Fatalf("replay must not add audit entries: %d -> %d", auditCount, n)
	}
}

func TestDeliveryConfirmationUnknownOrder(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	_, err := f.uc.ReleaseByDeliveryConfirmation(context.Background(), "missing", time.Now().UTC())
	if !errors.IsReason(err, errors.ReasonNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeliveryConfirmationOnReversedEscrow(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	openTestHold(t, f, "order-1", "100.00")

	if _, err := f.uc.Reverse(context.Background(), "order-1", "buyer cancelled"); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	_, err := f.uc.ReleaseByDeliveryConfirmation(context.Background(), "order-1", time.Now().UTC())
	if !errors.IsReason(err, errors.ReasonInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestReverseHeldEscrow(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	result := openTestHold(t, f, "order-1", "100.00")

	reversed, err := f.uc.Reverse(context.Background(), "order-1", "refund")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if reversed.Status != constants.EscrowStatusReversed {
		t.Fatalf("expected reversed, got %s", reversed.Status)
	}
	commission, _ := f.commission.GetCommissionByOrderID(context.Background(), "order-1")
	if commission.Status != constants.CommissionStatusReversed {
		t.Fatalf("expected commission reversed, got %s", commission.Status)
	}
	if n := f.audit.entriesFor(constants.EntityEscrowTransaction, result.Escrow.ID); n != 2 {
		t.Fatalf("expected 2 audit entries (open + reverse), got %d", n)
	}

	// 终态不可再流转
	if _, err := f.uc.Reverse(context.Background(), "order-1", "again"); !errors.IsReason(err, errors.ReasonInvalidState) {
		t.Fatalf("expected invalid state on double reverse, got %v", err)
	}
}

func TestReverseReleasedEscrow(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	openTestHold(t, f, "order-1", "100.00")
	if _, err := f.uc.ReleaseByDeliveryConfirmation(context.Background(), "order-1", time.Now().UTC()); err != nil {
		t.Fatalf("release: %v", err)
	}

	_, err := f.uc.Reverse(context.Background(), "order-1", "too late")
	if !errors.IsReason(err, errors.ReasonInvalidState) {
		t.Fatalf("expected invalid state for released escrow, got %v", err)
	}
}
