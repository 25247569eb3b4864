package biz

import (
	"context"
	"testing"

	"xinyuan_tech/settlement-service/internal/errors"
)

func paymentEvent(eventID, orderID string) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		ExternalEventID: eventID,
		OrderID:         orderID,
		SellerID:        42,
		StoreID:         7,
		OrderAmount:     dec("100.00"),
		Currency:        "USD",
	}
}

func TestIngestPaymentConfirmed(t *testing.T) {
	f := newTestFixture(defaultTestSettings())

	result, err := f.uc.IngestPaymentConfirmed(context.Background(), paymentEvent("evt-1", "order-1"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Replayed {
		t.Fatal("first delivery must not be a replay")
	}
	if result.Escrow == nil || result.Commission == nil {
		t.Fatal("expected escrow and commission in result")
	}

	record, _ := f.recon.GetReconciliationRecord(context.Background(), "evt-1")
	if record == nil || record.OrderID != "order-1" {
		t.Fatalf("expected reconciliation record for evt-1, got %+v", record)
	}
}

func TestIngestDuplicateEventReplays(t *testing.T) {
	f := newTestFixture(defaultTestSettings())

	first, err := f.uc.IngestPaymentConfirmed(context.Background(), paymentEvent("evt-1", "order-1"))
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// 网关重试同一事件：返回首次结果，不重复入账
	second, err := f.uc.IngestPaymentConfirmed(context.Background(), paymentEvent("evt-1", "order-1"))
	if err != nil {
		t.Fatalf("replay ingest: %v", err)
	}
	if !second.Replayed {
		t.Fatal("expected replay flag")
	}
	if second.Escrow.ID != first.Escrow.ID {
		t.Fatalf("replay must return the original escrow: %s vs %s", second.Escrow.ID, first.Escrow.ID)
	}
	if len(f.escrow.byID) != 1 {
		t.Fatalf("expected a single escrow transaction, got %d", len(f.escrow.byID))
	}
	if len(f.commission.byOrder) != 1 {
		t.Fatalf("expected a single commission, got %d", len(f.commission.byOrder))
	}
}

func TestIngestDistinctEventsSameOrder(t *testing.T) {
	f := newTestFixture(defaultTestSettings())

	if _, err := f.uc.IngestPaymentConfirmed(context.Background(), paymentEvent("evt-1", "order-1")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	// 不同事件指向同一订单：对账记录不存在，但账本层拒绝重复订单
	_, err := f.uc.IngestPaymentConfirmed(context.Background(), paymentEvent("evt-2", "order-1"))
	if !errors.IsReason(err, errors.ReasonDuplicateOrder) {
		t.Fatalf("expected duplicate order, got %v", err)
	}
	// 失败的事件不落对账记录，修正后可重试
	if record, _ := f.recon.GetReconciliationRecord(context.Background(), "evt-2"); record != nil {
		t.Fatal("failed ingest must not leave a reconciliation record")
	}
}

func TestIngestRequiresEventID(t *testing.T) {
	f := newTestFixture(defaultTestSettings())
	_, err := f.uc.IngestPaymentConfirmed(context.Background(), paymentEvent("", "order-1"))
	if !errors.IsReason(err, errors.ReasonInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIngestBlockedSettingsLeaveNoRecord(t *testing.T) {
	values := defaultTestSettings()
	values["escrow_enabled"] = "false"
	f := newTestFixture(values)

	_, err := f.uc.IngestPaymentConfirmed(context.Background(), paymentEvent("evt-1", "order-1"))
	if !errors.IsReason(err, errors.ReasonSettingsBlocked) {
		t.Fatalf("expected settings blocked, got %v", err)
	}
	if record, _ := f.recon.GetReconciliationRecord(context.Background(), "evt-1"); record != nil {
		t.Fatal("blocked ingest must not leave a reconciliation record")
	}
}
