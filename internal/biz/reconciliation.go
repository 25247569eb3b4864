package biz

import (
	"context"
	"time"

	"xinyuan_tech/settlement-service/internal/errors"

	"github.com/shopspring/decimal"
)

// ReconciliationRecord 对账记录，保证同一外部支付事件只被处理一次。
// external_event_id 上的唯一约束取代了旧脚本里 "描述包含 sessionId
// 就算处理过" 的字符串匹配判重。
type ReconciliationRecord struct {
	ExternalEventID string
	OrderID         string
	ProcessedAt     time.Time
}

// ReconciliationRepo 对账记录仓库接口
type ReconciliationRepo interface {
	GetReconciliationRecord(ctx context.Context, externalEventID string) (*ReconciliationRecord, error)
	// CreateReconciliationRecord 落库对账记录；事件已存在时返回 DuplicateEvent 错误
	CreateReconciliationRecord(ctx context.Context, record *ReconciliationRecord) error
}

// PaymentConfirmedEvent 支付网关确认收款事件
type PaymentConfirmedEvent struct {
	ExternalEventID string
	OrderID         string
	SellerID        uint64
	StoreID         uint64
	OrderAmount     decimal.Decimal
	Currency        string
}

// IngestResult 事件摄入结果。Replayed 为 true 表示该事件此前已处理，
// 本次返回的是历史结果而非新的账本写入。
type IngestResult struct {
	Replayed   bool
	Escrow     *EscrowTransaction
	Commission *Commission
}

// IngestPaymentConfirmed 幂等摄入支付确认事件。
// 同一 externalEventId 的重复投递 (网关重试、人工补账脚本) 返回首次
// 处理的结果，不重复入账；处理失败时不落对账记录，允许合法重试。
// 账本写入和对账记录在同一事务内提交。
func (uc *SettlementUsecase) IngestPaymentConfirmed(ctx context.Context, event *PaymentConfirmedEvent) (*IngestResult, error) {
	uc.log.Infof("IngestPaymentConfirmed: eventID=%s, orderID=%s", event.ExternalEventID, event.OrderID)

	if event.ExternalEventID == "" {
		return nil, errors.ErrInvalidInput("external event id is required")
	}

	existing, err := uc.reconRepo.GetReconciliationRecord(ctx, event.ExternalEventID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return uc.replayResult(ctx, existing)
	}

	var result *IngestResult
	err = uc.withTransaction(ctx, func(ctx context.Context) error {
		opened, err := uc.OpenHold(ctx, &OpenHoldInput{
			OrderID:     event.OrderID,
			SellerID:    event.SellerID,
			StoreID:     event.StoreID,
			OrderAmount: event.OrderAmount,
			Currency:    event.Currency,
		})
		if err != nil {
			return err
		}
		record := &ReconciliationRecord{
			ExternalEventID: event.ExternalEventID,
			OrderID:         event.OrderID,
			ProcessedAt:     time.Now().UTC(),
		}
		if err := uc.reconRepo.CreateReconciliationRecord(ctx, record); err != nil {
			return err
		}
		result = &IngestResult{Escrow: opened.Escrow, Commission: opened.Commission}
		return nil
	})
	if err != nil {
		// 并发重复投递的败者：对账记录唯一约束冲突，按重放处理
		if errors.IsReason(err, errors.ReasonDuplicateEvent) {
			record, gerr := uc.reconRepo.GetReconciliationRecord(ctx, event.ExternalEventID)
			if gerr != nil {
				return nil, gerr
			}
			if record != nil {
				return uc.replayResult(ctx, record)
			}
		}
		uc.log.Errorf("Failed to ingest event %s: %v", event.ExternalEventID, err)
		return nil, err
	}

	return result, nil
}

// replayResult 按历史对账记录还原首次处理的结果
func (uc *SettlementUsecase) replayResult(ctx context.Context, record *ReconciliationRecord) (*IngestResult, error) {
	uc.log.Infof("Event %s already processed at %v, replaying result (idempotent)", record.ExternalEventID, record.ProcessedAt)

	escrow, err := uc.escrowRepo.GetEscrowByOrderID(ctx, record.OrderID)
	if err != nil {
		return nil, err
	}
	commission, err := uc.commissionRepo.GetCommissionByOrderID(ctx, record.OrderID)
	if err != nil {
		return nil, err
	}
	return &IngestResult{Replayed: true, Escrow: escrow, Commission: commission}, nil
}
