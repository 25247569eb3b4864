package biz

import (
	"context"
	"time"

	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EscrowTransaction 托管交易，代表单个订单被平台暂扣的货款。
// 状态机: held --release--> released, held --reverse--> reversed，
// 终态不可再流转，每个订单有且只有一条托管交易。
type EscrowTransaction struct {
	ID           string
	OrderID      string
	SellerID     uint64
	Amount       decimal.Decimal
	SellerAmount decimal.Decimal
	PlatformFee  decimal.Decimal
	Currency     string
	Status       string // held, released, reversed
	HoldUntil    time.Time
	ReleasedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EscrowRepo 托管账本仓库接口
type EscrowRepo interface {
	CreateEscrowTransaction(ctx context.Context, tx *EscrowTransaction) error
	GetEscrowByOrderID(ctx context.Context, orderID string) (*EscrowTransaction, error)
	// ListDueHeld 列出托管期已到的 held 交易 (hold_until <= now)
	ListDueHeld(ctx context.Context, now time.Time, limit int) ([]*EscrowTransaction, error)
	// TransitionEscrowStatus 带前置状态守卫的状态流转 (WHERE status = from)。
	// 返回 false 表示没有命中行，即状态已被并发操作抢先流转。
	TransitionEscrowStatus(ctx context.Context, id, from, to string, releasedAt *time.Time) (bool, error)
}

// OpenHoldInput 开立托管的入参，由支付网关确认收款事件提供
type OpenHoldInput struct {
	OrderID     string
	SellerID    uint64
	StoreID     uint64
	OrderAmount decimal.Decimal
	Currency    string
}

// OpenHoldResult 开立托管的结果：托管交易与配对的佣金记录
type OpenHoldResult struct {
	Escrow     *EscrowTransaction
	Commission *Commission
}

// OpenHold 在订单收款确认后开立托管并创建配对佣金，两者同事务落库。
// 订单已存在托管交易时返回 DuplicateOrder 错误——外部事件去重是
// ReconciliationGuard 的职责，到达这里的重复订单说明调用方跳过了对账防线。
func (uc *SettlementUsecase) OpenHold(ctx context.Context, in *OpenHoldInput) (*OpenHoldResult, error) {
	uc.log.Infof("OpenHold: orderID=%s, sellerID=%d, amount=%s %s", in.OrderID, in.SellerID, in.OrderAmount, in.Currency)

	// 开立托管和佣金计算共用同一份配置快照，避免两次读取中途变更
	settings, err := uc.gate.Require(ctx, constants.OpEscrowHold)
	if err != nil {
		return nil, err
	}
	if d := settings.IsOperationAllowed(constants.OpCommissionCompute); !d.Allowed {
		return nil, errors.ErrSettingsBlocked(constants.OpCommissionCompute, d.SettingKey, d.Reason)
	}

	if in.OrderID == "" {
		return nil, errors.ErrInvalidInput("order id is required")
	}
	if in.Currency == "" {
		return nil, errors.ErrInvalidInput("currency is required")
	}

	split, err := ComputeCommissionSplit(in.OrderAmount, settings.GlobalCommissionRate, settings.CurrencyMinorUnits)
	if err != nil {
		return nil, err
	}

	existing, err := uc.escrowRepo.GetEscrowByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.ErrDuplicateOrder(in.OrderID)
	}

	now := time.Now().UTC()
	escrow := &EscrowTransaction{
		ID:           uuid.New().String(),
		OrderID:      in.OrderID,
		SellerID:     in.SellerID,
		Amount:       in.OrderAmount,
		SellerAmount: split.SellerAmount,
		PlatformFee:  split.CommissionAmount,
		Currency:     in.Currency,
		Status:       constants.EscrowStatusHeld,
		HoldUntil:    now.AddDate(0, 0, settings.EscrowDefaultHoldDays),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	commission := &Commission{
		ID:               uuid.New().String(),
		OrderID:          in.OrderID,
		SellerID:         in.SellerID,
		StoreID:          in.StoreID,
		OrderAmount:      in.OrderAmount,
		CommissionRate:   settings.GlobalCommissionRate,
		CommissionAmount: split.CommissionAmount,
		SellerAmount:     split.SellerAmount,
		Currency:         in.Currency,
		Status:           constants.CommissionStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = uc.withTransaction(ctx, func(ctx context.Context) error {
		if err := uc.escrowRepo.CreateEscrowTransaction(ctx, escrow); err != nil {
			return err
		}
		if err := uc.commissionRepo.CreateCommission(ctx, commission); err != nil {
			return err
		}
		return uc.recordAudit(ctx, constants.EntityEscrowTransaction, escrow.ID,
			constants.ActionEscrowOpened, nil, escrow, "")
	})
	if err != nil {
		uc.log.Errorf("Failed to open hold for order %s: %v", in.OrderID, err)
		return nil, err
	}

	uc.log.Infof("Opened hold %s for order %s, holdUntil=%v", escrow.ID, in.OrderID, escrow.HoldUntil)
	return &OpenHoldResult{Escrow: escrow, Commission: commission}, nil
}

// ReleaseOutcome 定时释放的单笔结果
type ReleaseOutcome struct {
	OrderID      string
	EscrowID     string
	Success      bool
	ErrorMessage string
}

// ReleaseSweepResult 定时释放的批次报告
type ReleaseSweepResult struct {
	TotalCount   int
	SuccessCount int
	FailedCount  int
	Released     []*EscrowTransaction
	Outcomes     []*ReleaseOutcome
}

// ReleaseBySchedule 定时释放托管期已到的交易。
// delivery_confirmation_required 开启时物流确认是放款的唯一途径，
// 定时扫描不得释放任何资金。单笔失败只记录结果，不中断批次；
// 已提交的单笔事务在批次中断时保持不变，下次调度自然续扫。
func (uc *SettlementUsecase) ReleaseBySchedule(ctx context.Context, now time.Time, batchSize int) (*ReleaseSweepResult, error) {
	settings, err := uc.gate.Require(ctx, constants.OpEscrowRelease)
	if err != nil {
		return nil, err
	}

	result := &ReleaseSweepResult{}
	if settings.DeliveryConfirmationRequired {
		uc.log.Infof("Schedule release skipped: delivery confirmation is required")
		return result, nil
	}

	if batchSize <= 0 {
		batchSize = constants.DefaultReleaseBatchSize
	}
	due, err := uc.escrowRepo.ListDueHeld(ctx, now, batchSize)
	if err != nil {
		uc.log.Errorf("Failed to list due held transactions: %v", err)
		return nil, err
	}

	result.TotalCount = len(due)
	for _, escrow := range due {
		outcome := &ReleaseOutcome{OrderID: escrow.OrderID, EscrowID: escrow.ID}
		released, err := uc.releaseOne(ctx, escrow, now, constants.ReasonSchedule)
		if err != nil {
			outcome.ErrorMessage = err.Error()
			result.FailedCount++
			uc.log.Errorf("Failed to release escrow %s (order %s): %v", escrow.ID, escrow.OrderID, err)
		} else if released == nil {
			// 并发操作已抢先流转，按跳过处理
			outcome.Success = true
			result.SuccessCount++
		} else {
			outcome.Success = true
			result.SuccessCount++
			result.Released = append(result.Released, released)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	uc.log.Infof("Schedule release completed: total=%d, success=%d, failed=%d",
		result.TotalCount, result.SuccessCount, result.FailedCount)
	return result, nil
}

// ReleaseByDeliveryConfirmation 物流确认触发放款，不受托管期限制。
// 重复的物流确认事件是幂等成功：交易已释放时原样返回，不再记审计。
func (uc *SettlementUsecase) ReleaseByDeliveryConfirmation(ctx context.Context, orderID string, now time.Time) (*EscrowTransaction, error) {
	uc.log.Infof("ReleaseByDeliveryConfirmation: orderID=%s", orderID)

	if _, err := uc.gate.Require(ctx, constants.OpEscrowRelease); err != nil {
		return nil, err
	}

	escrow, err := uc.escrowRepo.GetEscrowByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if escrow == nil {
		return nil, errors.ErrEscrowNotFound(orderID)
	}

	switch escrow.Status {
	case constants.EscrowStatusReleased:
		uc.log.Infof("Escrow %s already released, skipping (idempotent)", escrow.ID)
		return escrow, nil
	case constants.EscrowStatusReversed:
		return nil, errors.ErrInvalidState(constants.EntityEscrowTransaction, escrow.ID,
			escrow.Status, constants.EscrowStatusReleased)
	}

	released, err := uc.releaseOne(ctx, escrow, now, constants.ReasonDeliveryConfirmed)
	if err != nil {
		return nil, err
	}
	if released == nil {
		// 定时释放与物流确认竞争同一订单时，后到者观察已释放状态并幂等返回
		current, err := uc.escrowRepo.GetEscrowByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return current, nil
	}
	return released, nil
}

// releaseOne 释放单笔托管交易：状态流转、确认配对佣金、记审计，同一事务。
// 前置状态守卫未命中 (已被并发流转) 时返回 (nil, nil)。
func (uc *SettlementUsecase) releaseOne(ctx context.Context, escrow *EscrowTransaction, now time.Time, reason string) (*EscrowTransaction, error) {
	var released *EscrowTransaction
	err := uc.withTransaction(ctx, func(ctx context.Context) error {
		releasedAt := now
		ok, err := uc.escrowRepo.TransitionEscrowStatus(ctx, escrow.ID,
			constants.EscrowStatusHeld, constants.EscrowStatusReleased, &releasedAt)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := uc.commissionRepo.MarkCommissionConfirmed(ctx, escrow.OrderID, now); err != nil {
			return err
		}

		after := *escrow
		after.Status = constants.EscrowStatusReleased
		after.ReleasedAt = &releasedAt
		after.UpdatedAt = now
		if err := uc.recordAudit(ctx, constants.EntityEscrowTransaction, escrow.ID,
			constants.ActionEscrowReleased, escrow, &after, reason); err != nil {
			return err
		}
		released = &after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// Reverse 冲正托管交易 (订单取消/退款)，仅 held 状态合法。
// 已释放的交易需要走独立的打款调整补偿流程，这里直接拒绝。
func (uc *SettlementUsecase) Reverse(ctx context.Context, orderID, reason string) (*EscrowTransaction, error) {
	uc.log.Infof("Reverse: orderID=%s, reason=%s", orderID, reason)

	if reason == "" {
		reason = constants.ReasonManualReversal
	}

	escrow, err := uc.escrowRepo.GetEscrowByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if escrow == nil {
		return nil, errors.ErrEscrowNotFound(orderID)
	}
	if escrow.Status != constants.EscrowStatusHeld {
		return nil, errors.ErrInvalidState(constants.EntityEscrowTransaction, escrow.ID,
			escrow.Status, constants.EscrowStatusReversed)
	}

	now := time.Now().UTC()
	var reversed *EscrowTransaction
	err = uc.withTransaction(ctx, func(ctx context.Context) error {
		ok, err := uc.escrowRepo.TransitionEscrowStatus(ctx, escrow.ID,
			constants.EscrowStatusHeld, constants.EscrowStatusReversed, nil)
		if err != nil {
			return err
		}
		if !ok {
			return errors.ErrInvalidState(constants.EntityEscrowTransaction, escrow.ID,
				escrow.Status, constants.EscrowStatusReversed)
		}
		if err := uc.commissionRepo.MarkCommissionReversed(ctx, escrow.OrderID); err != nil {
			return err
		}

		after := *escrow
		after.Status = constants.EscrowStatusReversed
		after.UpdatedAt = now
		if err := uc.recordAudit(ctx, constants.EntityEscrowTransaction, escrow.ID,
			constants.ActionEscrowReversed, escrow, &after, reason); err != nil {
			return err
		}
		reversed = &after
		return nil
	})
	if err != nil {
		uc.log.Errorf("Failed to reverse escrow for order %s: %v", orderID, err)
		return nil, err
	}

	return reversed, nil
}
