package biz

import (
	"context"
	"fmt"
	"time"

	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/errors"

	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payout 打款批次，归集单个卖家一段时期内已释放未打款的佣金净额。
// 同一卖家同时最多一个进行中 (pending/processing) 的批次，
// 由数据层 inflight 唯一约束兜底。
type Payout struct {
	ID              string
	SellerID        uint64
	StoreID         uint64
	Amount          decimal.Decimal
	Currency        string
	Status          string // pending, processing, completed, failed
	PaymentMethod   string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	ScheduledAt     time.Time
	CommissionCount int
	CompletedAt     *time.Time
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PayoutRepo 打款批次仓库接口
type PayoutRepo interface {
	// CreatePayout 创建批次；卖家已有进行中批次时返回 PayoutInFlight 错误
	// (inflight 唯一约束冲突的翻译结果)
	CreatePayout(ctx context.Context, p *Payout) error
	GetPayout(ctx context.Context, id string) (*Payout, error)
	// HasInFlightPayout 卖家是否存在 pending/processing 批次
	HasInFlightPayout(ctx context.Context, sellerID uint64) (bool, error)
	// TransitionPayoutStatus 带前置状态守卫的状态流转，终态同时清除 inflight 键。
	// 返回 false 表示前置状态未命中。
	TransitionPayoutStatus(ctx context.Context, id, from, to string, completedAt *time.Time, failureReason string) (bool, error)
	ListPayoutsBySeller(ctx context.Context, sellerID uint64, page, pageSize int) ([]*Payout, int, error)
}

// SweepOutcome 打款归集的单卖家结果
type SweepOutcome struct {
	SellerID     uint64
	PayoutID     string
	Amount       decimal.Decimal
	Skipped      bool
	SkipReason   string
	ErrorMessage string
}

// PayoutSweepResult 打款归集的批次报告
type PayoutSweepResult struct {
	TotalSellers int
	CreatedCount int
	SkippedCount int
	FailedCount  int
	Payouts      []*Payout
	Outcomes     []*SweepOutcome
}

// SweepPayouts 扫描全部卖家的已确认未打款佣金并归集为打款批次。
// 低于最低打款金额或已有进行中批次的卖家本轮跳过，其佣金保持未打款，
// 下轮归集重新评估。单卖家失败只记录结果，不中断批次。
func (uc *SettlementUsecase) SweepPayouts(ctx context.Context, now time.Time) (*PayoutSweepResult, error) {
	settings, err := uc.gate.Require(ctx, constants.OpPayoutSweep)
	if err != nil {
		return nil, err
	}

	sellers, err := uc.commissionRepo.ListPayableSellers(ctx)
	if err != nil {
		uc.log.Errorf("Failed to list payable sellers: %v", err)
		return nil, err
	}

	result := &PayoutSweepResult{TotalSellers: len(sellers)}
	for _, sellerID := range sellers {
		outcome, payout := uc.sweepSeller(ctx, sellerID, settings, now)
		switch {
		case outcome.ErrorMessage != "":
			result.FailedCount++
		case outcome.Skipped:
			result.SkippedCount++
		default:
			result.CreatedCount++
			result.Payouts = append(result.Payouts, payout)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	uc.log.Infof("Payout sweep completed: sellers=%d, created=%d, skipped=%d, failed=%d",
		result.TotalSellers, result.CreatedCount, result.SkippedCount, result.FailedCount)
	return result, nil
}

// sweepSeller 归集单个卖家。使用分布式锁避免并发归集的无谓冲突，
// 锁不可用时仍然安全：inflight 唯一约束保证并发败者拿到 PayoutInFlight。
func (uc *SettlementUsecase) sweepSeller(ctx context.Context, sellerID uint64, settings *FinancialSettings, now time.Time) (*SweepOutcome, *Payout) {
	outcome := &SweepOutcome{SellerID: sellerID}

	if uc.rs != nil {
		lockKey := fmt.Sprintf("%s%d", constants.PayoutLockPrefix, sellerID)
		mutex := uc.rs.NewMutex(
			lockKey,
			redsync.WithExpiry(constants.PayoutLockExpiration),
			redsync.WithTries(constants.PayoutLockRetries), // 只尝试一次,如果失败说明正在处理
		)
		if err := mutex.LockContext(ctx); err != nil {
			outcome.Skipped = true
			outcome.SkipReason = "lock busy or already processing"
			uc.log.Infof("Skipping payout sweep for seller %d: lock busy", sellerID)
			return outcome, nil
		}
		defer func() {
			if _, err := mutex.UnlockContext(ctx); err != nil {
				uc.log.Warnf("Failed to unlock payout sweep for seller %d: %v", sellerID, err)
			}
		}()
	}

	inFlight, err := uc.payoutRepo.HasInFlightPayout(ctx, sellerID)
	if err != nil {
		outcome.ErrorMessage = err.Error()
		return outcome, nil
	}
	if inFlight {
		outcome.Skipped = true
		outcome.SkipReason = "seller has an in-flight payout"
		return outcome, nil
	}

	commissions, err := uc.commissionRepo.ListPayableCommissions(ctx, sellerID)
	if err != nil {
		outcome.ErrorMessage = err.Error()
		return outcome, nil
	}
	if len(commissions) == 0 {
		outcome.Skipped = true
		outcome.SkipReason = "no payable commissions"
		return outcome, nil
	}

	// 不做货币换算：按首笔佣金的币种归集，其余币种留待该批次完结后的下轮
	currency := commissions[0].Currency
	var batch []*Commission
	for _, c := range commissions {
		if c.Currency == currency {
			batch = append(batch, c)
		}
	}

	sum := decimal.Zero
	var periodStart, periodEnd time.Time
	for _, c := range batch {
		sum = sum.Add(c.SellerAmount)
		confirmedAt := c.CreatedAt
		if c.ConfirmedAt != nil {
			confirmedAt = *c.ConfirmedAt
		}
		if periodStart.IsZero() || confirmedAt.Before(periodStart) {
			periodStart = confirmedAt
		}
		if confirmedAt.After(periodEnd) {
			periodEnd = confirmedAt
		}
	}

	if sum.LessThan(settings.MinPayoutAmount) {
		outcome.Skipped = true
		outcome.SkipReason = fmt.Sprintf("amount %s below minimum %s", sum, settings.MinPayoutAmount)
		return outcome, nil
	}

	payout := &Payout{
		ID:              uuid.New().String(),
		SellerID:        sellerID,
		StoreID:         batch[0].StoreID,
		Amount:          sum,
		Currency:        currency,
		Status:          constants.PayoutStatusPending,
		PaymentMethod:   settings.PayoutPaymentMethod,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		ScheduledAt:     now,
		CommissionCount: len(batch),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	commissionIDs := make([]string, len(batch))
	for i, c := range batch {
		commissionIDs[i] = c.ID
	}

	err = uc.withTransaction(ctx, func(ctx context.Context) error {
		if err := uc.payoutRepo.CreatePayout(ctx, payout); err != nil {
			return err
		}
		if err := uc.commissionRepo.AssignCommissionsToPayout(ctx, commissionIDs, payout.ID); err != nil {
			return err
		}
		return uc.recordAudit(ctx, constants.EntityPayout, payout.ID,
			constants.ActionPayoutCreated, nil, payout, "")
	})
	if err != nil {
		if errors.IsReason(err, errors.ReasonPayoutInFlight) {
			// 并发归集的败者：不破坏状态，佣金留待下轮
			outcome.Skipped = true
			outcome.SkipReason = "lost in-flight race"
			return outcome, nil
		}
		outcome.ErrorMessage = err.Error()
		uc.log.Errorf("Failed to create payout for seller %d: %v", sellerID, err)
		return outcome, nil
	}

	outcome.PayoutID = payout.ID
	outcome.Amount = sum
	uc.log.Infof("Created payout %s for seller %d: amount=%s %s, commissions=%d",
		payout.ID, sellerID, sum, currency, len(batch))
	return outcome, payout
}

// MarkPayoutProcessing 批次移交外部转账通道，pending -> processing
func (uc *SettlementUsecase) MarkPayoutProcessing(ctx context.Context, payoutID string) (*Payout, error) {
	return uc.transitionPayout(ctx, payoutID,
		constants.PayoutStatusPending, constants.PayoutStatusProcessing,
		constants.ActionPayoutProcessing, nil, "")
}

// MarkPayoutCompleted 外部转账确认成功，processing -> completed
func (uc *SettlementUsecase) MarkPayoutCompleted(ctx context.Context, payoutID string, completedAt time.Time) (*Payout, error) {
	return uc.transitionPayout(ctx, payoutID,
		constants.PayoutStatusProcessing, constants.PayoutStatusCompleted,
		constants.ActionPayoutCompleted, &completedAt, "")
}

// MarkPayoutFailed 外部转账失败，processing -> failed。
// 同事务内解绑全部成员佣金 (paid_out=false, payout_id=null)，
// 使资金重新进入下一轮归集——这是打款唯一的回滚路径。
func (uc *SettlementUsecase) MarkPayoutFailed(ctx context.Context, payoutID, failureReason string) (*Payout, error) {
	return uc.transitionPayout(ctx, payoutID,
		constants.PayoutStatusProcessing, constants.PayoutStatusFailed,
		constants.ActionPayoutFailed, nil, failureReason)
}

func (uc *SettlementUsecase) transitionPayout(ctx context.Context, payoutID, from, to, action string, completedAt *time.Time, failureReason string) (*Payout, error) {
	payout, err := uc.payoutRepo.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, errors.ErrPayoutNotFound(payoutID)
	}
	if payout.Status != from {
		return nil, errors.ErrInvalidState(constants.EntityPayout, payoutID, payout.Status, to)
	}

	now := time.Now().UTC()
	var updated *Payout
	err = uc.withTransaction(ctx, func(ctx context.Context) error {
		ok, err := uc.payoutRepo.TransitionPayoutStatus(ctx, payoutID, from, to, completedAt, failureReason)
		if err != nil {
			return err
		}
		if !ok {
			return errors.ErrInvalidState(constants.EntityPayout, payoutID, payout.Status, to)
		}
		if to == constants.PayoutStatusFailed {
			released, err := uc.commissionRepo.ReleaseCommissionsFromPayout(ctx, payoutID)
			if err != nil {
				return err
			}
			uc.log.Infof("Requeued %d commissions from failed payout %s", released, payoutID)
		}

		after := *payout
		after.Status = to
		after.CompletedAt = completedAt
		after.FailureReason = failureReason
		after.UpdatedAt = now
		if err := uc.recordAudit(ctx, constants.EntityPayout, payoutID, action, payout, &after, failureReason); err != nil {
			return err
		}
		updated = &after
		return nil
	})
	if err != nil {
		uc.log.Errorf("Failed to transition payout %s to %s: %v", payoutID, to, err)
		return nil, err
	}

	uc.log.Infof("Payout %s transitioned %s -> %s", payoutID, from, to)
	return updated, nil
}

// GetPayout 查询打款批次
func (uc *SettlementUsecase) GetPayout(ctx context.Context, payoutID string) (*Payout, error) {
	payout, err := uc.payoutRepo.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, errors.ErrPayoutNotFound(payoutID)
	}
	return payout, nil
}

// ListSellerPayouts 查询卖家的打款批次列表
func (uc *SettlementUsecase) ListSellerPayouts(ctx context.Context, sellerID uint64, page, pageSize int) ([]*Payout, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	return uc.payoutRepo.ListPayoutsBySeller(ctx, sellerID, page, pageSize)
}
