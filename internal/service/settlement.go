package service

import (
	"context"
	"time"

	"xinyuan_tech/settlement-service/internal/auth"
	"xinyuan_tech/settlement-service/internal/biz"
	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/errors"

	"github.com/google/wire"
	"github.com/shopspring/decimal"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewSettlementService)

// SettlementService 结算服务 HTTP 门面
type SettlementService struct {
	uc *biz.SettlementUsecase
}

// NewSettlementService 创建结算服务
func NewSettlementService(uc *biz.SettlementUsecase) *SettlementService {
	return &SettlementService{uc: uc}
}

// PaymentConfirmed 支付网关确认收款回调：幂等开立托管并计提佣金
func (s *SettlementService) PaymentConfirmed(ctx context.Context, req *PaymentConfirmedRequest) (*PaymentConfirmedReply, error) {
	amount, err := decimal.NewFromString(req.OrderAmount)
	if err != nil {
		return nil, errors.ErrInvalidInput("order_amount is not a valid number: " + req.OrderAmount)
	}

	result, err := s.uc.IngestPaymentConfirmed(ctx, &biz.PaymentConfirmedEvent{
		ExternalEventID: req.ExternalEventID,
		OrderID:         req.OrderID,
		SellerID:        req.SellerID,
		StoreID:         req.StoreID,
		OrderAmount:     amount,
		Currency:        req.Currency,
	})
	if err != nil {
		return nil, err
	}

	return &PaymentConfirmedReply{
		Replayed:   result.Replayed,
		Escrow:     escrowToReply(result.Escrow),
		Commission: commissionToReply(result.Commission),
	}, nil
}

// DeliveryConfirmed 物流确认收货回调：释放托管资金
func (s *SettlementService) DeliveryConfirmed(ctx context.Context, req *DeliveryConfirmedRequest) (*EscrowReply, error) {
	if req.OrderID == "" {
		return nil, errors.ErrInvalidInput("order_id is required")
	}
	escrow, err := s.uc.ReleaseByDeliveryConfirmation(ctx, req.OrderID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return escrowToReply(escrow), nil
}

// ReverseEscrow 冲正托管交易 (订单取消/退款)，仅管理员可用
func (s *SettlementService) ReverseEscrow(ctx context.Context, orderID string, req *ReverseEscrowRequest) (*EscrowReply, error) {
	if err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if orderID == "" {
		return nil, errors.ErrInvalidInput("order_id is required")
	}
	escrow, err := s.uc.Reverse(ctx, orderID, req.Reason)
	if err != nil {
		return nil, err
	}
	return escrowToReply(escrow), nil
}

// RunEscrowReleaseSweep 手动触发托管定时释放 (cron 同款入口)
func (s *SettlementService) RunEscrowReleaseSweep(ctx context.Context) (*ReleaseSweepReply, error) {
	result, err := s.uc.ReleaseBySchedule(ctx, time.Now().UTC(), constants.DefaultReleaseBatchSize)
	if err != nil {
		return nil, err
	}

	reply := &ReleaseSweepReply{
		TotalCount:   result.TotalCount,
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailedCount,
	}
	for _, o := range result.Outcomes {
		reply.Outcomes = append(reply.Outcomes, &ReleaseOutcomeReply{
			OrderID:      o.OrderID,
			EscrowID:     o.EscrowID,
			Success:      o.Success,
			ErrorMessage: o.ErrorMessage,
		})
	}
	return reply, nil
}

// RunPayoutSweep 手动触发打款归集 (cron 同款入口)
func (s *SettlementService) RunPayoutSweep(ctx context.Context) (*PayoutSweepReply, error) {
	result, err := s.uc.SweepPayouts(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	reply := &PayoutSweepReply{
		TotalSellers: result.TotalSellers,
		CreatedCount: result.CreatedCount,
		SkippedCount: result.SkippedCount,
		FailedCount:  result.FailedCount,
	}
	for _, o := range result.Outcomes {
		out := &SweepOutcomeReply{
			SellerID:     o.SellerID,
			PayoutID:     o.PayoutID,
			Skipped:      o.Skipped,
			SkipReason:   o.SkipReason,
			ErrorMessage: o.ErrorMessage,
		}
		if !o.Amount.IsZero() {
			out.Amount = o.Amount.String()
		}
		reply.Outcomes = append(reply.Outcomes, out)
	}
	return reply, nil
}

// MarkPayoutProcessing 批次移交外部转账通道
func (s *SettlementService) MarkPayoutProcessing(ctx context.Context, payoutID string) (*PayoutReply, error) {
	payout, err := s.uc.MarkPayoutProcessing(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	return payoutToReply(payout), nil
}

// MarkPayoutCompleted 外部转账成功回执
func (s *SettlementService) MarkPayoutCompleted(ctx context.Context, payoutID string, req *MarkPayoutCompletedRequest) (*PayoutReply, error) {
	payout, err := s.uc.MarkPayoutCompleted(ctx, payoutID, unixOrNow(req.CompletedAt))
	if err != nil {
		return nil, err
	}
	return payoutToReply(payout), nil
}

// MarkPayoutFailed 外部转账失败回执，成员佣金重新进入归集
func (s *SettlementService) MarkPayoutFailed(ctx context.Context, payoutID string, req *MarkPayoutFailedRequest) (*PayoutReply, error) {
	payout, err := s.uc.MarkPayoutFailed(ctx, payoutID, req.FailureReason)
	if err != nil {
		return nil, err
	}
	return payoutToReply(payout), nil
}

// GetPayout 查询打款批次
func (s *SettlementService) GetPayout(ctx context.Context, payoutID string) (*PayoutReply, error) {
	payout, err := s.uc.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	return payoutToReply(payout), nil
}

// ListSellerPayouts 查询卖家的打款批次列表
func (s *SettlementService) ListSellerPayouts(ctx context.Context, sellerID uint64, page, pageSize int) (*ListPayoutsReply, error) {
	payouts, total, err := s.uc.ListSellerPayouts(ctx, sellerID, page, pageSize)
	if err != nil {
		return nil, err
	}

	reply := &ListPayoutsReply{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Payouts:  make([]*PayoutReply, len(payouts)),
	}
	for i, p := range payouts {
		reply.Payouts[i] = payoutToReply(p)
	}
	return reply, nil
}

// GetAuditHistory 查询实体的审计历史，仅管理员可用
func (s *SettlementService) GetAuditHistory(ctx context.Context, entityType, entityID string, page, pageSize int) (*AuditHistoryReply, error) {
	if err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	entries, total, err := s.uc.AuditHistory(ctx, entityType, entityID, page, pageSize)
	if err != nil {
		return nil, err
	}

	reply := &AuditHistoryReply{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Entries:  make([]*AuditEntryReply, len(entries)),
	}
	for i, e := range entries {
		reply.Entries[i] = auditToReply(e)
	}
	return reply, nil
}
