package service

import (
	"time"

	"xinyuan_tech/settlement-service/internal/biz"
)

// 金额字段统一用字符串传输，避免 JSON 浮点精度丢失。

// PaymentConfirmedRequest 支付确认事件入参
type PaymentConfirmedRequest struct {
	ExternalEventID string `json:"external_event_id"`
	OrderID         string `json:"order_id"`
	SellerID        uint64 `json:"seller_id"`
	StoreID         uint64 `json:"store_id"`
	OrderAmount     string `json:"order_amount"`
	Currency        string `json:"currency"`
}

// PaymentConfirmedReply 支付确认事件处理结果
type PaymentConfirmedReply struct {
	Replayed   bool             `json:"replayed"`
	Escrow     *EscrowReply     `json:"escrow,omitempty"`
	Commission *CommissionReply `json:"commission,omitempty"`
}

// DeliveryConfirmedRequest 物流确认事件入参
type DeliveryConfirmedRequest struct {
	OrderID string `json:"order_id"`
}

// ReverseEscrowRequest 托管冲正入参
type ReverseEscrowRequest struct {
	Reason string `json:"reason"`
}

// EscrowReply 托管交易视图
type EscrowReply struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	SellerID     uint64 `json:"seller_id"`
	Amount       string `json:"amount"`
	SellerAmount string `json:"seller_amount"`
	PlatformFee  string `json:"platform_fee"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	HoldUntil    int64  `json:"hold_until"`
	ReleasedAt   int64  `json:"released_at,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// CommissionReply 佣金视图
type CommissionReply struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	SellerID         uint64 `json:"seller_id"`
	StoreID          uint64 `json:"store_id"`
	OrderAmount      string `json:"order_amount"`
	CommissionRate   string `json:"commission_rate"`
	CommissionAmount string `json:"commission_amount"`
	SellerAmount     string `json:"seller_amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	PaidOut          bool   `json:"paid_out"`
	PayoutID         string `json:"payout_id,omitempty"`
	ConfirmedAt      int64  `json:"confirmed_at,omitempty"`
}

// ReleaseSweepReply 定时释放批次报告
type ReleaseSweepReply struct {
	TotalCount   int                    `json:"total_count"`
	SuccessCount int                    `json:"success_count"`
	FailedCount  int                    `json:"failed_count"`
	Outcomes     []*ReleaseOutcomeReply `json:"outcomes,omitempty"`
}

// ReleaseOutcomeReply 定时释放的单笔结果
type ReleaseOutcomeReply struct {
	OrderID      string `json:"order_id"`
	EscrowID     string `json:"escrow_id"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// PayoutSweepReply 打款归集批次报告
type PayoutSweepReply struct {
	TotalSellers int                  `json:"total_sellers"`
	CreatedCount int                  `json:"created_count"`
	SkippedCount int                  `json:"skipped_count"`
	FailedCount  int                  `json:"failed_count"`
	Outcomes     []*SweepOutcomeReply `json:"outcomes,omitempty"`
}

// SweepOutcomeReply 打款归集的单卖家结果
type SweepOutcomeReply struct {
	SellerID     uint64 `json:"seller_id"`
	PayoutID     string `json:"payout_id,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Skipped      bool   `json:"skipped"`
	SkipReason   string `json:"skip_reason,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// MarkPayoutCompletedRequest 打款完成回执入参
type MarkPayoutCompletedRequest struct {
	CompletedAt int64 `json:"completed_at"`
}

// MarkPayoutFailedRequest 打款失败回执入参
type MarkPayoutFailedRequest struct {
	FailureReason string `json:"failure_reason"`
}

// PayoutReply 打款批次视图
type PayoutReply struct {
	ID              string `json:"id"`
	SellerID        uint64 `json:"seller_id"`
	StoreID         uint64 `json:"store_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	PaymentMethod   string `json:"payment_method"`
	PeriodStart     int64  `json:"period_start"`
	PeriodEnd       int64  `json:"period_end"`
	ScheduledAt     int64  `json:"scheduled_at"`
	CommissionCount int    `json:"commission_count"`
	CompletedAt     int64  `json:"completed_at,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	CreatedAt       int64  `json:"created_at"`
}

// ListPayoutsReply 打款批次分页列表
type ListPayoutsReply struct {
	Payouts  []*PayoutReply `json:"payouts"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// AuditEntryReply 审计记录视图
type AuditEntryReply struct {
	ID         uint64 `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	ActorID    string `json:"actor_id"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// AuditHistoryReply 审计历史分页列表
type AuditHistoryReply struct {
	Entries  []*AuditEntryReply `json:"entries"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

func escrowToReply(e *biz.EscrowTransaction) *EscrowReply {
	if e == nil {
		return nil
	}
	reply := &EscrowReply{
		ID:           e.ID,
		OrderID:      e.OrderID,
		SellerID:     e.SellerID,
		Amount:       e.Amount.String(),
		SellerAmount: e.SellerAmount.String(),
		PlatformFee:  e.PlatformFee.String(),
		Currency:     e.Currency,
		Status:       e.Status,
		HoldUntil:    e.HoldUntil.Unix(),
		CreatedAt:    e.CreatedAt.Unix(),
	}
	if e.ReleasedAt != nil {
		reply.ReleasedAt = e.ReleasedAt.Unix()
	}
	return reply
}

func commissionToReply(c *biz.Commission) *CommissionReply {
	if c == nil {
		return nil
	}
	reply := &CommissionReply{
		ID:               c.ID,
		OrderID:          c.OrderID,
		SellerID:         c.SellerID,
		StoreID:          c.StoreID,
		OrderAmount:      c.OrderAmount.String(),
		CommissionRate:   c.CommissionRate.String(),
		CommissionAmount: c.CommissionAmount.String(),
		SellerAmount:     c.SellerAmount.String(),
		Currency:         c.Currency,
		Status:           c.Status,
		PaidOut:          c.PaidOut,
		PayoutID:         c.PayoutID,
	}
	if c.ConfirmedAt != nil {
		reply.ConfirmedAt = c.ConfirmedAt.Unix()
	}
	return reply
}

func payoutToReply(p *biz.Payout) *PayoutReply {
	if p == nil {
		return nil
	}
	reply := &PayoutReply{
		ID:              p.ID,
		SellerID:        p.SellerID,
		StoreID:         p.StoreID,
		Amount:          p.Amount.String(),
		Currency:        p.Currency,
		Status:          p.Status,
		PaymentMethod:   p.PaymentMethod,
		PeriodStart:     p.PeriodStart.Unix(),
		PeriodEnd:       p.PeriodEnd.Unix(),
		ScheduledAt:     p.ScheduledAt.Unix(),
		CommissionCount: p.CommissionCount,
		FailureReason:   p.FailureReason,
		CreatedAt:       p.CreatedAt.Unix(),
	}
	if p.CompletedAt != nil {
		reply.CompletedAt = p.CompletedAt.Unix()
	}
	return reply
}

func auditToReply(e *biz.AuditLogEntry) *AuditEntryReply {
	return &AuditEntryReply{
		ID:         e.ID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		ActorID:    e.ActorID,
		OldValue:   e.OldValue,
		NewValue:   e.NewValue,
		Reason:     e.Reason,
		CreatedAt:  e.CreatedAt.Unix(),
	}
}

func unixOrNow(ts int64) time.Time {
	if ts <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}
