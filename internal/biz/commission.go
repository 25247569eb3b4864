package biz

import (
	"context"
	"fmt"
	"time"

	"xinyuan_tech/settlement-service/internal/errors"

	"github.com/shopspring/decimal"
)

// Commission 平台佣金记录，代表平台对单个订单的分成主张。
// 费率在创建时快照，后续费率调整只影响新订单。
type Commission struct {
	ID               string
	OrderID          string
	SellerID         uint64
	StoreID          uint64 // 店铺ID（冗余字段，便于打款批次按店铺归集和查询）
	OrderAmount      decimal.Decimal
	CommissionRate   decimal.Decimal
	CommissionAmount decimal.Decimal
	SellerAmount     decimal.Decimal
	Currency         string
	Status           string // pending, confirmed, reversed
	PaidOut          bool
	PayoutID         string // 已归集的打款批次ID，未归集时为空
	ConfirmedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CommissionRepo 佣金仓库接口
type CommissionRepo interface {
	CreateCommission(ctx context.Context, c *Commission) error
	GetCommissionByOrderID(ctx context.Context, orderID string) (*Commission, error)
	// MarkCommissionConfirmed 将 pending 佣金置为 confirmed 并记录确认时间
	MarkCommissionConfirmed(ctx context.Context, orderID string, confirmedAt time.Time) error
	// MarkCommissionReversed 将佣金置为 reversed (订单取消/退款补偿动作)
	MarkCommissionReversed(ctx context.Context, orderID string) error
	// ListPayableSellers 列出存在已确认未打款佣金的卖家
	ListPayableSellers(ctx context.Context) ([]uint64, error)
	// ListPayableCommissions 列出卖家的已确认未打款佣金 (status=confirmed, paid_out=false, payout_id is null)
	ListPayableCommissions(ctx context.Context, sellerID uint64) ([]*Commission, error)
	// AssignCommissionsToPayout 将佣金批量绑定到打款批次 (paid_out=true, payout_id=payoutID)
	AssignCommissionsToPayout(ctx context.Context, commissionIDs []string, payoutID string) error
	// ReleaseCommissionsFromPayout 打款失败后解绑佣金 (paid_out=false, payout_id=null)，返回解绑数量
	ReleaseCommissionsFromPayout(ctx context.Context, payoutID string) (int64, error)
	// ListCommissionsByPayoutID 列出打款批次的全部佣金
	ListCommissionsByPayoutID(ctx context.Context, payoutID string) ([]*Commission, error)
}

// CommissionSplit 单笔订单的分账结果
type CommissionSplit struct {
	CommissionAmount decimal.Decimal
	SellerAmount     decimal.Decimal
}

// ComputeCommissionSplit 计算平台佣金与卖家净额。
// 佣金 = orderAmount * rate 按货币最小单位银行家舍入 (四舍六入五成双，
// 避免大量订单累积的系统性偏差)；卖家净额 = orderAmount - 佣金，由减法
// 导出而不是独立舍入，保证 commissionAmount + sellerAmount == orderAmount 恒等。
func ComputeCommissionSplit(orderAmount, rate decimal.Decimal, minorUnits int32) (*CommissionSplit, error) {
	if orderAmount.IsNegative() {
		return nil, errors.ErrInvalidInput(fmt.Sprintf("order amount must be >= 0, got %s", orderAmount))
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.ErrInvalidInput(fmt.Sprintf("commission rate must be in [0,1], got %s", rate))
	}

	commission := orderAmount.Mul(rate).RoundBank(minorUnits)
	seller := orderAmount.Sub(commission)

	return &CommissionSplit{
		CommissionAmount: commission,
		SellerAmount:     seller,
	}, nil
}
