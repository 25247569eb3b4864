package data

import (
	"context"
	"errors"
	"time"

	"xinyuan_tech/settlement-service/internal/biz"
	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/data/model"

	bizerrors "xinyuan_tech/settlement-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// commissionRepo 佣金仓库实现
type commissionRepo struct {
	data *Data
	log  *log.Helper
}

// NewCommissionRepo 创建佣金仓库
func NewCommissionRepo(data *Data, logger log.Logger) biz.CommissionRepo {
	return &commissionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateCommission 创建佣金记录
func (r *commissionRepo) CreateCommission(ctx context.Context, c *biz.Commission) error {
	m := commissionToModel(c)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return bizerrors.ErrDuplicateOrder(c.OrderID)
		}
		r.log.Errorf("Failed to create commission for order %s: %v", c.OrderID, err)
		return err
	}
	return nil
}

// GetCommissionByOrderID 按订单查询佣金，不存在时返回 (nil, nil)
func (r *commissionRepo) GetCommissionByOrderID(ctx context.Context, orderID string) (*biz.Commission, error) {
	var m model.Commission
	err := r.data.DB(ctx).Where("order_id = ?", orderID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get commission for order %s: %v", orderID, err)
		return nil, err
	}
	return commissionToBiz(&m), nil
}

// MarkCommissionConfirmed 将 pending 佣金置为 confirmed
func (r *commissionRepo) MarkCommissionConfirmed(ctx context.Context, orderID string, confirmedAt time.Time) error {
	result := r.data.DB(ctx).Model(&model.Commission{}).
		Where("order_id = ? AND status = ?", orderID, constants.CommissionStatusPending).
		Updates(map[string]interface{}{
			"status":       constants.CommissionStatusConfirmed,
			"confirmed_at": confirmedAt,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.Errorf("Failed to confirm commission for order %s: %v", orderID, result.Error)
		return result.Error
	}
	return nil
}

// MarkCommissionReversed 将佣金置为 reversed
func (r *commissionRepo) MarkCommissionReversed(ctx context.Context, orderID string) error {
	result := r.data.DB(ctx).Model(&model.Commission{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     constants.CommissionStatusReversed,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.Errorf("Failed to reverse commission for order %s: %v", orderID, result.Error)
		return result.Error
	}
	return nil
}

// ListPayableSellers 列出存在已确认未打款佣金的卖家
func (r *commissionRepo) ListPayableSellers(ctx context.Context) ([]uint64, error) {
	var sellers []uint64
	if err := r.data.DB(ctx).Model(&model.Commission{}).
		Where("status = ? AND paid_out = ? AND payout_id IS NULL", constants.CommissionStatusConfirmed, false).
		Distinct("seller_id").
		Order("seller_id ASC").
		Pluck("seller_id", &sellers).Error; err != nil {
		r.log.Errorf("Failed to list payable sellers: %v", err)
		return nil, err
	}
	return sellers, nil
}

// ListPayableCommissions 列出卖家的已确认未打款佣金
func (r *commissionRepo) ListPayableCommissions(ctx context.Context, sellerID uint64) ([]*biz.Commission, error) {
	var models []model.Commission
	if err := r.data.DB(ctx).
		Where("seller_id = ? AND status = ? AND paid_out = ? AND payout_id IS NULL",
			sellerID, constants.CommissionStatusConfirmed, false).
		Order("confirmed_at ASC").
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list payable commissions for seller %d: %v", sellerID, err)
		return nil, err
	}

	commissions := make([]*biz.Commission, len(models))
	for i := range models {
		commissions[i] = commissionToBiz(&models[i])
	}
	return commissions, nil
}

// AssignCommissionsToPayout 将佣金批量绑定到打款批次
func (r *commissionRepo) AssignCommissionsToPayout(ctx context.Context, commissionIDs []string, payoutID string) error {
	if len(commissionIDs) == 0 {
		return nil
	}
	result := r.data.DB(ctx).Model(&model.Commission{}).
		Where("commission_id IN ?", commissionIDs).
		Updates(map[string]interface{}{
			"paid_out":   true,
			"payout_id":  payoutID,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.Errorf("Failed to assign %d commissions to payout %s: %v", len(commissionIDs), payoutID, result.Error)
		return result.Error
	}
	return nil
}

// ReleaseCommissionsFromPayout 打款失败后解绑佣金，返回解绑数量
func (r *commissionRepo) ReleaseCommissionsFromPayout(ctx context.Context, payoutID string) (int64, error) {
	result := r.data.DB(ctx).Model(&model.Commission{}).
		Where("payout_id = ?", payoutID).
		Updates(map[string]interface{}{
			"paid_out":   false,
			"payout_id":  nil,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.Errorf("Failed to release commissions from payout %s: %v", payoutID, result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListCommissionsByPayoutID 列出打款批次的全部佣金
func (r *commissionRepo) ListCommissionsByPayoutID(ctx context.Context, payoutID string) ([]*biz.Commission, error) {
	var models []model.Commission
	if err := r.data.DB(ctx).
		Where("payout_id = ?", payoutID).
		Order("confirmed_at ASC").
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list commissions for payout %s: %v", payoutID, err)
		return nil, err
	}

	commissions := make([]*biz.Commission, len(models))
	for i := range models {
		commissions[i] = commissionToBiz(&models[i])
	}
	return commissions, nil
}

func commissionToModel(c *biz.Commission) *model.Commission {
	m := &model.Commission{
		ID:               c.ID,
		OrderID:          c.OrderID,
		SellerID:         c.SellerID,
		StoreID:          c.StoreID,
		OrderAmount:      c.OrderAmount,
		CommissionRate:   c.CommissionRate,
		CommissionAmount: c.CommissionAmount,
		SellerAmount:     c.SellerAmount,
		Currency:         c.Currency,
		Status:           c.Status,
		PaidOut:          c.PaidOut,
		ConfirmedAt:      c.ConfirmedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	if c.PayoutID != "" {
		payoutID := c.PayoutID
		m.PayoutID = &payoutID
	}
	return m
}

func commissionToBiz(m *model.Commission) *biz.Commission {
	c := &biz.Commission{
		ID:               m.ID,
		OrderID:          m.OrderID,
		SellerID:         m.SellerID,
		StoreID:          m.StoreID,
		OrderAmount:      m.OrderAmount,
		CommissionRate:   m.CommissionRate,
		CommissionAmount: m.CommissionAmount,
		SellerAmount:     m.SellerAmount,
		Currency:         m.Currency,
		Status:           m.Status,
		PaidOut:          m.PaidOut,
		ConfirmedAt:      m.ConfirmedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.PayoutID != nil {
		c.PayoutID = *m.PayoutID
	}
	return c
}
