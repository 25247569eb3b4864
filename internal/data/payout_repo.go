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

// payoutRepo 打款批次仓库实现
type payoutRepo struct {
	data *Data
	log  *log.Helper
}

// NewPayoutRepo 创建打款批次仓库
func NewPayoutRepo(data *Data, logger log.Logger) biz.PayoutRepo {
	return &payoutRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreatePayout 创建打款批次。
// inflight_key 填 seller_id，唯一约束冲突即该卖家已有进行中批次。
func (r *payoutRepo) CreatePayout(ctx context.Context, p *biz.Payout) error {
	m := payoutToModel(p)
	sellerID := p.SellerID
	m.InflightKey = &sellerID
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return bizerrors.ErrPayoutInFlight(p.SellerID)
		}
		r.log.Errorf("Failed to create payout for seller %d: %v", p.SellerID, err)
		return err
	}
	return nil
}

// GetPayout 查询打款批次，不存在时返回 (nil, nil)
func (r *payoutRepo) GetPayout(ctx context.Context, id string) (*biz.Payout, error) {
	var m model.Payout
	err := r.data.DB(ctx).Where("payout_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get payout %s: %v", id, err)
		return nil, err
	}
	return payoutToBiz(&m), nil
}

// HasInFlightPayout 卖家是否存在 pending/processing 批次
func (r *payoutRepo) HasInFlightPayout(ctx context.Context, sellerID uint64) (bool, error) {
	var count int64
	if err := r.data.DB(ctx).Model(&model.Payout{}).
		Where("inflight_key = ?", sellerID).
		Count(&count).Error; err != nil {
		r.log.Errorf("Failed to check in-flight payout for seller %d: %v", sellerID, err)
		return false, err
	}
	return count > 0, nil
}

// TransitionPayoutStatus 带前置状态守卫的状态流转，终态同时清除 inflight 键
func (r *payoutRepo) TransitionPayoutStatus(ctx context.Context, id, from, to string, completedAt *time.Time, failureReason string) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}
	if to == constants.PayoutStatusCompleted || to == constants.PayoutStatusFailed {
		updates["inflight_key"] = nil
	}

	result := r.data.DB(ctx).Model(&model.Payout{}).
		Where("payout_id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		r.log.Errorf("Failed to transition payout %s from %s to %s: %v", id, from, to, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPayoutsBySeller 分页查询卖家的打款批次
func (r *payoutRepo) ListPayoutsBySeller(ctx context.Context, sellerID uint64, page, pageSize int) ([]*biz.Payout, int, error) {
	var total int64
	if err := r.data.DB(ctx).Model(&model.Payout{}).
		Where("seller_id = ?", sellerID).
		Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count payouts for seller %d: %v", sellerID, err)
		return nil, 0, err
	}

	var models []model.Payout
	offset := (page - 1) * pageSize
	if err := r.data.DB(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list payouts for seller %d: %v", sellerID, err)
		return nil, 0, err
	}

	payouts := make([]*biz.Payout, len(models))
	for i := range models {
		payouts[i] = payoutToBiz(&models[i])
	}
	return payouts, int(total), nil
}

func payoutToModel(p *biz.Payout) *model.Payout {
	return &model.Payout{
		ID:              p.ID,
		SellerID:        p.SellerID,
		StoreID:         p.StoreID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		Status:          p.Status,
		PaymentMethod:   p.PaymentMethod,
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
		ScheduledAt:     p.ScheduledAt,
		CommissionCount: p.CommissionCount,
		CompletedAt:     p.CompletedAt,
		FailureReason:   p.FailureReason,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func payoutToBiz(m *model.Payout) *biz.Payout {
	return &biz.Payout{
		ID:              m.ID,
		SellerID:        m.SellerID,
		StoreID:         m.StoreID,
		Amount:          m.Amount,
		Currency:        m.Currency,
		Status:          m.Status,
		PaymentMethod:   m.PaymentMethod,
		PeriodStart:     m.PeriodStart,
		PeriodEnd:       m.PeriodEnd,
		ScheduledAt:     m.ScheduledAt,
		CommissionCount: m.CommissionCount,
		CompletedAt:     m.CompletedAt,
		FailureReason:   m.FailureReason,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
