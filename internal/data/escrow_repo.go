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

// escrowRepo 托管账本仓库实现
type escrowRepo struct {
	data *Data
	log  *log.Helper
}

// NewEscrowRepo 创建托管账本仓库
func NewEscrowRepo(data *Data, logger log.Logger) biz.EscrowRepo {
	return &escrowRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateEscrowTransaction 创建托管交易
func (r *escrowRepo) CreateEscrowTransaction(ctx context.Context, tx *biz.EscrowTransaction) error {
	m := escrowToModel(tx)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return bizerrors.ErrDuplicateOrder(tx.OrderID)
		}
		r.log.Errorf("Failed to create escrow transaction for order %s: %v", tx.OrderID, err)
		return err
	}
	return nil
}

// GetEscrowByOrderID 按订单查询托管交易，不存在时返回 (nil, nil)
func (r *escrowRepo) GetEscrowByOrderID(ctx context.Context, orderID string) (*biz.EscrowTransaction, error) {
	var m model.EscrowTransaction
	err := r.data.DB(ctx).Where("order_id = ?", orderID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get escrow transaction for order %s: %v", orderID, err)
		return nil, err
	}
	return escrowToBiz(&m), nil
}

// ListDueHeld 列出托管期已到的 held 交易
func (r *escrowRepo) ListDueHeld(ctx context.Context, now time.Time, limit int) ([]*biz.EscrowTransaction, error) {
	var models []model.EscrowTransaction
	if err := r.data.DB(ctx).
		Where("status = ? AND hold_until <= ?", constants.EscrowStatusHeld, now).
		Order("hold_until ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list due held transactions: %v", err)
		return nil, err
	}

	transactions := make([]*biz.EscrowTransaction, len(models))
	for i := range models {
		transactions[i] = escrowToBiz(&models[i])
	}
	return transactions, nil
}

// TransitionEscrowStatus 带前置状态守卫的状态流转。
// WHERE status = from 保证并发流转只有一个胜者，败者 RowsAffected = 0。
func (r *escrowRepo) TransitionEscrowStatus(ctx context.Context, id, from, to string, releasedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if releasedAt != nil {
		updates["released_at"] = *releasedAt
	}

	result := r.data.DB(ctx).Model(&model.EscrowTransaction{}).
		Where("escrow_transaction_id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		r.log.Errorf("Failed to transition escrow %s from %s to %s: %v", id, from, to, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func escrowToModel(tx *biz.EscrowTransaction) *model.EscrowTransaction {
	return &model.EscrowTransaction{
		ID:           tx.ID,
		OrderID:      tx.OrderID,
		SellerID:     tx.SellerID,
		Amount:       tx.Amount,
		SellerAmount: tx.SellerAmount,
		PlatformFee:  tx.PlatformFee,
		Currency:     tx.Currency,
		Status:       tx.Status,
		HoldUntil:    tx.HoldUntil,
		ReleasedAt:   tx.ReleasedAt,
		CreatedAt:    tx.CreatedAt,
		UpdatedAt:    tx.UpdatedAt,
	}
}

func escrowToBiz(m *model.EscrowTransaction) *biz.EscrowTransaction {
	return &biz.EscrowTransaction{
		ID:           m.ID,
		OrderID:      m.OrderID,
		SellerID:     m.SellerID,
		Amount:       m.Amount,
		SellerAmount: m.SellerAmount,
		PlatformFee:  m.PlatformFee,
		Currency:     m.Currency,
		Status:       m.Status,
		HoldUntil:    m.HoldUntil,
		ReleasedAt:   m.ReleasedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
