package data

import (
	"context"
	"errors"

	"xinyuan_tech/settlement-service/internal/biz"
	"xinyuan_tech/settlement-service/internal/data/model"

	bizerrors "xinyuan_tech/settlement-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// reconciliationRepo 对账记录仓库实现
type reconciliationRepo struct {
	data *Data
	log  *log.Helper
}

// NewReconciliationRepo 创建对账记录仓库
func NewReconciliationRepo(data *Data, logger log.Logger) biz.ReconciliationRepo {
	return &reconciliationRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetReconciliationRecord 查询对账记录，不存在时返回 (nil, nil)
func (r *reconciliationRepo) GetReconciliationRecord(ctx context.Context, externalEventID string) (*biz.ReconciliationRecord, error) {
	var m model.ReconciliationRecord
	err := r.data.DB(ctx).Where("external_event_id = ?", externalEventID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get reconciliation record %s: %v", externalEventID, err)
		return nil, err
	}
	return &biz.ReconciliationRecord{
		ExternalEventID: m.ExternalEventID,
		OrderID:         m.OrderID,
		ProcessedAt:     m.ProcessedAt,
	}, nil
}

// CreateReconciliationRecord 落库对账记录。
// 主键冲突翻译为 DuplicateEvent，由上层按事件重放处理。
func (r *reconciliationRepo) CreateReconciliationRecord(ctx context.Context, record *biz.ReconciliationRecord) error {
	m := &model.ReconciliationRecord{
		ExternalEventID: record.ExternalEventID,
		OrderID:         record.OrderID,
		ProcessedAt:     record.ProcessedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return bizerrors.ErrDuplicateEvent(record.ExternalEventID)
		}
		r.log.Errorf("Failed to create reconciliation record %s: %v", record.ExternalEventID, err)
		return err
	}
	return nil
}
