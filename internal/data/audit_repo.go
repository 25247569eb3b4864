package data

import (
	"context"
	"time"

	"xinyuan_tech/settlement-service/internal/biz"
	"xinyuan_tech/settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// auditRepo 审计日志仓库实现
type auditRepo struct {
	data *Data
	log  *log.Helper
}

// NewAuditRepo 创建审计日志仓库
func NewAuditRepo(data *Data, logger log.Logger) biz.AuditRepo {
	return &auditRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// AppendAuditLog 追加审计记录
func (r *auditRepo) AppendAuditLog(ctx context.Context, entry *biz.AuditLogEntry) error {
	m := &model.AuditLog{
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		OldValue:   entry.OldValue,
		NewValue:   entry.NewValue,
		Reason:     entry.Reason,
		CreatedAt:  entry.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to append audit log for %s %s: %v", entry.EntityType, entry.EntityID, err)
		return err
	}
	entry.ID = m.ID
	return nil
}

// ListAuditLog 按时间升序分页返回实体的变更历史
func (r *auditRepo) ListAuditLog(ctx context.Context, entityType, entityID string, page, pageSize int) ([]*biz.AuditLogEntry, int, error) {
	var total int64
	if err := r.data.DB(ctx).Model(&model.AuditLog{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count audit log for %s %s: %v", entityType, entityID, err)
		return nil, 0, err
	}

	var models []model.AuditLog
	offset := (page - 1) * pageSize
	if err := r.data.DB(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC, audit_log_id ASC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to list audit log for %s %s: %v", entityType, entityID, err)
		return nil, 0, err
	}

	entries := make([]*biz.AuditLogEntry, len(models))
	for i, m := range models {
		entries[i] = &biz.AuditLogEntry{
			ID:         m.ID,
			EntityType: m.EntityType,
			EntityID:   m.EntityID,
			Action:     m.Action,
			ActorID:    m.ActorID,
			OldValue:   m.OldValue,
			NewValue:   m.NewValue,
			Reason:     m.Reason,
			CreatedAt:  m.CreatedAt,
		}
	}
	return entries, int(total), nil
}

// PurgeAuditLogBefore 删除保留期外的审计记录
func (r *auditRepo) PurgeAuditLogBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.data.DB(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.AuditLog{})
	if result.Error != nil {
		r.log.Errorf("Failed to purge audit log before %v: %v", cutoff, result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
