package biz

import (
	"context"
	"encoding/json"
	"time"

	"xinyuan_tech/settlement-service/internal/auth"
	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/errors"
)

// AuditLogEntry 审计日志，记录每次财务变更的执行者、变更前后值和原因。
// 仅追加，应用代码不更新不删除；回滚只能以新的补偿写入表达。
type AuditLogEntry struct {
	ID         uint64
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	OldValue   string // JSON 快照
	NewValue   string // JSON 快照
	Reason     string
	CreatedAt  time.Time
}

// AuditRepo 审计日志仓库接口
type AuditRepo interface {
	AppendAuditLog(ctx context.Context, entry *AuditLogEntry) error
	// ListAuditLog 按 createdAt 升序返回实体的变更历史
	ListAuditLog(ctx context.Context, entityType, entityID string, page, pageSize int) ([]*AuditLogEntry, int, error)
	// PurgeAuditLogBefore 删除保留期外的记录，仅供显式调用的清理任务使用
	PurgeAuditLogBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// recordAudit 追加一条审计记录。写入失败必须让触发它的财务变更一并失败，
// 因此调用方必须已处于同一事务内，并把返回错误原样向上抛。
func (uc *SettlementUsecase) recordAudit(ctx context.Context, entityType, entityID, action string, oldValue, newValue interface{}, reason string) error {
	actorID, ok := auth.GetActorFromContext(ctx)
	if !ok {
		actorID = constants.ActorSystem
	}

	oldJSON, err := marshalAuditValue(oldValue)
	if err != nil {
		return errors.ErrAuditWriteFailed("marshal old value: " + err.Error())
	}
	newJSON, err := marshalAuditValue(newValue)
	if err != nil {
		return errors.ErrAuditWriteFailed("marshal new value: " + err.Error())
	}

	entry := &AuditLogEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		OldValue:   oldJSON,
		NewValue:   newJSON,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.auditRepo.AppendAuditLog(ctx, entry); err != nil {
		uc.log.Errorf("Failed to append audit log for %s %s: %v", entityType, entityID, err)
		return errors.ErrAuditWriteFailed(err.Error())
	}
	return nil
}

func marshalAuditValue(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AuditHistory 获取实体的审计历史 (管理后台回滚评审使用)
func (uc *SettlementUsecase) AuditHistory(ctx context.Context, entityType, entityID string, page, pageSize int) ([]*AuditLogEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}

	entries, total, err := uc.auditRepo.ListAuditLog(ctx, entityType, entityID, page, pageSize)
	if err != nil {
		uc.log.Errorf("Failed to list audit log for %s %s: %v", entityType, entityID, err)
		return nil, 0, err
	}
	return entries, total, nil
}

// PurgeAuditLogBefore 清理保留期外的审计日志，由 cron 显式触发
func (uc *SettlementUsecase) PurgeAuditLogBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := uc.auditRepo.PurgeAuditLogBefore(ctx, cutoff)
	if err != nil {
		uc.log.Errorf("Failed to purge audit log before %v: %v", cutoff, err)
		return 0, err
	}
	uc.log.Infof("Purged %d audit log entries older than %v", count, cutoff)
	return count, nil
}
