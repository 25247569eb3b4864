package model

import "time"

// AuditLog 审计日志模型。仅追加，应用代码不更新不删除。
type AuditLog struct {
	ID         uint64    `gorm:"primaryKey;column:audit_log_id;autoIncrement"`
	EntityType string    `gorm:"column:entity_type;type:varchar(32);index:idx_entity"`
	EntityID   string    `gorm:"column:entity_id;type:varchar(36);index:idx_entity"`
	Action     string    `gorm:"column:action;type:varchar(32)"`
	ActorID    string    `gorm:"column:actor_id;type:varchar(64)"`
	OldValue   string    `gorm:"column:old_value;type:json"`
	NewValue   string    `gorm:"column:new_value;type:json"`
	Reason     string    `gorm:"column:reason;type:varchar(255)"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (AuditLog) TableName() string { return "audit_log" }
