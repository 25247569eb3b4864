package model

import "time"

// ReconciliationRecord 对账记录模型。
// external_event_id 为主键，同一外部支付事件的重复入账被数据库直接拒绝。
type ReconciliationRecord struct {
	ExternalEventID string    `gorm:"primaryKey;column:external_event_id;type:varchar(128)"`
	OrderID         string    `gorm:"column:order_id;type:varchar(64);index"`
	ProcessedAt     time.Time `gorm:"column:processed_at"`
}

func (ReconciliationRecord) TableName() string { return "reconciliation_record" }
