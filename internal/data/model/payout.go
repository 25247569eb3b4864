package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout 打款批次模型。
// MySQL 不支持部分唯一索引，"同一卖家最多一个进行中批次" 通过 inflight_key
// 列表达：pending/processing 时填 seller_id，终态置 NULL (NULL 不参与唯一约束)。
type Payout struct {
	ID              string          `gorm:"primaryKey;column:payout_id;type:varchar(36)"`
	SellerID        uint64          `gorm:"column:seller_id;index"`
	StoreID         uint64          `gorm:"column:store_id;index"` // 店铺ID（冗余字段，便于按店铺统计和查询）
	InflightKey     *uint64         `gorm:"column:inflight_key;uniqueIndex"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(20,4)"`
	Currency        string          `gorm:"column:currency;type:varchar(8)"`
	Status          string          `gorm:"column:status;type:varchar(16);index"` // pending, processing, completed, failed
	PaymentMethod   string          `gorm:"column:payment_method;type:varchar(32)"`
	PeriodStart     time.Time       `gorm:"column:period_start"`
	PeriodEnd       time.Time       `gorm:"column:period_end"`
	ScheduledAt     time.Time       `gorm:"column:scheduled_at"`
	CommissionCount int             `gorm:"column:commission_count"`
	CompletedAt     *time.Time      `gorm:"column:completed_at"`
	FailureReason   string          `gorm:"column:failure_reason;type:varchar(255)"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (Payout) TableName() string { return "payout" }
