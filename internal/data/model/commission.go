package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission 佣金模型。order_id 唯一索引保证一单一佣金。
type Commission struct {
	ID               string          `gorm:"primaryKey;column:commission_id;type:varchar(36)"`
	OrderID          string          `gorm:"column:order_id;type:varchar(64);uniqueIndex"`
	SellerID         uint64          `gorm:"column:seller_id;index"`
	StoreID          uint64          `gorm:"column:store_id;index"` // 店铺ID（冗余字段，便于按店铺统计和查询）
	OrderAmount      decimal.Decimal `gorm:"column:order_amount;type:decimal(20,4)"`
	CommissionRate   decimal.Decimal `gorm:"column:commission_rate;type:decimal(9,6)"` // 创建时快照，费率调整只影响新订单
	CommissionAmount decimal.Decimal `gorm:"column:commission_amount;type:decimal(20,4)"`
	SellerAmount     decimal.Decimal `gorm:"column:seller_amount;type:decimal(20,4)"`
	Currency         string          `gorm:"column:currency;type:varchar(8)"`
	Status           string          `gorm:"column:status;type:varchar(16);index"` // pending, confirmed, reversed
	PaidOut          bool            `gorm:"column:paid_out;default:false"`
	PayoutID         *string         `gorm:"column:payout_id;type:varchar(36);index"`
	ConfirmedAt      *time.Time      `gorm:"column:confirmed_at"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (Commission) TableName() string { return "commission" }
