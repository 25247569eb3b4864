package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EscrowTransaction 托管交易模型。order_id 唯一索引保证一单一托管。
type EscrowTransaction struct {
	ID           string          `gorm:"primaryKey;column:escrow_transaction_id;type:varchar(36)"`
	OrderID      string          `gorm:"column:order_id;type:varchar(64);uniqueIndex"`
	SellerID     uint64          `gorm:"column:seller_id;index"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(20,4)"`
	SellerAmount decimal.Decimal `gorm:"column:seller_amount;type:decimal(20,4)"`
	PlatformFee  decimal.Decimal `gorm:"column:platform_fee;type:decimal(20,4)"`
	Currency     string          `gorm:"column:currency;type:varchar(8)"`
	Status       string          `gorm:"column:status;type:varchar(16);index:idx_status_hold_until"` // held, released, reversed
	HoldUntil    time.Time       `gorm:"column:hold_until;index:idx_status_hold_until"`
	ReleasedAt   *time.Time      `gorm:"column:released_at"` // 当且仅当 status=released 时非空
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (EscrowTransaction) TableName() string { return "escrow_transaction" }
