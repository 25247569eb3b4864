package constants

import "time"

// 缓存相关常量
const (
	// SettingsCacheExpiration 财务配置缓存过期时间
	SettingsCacheExpiration = 5 * time.Minute
	// NullCacheExpiration 空值缓存过期时间 (防止缓存穿透)
	NullCacheExpiration = time.Minute
	// SettingsCachePrefix 财务配置缓存键前缀
	SettingsCachePrefix = "settlement:setting:"
	// NullCacheValue 空值缓存占位符
	NullCacheValue = "__null__"
)

// 分页相关常量
const (
	// DefaultPageSize 默认分页大小
	DefaultPageSize = 10
	// MaxPageSize 最大分页大小
	MaxPageSize = 100
)

// 托管相关常量
const (
	// MinHoldDays 托管期最小天数
	MinHoldDays = 1
	// MaxHoldDays 托管期最大天数
	MaxHoldDays = 90
	// DefaultReleaseBatchSize 定时释放单批次最大处理数量
	DefaultReleaseBatchSize = 500
	// DefaultMinorUnits 默认货币最小单位小数位数
	DefaultMinorUnits = 2
)

// 分布式锁相关常量
const (
	// PayoutLockExpiration 打款归集锁过期时间
	PayoutLockExpiration = 10 * time.Minute
	// PayoutLockRetries 打款归集锁重试次数
	PayoutLockRetries = 1
	// PayoutLockPrefix 打款归集锁键前缀
	PayoutLockPrefix = "payout_sweep_lock:seller:"
)

// 财务操作 (SettingsGate 校验的操作名)
const (
	OpEscrowHold        = "escrow-hold"
	OpEscrowRelease     = "escrow-release"
	OpCommissionCompute = "commission-compute"
	OpPayoutSweep       = "payout-sweep"
)

// 财务配置键 (system_setting 表)
const (
	SettingEscrowEnabled                = "escrow_enabled"
	SettingEscrowDefaultHoldDays        = "escrow_default_hold_days"
	SettingDeliveryConfirmationRequired = "delivery_confirmation_required"
	SettingGlobalCommissionRate         = "global_commission_rate"
	SettingMinPayoutAmount              = "min_payout_amount"
	SettingPayoutPaymentMethod          = "payout_payment_method"
	SettingCurrencyMinorUnits           = "currency_minor_units"
)

// 佣金状态
const (
	CommissionStatusPending   = "pending"
	CommissionStatusConfirmed = "confirmed"
	CommissionStatusReversed  = "reversed"
)

// 托管交易状态
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusReversed = "reversed"
)

// 打款状态
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// 审计实体类型
const (
	EntityEscrowTransaction = "escrow_transaction"
	EntityCommission        = "commission"
	EntityPayout            = "payout"
)

// 审计操作
const (
	ActionEscrowOpened     = "escrow_opened"
	ActionEscrowReleased   = "escrow_released"
	ActionEscrowReversed   = "escrow_reversed"
	ActionPayoutCreated    = "payout_created"
	ActionPayoutProcessing = "payout_processing"
	ActionPayoutCompleted  = "payout_completed"
	ActionPayoutFailed     = "payout_failed"
)

// 释放/变更原因
const (
	ReasonSchedule          = "schedule"
	ReasonDeliveryConfirmed = "delivery-confirmed"
	ReasonManualReversal    = "manual-reversal"
)

// 审计执行者 (无登录上下文时的默认值)
const (
	ActorSystem = "system"
)
