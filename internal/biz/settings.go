package biz

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
)

// SettingsRepo 财务配置仓库接口 (只读，商城 system_setting 表的防腐层)
type SettingsRepo interface {
	// GetSetting 读取配置值，第二个返回值表示该键是否存在
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// FinancialSettings 财务配置快照。
// 每次财务操作前由 SettingsGate 组装一次，操作全程使用同一份快照，
// 避免业务逻辑里散落的动态取值和类型转换。
type FinancialSettings struct {
	EscrowEnabled                bool
	EscrowDefaultHoldDays        int
	DeliveryConfirmationRequired bool
	GlobalCommissionRate         decimal.Decimal
	MinPayoutAmount              decimal.Decimal
	PayoutPaymentMethod          string
	CurrencyMinorUnits           int32

	// configured 记录哪些键已配置且格式合法；invalid 记录非法键的原因
	configured map[string]bool
	invalid    map[string]string
}

// GateDecision 操作许可判定结果
type GateDecision struct {
	Allowed    bool
	SettingKey string
	Reason     string
}

// SettingsGate 财务配置门禁。
// 所有财务变更操作执行前必须通过门禁校验，配置缺失或非法时拒绝操作，
// 调用方需把拒绝结果作为明确的错误返回，不允许静默跳过财务步骤。
type SettingsGate struct {
	repo SettingsRepo
	log  *log.Helper
}

// NewSettingsGate 创建财务配置门禁
func NewSettingsGate(repo SettingsRepo, logger log.Logger) *SettingsGate {
	return &SettingsGate{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// settingKeys 门禁关心的全部配置键
var settingKeys = []string{
	constants.SettingEscrowEnabled,
	constants.SettingEscrowDefaultHoldDays,
	constants.SettingDeliveryConfirmationRequired,
	constants.SettingGlobalCommissionRate,
	constants.SettingMinPayoutAmount,
	constants.SettingPayoutPaymentMethod,
	constants.SettingCurrencyMinorUnits,
}

// Snapshot 从配置仓库组装财务配置快照
func (g *SettingsGate) Snapshot(ctx context.Context) (*FinancialSettings, error) {
	values := make(map[string]string, len(settingKeys))
	for _, key := range settingKeys {
		value, ok, err := g.repo.GetSetting(ctx, key)
		if err != nil {
			g.log.Errorf("Failed to read setting %s: %v", key, err)
			return nil, err
		}
		if ok {
			values[key] = value
		}
	}
	return ParseFinancialSettings(values), nil
}

// Require 校验操作许可并返回配置快照，不允许时返回 SettingsBlocked 错误
func (g *SettingsGate) Require(ctx context.Context, operation string) (*FinancialSettings, error) {
	settings, err := g.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	decision := settings.IsOperationAllowed(operation)
	if !decision.Allowed {
		g.log.Warnf("Operation %s blocked: %s", operation, decision.Reason)
		return nil, errors.ErrSettingsBlocked(operation, decision.SettingKey, decision.Reason)
	}
	return settings, nil
}

// ParseFinancialSettings 解析原始配置键值。
// 类型转换和合法性检查集中在这里完成，后续业务逻辑只使用类型化字段。
func ParseFinancialSettings(values map[string]string) *FinancialSettings {
	fs := &FinancialSettings{
		CurrencyMinorUnits: constants.DefaultMinorUnits,
		configured:         make(map[string]bool),
		invalid:            make(map[string]string),
	}

	if raw, ok := configuredValue(values, constants.SettingEscrowEnabled); ok {
		if v, err := strconv.ParseBool(raw); err != nil {
			fs.invalid[constants.SettingEscrowEnabled] = "not a boolean"
		} else {
			fs.EscrowEnabled = v
			fs.configured[constants.SettingEscrowEnabled] = true
		}
	}

	if raw, ok := configuredValue(values, constants.SettingEscrowDefaultHoldDays); ok {
		if v, err := strconv.Atoi(raw); err != nil {
			fs.invalid[constants.SettingEscrowDefaultHoldDays] = "not an integer"
		} else if v < constants.MinHoldDays || v > constants.MaxHoldDays {
			fs.invalid[constants.SettingEscrowDefaultHoldDays] = fmt.Sprintf("must be in [%d,%d], got %d", constants.MinHoldDays, constants.MaxHoldDays, v)
		} else {
			fs.EscrowDefaultHoldDays = v
			fs.configured[constants.SettingEscrowDefaultHoldDays] = true
		}
	}

	if raw, ok := configuredValue(values, constants.SettingDeliveryConfirmationRequired); ok {
		if v, err := strconv.ParseBool(raw); err != nil {
			fs.invalid[constants.SettingDeliveryConfirmationRequired] = "not a boolean"
		} else {
			fs.DeliveryConfirmationRequired = v
			fs.configured[constants.SettingDeliveryConfirmationRequired] = true
		}
	}

	if raw, ok := configuredValue(values, constants.SettingGlobalCommissionRate); ok {
		if v, reason := parseDecimal(raw); reason != "" {
			fs.invalid[constants.SettingGlobalCommissionRate] = reason
		} else if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
			fs.invalid[constants.SettingGlobalCommissionRate] = "must be in [0,1], got " + raw
		} else {
			fs.GlobalCommissionRate = v
			fs.configured[constants.SettingGlobalCommissionRate] = true
		}
	}

	if raw, ok := configuredValue(values, constants.SettingMinPayoutAmount); ok {
		if v, reason := parseDecimal(raw); reason != "" {
			fs.invalid[constants.SettingMinPayoutAmount] = reason
		} else if v.IsNegative() {
			fs.invalid[constants.SettingMinPayoutAmount] = "must be >= 0, got " + raw
		} else {
			fs.MinPayoutAmount = v
			fs.configured[constants.SettingMinPayoutAmount] = true
		}
	}

	if raw, ok := configuredValue(values, constants.SettingPayoutPaymentMethod); ok {
		fs.PayoutPaymentMethod = raw
		fs.configured[constants.SettingPayoutPaymentMethod] = true
	}

	if raw, ok := configuredValue(values, constants.SettingCurrencyMinorUnits); ok {
		if v, err := strconv.Atoi(raw); err != nil || v < 0 || v > 6 {
			fs.invalid[constants.SettingCurrencyMinorUnits] = "must be an integer in [0,6]"
		} else {
			fs.CurrencyMinorUnits = int32(v)
			fs.configured[constants.SettingCurrencyMinorUnits] = true
		}
	}

	return fs
}

// IsOperationAllowed 判定操作是否允许执行。
// 每个操作要求的配置键缺一不可，返回第一个缺失/非法的键及原因。
func (fs *FinancialSettings) IsOperationAllowed(operation string) GateDecision {
	switch operation {
	case constants.OpEscrowHold, constants.OpEscrowRelease:
		if d := fs.check(constants.SettingEscrowEnabled); !d.Allowed {
			return d
		}
		if !fs.EscrowEnabled {
			return GateDecision{
				SettingKey: constants.SettingEscrowEnabled,
				Reason:     "escrow_enabled is false",
			}
		}
		if d := fs.check(constants.SettingEscrowDefaultHoldDays); !d.Allowed {
			return d
		}
	case constants.OpCommissionCompute:
		if d := fs.check(constants.SettingGlobalCommissionRate); !d.Allowed {
			return d
		}
	case constants.OpPayoutSweep:
		if d := fs.check(constants.SettingGlobalCommissionRate); !d.Allowed {
			return d
		}
		if d := fs.check(constants.SettingMinPayoutAmount); !d.Allowed {
			return d
		}
	default:
		return GateDecision{Reason: fmt.Sprintf("unknown operation %q", operation)}
	}
	return GateDecision{Allowed: true}
}

func (fs *FinancialSettings) check(key string) GateDecision {
	if reason, bad := fs.invalid[key]; bad {
		return GateDecision{SettingKey: key, Reason: fmt.Sprintf("setting %s invalid: %s", key, reason)}
	}
	if !fs.configured[key] {
		return GateDecision{SettingKey: key, Reason: fmt.Sprintf("setting %s is not configured", key)}
	}
	return GateDecision{Allowed: true}
}

// configuredValue 按规范判定配置是否"已配置": 非空白字符串才算
func configuredValue(values map[string]string, key string) (string, bool) {
	raw, ok := values[key]
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return "", false
	}
	return raw, true
}

func parseDecimal(raw string) (decimal.Decimal, string) {
	if f, err := strconv.ParseFloat(raw, 64); err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return decimal.Zero, "not a finite number"
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "not a number"
	}
	return v, ""
}
