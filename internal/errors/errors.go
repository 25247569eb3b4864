package errors

import (
	"fmt"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// 错误 Reason 常量，HTTP 错误编码器与测试代码通过 Reason 识别错误类别。
const (
	ReasonSettingsBlocked  = "SETTINGS_BLOCKED"
	ReasonInvalidInput     = "INVALID_INPUT"
	ReasonDuplicateOrder   = "DUPLICATE_ORDER"
	ReasonNotFound         = "NOT_FOUND"
	ReasonInvalidState     = "INVALID_STATE"
	ReasonPayoutInFlight   = "PAYOUT_IN_FLIGHT"
	ReasonDuplicateEvent   = "DUPLICATE_EVENT"
	ReasonAuditWriteFailed = "AUDIT_WRITE_FAILED"
)

// ErrSettingsBlocked 必需财务配置缺失或非法，操作被拒绝。
// metadata 携带配置键与操作名，便于管理后台渲染 "请配置 X 以启用 Y" 提示。
func ErrSettingsBlocked(operation, settingKey, detail string) *kerrors.Error {
	return kerrors.New(ErrCodeSettingsBlocked, ReasonSettingsBlocked,
		fmt.Sprintf("operation %q blocked: %s", operation, detail)).
		WithMetadata(map[string]string{
			"operation":   operation,
			"setting_key": settingKey,
		})
}

// ErrInvalidInput 金额或费率非法。
func ErrInvalidInput(detail string) *kerrors.Error {
	return kerrors.New(ErrCodeInvalidInput, ReasonInvalidInput, detail)
}

// ErrDuplicateOrder 订单已存在托管交易。
func ErrDuplicateOrder(orderID string) *kerrors.Error {
	return kerrors.New(ErrCodeDuplicateOrder, ReasonDuplicateOrder,
		fmt.Sprintf("escrow transaction already exists for order %s", orderID))
}

// ErrEscrowNotFound 托管交易不存在。
func ErrEscrowNotFound(orderID string) *kerrors.Error {
	return kerrors.New(ErrCodeEscrowNotFound, ReasonNotFound,
		fmt.Sprintf("no escrow transaction for order %s", orderID))
}

// ErrPayoutNotFound 打款批次不存在。
func ErrPayoutNotFound(payoutID string) *kerrors.Error {
	return kerrors.New(ErrCodePayoutNotFound, ReasonNotFound,
		fmt.Sprintf("payout %s not found", payoutID))
}

// ErrInvalidState 非法状态流转。
func ErrInvalidState(entity, id, from, to string) *kerrors.Error {
	return kerrors.New(ErrCodeInvalidState, ReasonInvalidState,
		fmt.Sprintf("%s %s: illegal transition %s -> %s", entity, id, from, to))
}

// ErrPayoutInFlight 卖家已有进行中的打款批次。
func ErrPayoutInFlight(sellerID uint64) *kerrors.Error {
	return kerrors.New(ErrCodePayoutInFlight, ReasonPayoutInFlight,
		fmt.Sprintf("seller %d already has an in-flight payout", sellerID))
}

// ErrDuplicateEvent 外部支付事件已处理 (数据层唯一约束冲突的翻译结果)。
func ErrDuplicateEvent(externalEventID string) *kerrors.Error {
	return kerrors.New(ErrCodeDuplicateEvent, ReasonDuplicateEvent,
		fmt.Sprintf("external event %s already processed", externalEventID))
}

// ErrAuditWriteFailed 审计记录写入失败，触发该写入的财务变更必须一并失败。
func ErrAuditWriteFailed(detail string) *kerrors.Error {
	return kerrors.New(ErrCodeAuditWriteFailed, ReasonAuditWriteFailed, detail)
}

// IsReason 判断错误是否属于指定 Reason。
func IsReason(err error, reason string) bool {
	if err == nil {
		return false
	}
	return kerrors.Reason(err) == reason
}
