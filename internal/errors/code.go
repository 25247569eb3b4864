package errors

// 结算服务错误码定义
// 错误码格式：SSMMEE (6位数字)，其中 SS=14 表示 settlement-service
// 模块划分：
//   01: 配置门禁模块
//   02: 佣金模块
//   03: 托管账本模块
//   04: 打款模块
//   05: 对账模块
//   06: 审计模块

// 配置门禁模块 (140100-140199)
const (
	// ErrCodeSettingsBlocked 必需财务配置缺失或非法，操作被拒绝
	ErrCodeSettingsBlocked = 140101
)

// 佣金模块 (140200-140299)
const (
	// ErrCodeInvalidInput 金额或费率非法错误
	ErrCodeInvalidInput = 140201
	// ErrCodeCommissionNotFound 佣金记录不存在错误
	ErrCodeCommissionNotFound = 140202
)

// 托管账本模块 (140300-140399)
const (
	// ErrCodeDuplicateOrder 订单已存在托管交易错误
	ErrCodeDuplicateOrder = 140301
	// ErrCodeEscrowNotFound 托管交易不存在错误
	ErrCodeEscrowNotFound = 140302
	// ErrCodeInvalidState 非法状态流转错误
	ErrCodeInvalidState = 140303
)

// 打款模块 (140400-140499)
const (
	// ErrCodePayoutNotFound 打款批次不存在错误
	ErrCodePayoutNotFound = 140401
	// ErrCodePayoutInFlight 卖家已有进行中的打款批次错误
	ErrCodePayoutInFlight = 140402
)

// 对账模块 (140500-140599)
const (
	// ErrCodeDuplicateEvent 外部支付事件已处理错误 (内部用于识别重放)
	ErrCodeDuplicateEvent = 140501
)

// 审计模块 (140600-140699)
const (
	// ErrCodeAuditWriteFailed 审计记录写入失败错误
	ErrCodeAuditWriteFailed = 140601
)
