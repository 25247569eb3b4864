package biz

import (
	"context"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewSettingsGate,
	NewSettlementUsecase,
)

// Transaction 事务执行接口，由 data 层实现。
// 每个财务变更及其审计记录必须在同一事务内落库，杜绝部分写入。
type Transaction interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}
