package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// SettlementUsecase 结算引擎业务逻辑。
// 覆盖托管账本、佣金分账、打款归集、外部事件对账与审计留痕，
// 入口包括支付网关回调、物流确认事件、定时任务和管理后台操作。
type SettlementUsecase struct {
	escrowRepo     EscrowRepo
	commissionRepo CommissionRepo
	payoutRepo     PayoutRepo
	auditRepo      AuditRepo
	reconRepo      ReconciliationRepo
	gate           *SettingsGate
	tm             Transaction
	rs             *redsync.Redsync
	log            *log.Helper
}

// NewSettlementUsecase 创建结算业务用例
func NewSettlementUsecase(
	escrowRepo EscrowRepo,
	commissionRepo CommissionRepo,
	payoutRepo PayoutRepo,
	auditRepo AuditRepo,
	reconRepo ReconciliationRepo,
	gate *SettingsGate,
	tm Transaction,
	rs *redsync.Redsync,
	logger log.Logger,
) *SettlementUsecase {
	return &SettlementUsecase{
		escrowRepo:     escrowRepo,
		commissionRepo: commissionRepo,
		payoutRepo:     payoutRepo,
		auditRepo:      auditRepo,
		reconRepo:      reconRepo,
		gate:           gate,
		tm:             tm,
		rs:             rs,
		log:            log.NewHelper(logger),
	}
}

// withTransaction 执行事务
func (uc *SettlementUsecase) withTransaction(ctx context.Context, fn func(context.Context) error) error {
	return uc.tm.Exec(ctx, fn)
}
