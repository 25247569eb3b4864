package biz

import (
	"context"
	"io"
	"time"

	"xinyuan_tech/settlement-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// 内存仓库实现，测试专用。语义与数据层保持一致：
// 唯一约束冲突返回对应业务错误，状态守卫未命中返回 false。

type fakeTM struct{}

func (fakeTM) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memEscrowRepo struct {
	byOrder map[string]*EscrowTransaction
	byID    map[string]*EscrowTransaction
}

func newMemEscrowRepo() *memEscrowRepo {
	return &memEscrowRepo{
		byOrder: make(map[string]*EscrowTransaction),
		byID:    make(map[string]*EscrowTransaction),
	}
}

func (r *memEscrowRepo) CreateEscrowTransaction(ctx context.Context, tx *EscrowTransaction) error {
	if _, ok := r.byOrder[tx.OrderID]; ok {
		return errors.ErrDuplicateOrder(tx.OrderID)
	}
	cp := *tx
	r.byOrder[tx.OrderID] = &cp
	r.byID[tx.ID] = &cp
	return nil
}

func (r *memEscrowRepo) GetEscrowByOrderID(ctx context.Context, orderID string) (*EscrowTransaction, error) {
	e, ok := r.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *memEscrowRepo) ListDueHeld(ctx context.Context, now time.Time, limit int) ([]*EscrowTransaction, error) {
	var due []*EscrowTransaction
	for _, e := range r.byID {
		if e.Status == "held" && !e.HoldUntil.After(now) {
			cp := *e
			due = append(due, &cp)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (r *memEscrowRepo) TransitionEscrowStatus(ctx context.Context, id, from, to string, releasedAt *time.Time) (bool, error) {
	e, ok := r.byID[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	e.ReleasedAt = releasedAt
	e.UpdatedAt = time.Now().UTC()
	return true, nil
}

type memCommissionRepo struct {
	byOrder map[string]*Commission
}

func newMemCommissionRepo() *memCommissionRepo {
	return &memCommissionRepo{byOrder: make(map[string]*Commission)}
}

func (r *memCommissionRepo) CreateCommission(ctx context.Context, c *Commission) error {
	if _, ok := r.byOrder[c.OrderID]; ok {
		return errors.ErrDuplicateOrder(c.OrderID)
	}
	cp := *c
	r.byOrder[c.OrderID] = &cp
	return nil
}

func (r *memCommissionRepo) GetCommissionByOrderID(ctx context.Context, orderID string) (*Commission, error) {
	c, ok := r.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memCommissionRepo) MarkCommissionConfirmed(ctx context.Context, orderID string, confirmedAt time.Time) error {
	if c, ok := r.byOrder[orderID]; ok && c.Status == "pending" {
		c.Status = "confirmed"
		at := confirmedAt
		c.ConfirmedAt = &at
	}
	return nil
}

func (r *memCommissionRepo) MarkCommissionReversed(ctx context.Context, orderID string) error {
	if c, ok := r.byOrder[orderID]; ok {
		c.Status = "reversed"
	}
	return nil
}

func (r *memCommissionRepo) ListPayableSellers(ctx context.Context) ([]uint64, error) {
	seen := make(map[uint64]bool)
	var sellers []uint64
	for _, c := range r.byOrder {
		if c.Status == "confirmed" && !c.PaidOut && c.PayoutID == "" && !seen[c.SellerID] {
			seen[c.SellerID] = true
			sellers = append(sellers, c.SellerID)
		}
	}
	return sellers, nil
}

func (r *memCommissionRepo) ListPayableCommissions(ctx context.Context, sellerID uint64) ([]*Commission, error) {
	var out []*Commission
	for _, c := range r.byOrder {
		if c.SellerID == sellerID && c.Status == "confirmed" && !c.PaidOut && c.PayoutID == "" {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memCommissionRepo) AssignCommissionsToPayout(ctx context.Context, commissionIDs []string, payoutID string) error {
	ids := make(map[string]bool, len(commissionIDs))
	for _, id := range commissionIDs {
		ids[id] = true
	}
	for _, c := range r.byOrder {
		if ids[c.ID] {
			c.PaidOut = true
			c.PayoutID = payoutID
		}
	}
	return nil
}

func (r *memCommissionRepo) ReleaseCommissionsFromPayout(ctx context.Context, payoutID string) (int64, error) {
	var n int64
	for _, c := range r.byOrder {
		if c.PayoutID == payoutID {
			c.PaidOut = false
			c.PayoutID = ""
			n++
		}
	}
	return n, nil
}

func (r *memCommissionRepo) ListCommissionsByPayoutID(ctx context.Context, payoutID string) ([]*Commission, error) {
	var out []*Commission
	for _, c := range r.byOrder {
		if c.PayoutID == payoutID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memPayoutRepo struct {
	byID     map[string]*Payout
	inflight map[uint64]string
}

func newMemPayoutRepo() *memPayoutRepo {
	return &memPayoutRepo{
		byID:     make(map[string]*Payout),
		inflight: make(map[uint64]string),
	}
}

func (r *memPayoutRepo) CreatePayout(ctx context.Context, p *Payout) error {
	if _, ok := r.inflight[p.SellerID]; ok {
		return errors.ErrPayoutInFlight(p.SellerID)
	}
	cp := *p
	r.byID[p.ID] = &cp
	r.inflight[p.SellerID] = p.ID
	return nil
}

func (r *memPayoutRepo) GetPayout(ctx context.Context, id string) (*Payout, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPayoutRepo) HasInFlightPayout(ctx context.Context, sellerID uint64) (bool, error) {
	_, ok := r.inflight[sellerID]
	return ok, nil
}

func (r *memPayoutRepo) TransitionPayoutStatus(ctx context.Context, id, from, to string, completedAt *time.Time, failureReason string) (bool, error) {
	p, ok := r.byID[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.CompletedAt = completedAt
	p.FailureReason = failureReason
	if to == "completed" || to == "failed" {
		delete(r.inflight, p.SellerID)
	}
	return true, nil
}

func (r *memPayoutRepo) ListPayoutsBySeller(ctx context.Context, sellerID uint64, page, pageSize int) ([]*Payout, int, error) {
	var out []*Payout
	for _, p := range r.byID {
		if p.SellerID == sellerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

type memAuditRepo struct {
	entries []*AuditLogEntry
}

func (r *memAuditRepo) AppendAuditLog(ctx context.Context, entry *AuditLogEntry) error {
	cp := *entry
	cp.ID = uint64(len(r.entries) + 1)
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *memAuditRepo) ListAuditLog(ctx context.Context, entityType, entityID string, page, pageSize int) ([]*AuditLogEntry, int, error) {
	var out []*AuditLogEntry
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (r *memAuditRepo) PurgeAuditLogBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []*AuditLogEntry
	var purged int64
	for _, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			purged++
		} else {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return purged, nil
}

// entriesFor 统计某实体的审计条数
func (r *memAuditRepo) entriesFor(entityType, entityID string) int {
	n := 0
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			n++
		}
	}
	return n
}

type memReconRepo struct {
	byEventID map[string]*ReconciliationRecord
}

func newMemReconRepo() *memReconRepo {
	return &memReconRepo{byEventID: make(map[string]*ReconciliationRecord)}
}

func (r *memReconRepo) GetReconciliationRecord(ctx context.Context, externalEventID string) (*ReconciliationRecord, error) {
	rec, ok := r.byEventID[externalEventID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memReconRepo) CreateReconciliationRecord(ctx context.Context, record *ReconciliationRecord) error {
	if _, ok := r.byEventID[record.ExternalEventID]; ok {
		return errors.ErrDuplicateEvent(record.ExternalEventID)
	}
	cp := *record
	r.byEventID[record.ExternalEventID] = &cp
	return nil
}

type memSettingsRepo struct {
	values map[string]string
}

func (r *memSettingsRepo) GetSetting(ctx context.Context, key string) (string, bool, error) {
	v, ok := r.values[key]
	return v, ok, nil
}

// testFixture 组装好的用例和各内存仓库
type testFixture struct {
	uc         *SettlementUsecase
	escrow     *memEscrowRepo
	commission *memCommissionRepo
	payout     *memPayoutRepo
	audit      *memAuditRepo
	recon      *memReconRepo
	settings   *memSettingsRepo
}

// defaultTestSettings 常规在售配置
func defaultTestSettings() map[string]string {
	return map[string]string{
		"escrow_enabled":                 "true",
		"escrow_default_hold_days":       "7",
		"delivery_confirmation_required": "false",
		"global_commission_rate":         "0.10",
		"min_payout_amount":              "50",
		"payout_payment_method":          "bank_transfer",
		"currency_minor_units":           "2",
	}
}

func newTestFixture(settings map[string]string) *testFixture {
	logger := log.NewStdLogger(io.Discard)
	f := &testFixture{
		escrow:     newMemEscrowRepo(),
		commission: newMemCommissionRepo(),
		payout:     newMemPayoutRepo(),
		audit:      &memAuditRepo{},
		recon:      newMemReconRepo(),
		settings:   &memSettingsRepo{values: settings},
	}
	gate := NewSettingsGate(f.settings, logger)
	f.uc = NewSettlementUsecase(f.escrow, f.commission, f.payout, f.audit, f.recon, gate, fakeTM{}, nil, logger)
	return f
}
