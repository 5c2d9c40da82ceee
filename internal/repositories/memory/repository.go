// Package memory is an in-process LedgerRepository. Transactions are
// serialized behind one mutex and applied to a private copy of the state,
// which replaces the committed state only when the unit of work succeeds.
// It backs the service tests and the DB_DRIVER=memory development mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mealpay/internal/models"
	"mealpay/internal/repositories"

	"github.com/shopspring/decimal"
)

// FaultFunc is consulted before every write. A non-nil error is returned
// from the write as if storage had failed.
type FaultFunc func(op string) error

type Repository struct {
	mu    sync.Mutex
	state *state
	fault FaultFunc
}

func New() *Repository {
	return &Repository{state: newState()}
}

// SetFault installs a fault hook; nil removes it.
func (r *Repository) SetFault(fn FaultFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fault = fn
}

func (r *Repository) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := r.state.clone()
	if err := fn(&view{st: work, fault: r.fault}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.state = work
	return nil
}

// committed runs fn against the committed state outside any transaction.
func (r *Repository) committed(fn func(v *view) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&view{st: r.state, fault: r.fault})
}

func (r *Repository) Ping(ctx context.Context) error { return ctx.Err() }

func (r *Repository) CreateWallet(ctx context.Context, w *models.Wallet) error {
	return r.committed(func(v *view) error { return v.CreateWallet(ctx, w) })
}

func (r *Repository) GetWalletByUserID(ctx context.Context, userID string) (w *models.Wallet, err error) {
	err = r.committed(func(v *view) error { w, err = v.GetWalletByUserID(ctx, userID); return err })
	return w, err
}

func (r *Repository) GetWalletByUserIDForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.GetWalletByUserID(ctx, userID)
}

func (r *Repository) GetWalletByID(ctx context.Context, id string) (w *models.Wallet, err error) {
	err = r.committed(func(v *view) error { w, err = v.GetWalletByID(ctx, id); return err })
	return w, err
}

func (r *Repository) UpdateWallet(ctx context.Context, w *models.Wallet) error {
	return r.committed(func(v *view) error { return v.UpdateWallet(ctx, w) })
}

func (r *Repository) ListWallets(ctx context.Context, q repositories.WalletQuery) (ws []models.Wallet, total int64, err error) {
	err = r.committed(func(v *view) error { ws, total, err = v.ListWallets(ctx, q); return err })
	return ws, total, err
}

func (r *Repository) CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	return r.committed(func(v *view) error { return v.CreateTransaction(ctx, tx) })
}

func (r *Repository) FinalizeTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	return r.committed(func(v *view) error { return v.FinalizeTransaction(ctx, tx) })
}

func (r *Repository) GetTransactionByID(ctx context.Context, id string) (tx *models.WalletTransaction, err error) {
	err = r.committed(func(v *view) error { tx, err = v.GetTransactionByID(ctx, id); return err })
	return tx, err
}

func (r *Repository) GetTransactionByReference(ctx context.Context, walletID string, ref models.Reference) (tx *models.WalletTransaction, err error) {
	err = r.committed(func(v *view) error { tx, err = v.GetTransactionByReference(ctx, walletID, ref); return err })
	return tx, err
}

func (r *Repository) ListTransactions(ctx context.Context, q repositories.TransactionQuery) (txs []models.WalletTransaction, total int64, err error) {
	err = r.committed(func(v *view) error { txs, total, err = v.ListTransactions(ctx, q); return err })
	return txs, total, err
}

func (r *Repository) SumCompleted(ctx context.Context, walletID string) (t repositories.LedgerTotals, err error) {
	err = r.committed(func(v *view) error { t, err = v.SumCompleted(ctx, walletID); return err })
	return t, err
}

func (r *Repository) UnbalancedTransfers(ctx context.Context) (ids []string, err error) {
	err = r.committed(func(v *view) error { ids, err = v.UnbalancedTransfers(ctx); return err })
	return ids, err
}

func (r *Repository) CreateSettlement(ctx context.Context, s *models.DeliverySettlement) error {
	return r.committed(func(v *view) error { return v.CreateSettlement(ctx, s) })
}

func (r *Repository) GetSettlementByDeliveryOrderID(ctx context.Context, id string) (s *models.DeliverySettlement, err error) {
	err = r.committed(func(v *view) error { s, err = v.GetSettlementByDeliveryOrderID(ctx, id); return err })
	return s, err
}

func (r *Repository) ListSettlements(ctx context.Context, q repositories.SettlementQuery) (ss []models.DeliverySettlement, total int64, err error) {
	err = r.committed(func(v *view) error { ss, total, err = v.ListSettlements(ctx, q); return err })
	return ss, total, err
}

func (r *Repository) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	return r.committed(func(v *view) error { return v.CreateWithdrawal(ctx, req) })
}

func (r *Repository) GetWithdrawalByID(ctx context.Context, id string) (req *models.WithdrawalRequest, err error) {
	err = r.committed(func(v *view) error { req, err = v.GetWithdrawalByID(ctx, id); return err })
	return req, err
}

func (r *Repository) GetWithdrawalByIDForUpdate(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	return r.GetWithdrawalByID(ctx, id)
}

func (r *Repository) FinalizeWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	return r.committed(func(v *view) error { return v.FinalizeWithdrawal(ctx, req) })
}

func (r *Repository) ListWithdrawals(ctx context.Context, q repositories.WithdrawalQuery) (reqs []models.WithdrawalRequest, total int64, err error) {
	err = r.committed(func(v *view) error { reqs, total, err = v.ListWithdrawals(ctx, q); return err })
	return reqs, total, err
}

func (r *Repository) CountPendingWithdrawals(ctx context.Context, userID string) (n int64, err error) {
	err = r.committed(func(v *view) error { n, err = v.CountPendingWithdrawals(ctx, userID); return err })
	return n, err
}

type state struct {
	seq          int64
	wallets      map[string]models.Wallet
	walletByUser map[string]string
	transactions map[string]models.WalletTransaction
	txSeq        map[string]int64
	settlements  map[string]models.DeliverySettlement
	withdrawals  map[string]models.WithdrawalRequest
	wdSeq        map[string]int64
}

func newState() *state {
	return &state{
		wallets:      map[string]models.Wallet{},
		walletByUser: map[string]string{},
		transactions: map[string]models.WalletTransaction{},
		txSeq:        map[string]int64{},
		settlements:  map[string]models.DeliverySettlement{},
		withdrawals:  map[string]models.WithdrawalRequest{},
		wdSeq:        map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.walletByUser {
		c.walletByUser[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.txSeq {
		c.txSeq[k] = v
	}
	for k, v := range s.settlements {
		c.settlements[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range s.wdSeq {
		c.wdSeq[k] = v
	}
	return c
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

// view applies repository operations to one state snapshot.
type view struct {
	st    *state
	fault FaultFunc
}

func (v *view) write(op string) error {
	if v.fault != nil {
		return v.fault(op)
	}
	return nil
}

func (v *view) ExecuteInTransaction(ctx context.Context, fn func(repositories.LedgerRepository) error) error {
	return fn(v)
}

func (v *view) Ping(ctx context.Context) error { return nil }

func (v *view) CreateWallet(ctx context.Context, w *models.Wallet) error {
	if err := v.write("CreateWallet"); err != nil {
		return err
	}
	if _, exists := v.st.walletByUser[w.UserID]; exists {
		return repositories.ErrDuplicateWallet
	}
	if w.ID == "" {
		w.ID = models.NewID()
	}
	if w.Version == 0 {
		w.Version = 1
	}
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	v.st.wallets[w.ID] = *w
	v.st.walletByUser[w.UserID] = w.ID
	return nil
}

func (v *view) GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	id, ok := v.st.walletByUser[userID]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return v.GetWalletByID(ctx, id)
}

func (v *view) GetWalletByUserIDForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	return v.GetWalletByUserID(ctx, userID)
}

func (v *view) GetWalletByID(ctx context.Context, id string) (*models.Wallet, error) {
	w, ok := v.st.wallets[id]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return &w, nil
}

func (v *view) UpdateWallet(ctx context.Context, w *models.Wallet) error {
	if err := v.write("UpdateWallet"); err != nil {
		return err
	}
	stored, ok := v.st.wallets[w.ID]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	if stored.Version != w.Version {
		return repositories.ErrVersionConflict
	}
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	v.st.wallets[w.ID] = *w
	return nil
}

func (v *view) ListWallets(ctx context.Context, q repositories.WalletQuery) ([]models.Wallet, int64, error) {
	var out []models.Wallet
	for _, w := range v.st.wallets {
		if q.Role != "" && w.Role != q.Role {
			continue
		}
		if q.Status != "" && w.Status != q.Status {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	total := int64(len(out))
	return page(out, q.Limit, q.Offset), total, nil
}

func (v *view) CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if err := v.write("CreateTransaction"); err != nil {
		return err
	}
	if tx.ID == "" {
		tx.ID = models.NewID()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	v.st.transactions[tx.ID] = *tx
	v.st.txSeq[tx.ID] = v.st.next()
	return nil
}

func (v *view) FinalizeTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if err := v.write("FinalizeTransaction"); err != nil {
		return err
	}
	stored, ok := v.st.transactions[tx.ID]
	if !ok || stored.Status != models.TransactionPending {
		return repositories.ErrVersionConflict
	}
	stored.Status = tx.Status
	stored.ApprovalStatus = tx.ApprovalStatus
	stored.BalanceAfter = tx.BalanceAfter
	stored.Description = tx.Description
	stored.ApprovedBy = tx.ApprovedBy
	stored.ProcessedAt = tx.ProcessedAt
	stored.UpdatedAt = time.Now().UTC()
	tx.UpdatedAt = stored.UpdatedAt
	v.st.transactions[tx.ID] = stored
	return nil
}

func (v *view) GetTransactionByID(ctx context.Context, id string) (*models.WalletTransaction, error) {
	tx, ok := v.st.transactions[id]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	return &tx, nil
}

func (v *view) GetTransactionByReference(ctx context.Context, walletID string, ref models.Reference) (*models.WalletTransaction, error) {
	var (
		found   *models.WalletTransaction
		bestSeq int64
	)
	for id, tx := range v.st.transactions {
		if tx.WalletID != walletID || tx.Reference != ref {
			continue
		}
		if seq := v.st.txSeq[id]; found == nil || seq > bestSeq {
			tx := tx
			found, bestSeq = &tx, seq
		}
	}
	if found == nil {
		return nil, repositories.ErrTransactionNotFound
	}
	return found, nil
}

func (v *view) ListTransactions(ctx context.Context, q repositories.TransactionQuery) ([]models.WalletTransaction, int64, error) {
	var out []models.WalletTransaction
	for _, tx := range v.st.transactions {
		if q.UserID != "" && tx.UserID != q.UserID {
			continue
		}
		if q.Category != "" && tx.Category != q.Category {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		return v.st.txSeq[out[i].ID] > v.st.txSeq[out[j].ID]
	})
	total := int64(len(out))
	return page(out, q.Limit, q.Offset), total, nil
}

func (v *view) SumCompleted(ctx context.Context, walletID string) (repositories.LedgerTotals, error) {
	totals := repositories.LedgerTotals{Credits: decimal.Zero, Debits: decimal.Zero}
	for _, tx := range v.st.transactions {
		if tx.WalletID != walletID || tx.Status != models.TransactionCompleted {
			continue
		}
		if tx.Type == models.EntryCredit {
			totals.Credits = totals.Credits.Add(tx.Amount)
		} else {
			totals.Debits = totals.Debits.Add(tx.Amount)
		}
	}
	return totals, nil
}

func (v *view) UnbalancedTransfers(ctx context.Context) ([]string, error) {
	type group struct {
		legs int
		net  decimal.Decimal
	}
	groups := map[string]*group{}
	for _, tx := range v.st.transactions {
		if tx.TransferID == "" || tx.Status != models.TransactionCompleted {
			continue
		}
		g, ok := groups[tx.TransferID]
		if !ok {
			g = &group{net: decimal.Zero}
			groups[tx.TransferID] = g
		}
		g.legs++
		g.net = g.net.Add(tx.SignedAmount())
	}
	var ids []string
	for id, g := range groups {
		if g.legs != 2 || !g.net.IsZero() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (v *view) CreateSettlement(ctx context.Context, s *models.DeliverySettlement) error {
	if err := v.write("CreateSettlement"); err != nil {
		return err
	}
	if _, exists := v.st.settlements[s.DeliveryOrderID]; exists {
		return repositories.ErrDuplicateSettlement
	}
	if s.ID == "" {
		s.ID = models.NewID()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	v.st.settlements[s.DeliveryOrderID] = *s
	return nil
}

func (v *view) GetSettlementByDeliveryOrderID(ctx context.Context, id string) (*models.DeliverySettlement, error) {
	s, ok := v.st.settlements[id]
	if !ok {
		return nil, repositories.ErrSettlementNotFound
	}
	return &s, nil
}

func (v *view) ListSettlements(ctx context.Context, q repositories.SettlementQuery) ([]models.DeliverySettlement, int64, error) {
	var out []models.DeliverySettlement
	for _, s := range v.st.settlements {
		if q.ProviderID != "" && s.ProviderID != q.ProviderID {
			continue
		}
		if q.From != nil && s.DeliveryDate.Before(*q.From) {
			continue
		}
		if q.To != nil && !s.DeliveryDate.Before(*q.To) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeliveryDate.Equal(out[j].DeliveryDate) {
			return out[i].DeliveryDate.Before(out[j].DeliveryDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	total := int64(len(out))
	return page(out, q.Limit, q.Offset), total, nil
}

func (v *view) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	if err := v.write("CreateWithdrawal"); err != nil {
		return err
	}
	if req.ID == "" {
		req.ID = models.NewID()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	v.st.withdrawals[req.ID] = *req
	v.st.wdSeq[req.ID] = v.st.next()
	return nil
}

func (v *view) GetWithdrawalByID(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	req, ok := v.st.withdrawals[id]
	if !ok {
		return nil, repositories.ErrWithdrawalNotFound
	}
	return &req, nil
}

func (v *view) GetWithdrawalByIDForUpdate(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	return v.GetWithdrawalByID(ctx, id)
}

func (v *view) FinalizeWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	if err := v.write("FinalizeWithdrawal"); err != nil {
		return err
	}
	stored, ok := v.st.withdrawals[req.ID]
	if !ok || stored.Status != models.WithdrawalPending {
		return repositories.ErrVersionConflict
	}
	req.UpdatedAt = time.Now().UTC()
	v.st.withdrawals[req.ID] = *req
	return nil
}

func (v *view) ListWithdrawals(ctx context.Context, q repositories.WithdrawalQuery) ([]models.WithdrawalRequest, int64, error) {
	var out []models.WithdrawalRequest
	for _, req := range v.st.withdrawals {
		if q.UserID != "" && req.UserID != q.UserID {
			continue
		}
		if q.Status != "" && req.Status != q.Status {
			continue
		}
		if q.Role != "" && req.Role != q.Role {
			continue
		}
		if q.From != nil && req.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && !req.CreatedAt.Before(*q.To) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		return v.st.wdSeq[out[i].ID] > v.st.wdSeq[out[j].ID]
	})
	total := int64(len(out))
	return page(out, q.Limit, q.Offset), total, nil
}

func (v *view) CountPendingWithdrawals(ctx context.Context, userID string) (int64, error) {
	var n int64
	for _, req := range v.st.withdrawals {
		if req.UserID == userID && req.Status == models.WithdrawalPending {
			n++
		}
	}
	return n, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ repositories.LedgerRepository = (*Repository)(nil)
var _ repositories.LedgerRepository = (*view)(nil)
