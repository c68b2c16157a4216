// Package ledger creates wallet transactions and moves them through their
// lifecycle, keeping the owning wallet's balance fields in step.
//
// Every mutation runs with the wallet row locked (SELECT ... FOR UPDATE), so
// two writers touching the same wallet serialize. Anything a decision depends on
// is read with a locking read after the wallet lock is granted: MySQL's default
// REPEATABLE READ would otherwise answer plain reads from a snapshot taken
// earlier in the transaction. Callers that need to combine several mutations
// into one unit use the *In variants with their own gorm transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rps_wallet/internal/domain"
)

// Entry describes a transaction to create
type Entry struct {
	Mode          domain.TxMode
	WalletID      uint
	InvoiceNo     string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	RecipientType domain.RecipientType
	Comment       string
	PayoutBatchID *string
}

// Result is the state left behind by a ledger mutation
type Result struct {
	Transaction *domain.Transaction
	Wallet      *domain.Wallet
	Changed     bool // false when SetStatus found the status already applied
}

// StatusOption adjusts a transaction as it transitions
type StatusOption func(*domain.Transaction)

// WithFee records the fee charged by the processor before the transition is applied
func WithFee(fee decimal.Decimal) StatusOption {
	return func(t *domain.Transaction) { t.Fee = fee }
}

// WithPayoutStatusURL stores where the payout status can be polled
func WithPayoutStatusURL(url string) StatusOption {
	return func(t *domain.Transaction) { t.PayoutStatusURL = url }
}

// Ledger owns wallet balance mutations
type Ledger struct {
	db *gorm.DB
}

// New creates a Ledger backed by db
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Create records a pending transaction and applies its pending-state deltas
func (l *Ledger) Create(ctx context.Context, e Entry) (*Result, error) {
	var res *Result
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := LockWallet(tx, e.WalletID)
		if err != nil {
			return err
		}
		t, err := l.CreateIn(tx, w, e)
		if err != nil {
			return err
		}
		res = &Result{Transaction: t, Wallet: w, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"transaction_id": res.Transaction.ID,
		"wallet_id":      e.WalletID,
		"mode":           e.Mode,
		"amount":         e.Amount.String(),
		"fee":            e.Fee.String(),
	}).Info("Transaction created")
	return res, nil
}

// CreateIn is Create inside an existing transaction. w must already be locked by tx.
func (l *Ledger) CreateIn(tx *gorm.DB, w *domain.Wallet, e Entry) (*domain.Transaction, error) {
	if e.Amount.IsNegative() || e.Fee.IsNegative() {
		return nil, domain.NewError(domain.KindValidation, "amount and fee must not be negative")
	}
	if e.WalletID != w.ID {
		return nil, domain.NewError(domain.KindConsistency, "entry does not belong to the locked wallet")
	}
	if err := applyPending(w, e.Mode, e.Amount, e.Fee); err != nil {
		return nil, err
	}
	t := &domain.Transaction{
		WalletID:      w.ID,
		Mode:          e.Mode,
		InvoiceNo:     e.InvoiceNo,
		RecipientType: e.RecipientType,
		Amount:        e.Amount,
		Fee:           e.Fee,
		Status:        domain.StatusPending,
		Comment:       e.Comment,
		PayoutBatchID: e.PayoutBatchID,
	}
	if err := tx.Create(t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.WrapError(domain.KindConflict, "duplicate transaction", err)
		}
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	if err := SaveWallet(tx, w); err != nil {
		return nil, err
	}
	return t, nil
}

// SetStatus moves a deposit or withdrawal to status. Repeating a status already
// applied is a no-op; leaving a terminal status is a conflict.
func (l *Ledger) SetStatus(ctx context.Context, txID uint, status domain.TxStatus, opts ...StatusOption) (*Result, error) {
	var res *Result
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = l.SetStatusIn(tx, txID, status, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		logrus.WithFields(logrus.Fields{
			"transaction_id": txID,
			"wallet_id":      res.Wallet.ID,
			"status":         status,
		}).Info("Transaction status changed")
	}
	return res, nil
}

// SetStatusIn is SetStatus inside an existing transaction
func (l *Ledger) SetStatusIn(tx *gorm.DB, txID uint, status domain.TxStatus, opts ...StatusOption) (*Result, error) {
	if !status.Valid() {
		return nil, domain.NewError(domain.KindValidation, "invalid status")
	}
	var t domain.Transaction
	if err := tx.First(&t, txID).Error; err != nil {
		return nil, notFound(err, "transaction not found")
	}
	if t.Mode == domain.ModeTransfer {
		return nil, domain.NewError(domain.KindValidation, "transfers are settled by their game")
	}
	w, err := LockWallet(tx, t.WalletID)
	if err != nil {
		return nil, err
	}
	// Re-read under lock: another writer may have moved it meanwhile.
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, txID).Error; err != nil {
		return nil, notFound(err, "transaction not found")
	}
	if t.Status == status {
		return &Result{Transaction: &t, Wallet: w}, nil
	}
	if t.Status.Terminal() {
		return nil, domain.NewError(domain.KindConflict, fmt.Sprintf("transaction already %s", t.Status))
	}
	for _, opt := range opts {
		opt(&t)
	}
	if t.Fee.IsNegative() {
		return nil, domain.NewError(domain.KindValidation, "fee must not be negative")
	}
	if err := applyTransition(w, t.Mode, status, t.Amount, t.Fee); err != nil {
		return nil, err
	}
	t.Status = status
	if err := tx.Model(&t).Select("status", "fee", "payout_status_url", "updated_at").Updates(&t).Error; err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if err := SaveWallet(tx, w); err != nil {
		return nil, err
	}
	return &Result{Transaction: &t, Wallet: w, Changed: true}, nil
}

// LockWallet loads a wallet and holds its row lock until tx ends
func LockWallet(tx *gorm.DB, walletID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, walletID).Error; err != nil {
		return nil, notFound(err, "wallet not found")
	}
	return &w, nil
}

// LockUserWallet is LockWallet keyed by the owning user
func LockUserWallet(tx *gorm.DB, userID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, notFound(err, "wallet not found")
	}
	return &w, nil
}

// LockUserWallets locks the wallets of several users in ascending wallet ID
// order, so concurrent multi-wallet operations cannot deadlock. The result is
// keyed by user ID. The ID lookup is a plain read; IDs never change and each
// row is re-read by LockWallet.
func LockUserWallets(tx *gorm.DB, userIDs ...uint) (map[uint]*domain.Wallet, error) {
	var ids []struct {
		ID     uint
		UserID uint
	}
	if err := tx.Model(&domain.Wallet{}).Select("id", "user_id").Where("user_id IN ?", userIDs).Find(&ids).Error; err != nil {
		return nil, fmt.Errorf("find wallets: %w", err)
	}
	if len(ids) != len(userIDs) {
		return nil, domain.NewError(domain.KindNotFound, "wallet not found")
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].ID < ids[j].ID })
	out := make(map[uint]*domain.Wallet, len(ids))
	for _, row := range ids {
		w, err := LockWallet(tx, row.ID)
		if err != nil {
			return nil, err
		}
		out[row.UserID] = w
	}
	return out, nil
}

// SaveWallet writes back the balance columns of a locked wallet
func SaveWallet(tx *gorm.DB, w *domain.Wallet) error {
	cols := append([]string{"updated_at"}, domain.BalanceColumns...)
	if err := tx.Model(w).Select(cols).Updates(w).Error; err != nil {
		return fmt.Errorf("update wallet %d: %w", w.ID, err)
	}
	return nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewError(domain.KindNotFound, msg)
	}
	return err
}
