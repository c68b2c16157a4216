// Package cashier moves money between wallets and the payment processor:
// deposits through an approve-and-execute flow and withdrawals through payouts.
package cashier

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rps_wallet/internal/domain"
	"rps_wallet/internal/ledger"
	"rps_wallet/internal/notify"
	"rps_wallet/internal/payment"
)

// Config holds the cashier's money settings
type Config struct {
	Currency      string
	WithdrawalFee decimal.Decimal
}

// Cashier runs deposits and withdrawals
type Cashier struct {
	db        *gorm.DB
	ledger    *ledger.Ledger
	processor payment.Processor
	cfg       Config
	events    notify.Publisher
}

// New creates a Cashier. A nil publisher discards events.
func New(db *gorm.DB, l *ledger.Ledger, p payment.Processor, cfg Config, events notify.Publisher) *Cashier {
	if events == nil {
		events = notify.Discard{}
	}
	return &Cashier{db: db, ledger: l, processor: p, cfg: cfg, events: events}
}

// DepositResult carries the pending transaction and where the payer approves it
type DepositResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	PaymentID   string              `json:"payment_id"`
	ApprovalURL string              `json:"approval_url"`
	Links       []payment.Link      `json:"links"`
}

// Deposit opens a payment with the processor and records it as a pending deposit
func (c *Cashier) Deposit(ctx context.Context, userID uint, amount decimal.Decimal, comment string) (*DepositResult, error) {
	if err := domain.ValidateAmount(amount, "amount"); err != nil {
		return nil, err
	}
	w, err := c.wallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := c.processor.CreatePayment(ctx, amount, w.Currency)
	if err != nil {
		return nil, err
	}

	res, err := c.ledger.Create(ctx, ledger.Entry{
		Mode:          domain.ModeDeposit,
		WalletID:      w.ID,
		InvoiceNo:     p.ID,
		Amount:        amount,
		RecipientType: domain.RecipientExternal,
		Comment:       comment,
	})
	if err != nil {
		return nil, err
	}
	c.publish(userID, res)
	return &DepositResult{Transaction: res.Transaction, PaymentID: p.ID, ApprovalURL: p.ApprovalURL(), Links: p.Links}, nil
}

// ConfirmDeposit executes an approved payment, records the processor fee and
// the payer's email, and settles the deposit. Confirming twice is harmless.
func (c *Cashier) ConfirmDeposit(ctx context.Context, paymentID, payerID string) (*domain.Transaction, error) {
	t, err := c.depositByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.StatusPending {
		return t, nil
	}

	exec, err := c.processor.ExecutePayment(ctx, paymentID, payerID)
	if err != nil {
		return nil, err
	}

	var res *ledger.Result
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, err = c.ledger.SetStatusIn(tx, t.ID, domain.StatusSuccess, ledger.WithFee(exec.Fee))
		if err != nil {
			return err
		}
		w := res.Wallet
		if w.PayerEmailAddress == nil || *w.PayerEmailAddress != exec.PayerEmail {
			email := exec.PayerEmail
			w.PayerEmailAddress = &email
			return tx.Model(w).Update("payer_email_address", email).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": res.Transaction.ID,
		"payment_id":     paymentID,
		"fee":            exec.Fee.String(),
	}).Info("Deposit confirmed")
	c.publish(res.Wallet.UserID, res)
	return res.Transaction, nil
}

// CancelDeposit fails a deposit the payer abandoned. The processor is asked
// first: a payment it reports as approved is never cancelled here.
func (c *Cashier) CancelDeposit(ctx context.Context, paymentID string) (*domain.Transaction, error) {
	t, err := c.depositByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.StatusPending {
		state, err := c.processor.GetPaymentState(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if state == payment.PaymentApproved {
			return nil, domain.NewError(domain.KindConflict, "payment already approved")
		}
	}
	res, err := c.ledger.SetStatus(ctx, t.ID, domain.StatusFailed)
	if err != nil {
		return nil, err
	}
	c.publish(res.Wallet.UserID, res)
	return res.Transaction, nil
}

// Withdraw reserves amount plus the withdrawal fee and pays amount out to the
// wallet's payer email. The payout is submitted once, keyed by a batch ID
// stored on the transaction. A definitive rejection fails the withdrawal; an
// ambiguous failure leaves it pending for reconciliation.
func (c *Cashier) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal, comment string) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(amount, "amount"); err != nil {
		return nil, err
	}
	w, err := c.wallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.PayerEmailAddress == nil || *w.PayerEmailAddress == "" {
		return nil, domain.NewError(domain.KindValidation, "no payout destination on file, complete a deposit first")
	}

	batchID := uuid.NewString()
	res, err := c.ledger.Create(ctx, ledger.Entry{
		Mode:          domain.ModeWithdrawal,
		WalletID:      w.ID,
		InvoiceNo:     batchID,
		Amount:        amount,
		Fee:           c.cfg.WithdrawalFee,
		RecipientType: domain.RecipientExternal,
		Comment:       comment,
		PayoutBatchID: &batchID,
	})
	if err != nil {
		return nil, err
	}
	c.publish(userID, res)
	t := res.Transaction

	statusURL, err := c.processor.SendPayout(ctx, batchID, amount, w.Currency, *w.PayerEmailAddress)
	if err != nil {
		var apiErr *payment.APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			failed, ferr := c.ledger.SetStatus(ctx, t.ID, domain.StatusFailed)
			if ferr != nil {
				return nil, errors.Join(err, ferr)
			}
			c.publish(userID, failed)
			return failed.Transaction, err
		}
		logrus.WithFields(logrus.Fields{
			"transaction_id": t.ID,
			"batch_id":       batchID,
			"error":          err.Error(),
		}).Error("Payout outcome unknown, left pending for manual review")
		return t, err
	}

	if err := c.db.WithContext(ctx).Model(t).Update("payout_status_url", statusURL).Error; err != nil {
		return nil, fmt.Errorf("store payout status url: %w", err)
	}
	t.PayoutStatusURL = statusURL

	logrus.WithFields(logrus.Fields{
		"transaction_id": t.ID,
		"batch_id":       batchID,
		"amount":         amount.String(),
		"fee":            c.cfg.WithdrawalFee.String(),
	}).Info("Payout sent")

	settled, err := c.reconcile(ctx, t)
	if err != nil {
		// The poller will retry; the withdrawal itself was accepted.
		logrus.WithField("transaction_id", t.ID).WithError(err).Warn("Payout status not yet known")
		return t, nil
	}
	return settled, nil
}

// ReconcilePayouts polls every pending withdrawal with a known status URL and
// settles those the processor has finished. It returns how many were settled.
func (c *Cashier) ReconcilePayouts(ctx context.Context) (int, error) {
	var pending []domain.Transaction
	if err := c.db.WithContext(ctx).
		Where("mode = ? AND status = ? AND payout_status_url <> ''", domain.ModeWithdrawal, domain.StatusPending).
		Order("id").
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("load pending payouts: %w", err)
	}

	settled := 0
	var errs []error
	for i := range pending {
		t, err := c.reconcile(ctx, &pending[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if t.Status != domain.StatusPending {
			settled++
		}
	}
	return settled, errors.Join(errs...)
}

// reconcile maps the processor's batch status onto the withdrawal
func (c *Cashier) reconcile(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	status, err := c.processor.GetPayoutStatus(ctx, t.PayoutStatusURL)
	if err != nil {
		return nil, err
	}
	target := PayoutOutcome(status)
	if target == domain.StatusPending {
		return t, nil
	}
	res, err := c.ledger.SetStatus(ctx, t.ID, target)
	if err != nil {
		return nil, err
	}
	c.publish(res.Wallet.UserID, res)
	return res.Transaction, nil
}

// PayoutOutcome maps a processor batch status to a transaction status
func PayoutOutcome(batchStatus string) domain.TxStatus {
	switch batchStatus {
	case payment.PayoutSuccess:
		return domain.StatusSuccess
	case payment.PayoutDenied, payment.PayoutFailed, payment.PayoutCanceled, payment.PayoutReturned, payment.PayoutBlocked:
		return domain.StatusFailed
	default:
		return domain.StatusPending
	}
}

func (c *Cashier) wallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "wallet not found")
		}
		return nil, err
	}
	return &w, nil
}

func (c *Cashier) depositByPayment(ctx context.Context, paymentID string) (*domain.Transaction, error) {
	if paymentID == "" {
		return nil, domain.NewError(domain.KindValidation, "paymentId is required")
	}
	var t domain.Transaction
	err := c.db.WithContext(ctx).
		Where("invoice_no = ? AND mode = ?", paymentID, domain.ModeDeposit).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "transaction not found")
		}
		return nil, err
	}
	return &t, nil
}

func (c *Cashier) publish(userID uint, res *ledger.Result) {
	c.events.Publish(notify.Event{Type: notify.EventTransactionUpdate, UserID: userID, Data: res.Transaction})
	c.events.Publish(notify.Event{Type: notify.EventWalletUpdate, UserID: userID, Data: res.Wallet})
}
