package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"rps_wallet/internal/domain"
	"rps_wallet/internal/testutil"
)

type LedgerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	ledger *Ledger
	wallet *domain.Wallet
	ctx    context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) SetupTest() {
	s.db = testutil.OpenDB(s.T())
	s.ledger = New(s.db)
	_, s.wallet = testutil.CreatePlayer(s.T(), s.db, "alice", 200)
	s.ctx = context.Background()
}

func (s *LedgerTestSuite) withdrawal(amount, fee string) *domain.Transaction {
	res, err := s.ledger.Create(s.ctx, Entry{
		Mode:          domain.ModeWithdrawal,
		WalletID:      s.wallet.ID,
		InvoiceNo:     "inv-1",
		Amount:        testutil.Dec(amount),
		Fee:           testutil.Dec(fee),
		RecipientType: domain.RecipientExternal,
	})
	s.Require().NoError(err)
	return res.Transaction
}

func (s *LedgerTestSuite) TestCreateWithdrawalAppliesPendingDeltas() {
	tx := s.withdrawal("50", "10")

	s.Equal(domain.StatusPending, tx.Status)
	w := testutil.ReloadWallet(s.T(), s.db, s.wallet.ID)
	s.Equal(snapshot{"200", "0", "60", "0", "140"}, snap(w))

	var history []domain.Transaction
	s.Require().NoError(s.db.Model(w).Association("Transactions").Find(&history))
	s.Len(history, 1)
	s.Equal(tx.ID, history[0].ID)
}

func (s *LedgerTestSuite) TestWithdrawalSuccessIsIdempotent() {
	tx := s.withdrawal("50", "10")

	res, err := s.ledger.SetStatus(s.ctx, tx.ID, domain.StatusSuccess)
	s.Require().NoError(err)
	s.True(res.Changed)

	res, err = s.ledger.SetStatus(s.ctx, tx.ID, domain.StatusSuccess)
	s.Require().NoError(err)
	s.False(res.Changed)

	w := testutil.ReloadWallet(s.T(), s.db, s.wallet.ID)
	s.Equal(snapshot{"140", "0", "0", "0", "140"}, snap(w))
}

func (s *LedgerTestSuite) TestWithdrawalFailureReverts() {
	tx := s.withdrawal("50", "10")

	_, err := s.ledger.SetStatus(s.ctx, tx.ID, domain.StatusFailed)
	s.Require().NoError(err)

	w := testutil.ReloadWallet(s.T(), s.db, s.wallet.ID)
	s.Equal(snapshot{"200", "0", "0", "0", "200"}, snap(w))
}

func (s *LedgerTestSuite) TestTerminalStatusCannotChange() {
	tx := s.withdrawal("50", "10")
	_, err := s.ledger.SetStatus(s.ctx, tx.ID, domain.StatusSuccess)
	s.Require().NoError(err)

	_, err = s.ledger.SetStatus(s.ctx, tx.ID, domain.StatusFailed)
	s.True(domain.IsKind(err, domain.KindConflict))

	w := testutil.ReloadWallet(s.T(), s.db, s.wallet.ID)
	s.Equal(snapshot{"140", "0", "0", "0", "140"}, snap(w))
}

func (s *LedgerTestSuite) TestDepositSuccessRecordsFee() {
	res, err := s.ledger.Create(s.ctx, Entry{
		Mode:          domain.ModeDeposit,
		WalletID:      s.wallet.ID,
		InvoiceNo:     "PAY-1",
		Amount:        testutil.Dec("100"),
		RecipientType: domain.RecipientExternal,
	})
	s.Require().NoError(err)

	res, err = s.ledger.SetStatus(s.ctx, res.Transaction.ID, domain.StatusSuccess, WithFee(testutil.Dec("3.5")))
	s.Require().NoError(err)
	s.Equal("3.5", res.Transaction.Fee.String())

	w := testutil.ReloadWallet(s.T(), s.db, s.wallet.ID)
	s.Equal(snapshot{"296.5", "0", "0", "0", "296.5"}, snap(w))
}

func (s *LedgerTestSuite) TestInsufficientBalanceLeavesNoTrace() {
	_, err := s.ledger.Create(s.ctx, Entry{
		Mode:          domain.ModeWithdrawal,
		WalletID:      s.wallet.ID,
		Amount:        testutil.Dec("195"),
		Fee:           testutil.Dec("10"),
		RecipientType: domain.RecipientExternal,
	})
	s.True(domain.IsKind(err, domain.KindInsufficientBalance))

	var count int64
	s.Require().NoError(s.db.Model(&domain.Transaction{}).Count(&count).Error)
	s.Zero(count)
}

func (s *LedgerTestSuite) TestNegativeAmountRejected() {
	_, err := s.ledger.Create(s.ctx, Entry{
		Mode:     domain.ModeDeposit,
		WalletID: s.wallet.ID,
		Amount:   testutil.Dec("-1"),
	})
	s.True(domain.IsKind(err, domain.KindValidation))
}

func (s *LedgerTestSuite) TestMissingWalletIsNotFound() {
	_, err := s.ledger.Create(s.ctx, Entry{Mode: domain.ModeDeposit, WalletID: 9999, Amount: testutil.Dec("1")})
	s.True(domain.IsKind(err, domain.KindNotFound))

	orphan := domain.Transaction{
		WalletID:      9999,
		Mode:          domain.ModeDeposit,
		Amount:        testutil.Dec("1"),
		RecipientType: domain.RecipientExternal,
		Status:        domain.StatusPending,
	}
	s.Require().NoError(s.db.Create(&orphan).Error)

	_, err = s.ledger.SetStatus(s.ctx, orphan.ID, domain.StatusSuccess)
	s.True(domain.IsKind(err, domain.KindNotFound))
}

func (s *LedgerTestSuite) TestTransferStatusIsRejected() {
	res, err := s.ledger.Create(s.ctx, Entry{
		Mode:          domain.ModeTransfer,
		WalletID:      s.wallet.ID,
		InvoiceNo:     "1",
		Amount:        testutil.Dec("30"),
		RecipientType: domain.RecipientUser,
	})
	s.Require().NoError(err)

	_, err = s.ledger.SetStatus(s.ctx, res.Transaction.ID, domain.StatusSuccess)
	s.True(domain.IsKind(err, domain.KindValidation))
}

func (s *LedgerTestSuite) TestLockUserWalletsKeyedByUser() {
	bob, bobWallet := testutil.CreatePlayer(s.T(), s.db, "bob", 10)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		wallets, err := LockUserWallets(tx, bob.ID, s.wallet.UserID)
		s.Require().NoError(err)
		s.Equal(bobWallet.ID, wallets[bob.ID].ID)
		s.Equal(s.wallet.ID, wallets[s.wallet.UserID].ID)

		_, err = LockUserWallets(tx, bob.ID, 4242)
		s.True(domain.IsKind(err, domain.KindNotFound))
		return nil
	})
	s.NoError(err)
}
