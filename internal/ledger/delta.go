package ledger

import (
	"github.com/shopspring/decimal"

	"rps_wallet/internal/domain"
)

// applyPending adjusts w for a transaction entering the pending state.
func applyPending(w *domain.Wallet, mode domain.TxMode, amount, fee decimal.Decimal) error {
	switch mode {
	case domain.ModeDeposit:
		w.Balance = w.Balance.Add(amount)
		w.PendingDeposit = w.PendingDeposit.Add(amount)
	case domain.ModeWithdrawal:
		total := amount.Add(fee)
		if w.AvailableBalance.LessThan(total) {
			return domain.NewError(domain.KindInsufficientBalance, "insufficient balance")
		}
		w.PendingWithdrawal = w.PendingWithdrawal.Add(total)
		w.AvailableBalance = w.AvailableBalance.Sub(total)
	case domain.ModeTransfer:
		if w.AvailableBalance.LessThan(amount) {
			return domain.NewError(domain.KindInsufficientBalance, "insufficient balance")
		}
		w.PendingTransactions = w.PendingTransactions.Add(amount)
		w.AvailableBalance = w.AvailableBalance.Sub(amount)
	default:
		return domain.NewError(domain.KindValidation, "unknown transaction mode")
	}
	return nil
}

// applyTransition adjusts w for a pending deposit or withdrawal reaching a terminal status.
// Transfers settle through games and are rejected here.
func applyTransition(w *domain.Wallet, mode domain.TxMode, to domain.TxStatus, amount, fee decimal.Decimal) error {
	switch mode {
	case domain.ModeDeposit:
		switch to {
		case domain.StatusSuccess:
			w.Balance = w.Balance.Sub(fee)
			w.PendingDeposit = w.PendingDeposit.Sub(amount)
			w.AvailableBalance = w.AvailableBalance.Add(amount.Sub(fee))
		case domain.StatusFailed:
			w.Balance = w.Balance.Sub(amount)
			w.PendingDeposit = w.PendingDeposit.Sub(amount)
		default:
			return domain.NewError(domain.KindValidation, "invalid target status")
		}
	case domain.ModeWithdrawal:
		total := amount.Add(fee)
		switch to {
		case domain.StatusSuccess:
			w.Balance = w.Balance.Sub(total)
			w.PendingWithdrawal = w.PendingWithdrawal.Sub(total)
		case domain.StatusFailed:
			w.PendingWithdrawal = w.PendingWithdrawal.Sub(total)
			w.AvailableBalance = w.AvailableBalance.Add(total)
		default:
			return domain.NewError(domain.KindValidation, "invalid target status")
		}
	case domain.ModeTransfer:
		return domain.NewError(domain.KindValidation, "transfers are settled by their game")
	default:
		return domain.NewError(domain.KindValidation, "unknown transaction mode")
	}
	return nil
}
