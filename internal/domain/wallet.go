package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal" // Precise monetary values
)

// Wallet Model
//
// AvailableBalance never includes funds escrowed for games (PendingTransactions)
// or funds awaiting external settlement (PendingDeposit, PendingWithdrawal).
type Wallet struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`                                              // Primary key
	UserID              uint            `gorm:"uniqueIndex" json:"user_id"`                                        // Foreign key to User
	Balance             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`              // Settled total
	PendingDeposit      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"pending_deposit"`      // Deposits awaiting the processor
	PendingWithdrawal   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"pending_withdrawal"`   // Payouts awaiting the processor
	PendingTransactions decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"pending_transactions"` // Game escrow in flight
	AvailableBalance    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"available_balance"`    // Spendable now
	Currency            string          `gorm:"size:3;not null;default:USD" json:"currency"`                       // Currency label
	PayerEmailAddress   *string         `json:"payer_email_address"`                                               // Payout destination, learned from deposits
	Transactions        []Transaction   `gorm:"foreignKey:WalletID" json:"-"`                                      // Transaction history, ordered by ID
	CreatedAt           time.Time       `json:"created_at"`                                                        // Creation time
	UpdatedAt           time.Time       `json:"updated_at"`                                                        // Last update time
}

// BalanceColumns lists the columns the ledger rewrites on every mutation
var BalanceColumns = []string{
	"balance",
	"pending_deposit",
	"pending_withdrawal",
	"pending_transactions",
	"available_balance",
}

// AmountPlaces is the precision money moves in; the processor settles in cents
const AmountPlaces = 2

// ValidateAmount rejects amounts that are not positive or that carry more
// decimal places than the processor can settle. field names the amount in the
// error message.
func ValidateAmount(amount decimal.Decimal, field string) error {
	if !amount.IsPositive() {
		return NewError(KindValidation, field+" must be greater than 0")
	}
	if !amount.Equal(amount.Truncate(AmountPlaces)) {
		return NewError(KindValidation, fmt.Sprintf("%s must have at most %d decimal places", field, AmountPlaces))
	}
	return nil
}
