package domain

import (
	"time"

	"github.com/shopspring/decimal" // Precise monetary values
)

// TxMode is the kind of money movement a transaction records
type TxMode string

const (
	ModeDeposit    TxMode = "deposit"    // Funds entering from the processor
	ModeWithdrawal TxMode = "withdrawal" // Funds leaving to the processor
	ModeTransfer   TxMode = "transfer"   // Game stake escrowed between users
)

// TxStatus is the lifecycle state of a transaction
type TxStatus string

const (
	StatusPending TxStatus = "pending"
	StatusSuccess TxStatus = "success"
	StatusFailed  TxStatus = "failed"
)

// Terminal reports whether no further transition is allowed
func (s TxStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Valid reports whether s is a known status
func (s TxStatus) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// RecipientType says who is on the other side of a transaction
type RecipientType string

const (
	RecipientUser     RecipientType = "user"
	RecipientExternal RecipientType = "external"
)

// Transaction Model
type Transaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`                                 // Primary key
	WalletID        uint            `gorm:"index;not null" json:"wallet_id"`                      // Owning wallet
	Mode            TxMode          `gorm:"size:16;not null" json:"mode"`                         // deposit, withdrawal or transfer
	InvoiceNo       string          `gorm:"size:64;index" json:"invoice_no"`                      // Payment ID or game ID
	Recipient       *string         `json:"recipient"`                                            // Counterparty label, set at settlement
	RecipientType   RecipientType   `gorm:"size:16;not null" json:"recipient_type"`               // user or external
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`            // Transaction amount
	Fee             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"fee"`     // Processor or service fee
	Status          TxStatus        `gorm:"size:16;not null;default:pending;index" json:"status"` // pending, success or failed
	Comment         string          `json:"comment"`                                              // Free text, annotated at settlement
	PayoutBatchID   *string         `gorm:"size:64;uniqueIndex" json:"payout_batch_id,omitempty"` // Idempotency key sent with payouts
	PayoutStatusURL string          `json:"-"`                                                    // Where to poll payout status
	CreatedAt       time.Time       `json:"created_at"`                                           // Creation time
	UpdatedAt       time.Time       `json:"updated_at"`                                           // Last update time
}
