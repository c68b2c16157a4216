// Package payment talks to the external payment processor that funds deposits
// and delivers withdrawals.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Link is a HATEOAS link returned by the processor
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// Payment is a created, not yet approved, deposit
type Payment struct {
	ID    string `json:"id"`
	Links []Link `json:"links"`
}

// ApprovalURL returns the link the payer must visit to approve the payment
func (p *Payment) ApprovalURL() string {
	for _, l := range p.Links {
		if l.Rel == "approval_url" {
			return l.Href
		}
	}
	return ""
}

// Execution is the outcome of executing an approved payment
type Execution struct {
	PayerEmail string
	PayerID    string
	Fee        decimal.Decimal
}

// PaymentApproved is the state of a payment that has been executed
const PaymentApproved = "approved"

// Payout batch statuses reported by the processor
const (
	PayoutSuccess  = "SUCCESS"
	PayoutDenied   = "DENIED"
	PayoutFailed   = "FAILED"
	PayoutCanceled = "CANCELED"
	PayoutReturned = "RETURNED"
	PayoutBlocked  = "BLOCKED"
)

// Processor is the subset of the payment processor the wallet uses.
//
// SendPayout is not idempotent on the processor side unless batchID is reused;
// callers must generate batchID once per withdrawal and never retry blindly.
type Processor interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, currency string) (*Payment, error)
	ExecutePayment(ctx context.Context, paymentID, payerID string) (*Execution, error)
	GetPaymentState(ctx context.Context, paymentID string) (string, error)
	SendPayout(ctx context.Context, batchID string, amount decimal.Decimal, currency, email string) (statusURL string, err error)
	GetPayoutStatus(ctx context.Context, statusURL string) (string, error)
}

// APIError is a non-2xx response from the processor
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor returned %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether repeating the request may succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
