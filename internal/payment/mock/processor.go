package mock

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"rps_wallet/internal/payment"
)

// Processor is a mock implementation of payment.Processor
type Processor struct {
	mock.Mock
}

// CreatePayment implements payment.Processor
func (p *Processor) CreatePayment(ctx context.Context, amount decimal.Decimal, currency string) (*payment.Payment, error) {
	args := p.Called(ctx, amount, currency)
	if v := args.Get(0); v != nil {
		return v.(*payment.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

// ExecutePayment implements payment.Processor
func (p *Processor) ExecutePayment(ctx context.Context, paymentID, payerID string) (*payment.Execution, error) {
	args := p.Called(ctx, paymentID, payerID)
	if v := args.Get(0); v != nil {
		return v.(*payment.Execution), args.Error(1)
	}
	return nil, args.Error(1)
}

// GetPaymentState implements payment.Processor
func (p *Processor) GetPaymentState(ctx context.Context, paymentID string) (string, error) {
	args := p.Called(ctx, paymentID)
	return args.String(0), args.Error(1)
}

// SendPayout implements payment.Processor
func (p *Processor) SendPayout(ctx context.Context, batchID string, amount decimal.Decimal, currency, email string) (string, error) {
	args := p.Called(ctx, batchID, amount, currency, email)
	return args.String(0), args.Error(1)
}

// GetPayoutStatus implements payment.Processor
func (p *Processor) GetPayoutStatus(ctx context.Context, statusURL string) (string, error) {
	args := p.Called(ctx, statusURL)
	return args.String(0), args.Error(1)
}
