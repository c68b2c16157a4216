package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"rps_wallet/internal/domain"
)

// ErrUnexpectedResponse marks a 2xx response missing the fields we rely on
var ErrUnexpectedResponse = errors.New("unexpected processor response")

// PayPalConfig holds the REST credentials and redirect targets
type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	CancelURL    string
	HTTPClient   *http.Client
	Backoff      Backoff
}

// PayPal implements Processor against the PayPal REST v1 API
type PayPal struct {
	cfg  PayPalConfig
	http *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewPayPal creates a PayPal client
func NewPayPal(cfg PayPalConfig) *PayPal {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Backoff.Attempts == 0 {
		cfg.Backoff = DefaultBackoff
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &PayPal{cfg: cfg, http: cfg.HTTPClient}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached OAuth token, fetching a new one shortly before expiry
func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && time.Now().Before(p.expires) {
		return p.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	err = p.cfg.Backoff.Retry(ctx, func() error { return p.send(req, &tok) })
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUnexpectedResponse)
	}
	p.token = tok.AccessToken
	p.expires = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return p.token, nil
}

// call performs an authenticated JSON request
func (p *PayPal) call(ctx context.Context, method, target string, in, out any) error {
	token, err := p.accessToken(ctx)
	if err != nil {
		return err
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return p.send(req, out)
}

// send executes req and decodes a 2xx JSON body into out. Requests built from
// in-memory bodies are rewound first, so Retry can replay them.
func (p *PayPal) send(req *http.Request, out any) error {
	if req.GetBody != nil {
		b, err := req.GetBody()
		if err != nil {
			return err
		}
		req.Body = b
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

type amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type paymentTransaction struct {
	Amount      amount `json:"amount"`
	Description string `json:"description"`
}

type createPaymentRequest struct {
	Intent string `json:"intent"`
	Payer  struct {
		PaymentMethod string `json:"payment_method"`
	} `json:"payer"`
	Transactions []paymentTransaction `json:"transactions"`
	RedirectURLs struct {
		ReturnURL string `json:"return_url"`
		CancelURL string `json:"cancel_url"`
	} `json:"redirect_urls"`
}

// CreatePayment registers a sale the payer approves on the processor's site
func (p *PayPal) CreatePayment(ctx context.Context, amt decimal.Decimal, currency string) (*Payment, error) {
	var req createPaymentRequest
	req.Intent = "sale"
	req.Payer.PaymentMethod = "paypal"
	req.Transactions = []paymentTransaction{{
		Amount:      amount{Total: amt.StringFixed(2), Currency: currency},
		Description: "wallet deposit",
	}}
	req.RedirectURLs.ReturnURL = p.cfg.ReturnURL
	req.RedirectURLs.CancelURL = p.cfg.CancelURL

	var out Payment
	if err := p.call(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/payments/payment", req, &out); err != nil {
		return nil, external("create payment", err)
	}
	if out.ID == "" {
		return nil, external("create payment", fmt.Errorf("%w: missing payment id", ErrUnexpectedResponse))
	}
	return &out, nil
}

type executeResponse struct {
	Payer struct {
		PayerInfo struct {
			Email   string `json:"email"`
			PayerID string `json:"payer_id"`
		} `json:"payer_info"`
	} `json:"payer"`
	Transactions []struct {
		RelatedResources []struct {
			Sale struct {
				TransactionFee struct {
					Value string `json:"value"`
				} `json:"transaction_fee"`
			} `json:"sale"`
		} `json:"related_resources"`
	} `json:"transactions"`
}

// ExecutePayment captures an approved payment and reports who paid and the fee charged
func (p *PayPal) ExecutePayment(ctx context.Context, paymentID, payerID string) (*Execution, error) {
	var out executeResponse
	target := p.cfg.BaseURL + "/v1/payments/payment/" + url.PathEscape(paymentID) + "/execute"
	if err := p.call(ctx, http.MethodPost, target, map[string]string{"payer_id": payerID}, &out); err != nil {
		return nil, external("execute payment", err)
	}
	if out.Payer.PayerInfo.Email == "" || len(out.Transactions) == 0 || len(out.Transactions[0].RelatedResources) == 0 {
		return nil, external("execute payment", fmt.Errorf("%w: missing payer or sale", ErrUnexpectedResponse))
	}
	fee := decimal.Zero
	if v := out.Transactions[0].RelatedResources[0].Sale.TransactionFee.Value; v != "" {
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return nil, external("execute payment", fmt.Errorf("%w: fee %q", ErrUnexpectedResponse, v))
		}
		fee = parsed
	}
	return &Execution{PayerEmail: out.Payer.PayerInfo.Email, PayerID: out.Payer.PayerInfo.PayerID, Fee: fee}, nil
}

// GetPaymentState reads the processor-side state of a payment, retrying transient failures
func (p *PayPal) GetPaymentState(ctx context.Context, paymentID string) (string, error) {
	var out struct {
		State string `json:"state"`
	}
	target := p.cfg.BaseURL + "/v1/payments/payment/" + url.PathEscape(paymentID)
	err := p.cfg.Backoff.Retry(ctx, func() error {
		return p.call(ctx, http.MethodGet, target, nil, &out)
	})
	if err != nil {
		return "", external("get payment", err)
	}
	if out.State == "" {
		return "", external("get payment", fmt.Errorf("%w: missing payment state", ErrUnexpectedResponse))
	}
	return out.State, nil
}

type payoutRequest struct {
	SenderBatchHeader struct {
		SenderBatchID string `json:"sender_batch_id"`
		EmailSubject  string `json:"email_subject"`
		EmailMessage  string `json:"email_message"`
	} `json:"sender_batch_header"`
	Items []payoutItem `json:"items"`
}

type payoutItem struct {
	RecipientType string `json:"recipient_type"`
	Amount        struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Receiver     string `json:"receiver"`
	Note         string `json:"note"`
	SenderItemID string `json:"sender_item_id"`
}

type payoutResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
	Links []Link `json:"links"`
}

// SendPayout submits a single-item payout batch. It is sent exactly once;
// batchID lets the processor reject accidental resubmission.
func (p *PayPal) SendPayout(ctx context.Context, batchID string, amt decimal.Decimal, currency, email string) (string, error) {
	var req payoutRequest
	req.SenderBatchHeader.SenderBatchID = batchID
	req.SenderBatchHeader.EmailSubject = "You have a payout!"
	req.SenderBatchHeader.EmailMessage = "You have received a payout! Thanks for using our service!"
	item := payoutItem{RecipientType: "EMAIL", Receiver: email, Note: "Wallet withdrawal", SenderItemID: batchID}
	item.Amount.Value = amt.StringFixed(2)
	item.Amount.Currency = currency
	req.Items = []payoutItem{item}

	token, err := p.accessToken(ctx)
	if err != nil {
		return "", external("send payout", err)
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/payments/payouts", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	var out payoutResponse
	if err := p.send(httpReq, &out); err != nil {
		return "", external("send payout", err)
	}
	for _, l := range out.Links {
		if l.Rel == "self" {
			return l.Href, nil
		}
	}
	if len(out.Links) > 0 {
		return out.Links[0].Href, nil
	}
	return "", external("send payout", fmt.Errorf("%w: no status link", ErrUnexpectedResponse))
}

// GetPayoutStatus reads the batch status behind statusURL, retrying transient failures
func (p *PayPal) GetPayoutStatus(ctx context.Context, statusURL string) (string, error) {
	var out payoutResponse
	err := p.cfg.Backoff.Retry(ctx, func() error {
		return p.call(ctx, http.MethodGet, statusURL, nil, &out)
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"url": statusURL, "error": err.Error()}).Warn("Payout status lookup failed")
		return "", external("get payout status", err)
	}
	if out.BatchHeader.BatchStatus == "" {
		return "", external("get payout status", fmt.Errorf("%w: missing batch status", ErrUnexpectedResponse))
	}
	return out.BatchHeader.BatchStatus, nil
}

func external(op string, err error) error {
	return domain.WrapError(domain.KindExternalService, op+" failed", err)
}
