package phonepe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.phonepe.com/apis/hermes"
	payPath                     = "/pg/v1/pay"
	statusPathPrefix            = "/pg/v1/status"
	responseBodyReadLimit int64 = 2048
)

// Transaction states PhonePe reports on callbacks and status checks.
const (
	StateSuccess  = "PAYMENT_SUCCESS"
	StatePending  = "PAYMENT_PENDING"
	StateError    = "PAYMENT_ERROR"
	StateDeclined = "PAYMENT_DECLINED"
	StateTimedOut = "TIMED_OUT"
)

// Config carries the merchant credentials loaded from the settings store.
type Config struct {
	MerchantID string
	SaltKey    string
	SaltIndex  string
	BaseURL    string
}

// Client talks to the PhonePe payment gateway.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a PhonePe client from gateway credentials.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "phonepe merchant id is required")
	}
	if strings.TrimSpace(cfg.SaltKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "phonepe salt key is required")
	}
	if strings.TrimSpace(cfg.SaltIndex) == "" {
		cfg.SaltIndex = "1"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return client, nil
}

// PayRequest describes a hosted-page payment to initiate.
type PayRequest struct {
	MerchantTxnID  string
	MerchantUserID string
	AmountPaise    int64
	RedirectURL    string
	CallbackURL    string
}

// PayResult holds the redirect target returned by the gateway.
type PayResult struct {
	Code        string
	RedirectURL string
}

// Pay initiates a PAY_PAGE transaction and returns the hosted checkout URL.
func (c *Client) Pay(ctx context.Context, req PayRequest) (*PayResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "phonepe client not configured")
	}
	if strings.TrimSpace(req.MerchantTxnID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant transaction id is required")
	}
	if req.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	payload := struct {
		MerchantID        string `json:"merchantId"`
		MerchantTxnID     string `json:"merchantTransactionId"`
		MerchantUserID    string `json:"merchantUserId,omitempty"`
		Amount            int64  `json:"amount"`
		RedirectURL       string `json:"redirectUrl,omitempty"`
		RedirectMode      string `json:"redirectMode,omitempty"`
		CallbackURL       string `json:"callbackUrl,omitempty"`
		PaymentInstrument struct {
			Type string `json:"type"`
		} `json:"paymentInstrument"`
	}{
		MerchantID:     c.cfg.MerchantID,
		MerchantTxnID:  req.MerchantTxnID,
		MerchantUserID: req.MerchantUserID,
		Amount:         req.AmountPaise,
		RedirectURL:    req.RedirectURL,
		RedirectMode:   "POST",
		CallbackURL:    req.CallbackURL,
	}
	payload.PaymentInstrument.Type = "PAY_PAGE"

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal pay payload")
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal pay request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build pay request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", RequestChecksum(encoded, payPath, c.cfg.SaltKey, c.cfg.SaltIndex))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute pay request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "pay request failed")
	}

	var apiResp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			InstrumentResponse struct {
				Type         string `json:"type"`
				RedirectInfo struct {
					URL    string `json:"url"`
					Method string `json:"method"`
				} `json:"redirectInfo"`
			} `json:"instrumentResponse"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode pay response")
	}

	if !apiResp.Success {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("phonepe rejected payment: %s %s", apiResp.Code, apiResp.Message))
	}
	redirect := apiResp.Data.InstrumentResponse.RedirectInfo.URL
	if redirect == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "phonepe response missing redirect url")
	}

	return &PayResult{Code: apiResp.Code, RedirectURL: redirect}, nil
}

// StatusResult is the reconciled view of a transaction at the gateway.
type StatusResult struct {
	Code          string
	State         string
	ProviderTxnID string
	AmountPaise   int64
	ResponseCode  string
}

// Status fetches the authoritative transaction state from PhonePe.
func (c *Client) Status(ctx context.Context, merchantTxnID string) (*StatusResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "phonepe client not configured")
	}
	trimmed := strings.TrimSpace(merchantTxnID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant transaction id is required")
	}

	path := fmt.Sprintf("%s/%s/%s", statusPathPrefix, c.cfg.MerchantID, trimmed)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build status request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", RequestChecksum("", path, c.cfg.SaltKey, c.cfg.SaltIndex))
	httpReq.Header.Set("X-MERCHANT-ID", c.cfg.MerchantID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute status request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "status request failed")
	}

	var apiResp struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Data    struct {
			TransactionID string `json:"transactionId"`
			Amount        int64  `json:"amount"`
			State         string `json:"state"`
			ResponseCode  string `json:"responseCode"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode status response")
	}

	return &StatusResult{
		Code:          apiResp.Code,
		State:         apiResp.Data.State,
		ProviderTxnID: apiResp.Data.TransactionID,
		AmountPaise:   apiResp.Data.Amount,
		ResponseCode:  apiResp.Data.ResponseCode,
	}, nil
}
