package paytm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://securegw.paytm.in"
	responseBodyReadLimit int64 = 2048
)

// Transaction states Paytm reports on callbacks and status checks.
const (
	StatusSuccess = "TXN_SUCCESS"
	StatusFailure = "TXN_FAILURE"
	StatusPending = "PENDING"
)

// Config carries the merchant credentials loaded from the settings store.
type Config struct {
	MerchantID  string
	MerchantKey string
	Website     string
	BaseURL     string
}

// Client talks to the Paytm payment gateway.
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

// NewClient builds a Paytm client from gateway credentials.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paytm merchant id is required")
	}
	if strings.TrimSpace(cfg.MerchantKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paytm merchant key is required")
	}
	if strings.TrimSpace(cfg.Website) == "" {
		cfg.Website = "DEFAULT"
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

// InitiateRequest describes a transaction to open at the gateway.
type InitiateRequest struct {
	OrderID     string
	Amount      string
	CustomerID  string
	CallbackURL string
}

// InitiateResult carries the token and hosted payment page for redirect.
type InitiateResult struct {
	TxnToken   string
	PaymentURL string
}

// InitiateTransaction opens a transaction and returns the hosted page URL.
func (c *Client) InitiateTransaction(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paytm client not configured")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(req.Amount) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
	}

	body := map[string]interface{}{
		"requestType": "Payment",
		"mid":         c.cfg.MerchantID,
		"websiteName": c.cfg.Website,
		"orderId":     req.OrderID,
		"callbackUrl": req.CallbackURL,
		"txnAmount":   map[string]string{"value": req.Amount, "currency": "INR"},
		"userInfo":    map[string]string{"custId": req.CustomerID},
	}

	endpoint := fmt.Sprintf("%s/theia/api/v1/initiateTransaction?mid=%s&orderId=%s",
		c.cfg.BaseURL, url.QueryEscape(c.cfg.MerchantID), url.QueryEscape(req.OrderID))

	var apiResp struct {
		Body struct {
			ResultInfo struct {
				ResultStatus string `json:"resultStatus"`
				ResultCode   string `json:"resultCode"`
				ResultMsg    string `json:"resultMsg"`
			} `json:"resultInfo"`
			TxnToken string `json:"txnToken"`
		} `json:"body"`
	}
	if err := c.signedPost(ctx, endpoint, body, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Body.ResultInfo.ResultStatus != "S" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paytm rejected transaction: %s %s",
			apiResp.Body.ResultInfo.ResultCode, apiResp.Body.ResultInfo.ResultMsg))
	}
	if apiResp.Body.TxnToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paytm response missing txn token")
	}

	paymentURL := fmt.Sprintf("%s/theia/api/v1/showPaymentPage?mid=%s&orderId=%s",
		c.cfg.BaseURL, url.QueryEscape(c.cfg.MerchantID), url.QueryEscape(req.OrderID))

	return &InitiateResult{TxnToken: apiResp.Body.TxnToken, PaymentURL: paymentURL}, nil
}

// StatusResult is the reconciled view of a transaction at the gateway.
type StatusResult struct {
	Status    string
	TxnID     string
	TxnAmount string
	RespCode  string
	RespMsg   string
}

// TransactionStatus fetches the authoritative transaction state from Paytm.
func (c *Client) TransactionStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paytm client not configured")
	}
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	body := map[string]interface{}{
		"mid":     c.cfg.MerchantID,
		"orderId": trimmed,
	}

	var apiResp struct {
		Body struct {
			ResultInfo struct {
				ResultStatus string `json:"resultStatus"`
				ResultCode   string `json:"resultCode"`
				ResultMsg    string `json:"resultMsg"`
			} `json:"resultInfo"`
			TxnID     string `json:"txnId"`
			TxnAmount string `json:"txnAmount"`
		} `json:"body"`
	}
	if err := c.signedPost(ctx, c.cfg.BaseURL+"/v3/order/status", body, &apiResp); err != nil {
		return nil, err
	}

	return &StatusResult{
		Status:    apiResp.Body.ResultInfo.ResultStatus,
		TxnID:     apiResp.Body.TxnID,
		TxnAmount: apiResp.Body.TxnAmount,
		RespCode:  apiResp.Body.ResultInfo.ResultCode,
		RespMsg:   apiResp.Body.ResultInfo.ResultMsg,
	}, nil
}

// signedPost wraps body in the {body, head.signature} envelope Paytm's
// JSON APIs expect and decodes the response into out.
func (c *Client) signedPost(ctx context.Context, endpoint string, body map[string]interface{}, out interface{}) error {
	rawBody, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal request body")
	}

	signature, err := GenerateSignatureByString(string(rawBody), c.cfg.MerchantKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign request body")
	}

	envelope, err := json.Marshal(map[string]interface{}{
		"body": json.RawMessage(rawBody),
		"head": map[string]string{"signature": signature},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal request envelope")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(envelope))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "paytm request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}
