package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://graph.facebook.com/v19.0"
	defaultLanguageCode         = "en"
	responseBodyReadLimit int64 = 2048
)

// Config carries the WhatsApp Business credentials.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
}

// Client sends template messages through the WhatsApp Cloud API. Calls
// run behind a circuit breaker so a degraded Graph API cannot pile up
// notification workers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	phoneID    string
	breaker    *gobreaker.CircuitBreaker[[]byte]
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

// WithBaseURL overrides the Graph API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds a WhatsApp client from Cloud API credentials.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp access token is required")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp phone number id is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	var settings gobreaker.Settings
	settings.Name = "whatsapp"
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && failureRatio >= 0.6
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      cfg.AccessToken,
		phoneID:    cfg.PhoneNumberID,
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
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

// TemplateMessage is one business-initiated template send.
type TemplateMessage struct {
	To           string
	Template     string
	LanguageCode string
	BodyParams   []string
}

// SendTemplate sends a template message and returns the provider
// message id.
func (c *Client) SendTemplate(ctx context.Context, msg TemplateMessage) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "whatsapp client not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}
	if strings.TrimSpace(msg.Template) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "template name is required")
	}

	language := strings.TrimSpace(msg.LanguageCode)
	if language == "" {
		language = defaultLanguageCode
	}

	template := map[string]interface{}{
		"name":     msg.Template,
		"language": map[string]string{"code": language},
	}
	if len(msg.BodyParams) > 0 {
		parameters := make([]map[string]string, 0, len(msg.BodyParams))
		for _, param := range msg.BodyParams {
			parameters = append(parameters, map[string]string{"type": "text", "text": param})
		}
		template["components"] = []map[string]interface{}{
			{"type": "body", "parameters": parameters},
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                msg.To,
		"type":              "template",
		"template":          template,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal template message")
	}

	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send template message")
	}

	var apiResp struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode send response")
	}
	if len(apiResp.Messages) == 0 || apiResp.Messages[0].ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "whatsapp response missing message id")
	}

	return apiResp.Messages[0].ID, nil
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
}
