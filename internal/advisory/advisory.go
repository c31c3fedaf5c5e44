// Package advisory talks to the external AI text service that writes
// strategic advice for a client and copy for email campaigns. The service is
// a collaborator: this package only depends on the response shapes.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ruimtc/gabinete/internal/model"
	"github.com/ruimtc/gabinete/internal/profit"
)

// Advice is the service's answer for one client.
type Advice struct {
	AdviceText   string `json:"advice_text"`
	SuggestedFee int    `json:"suggested_fee"` // integer euros per month
}

// EmailCopy is a generated campaign template. Body keeps its {{variable}}
// placeholders; substitution happens elsewhere.
type EmailCopy struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Client calls the advisory HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds an advisory client. An empty baseURL yields a disabled client
// whose calls fail with a configuration error.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether the service is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type adviceRequest struct {
	Client        model.Client  `json:"client"`
	Profitability profit.Result `json:"profitability"`
}

// ClientAdvice asks for strategic advice given a client snapshot and its
// computed profitability.
func (c *Client) ClientAdvice(ctx context.Context, client model.Client, result profit.Result) (Advice, error) {
	var advice Advice
	err := c.post(ctx, "/v1/advice", adviceRequest{Client: client, Profitability: result}, &advice)
	return advice, err
}

type emailRequest struct {
	Topic string `json:"topic"`
	Tone  string `json:"tone"`
}

// EmailTemplate asks for a campaign subject and body for a topic and tone.
func (c *Client) EmailTemplate(ctx context.Context, topic, tone string) (EmailCopy, error) {
	var copyOut EmailCopy
	err := c.post(ctx, "/v1/email-template", emailRequest{Topic: topic, Tone: tone}, &copyOut)
	return copyOut, err
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	if !c.Enabled() {
		return fmt.Errorf("advisory service is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode advisory request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build advisory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call advisory service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("advisory service returned %d: %s", resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode advisory response: %w", err)
	}
	return nil
}
