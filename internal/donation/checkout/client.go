// Package checkout calls the external payment provider to start a checkout
// session. Payment capture happens entirely on the provider side.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"givers/internal/donation/service"
)

// Client is an HTTP implementation of the donation service's checkout port.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a checkout client against the provider's base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type checkoutRequest struct {
	ProjectID string `json:"project_id"`
	Amount    int64  `json:"amount"`
	Recurring bool   `json:"recurring"`
	Interval  string `json:"interval,omitempty"`
	Message   string `json:"message,omitempty"`
}

type checkoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckout asks the provider for a redirect URL.
func (c *Client) CreateCheckout(ctx context.Context, in service.CheckoutInput) (string, error) {
	payload, err := json.Marshal(checkoutRequest{
		ProjectID: in.ProjectID.String(),
		Amount:    int64(in.Amount),
		Recurring: in.Recurring,
		Interval:  string(in.Interval),
		Message:   in.Message,
	})
	if err != nil {
		return "", fmt.Errorf("marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout-sessions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call checkout provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("checkout provider returned %s", resp.Status)
	}

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if out.CheckoutURL == "" {
		return "", fmt.Errorf("checkout provider returned no URL")
	}
	return out.CheckoutURL, nil
}
