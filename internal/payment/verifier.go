// Package payment integrates with the external payment gateway.  The
// core only ever asks one question of the gateway: does this payment
// reference denote a successfully captured payment?  Charging, refunds
// and the gateway's own processing stay outside this service.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Verifier answers whether a payment reference denotes a successful
// payment.  A false result with a nil error means the gateway answered
// authoritatively that the payment did not succeed; an error means the
// gateway could not be consulted.
type Verifier interface {
	Verify(ctx context.Context, paymentRef string) (bool, error)
}

// Client verifies payment references against the gateway's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient returns a Client for the gateway at baseURL authenticating
// with the given secret API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// paymentStatus mirrors the subset of the gateway's payment object the
// core needs.
type paymentStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Verify fetches the payment object for ref and reports whether its
// status is "succeeded".  An unknown reference is a definitive "not
// succeeded", not an error, so callers fail with PaymentNotSucceeded
// instead of retrying.
func (c *Client) Verify(ctx context.Context, paymentRef string) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(paymentRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("payment gateway request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var ps paymentStatus
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		return false, fmt.Errorf("decode payment gateway response: %w", err)
	}
	return ps.Status == "succeeded", nil
}
