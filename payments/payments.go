// Package payments builds hosted checkout session descriptors. It never
// calls the payment provider.
package payments

import (
	"context"
	"net/url"
	"time"

	"recipehub/models"
	"recipehub/utils"
)

type Settings struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
}

// Client is created once at startup from Settings and shared by handlers.
type Client struct {
	settings Settings
	now      func() time.Time
}

// NewClient fails with an UPSTREAM_CONFIGURATION_ERROR when a credential
// or redirect URL is missing.
func NewClient(s Settings) (*Client, error) {
	if s.SecretKey == "" {
		return nil, models.NewUpstreamConfigurationError("payment provider secret key is not configured")
	}
	for _, raw := range []string{s.SuccessURL, s.CancelURL} {
		u, err := url.Parse(raw)
		if raw == "" || err != nil || u.Host == "" {
			return nil, models.NewUpstreamConfigurationError("payment redirect URLs must be absolute URLs")
		}
	}
	return &Client{settings: s, now: time.Now}, nil
}

type CheckoutInput struct {
	PriceID string `json:"priceId" validate:"required"`
}

type LineItem struct {
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// Session mirrors the fields a hosted checkout session exposes to clients.
type Session struct {
	ID                 string     `json:"id"`
	Object             string     `json:"object"`
	Mode               string     `json:"mode"`
	PaymentMethodTypes []string   `json:"payment_method_types"`
	LineItems          []LineItem `json:"line_items"`
	SuccessURL         string     `json:"success_url"`
	CancelURL          string     `json:"cancel_url"`
	ClientReferenceID  string     `json:"client_reference_id,omitempty"`
	Status             string     `json:"status"`
	Created            int64      `json:"created"`
	ExpiresAt          int64      `json:"expires_at"`
}

// CreateCheckoutSession describes a one-item card payment for priceID.
func (c *Client) CreateCheckoutSession(_ context.Context, userID string, in CheckoutInput) (*Session, error) {
	now := c.now()
	return &Session{
		ID:                 "cs_" + utils.GetUUID(),
		Object:             "checkout.session",
		Mode:               "payment",
		PaymentMethodTypes: []string{"card"},
		LineItems:          []LineItem{{Price: in.PriceID, Quantity: 1}},
		SuccessURL:         c.settings.SuccessURL,
		CancelURL:          c.settings.CancelURL,
		ClientReferenceID:  userID,
		Status:             "open",
		Created:            now.Unix(),
		ExpiresAt:          now.Add(24 * time.Hour).Unix(),
	}, nil
}
