package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSettings = Settings{
	SecretKey:  "sk_test_123",
	SuccessURL: "http://localhost:3000/payment/success",
	CancelURL:  "http://localhost:3000/payment/cancel",
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
	}{
		{"missing secret", func(s *Settings) { s.SecretKey = "" }},
		{"missing success url", func(s *Settings) { s.SuccessURL = "" }},
		{"relative cancel url", func(s *Settings) { s.CancelURL = "/cancel" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings
			tt.mutate(&s)
			_, err := NewClient(s)
			assert.Equal(t, models.CodeUpstreamConfiguration, models.CodeOf(err))
		})
	}

	_, err := NewClient(testSettings)
	assert.NoError(t, err)
}

func TestCreateCheckoutSession(t *testing.T) {
	c, err := NewClient(testSettings)
	require.NoError(t, err)
	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	s, err := c.CreateCheckoutSession(context.Background(), "u1", CheckoutInput{PriceID: "price_premium"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(s.ID, "cs_"))
	assert.Equal(t, "payment", s.Mode)
	assert.Equal(t, []string{"card"}, s.PaymentMethodTypes)
	assert.Equal(t, []LineItem{{Price: "price_premium", Quantity: 1}}, s.LineItems)
	assert.Equal(t, testSettings.SuccessURL, s.SuccessURL)
	assert.Equal(t, "u1", s.ClientReferenceID)
	assert.Equal(t, fixed.Unix(), s.Created)
}

func TestCheckoutHandler(t *testing.T) {
	c, err := NewClient(testSettings)
	require.NoError(t, err)
	h := NewHandler(c)

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/checkout", strings.NewReader(`{"priceId":"price_1"}`))
		rec := httptest.NewRecorder()
		h.Checkout(rec, req, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Success bool    `json:"success"`
			Data    Session `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, "price_1", body.Data.LineItems[0].Price)
	})

	t.Run("missing price", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/checkout", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		h.Checkout(rec, req, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
