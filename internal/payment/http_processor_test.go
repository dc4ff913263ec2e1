package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/httpclient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProcessor_Customer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customers":
			assert.Equal(t, "customer-42", r.Header.Get("Idempotency-Key"))
			var req customerRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "42", req.Metadata["user_id"])
			_, _ = w.Write([]byte(`{"id":"cus_1"}`))
		case "/customers/cus_1":
			var req addressRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "78701", req.Address.PostalCode)
			_, _ = w.Write([]byte(`{"id":"cus_1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewHTTPProcessor(httpclient.New("payment", srv.URL, time.Second, nil))
	id, err := p.CreateOrGetCustomer(context.Background(), d.Customer{UserID: 42, Email: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", id)

	require.NoError(t, p.UpdateCustomerAddress(context.Background(), id, billing))
}

func TestHTTPProcessor_CreatePaymentIntent(t *testing.T) {
	orderID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment_intents", r.URL.Path)
		assert.Equal(t, orderID.String(), r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var req intentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(2599), req.Amount)
		assert.Equal(t, orderID.String(), req.Metadata["order_id"])

		_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret","amount":2599,"currency":"usd"}`))
	}))
	defer srv.Close()

	p := NewHTTPProcessor(httpclient.New("payment", srv.URL, time.Second, nil, httpclient.WithAPIKey("sk_test")))
	intent, err := p.CreatePaymentIntent(context.Background(), d.PaymentIntentParams{
		OrderID:        orderID,
		Amount:         2599,
		Currency:       "usd",
		Metadata:       map[string]string{"order_id": orderID.String()},
		IdempotencyKey: orderID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, &d.PaymentIntentRef{ID: "pi_1", ClientSecret: "pi_1_secret", Amount: 2599, Currency: "usd"}, intent)
}

func TestHTTPProcessor_IntentDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	p := NewHTTPProcessor(httpclient.New("payment", srv.URL, time.Second, nil))
	_, err := p.CreatePaymentIntent(context.Background(), d.PaymentIntentParams{Amount: 100, Currency: "usd"})
	assert.Error(t, err)
}
