package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/httpclient"
)

// HTTPProcessor talks to the payment processor's JSON API. Card data never passes through it.
type HTTPProcessor struct {
	client *httpclient.Client
}

func NewHTTPProcessor(client *httpclient.Client) *HTTPProcessor {
	return &HTTPProcessor{client: client}
}

type customerRequest struct {
	Email    string            `json:"email,omitempty"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata"`
}

type customerResponse struct {
	ID string `json:"id"`
}

// CreateOrGetCustomer is keyed on the user id, so a repeated call returns the existing customer.
func (p *HTTPProcessor) CreateOrGetCustomer(ctx context.Context, customer d.Customer) (string, error) {
	userID := strconv.FormatInt(customer.UserID, 10)
	var resp customerResponse
	err := p.client.Do(ctx, http.MethodPost, "/customers", customerRequest{
		Email:    customer.Email,
		Name:     customer.Name,
		Metadata: map[string]string{"user_id": userID},
	}, &resp, map[string]string{"Idempotency-Key": "customer-" + userID})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return resp.ID, nil
}

type addressRequest struct {
	Address d.Address `json:"address"`
}

func (p *HTTPProcessor) UpdateCustomerAddress(ctx context.Context, customerID string, address d.Address) error {
	path := "/customers/" + url.PathEscape(customerID)
	if err := p.client.Do(ctx, http.MethodPost, path, addressRequest{Address: address}, nil, nil); err != nil {
		return fmt.Errorf("update customer %s: %w", customerID, err)
	}
	return nil
}

type intentRequest struct {
	Amount                  int64             `json:"amount"`
	Currency                string            `json:"currency"`
	Customer                string            `json:"customer,omitempty"`
	Metadata                map[string]string `json:"metadata"`
	AutomaticPaymentMethods bool              `json:"automatic_payment_methods"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

func (p *HTTPProcessor) CreatePaymentIntent(ctx context.Context, params d.PaymentIntentParams) (*d.PaymentIntentRef, error) {
	var resp intentResponse
	err := p.client.Do(ctx, http.MethodPost, "/payment_intents", intentRequest{
		Amount:                  params.Amount,
		Currency:                params.Currency,
		Customer:                params.CustomerID,
		Metadata:                params.Metadata,
		AutomaticPaymentMethods: true,
	}, &resp, map[string]string{"Idempotency-Key": params.IdempotencyKey})
	if err != nil {
		return nil, err
	}
	return &d.PaymentIntentRef{
		ID:           resp.ID,
		ClientSecret: resp.ClientSecret,
		Amount:       resp.Amount,
		Currency:     resp.Currency,
	}, nil
}
