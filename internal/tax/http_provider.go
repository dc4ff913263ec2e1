package tax

import (
	"context"
	"fmt"
	"net/http"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/httpclient"
	"github.com/shopspring/decimal"
)

// HTTPProvider talks to the tax engine's JSON API. Amounts travel in cents.
type HTTPProvider struct {
	client   *httpclient.Client
	currency string
}

func NewHTTPProvider(client *httpclient.Client, currency string) *HTTPProvider {
	return &HTTPProvider{client: client, currency: currency}
}

type calculationLine struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Quantity  int    `json:"quantity"`
}

type calculationRequest struct {
	Currency        string            `json:"currency"`
	CustomerAddress d.Address         `json:"customer_address"`
	LineItems       []calculationLine `json:"line_items"`
}

type breakdownLine struct {
	Jurisdiction string          `json:"jurisdiction"`
	TaxType      string          `json:"tax_type"`
	Rate         decimal.Decimal `json:"rate"`
	Amount       int64           `json:"amount"`
}

type calculationResponse struct {
	ID            string          `json:"id"`
	TaxableAmount int64           `json:"taxable_amount"`
	TaxAmount     int64           `json:"tax_amount_exclusive"`
	Breakdown     []breakdownLine `json:"tax_breakdown"`
}

func (p *HTTPProvider) Calculate(ctx context.Context, items []d.TaxLineItem, address d.Address) (*d.TaxCalculation, error) {
	req := calculationRequest{
		Currency:        p.currency,
		CustomerAddress: address,
		LineItems:       make([]calculationLine, 0, len(items)),
	}
	for _, item := range items {
		req.LineItems = append(req.LineItems, calculationLine{
			Reference: item.Reference,
			Amount:    d.ToCents(item.Amount),
			Quantity:  item.Quantity,
		})
	}

	var resp calculationResponse
	if err := p.client.Do(ctx, http.MethodPost, "/calculations", req, &resp, nil); err != nil {
		return nil, fmt.Errorf("create tax calculation: %w", err)
	}

	calc := &d.TaxCalculation{
		ID:            resp.ID,
		TaxableAmount: d.FromCents(resp.TaxableAmount),
		TaxAmount:     d.FromCents(resp.TaxAmount),
		Breakdown:     make([]d.TaxBreakdown, 0, len(resp.Breakdown)),
	}
	for _, b := range resp.Breakdown {
		calc.Breakdown = append(calc.Breakdown, d.TaxBreakdown{
			Jurisdiction: b.Jurisdiction,
			TaxType:      b.TaxType,
			Rate:         b.Rate,
			Amount:       d.FromCents(b.Amount),
		})
	}
	return calc, nil
}

type transactionRequest struct {
	CalculationID string `json:"calculation"`
	Reference     string `json:"reference"`
}

type transactionResponse struct {
	ID string `json:"id"`
}

// Commit records the calculation as collected tax. The reference doubles as idempotency key so a
// retried commit returns the same transaction.
func (p *HTTPProvider) Commit(ctx context.Context, calculationID, reference string) (string, error) {
	var resp transactionResponse
	err := p.client.Do(ctx, http.MethodPost, "/transactions", transactionRequest{
		CalculationID: calculationID,
		Reference:     reference,
	}, &resp, map[string]string{"Idempotency-Key": "tax-" + reference})
	if err != nil {
		return "", fmt.Errorf("create tax transaction: %w", err)
	}
	return resp.ID, nil
}
