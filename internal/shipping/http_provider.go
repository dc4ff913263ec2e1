package shipping

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/fjod/go_cart/marketplace-checkout/internal/httpclient"
	"github.com/shopspring/decimal"
)

var ErrNoRates = errors.New("carrier returned no rates")

// HTTPRateProvider asks the carrier gateway for quotes and picks the cheapest one.
type HTTPRateProvider struct {
	client *httpclient.Client
}

func NewHTTPRateProvider(client *httpclient.Client) *HTTPRateProvider {
	return &HTTPRateProvider{client: client}
}

type rateRequest struct {
	Origin      d.Address `json:"origin"`
	Destination d.Address `json:"destination"`
	Package     d.Package `json:"package"`
}

type rateQuote struct {
	Carrier string          `json:"carrier"`
	Service string          `json:"service"`
	Cost    decimal.Decimal `json:"cost"`
}

type rateResponse struct {
	Rates []rateQuote `json:"rates"`
}

func (p *HTTPRateProvider) Rate(ctx context.Context, origin, destination d.Address, pkg d.Package) (decimal.Decimal, error) {
	var resp rateResponse
	err := p.client.Do(ctx, http.MethodPost, "/rates", rateRequest{
		Origin:      origin,
		Destination: destination,
		Package:     pkg,
	}, &resp, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request rates: %w", err)
	}

	if len(resp.Rates) == 0 {
		return decimal.Zero, ErrNoRates
	}
	cheapest := resp.Rates[0].Cost
	for _, q := range resp.Rates[1:] {
		if q.Cost.LessThan(cheapest) {
			cheapest = q.Cost
		}
	}
	return cheapest, nil
}
