package repository

import (
	"context"
	"fmt"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type vendorFeeRow struct {
	VendorID     int64               `db:"vendor_id"`
	Rate         decimal.NullDecimal `db:"commission_rate"`
	FeeStructure string              `db:"fee_structure"`
}

func (r *Repository) VendorFeeSettings(ctx context.Context, vendorIDs []int64) (map[int64]d.VendorFeeSettings, error) {
	query := `SELECT vendor_id, commission_rate, fee_structure
	          FROM vendor_settings WHERE vendor_id = ANY($1)`

	var rows []vendorFeeRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(vendorIDs)); err != nil {
		return nil, fmt.Errorf("query vendor fee settings: %w", err)
	}

	settings := make(map[int64]d.VendorFeeSettings, len(rows))
	for _, row := range rows {
		s := d.VendorFeeSettings{
			VendorID:     row.VendorID,
			FeeStructure: d.FeeStructure(row.FeeStructure),
		}
		if row.Rate.Valid {
			rate := row.Rate.Decimal
			s.Rate = &rate
		}
		settings[row.VendorID] = s
	}
	return settings, nil
}

type categoryRateRow struct {
	CategoryID int64           `db:"category_id"`
	Rate       decimal.Decimal `db:"commission_rate"`
}

func (r *Repository) CategoryCommissionRates(ctx context.Context, categoryIDs []int64) (map[int64]decimal.Decimal, error) {
	if len(categoryIDs) == 0 {
		return map[int64]decimal.Decimal{}, nil
	}

	query := `SELECT category_id, commission_rate
	          FROM category_commission_rates WHERE category_id = ANY($1)`

	var rows []categoryRateRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(categoryIDs)); err != nil {
		return nil, fmt.Errorf("query category commission rates: %w", err)
	}

	rates := make(map[int64]decimal.Decimal, len(rows))
	for _, row := range rows {
		rates[row.CategoryID] = row.Rate
	}
	return rates, nil
}
