package repository

import (
	"context"
	"database/sql"
	"fmt"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type productRow struct {
	ID               int64           `db:"id"`
	VendorID         int64           `db:"vendor_id"`
	VendorName       string          `db:"vendor_name"`
	Title            string          `db:"title"`
	Price            decimal.Decimal `db:"price"`
	CategoryID       sql.NullInt64   `db:"category_id"`
	Status           string          `db:"status"`
	ShipMethod       string          `db:"ship_method"`
	ShipRate         decimal.Decimal `db:"ship_rate"`
	Length           decimal.Decimal `db:"length"`
	Width            decimal.Decimal `db:"width"`
	Height           decimal.Decimal `db:"height"`
	Weight           decimal.Decimal `db:"weight"`
	OriginLine1      string          `db:"origin_line1"`
	OriginCity       string          `db:"origin_city"`
	OriginState      string          `db:"origin_state"`
	OriginPostalCode string          `db:"origin_postal_code"`
	OriginCountry    string          `db:"origin_country"`
}

func (p productRow) toDomain() d.Product {
	product := d.Product{
		ID:          p.ID,
		VendorID:    p.VendorID,
		VendorName:  p.VendorName,
		Title:       p.Title,
		Price:       p.Price,
		Purchasable: p.Status == "active",
		Shipping: d.ShippingMeta{
			Method:   d.ShippingMethod(p.ShipMethod),
			FlatRate: p.ShipRate,
			Package: d.Package{
				Length: p.Length,
				Width:  p.Width,
				Height: p.Height,
				Weight: p.Weight,
			},
			Origin: d.Address{
				Line1:      p.OriginLine1,
				City:       p.OriginCity,
				State:      p.OriginState,
				PostalCode: p.OriginPostalCode,
				Country:    p.OriginCountry,
			},
		},
	}
	if p.CategoryID.Valid {
		id := p.CategoryID.Int64
		product.CategoryID = &id
	}
	return product
}

// GetProductsByIDs returns the products that exist among ids, in no particular order.
func (r *Repository) GetProductsByIDs(ctx context.Context, ids []int64) ([]d.Product, error) {
	query := `SELECT p.id, p.vendor_id, v.vendor_name, p.title, p.price, p.category_id, p.status,
	                 p.ship_method, p.ship_rate, p.length, p.width, p.height, p.weight,
	                 v.origin_line1, v.origin_city, v.origin_state, v.origin_postal_code, v.origin_country
	          FROM products p
	          JOIN vendor_settings v ON v.vendor_id = p.vendor_id
	          WHERE p.id = ANY($1)`

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}

	products := make([]d.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toDomain())
	}
	return products, nil
}
