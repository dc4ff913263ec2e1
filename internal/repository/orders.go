package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type orderRow struct {
	ID                uuid.UUID       `db:"id"`
	UserID            int64           `db:"user_id"`
	Status            string          `db:"status"`
	Subtotal          decimal.Decimal `db:"subtotal"`
	DiscountTotal     decimal.Decimal `db:"discount_total"`
	ShippingTotal     decimal.Decimal `db:"shipping_total"`
	TaxAmount         decimal.Decimal `db:"tax_amount"`
	PlatformFeeAmount decimal.Decimal `db:"platform_fee_amount"`
	TotalAmount       decimal.Decimal `db:"total_amount"`
	Currency          string          `db:"currency"`
	PaymentIntentID   sql.NullString  `db:"stripe_payment_intent_id"`
	ShippingAddress   []byte          `db:"shipping_address"`
	BillingAddress    []byte          `db:"billing_address"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

const orderColumns = `id, user_id, status, subtotal, discount_total, shipping_total, tax_amount,
	       platform_fee_amount, total_amount, currency, stripe_payment_intent_id,
	       shipping_address, billing_address, created_at, updated_at`

func (row orderRow) toDomain() (*d.Order, error) {
	order := &d.Order{
		ID:                row.ID,
		UserID:            row.UserID,
		Status:            d.OrderStatus(row.Status),
		Subtotal:          row.Subtotal,
		DiscountTotal:     row.DiscountTotal,
		ShippingTotal:     row.ShippingTotal,
		TaxAmount:         row.TaxAmount,
		PlatformFeeAmount: row.PlatformFeeAmount,
		TotalAmount:       row.TotalAmount,
		Currency:          row.Currency,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.PaymentIntentID.Valid {
		v := row.PaymentIntentID.String
		order.PaymentIntentID = &v
	}
	if err := json.Unmarshal(row.ShippingAddress, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(row.BillingAddress, &order.BillingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal billing address: %w", err)
	}
	return order, nil
}

type orderItemRow struct {
	ID               int64           `db:"id"`
	OrderID          uuid.UUID       `db:"order_id"`
	LineItemID       string          `db:"line_item_id"`
	ProductID        int64           `db:"product_id"`
	VendorID         int64           `db:"vendor_id"`
	VendorName       string          `db:"vendor_name"`
	Title            string          `db:"title"`
	Quantity         int             `db:"quantity"`
	UnitPrice        decimal.Decimal `db:"unit_price"`
	OriginalPrice    decimal.Decimal `db:"original_price"`
	Price            decimal.Decimal `db:"price"`
	DiscountAmount   decimal.Decimal `db:"discount_amount"`
	CommissionRate   decimal.Decimal `db:"commission_rate"`
	CommissionAmount decimal.Decimal `db:"commission_amount"`
	ShippingCost     decimal.Decimal `db:"shipping_cost"`
	Status           string          `db:"status"`
}

func (row orderItemRow) toDomain() d.OrderItem {
	return d.OrderItem{
		ID:               row.ID,
		OrderID:          row.OrderID,
		LineItemID:       row.LineItemID,
		ProductID:        row.ProductID,
		VendorID:         row.VendorID,
		VendorName:       row.VendorName,
		Title:            row.Title,
		Quantity:         row.Quantity,
		UnitPrice:        row.UnitPrice,
		OriginalPrice:    row.OriginalPrice,
		Price:            row.Price,
		DiscountAmount:   row.DiscountAmount,
		CommissionRate:   row.CommissionRate,
		CommissionAmount: row.CommissionAmount,
		ShippingCost:     row.ShippingCost,
		Status:           d.OrderItemStatus(row.Status),
	}
}

// CreateOrder writes the order, its items and its discount applications in one transaction.
// Item ids are filled in on success.
func (r *Repository) CreateOrder(ctx context.Context, order *d.Order, discounts []d.DiscountApplication) error {
	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	billing, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshal billing address: %w", err)
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `INSERT INTO orders (id, user_id, status, subtotal, discount_total, shipping_total, tax_amount,
		                              platform_fee_amount, total_amount, currency, shipping_address, billing_address,
		                              created_at, updated_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		          RETURNING created_at, updated_at`

		err := tx.QueryRowxContext(ctx, query,
			order.ID,
			order.UserID,
			order.Status,
			order.Subtotal,
			order.DiscountTotal,
			order.ShippingTotal,
			order.TaxAmount,
			order.PlatformFeeAmount,
			order.TotalAmount,
			order.Currency,
			string(shipping),
			string(billing),
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateOrder
			}
			return fmt.Errorf("insert order: %w", err)
		}

		itemQuery := `INSERT INTO order_items (order_id, line_item_id, product_id, vendor_id, vendor_name, title,
		                                       quantity, unit_price, original_price, price, discount_amount,
		                                       commission_rate, commission_amount, shipping_cost, status)
		              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		              RETURNING id`

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := tx.QueryRowxContext(ctx, itemQuery,
				order.ID,
				item.LineItemID,
				item.ProductID,
				item.VendorID,
				item.VendorName,
				item.Title,
				item.Quantity,
				item.UnitPrice,
				item.OriginalPrice,
				item.Price,
				item.DiscountAmount,
				item.CommissionRate,
				item.CommissionAmount,
				item.ShippingCost,
				item.Status,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert order item %s: %w", item.LineItemID, err)
			}
		}

		discountQuery := `INSERT INTO order_discounts (order_id, source_type, source_id, code, name, discount_type,
		                                               discount_amount, platform_cost, vendor_cost, allocations)
		                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

		for _, app := range discounts {
			allocations, err := json.Marshal(app.Allocations)
			if err != nil {
				return fmt.Errorf("marshal discount allocations: %w", err)
			}
			_, err = tx.ExecContext(ctx, discountQuery,
				order.ID,
				app.SourceType,
				app.SourceID,
				app.Code,
				app.Name,
				app.DiscountType,
				app.DiscountAmount,
				app.PlatformCost,
				app.VendorCost,
				string(allocations),
			)
			if err != nil {
				return fmt.Errorf("insert order discount %s/%d: %w", app.SourceType, app.SourceID, err)
			}
		}
		return nil
	})
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*d.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var row orderRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	order, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	items, err := r.itemsByOrderIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]
	return order, nil
}

// ListOrdersByUser returns one page of the user's orders, newest first, with items.
func (r *Repository) ListOrdersByUser(ctx context.Context, filter d.OrderFilter) (*d.OrderPage, error) {
	var status sql.NullString
	if filter.Status != nil {
		status = sql.NullString{String: string(*filter.Status), Valid: true}
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)`
	if err := r.db.GetContext(ctx, &total, countQuery, filter.UserID, status); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `
	          FROM orders
	          WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
	          ORDER BY created_at DESC, id
	          LIMIT $3 OFFSET $4`

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, filter.UserID, status, filter.Limit, filter.Offset()); err != nil {
		return nil, fmt.Errorf("query orders by user: %w", err)
	}

	page := &d.OrderPage{
		Orders: make([]*d.Order, 0, len(rows)),
		Total:  total,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		order, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		page.Orders = append(page.Orders, order)
		ids = append(ids, order.ID)
	}

	items, err := r.itemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range page.Orders {
		order.Items = items[order.ID]
	}
	return page, nil
}

// ListStuckPaidOrders returns paid orders last touched before cutoff, oldest first.
// These are confirms whose cart clearing failed.
func (r *Repository) ListStuckPaidOrders(ctx context.Context, cutoff time.Time, limit int) ([]*d.Order, error) {
	query := `SELECT ` + orderColumns + `
	          FROM orders
	          WHERE status = $1 AND updated_at < $2
	          ORDER BY updated_at
	          LIMIT $3`

	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, d.OrderStatusPaid, cutoff, limit); err != nil {
		return nil, fmt.Errorf("query stuck orders: %w", err)
	}

	orders := make([]*d.Order, 0, len(rows))
	for _, row := range rows {
		order, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *Repository) itemsByOrderIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]d.OrderItem, error) {
	out := make(map[uuid.UUID][]d.OrderItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}

	query := `SELECT id, order_id, line_item_id, product_id, vendor_id, vendor_name, title, quantity, unit_price,
	                 original_price, price, discount_amount, commission_rate, commission_amount, shipping_cost, status
	          FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, id`

	var rows []orderItemRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(strIDs)); err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	for _, row := range rows {
		out[row.OrderID] = append(out[row.OrderID], row.toDomain())
	}
	return out, nil
}

type orderDiscountRow struct {
	SourceType     string          `db:"source_type"`
	SourceID       int64           `db:"source_id"`
	Code           string          `db:"code"`
	Name           string          `db:"name"`
	DiscountType   string          `db:"discount_type"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	PlatformCost   decimal.Decimal `db:"platform_cost"`
	VendorCost     decimal.Decimal `db:"vendor_cost"`
	Allocations    []byte          `db:"allocations"`
}

func (r *Repository) ListOrderDiscounts(ctx context.Context, orderID uuid.UUID) ([]d.DiscountApplication, error) {
	query := `SELECT source_type, source_id, code, name, discount_type, discount_amount, platform_cost,
	                 vendor_cost, allocations
	          FROM order_discounts WHERE order_id = $1 ORDER BY id`

	var rows []orderDiscountRow
	if err := r.db.SelectContext(ctx, &rows, query, orderID); err != nil {
		return nil, fmt.Errorf("query order discounts: %w", err)
	}

	apps := make([]d.DiscountApplication, 0, len(rows))
	for _, row := range rows {
		app := d.DiscountApplication{
			SourceType:     d.SourceType(row.SourceType),
			SourceID:       row.SourceID,
			Code:           row.Code,
			Name:           row.Name,
			DiscountType:   d.DiscountType(row.DiscountType),
			DiscountAmount: row.DiscountAmount,
			PlatformCost:   row.PlatformCost,
			VendorCost:     row.VendorCost,
		}
		if err := json.Unmarshal(row.Allocations, &app.Allocations); err != nil {
			return nil, fmt.Errorf("unmarshal discount allocations: %w", err)
		}
		for _, a := range app.Allocations {
			app.AppliesTo = append(app.AppliesTo, a.LineItemID)
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// ApplyOrderTax stores the tax amount and the tax-inclusive total on a pending order.
func (r *Repository) ApplyOrderTax(ctx context.Context, orderID uuid.UUID, taxAmount, totalAmount decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET tax_amount = $1, total_amount = $2, updated_at = NOW() WHERE id = $3 AND status = $4`,
		taxAmount, totalAmount, orderID, d.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("update order tax: %w", err)
	}
	return expectOneRow(res)
}

// MarkPaid moves a pending order to paid, records the payment intent and queues the outbox event,
// all in one transaction. It returns ErrStatusChanged when the order is no longer pending.
func (r *Repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string, eventType string, payload []byte) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, stripe_payment_intent_id = $2, updated_at = NOW()
			 WHERE id = $3 AND status = $4`,
			d.OrderStatusPaid, paymentIntentID, orderID, d.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE order_items SET status = $1 WHERE order_id = $2`,
			d.OrderItemStatusPaid, orderID); err != nil {
			return fmt.Errorf("update order items status: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, NOW())`,
			orderID.String(), eventType, string(payload)); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		return nil
	})
}

// MarkConfirmed moves a paid order to confirmed once its cart has been cleared.
func (r *Repository) MarkConfirmed(ctx context.Context, orderID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		d.OrderStatusConfirmed, orderID, d.OrderStatusPaid)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStatusChanged
	}
	return nil
}
