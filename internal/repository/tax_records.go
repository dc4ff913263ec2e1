package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type taxRecordRow struct {
	ID            int64           `db:"id"`
	OrderID       uuid.UUID       `db:"order_id"`
	TaxProviderID string          `db:"tax_provider_id"`
	TransactionID sql.NullString  `db:"transaction_id"`
	TaxableAmount decimal.Decimal `db:"taxable_amount"`
	TaxCollected  decimal.Decimal `db:"tax_collected"`
	Breakdown     []byte          `db:"breakdown"`
	CustomerState string          `db:"customer_state"`
	CustomerZip   string          `db:"customer_zip"`
	Status        string          `db:"status"`
}

// SaveTaxRecord upserts the order's tax record. A second save for the same order replaces
// the first.
func (r *Repository) SaveTaxRecord(ctx context.Context, rec *d.TaxRecord) error {
	breakdown, err := json.Marshal(rec.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal tax breakdown: %w", err)
	}
	if rec.Status == "" {
		rec.Status = d.TaxRecordCalculated
	}

	query := `INSERT INTO tax_records (order_id, tax_provider_id, taxable_amount, tax_collected, breakdown,
	                                   customer_state, customer_zip, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	          ON CONFLICT (order_id) DO UPDATE SET
	              tax_provider_id = EXCLUDED.tax_provider_id,
	              taxable_amount  = EXCLUDED.taxable_amount,
	              tax_collected   = EXCLUDED.tax_collected,
	              breakdown       = EXCLUDED.breakdown,
	              customer_state  = EXCLUDED.customer_state,
	              customer_zip    = EXCLUDED.customer_zip,
	              status          = EXCLUDED.status,
	              updated_at      = NOW()
	          RETURNING id`

	err = r.db.QueryRowxContext(ctx, query,
		rec.OrderID,
		rec.TaxProviderID,
		rec.TaxableAmount,
		rec.TaxCollected,
		string(breakdown),
		rec.CustomerState,
		rec.CustomerZip,
		rec.Status,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("upsert tax record: %w", err)
	}
	return nil
}

func (r *Repository) GetTaxRecord(ctx context.Context, orderID uuid.UUID) (*d.TaxRecord, error) {
	query := `SELECT id, order_id, tax_provider_id, transaction_id, taxable_amount, tax_collected, breakdown,
	                 customer_state, customer_zip, status
	          FROM tax_records WHERE order_id = $1`

	var row taxRecordRow
	err := r.db.GetContext(ctx, &row, query, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaxRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tax record: %w", err)
	}

	rec := &d.TaxRecord{
		ID:            row.ID,
		OrderID:       row.OrderID,
		TaxProviderID: row.TaxProviderID,
		TaxableAmount: row.TaxableAmount,
		TaxCollected:  row.TaxCollected,
		CustomerState: row.CustomerState,
		CustomerZip:   row.CustomerZip,
		Status:        d.TaxRecordStatus(row.Status),
	}
	if row.TransactionID.Valid {
		v := row.TransactionID.String
		rec.TransactionID = &v
	}
	if err := json.Unmarshal(row.Breakdown, &rec.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal tax breakdown: %w", err)
	}
	return rec, nil
}

// LinkTaxTransaction stores the provider transaction id once. It reports false when the record
// was already linked or is void.
func (r *Repository) LinkTaxTransaction(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tax_records SET transaction_id = $1, status = $2, updated_at = NOW()
		 WHERE order_id = $3 AND transaction_id IS NULL AND status = $4`,
		transactionID, d.TaxRecordCommitted, orderID, d.TaxRecordCalculated)
	if err != nil {
		return false, fmt.Errorf("link tax transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// VoidTaxRecord marks the order's uncommitted tax record void.
func (r *Repository) VoidTaxRecord(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tax_records SET status = $1, updated_at = NOW()
		 WHERE order_id = $2 AND transaction_id IS NULL`,
		d.TaxRecordVoid, orderID)
	if err != nil {
		return fmt.Errorf("void tax record: %w", err)
	}
	return nil
}
