package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (r *Repository) GetCustomerID(ctx context.Context, userID int64) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT customer_id FROM payment_customers WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCustomerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query payment customer: %w", err)
	}
	return id, nil
}

func (r *Repository) SaveCustomerID(ctx context.Context, userID int64, customerID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_customers (user_id, customer_id, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET customer_id = EXCLUDED.customer_id, updated_at = NOW()`,
		userID, customerID)
	if err != nil {
		return fmt.Errorf("save payment customer: %w", err)
	}
	return nil
}
