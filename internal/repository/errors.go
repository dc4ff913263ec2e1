package repository

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrTaxRecordNotFound = errors.New("tax record not found")
	ErrCustomerNotFound  = errors.New("payment customer not found")
	// ErrStatusChanged means a conditional status update matched no row.
	ErrStatusChanged = errors.New("order status changed concurrently")
)
