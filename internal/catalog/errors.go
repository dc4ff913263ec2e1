package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product id must be positive")
	ErrItemNotFound    = errors.New("cart item not found")
)

// ItemNotFoundError names the product that is missing or can no longer be bought.
type ItemNotFoundError struct {
	ProductID int64
	Reason    string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("product %d %s", e.ProductID, e.Reason)
}

func (e *ItemNotFoundError) Unwrap() error {
	return ErrItemNotFound
}
