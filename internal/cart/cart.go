package cart

import (
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
)

// Cart is the buyer's saved cart document.
type Cart struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    int64     `bson:"user_id" json:"user_id"`
	Items     []Item    `bson:"items" json:"items"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type Item struct {
	ProductID int64     `bson:"product_id" json:"product_id"`
	VendorID  int64     `bson:"vendor_id" json:"vendor_id"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Refs converts the saved items to checkout input.
func (c *Cart) Refs() []d.CartItemRef {
	refs := make([]d.CartItemRef, 0, len(c.Items))
	for _, item := range c.Items {
		refs = append(refs, d.CartItemRef{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Quantity:  item.Quantity,
		})
	}
	return refs
}
