package domain

const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// CheckoutContext identifies the caller of a checkout operation.
// It is built once per request by the auth middleware and passed explicitly to every stage.
type CheckoutContext struct {
	UserID    int64
	Roles     []string
	Email     string
	Name      string
	RequestID string
}

func (c CheckoutContext) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanReadOrder reports whether the caller may view an order owned by ownerID.
func (c CheckoutContext) CanReadOrder(ownerID int64) bool {
	return c.UserID == ownerID || c.HasRole(RoleAdmin)
}
