package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const (
	checkoutContextKey ctxKey = iota
	requestIDKey
)

// Claims are the token claims the checkout needs. The user id travels in "sub".
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	Email string   `json:"email,omitempty"`
	Name  string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and stores the caller's CheckoutContext.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			var claims Claims
			_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
				return secret, nil
			})
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			cc, err := claims.checkoutContext()
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			cc.RequestID = getRequestID(r.Context())

			ctx := context.WithValue(r.Context(), checkoutContextKey, cc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (c *Claims) checkoutContext() (d.CheckoutContext, error) {
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return d.CheckoutContext{}, errors.New("token subject is not a user id")
	}
	roles := c.Roles
	if len(roles) == 0 {
		roles = []string{d.RoleCustomer}
	}
	return d.CheckoutContext{
		UserID: userID,
		Roles:  roles,
		Email:  c.Email,
		Name:   c.Name,
	}, nil
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getCheckoutContext(ctx context.Context) (d.CheckoutContext, bool) {
	cc, ok := ctx.Value(checkoutContextKey).(d.CheckoutContext)
	return cc, ok && cc.UserID > 0
}

func getRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

