// Package tenant resolves the shop a console request operates on. Shop
// scoped screens (customers, products, invoices, quotations) read it from the
// request context; superadmin screens run unscoped.
package tenant

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/toko-admin/internal/common"
)

type contextKey string

const shopContextKey contextKey = "tenant.shop-id"

// DefaultHeader carries the active shop id.
const DefaultHeader = "X-Shop-ID"

// Resolver resolves the active shop from a header or the shopId query parameter.
type Resolver struct {
	HeaderName string
	QueryParam string
}

// NewResolver returns a resolver reading headerName, or DefaultHeader when empty.
func NewResolver(headerName string) *Resolver {
	if strings.TrimSpace(headerName) == "" {
		headerName = DefaultHeader
	}
	return &Resolver{HeaderName: headerName, QueryParam: "shopId"}
}

// Middleware injects the resolved shop into the context passed downstream.
// A malformed shop id is rejected with 400; a missing one leaves the request
// unscoped.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		raw := r.raw(req)
		if raw == "" {
			next.ServeHTTP(w, req)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			common.WriteError(w, common.BadRequest("shopId", "shop id must be a positive integer", err))
			return
		}
		next.ServeHTTP(w, req.WithContext(WithShopID(req.Context(), id)))
	})
}

// Resolve returns the shop id carried by req, if valid.
func (r *Resolver) Resolve(req *http.Request) (int64, bool) {
	if r == nil || req == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(r.raw(req), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (r *Resolver) raw(req *http.Request) string {
	if v := strings.TrimSpace(req.Header.Get(r.HeaderName)); v != "" {
		return v
	}
	if r.QueryParam == "" {
		return ""
	}
	return strings.TrimSpace(req.URL.Query().Get(r.QueryParam))
}

// WithShopID stores the shop identifier inside the context.
func WithShopID(ctx context.Context, id int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, shopContextKey, id)
}

// ShopID extracts the shop identifier from the context if available.
func ShopID(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(shopContextKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
