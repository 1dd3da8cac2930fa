package tenant

import (
	"context"
	"strconv"
)

// Unscoped names data that spans every shop.
const Unscoped = "all"

// Scope returns the cache scope of ctx: "shop:<id>" or Unscoped.
func Scope(ctx context.Context) string {
	if id, ok := ShopID(ctx); ok {
		return ScopeFor(id)
	}
	return Unscoped
}

// ScopeFor returns the cache scope of a shop.
func ScopeFor(shopID int64) string {
	if shopID <= 0 {
		return Unscoped
	}
	return "shop:" + strconv.FormatInt(shopID, 10)
}

// PrefixKey creates a namespaced cache/queue key per scope.
func PrefixKey(scope, key string) string {
	if scope == "" {
		return key
	}
	return scope + ":" + key
}
