// Package listview serves list screens: it loads the full entity set of a
// shop scope, caches it as a snapshot and runs it through listing.Process.
package listview

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/cache"
	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/listing"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

// Loader returns every entity visible in a shop. shopID 0 means all shops.
type Loader[T listing.Record] func(ctx context.Context, shopID int64) ([]T, error)

// View lists one entity type.
type View[T listing.Record] struct {
	Entity   string
	Load     Loader[T]
	Cache    *cache.Cache
	Fields   listing.Fields
	Defaults listing.Defaults
	Logger   zerolog.Logger
}

// List parses values, loads the snapshot for shopID and returns the
// requested page. Malformed parameters become a BAD_REQUEST AppError.
func (v *View[T]) List(ctx context.Context, shopID int64, values url.Values) (listing.Page[T], error) {
	q, err := listing.ParseQuery(values, v.Defaults)
	if err != nil {
		obs.ObserveList(v.Entity, 0, err)
		return listing.Page[T]{}, queryError(err)
	}
	items, err := v.snapshot(ctx, shopID)
	if err != nil {
		obs.ObserveList(v.Entity, 0, err)
		return listing.Page[T]{}, err
	}
	page, err := listing.Process(items, q, v.Fields)
	obs.ObserveList(v.Entity, len(page.Items), err)
	if err != nil {
		return listing.Page[T]{}, queryError(err)
	}
	return page, nil
}

// Invalidate drops cached snapshots of the given shops and the unscoped one.
func (v *View[T]) Invalidate(ctx context.Context, shopIDs ...int64) {
	keys := []string{cache.ListKey(tenant.Unscoped, v.Entity)}
	for _, id := range shopIDs {
		if id > 0 {
			keys = append(keys, cache.ListKey(tenant.ScopeFor(id), v.Entity))
		}
	}
	if err := v.Cache.Delete(ctx, keys...); err != nil {
		v.Logger.Warn().Err(err).Str("entity", v.Entity).Msg("snapshot_invalidate_failed")
	}
}

func (v *View[T]) snapshot(ctx context.Context, shopID int64) ([]T, error) {
	key := cache.ListKey(tenant.ScopeFor(shopID), v.Entity)
	var items []T
	if ok, err := v.Cache.GetJSON(ctx, key, &items); err == nil && ok {
		obs.ObserveSnapshot(v.Entity, "cache")
		return items, nil
	} else if err != nil {
		v.Logger.Warn().Err(err).Str("key", key).Msg("snapshot_cache_read_failed")
	}
	if v.Load == nil {
		return nil, errors.New("listview: loader not configured for " + v.Entity)
	}
	items, err := v.Load(ctx, shopID)
	if err != nil {
		return nil, err
	}
	obs.ObserveSnapshot(v.Entity, "store")
	if err := v.Cache.SetJSON(ctx, key, items); err != nil {
		v.Logger.Warn().Err(err).Str("key", key).Msg("snapshot_cache_write_failed")
	}
	return items, nil
}

func queryError(err error) error {
	var qerr *listing.QueryError
	if errors.As(err, &qerr) {
		return common.BadRequest(qerr.Field, qerr.Reason, err)
	}
	if errors.Is(err, listing.ErrInvalidQuery) {
		return common.BadRequest("query", "invalid list parameters", err)
	}
	return err
}

// Write renders page as the list envelope with an X-Total-Count header.
func Write[T listing.Record](w http.ResponseWriter, page listing.Page[T]) {
	w.Header().Set("X-Total-Count", strconv.Itoa(page.TotalCount))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": page.Items,
		"pagination": common.Pagination{
			Page:       page.Page,
			PerPage:    page.PageSize,
			TotalItems: page.TotalCount,
			TotalPages: page.TotalPages,
		},
	})
}
