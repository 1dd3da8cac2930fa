package listview_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/cache"
	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/listing"
	"github.com/noah-isme/toko-admin/internal/listview"
)

func newView(t *testing.T, loads *int) *listview.View[listing.Entity] {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &listview.View[listing.Entity]{
		Entity: "shops",
		Cache:  cache.New(client, "test", time.Minute),
		Fields: listing.Fields{Searchable: []string{"shopName"}, DefaultSort: "shopName"},
		Load: func(_ context.Context, shopID int64) ([]listing.Entity, error) {
			*loads++
			return []listing.Entity{
				{"shopId": "1", "shopName": "Mitra"},
				{"shopId": "2", "shopName": "Anugrah"},
				{"shopId": "3", "shopName": "Berkah"},
			}, nil
		},
	}
}

func TestListUsesSnapshotCache(t *testing.T) {
	var loads int
	v := newView(t, &loads)
	ctx := context.Background()

	page, err := v.List(ctx, 0, url.Values{"limit": {"2"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, "Anugrah", page.Items[0]["shopName"])
	require.Equal(t, 2, page.TotalPages)

	page, err = v.List(ctx, 0, url.Values{"limit": {"2"}, "page": {"2"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, 1, loads)

	v.Invalidate(ctx, 4)
	_, err = v.List(ctx, 0, nil)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestListMapsQueryErrors(t *testing.T) {
	var loads int
	v := newView(t, &loads)
	_, err := v.List(context.Background(), 0, url.Values{"page": {"zero"}})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	require.Equal(t, map[string]any{"field": "page"}, appErr.Details)
	require.Zero(t, loads)
}

func TestListPropagatesLoaderError(t *testing.T) {
	boom := errors.New("db down")
	v := &listview.View[listing.Entity]{
		Entity: "shops",
		Load: func(context.Context, int64) ([]listing.Entity, error) {
			return nil, boom
		},
	}
	_, err := v.List(context.Background(), 0, nil)
	require.ErrorIs(t, err, boom)
}

func TestWriteRendersEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	listview.Write(rr, listing.Page[listing.Entity]{
		Items:      []listing.Entity{{"id": 1}},
		Page:       1,
		PageSize:   5,
		TotalPages: 1,
		TotalCount: 1,
	})
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))

	var body struct {
		Data       []map[string]any  `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	require.Equal(t, common.Pagination{Page: 1, PerPage: 5, TotalItems: 1, TotalPages: 1}, body.Pagination)
}
