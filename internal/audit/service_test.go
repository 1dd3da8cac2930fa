package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

type stubStore struct {
	entries []Entry
	filter  ListFilter
}

func (s *stubStore) Insert(_ context.Context, e Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func (s *stubStore) List(_ context.Context, f ListFilter) ([]Entry, error) {
	s.filter = f
	return s.entries, nil
}

func TestServiceRecord(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true, SamplingRate: 1}
	userID := "dina"

	req := httptest.NewRequest(http.MethodPost, "https://api.test/api/v1.0/shop/shop/addshop?source=console", nil)
	req.Header.Set("User-Agent", "tester")
	req.Header.Set("X-Request-ID", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	ctx := common.WithUserID(req.Context(), userID)
	ctx = obs.WithRoutePattern(ctx, "/api/v1.0/shop/shop/addshop")
	ctx = tenant.WithShopID(ctx, 9)
	req = req.WithContext(ctx)

	err := svc.Record(req.Context(), Actor{Kind: ActorKindUser, ID: &userID}, "", "", "", req, http.StatusCreated, nil)
	require.NoError(t, err)
	require.Len(t, store.entries, 1)

	got := store.entries[0]
	require.Equal(t, string(ActorKindUser), got.ActorKind)
	require.Equal(t, "dina", *got.Actor)
	require.Equal(t, "POST /api/v1.0/shop/shop/addshop", got.Action)
	require.Equal(t, "shop.shop.addshop", got.Resource)
	require.Equal(t, "10.0.0.2", *got.IP)
	require.Equal(t, "req-123", *got.RequestID)
	require.Equal(t, int64(9), *got.ShopID)
	require.Equal(t, http.StatusCreated, got.Status)
	require.Nil(t, got.ResourceID)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(got.Metadata, &meta))
	require.Equal(t, "source=console", meta["query"])
}

func TestServiceRecordDisabled(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: false}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, svc.Record(req.Context(), Actor{}, "", "", "", req, http.StatusOK, nil))
	require.Empty(t, store.entries)
}

func TestBuildResource(t *testing.T) {
	require.Equal(t, "customer.customer", buildResource("", "/api/v1.0/customer/customer/{id}"))
	require.Equal(t, "invoice.createInvoice", buildResource("", "/api/v1.0/invoice/createInvoice"))
	require.Equal(t, "shops", buildResource("shops", "/whatever"))
	require.Equal(t, "unknown", buildResource("", "/"))
}

func TestWritesRecordsOnlyMutations(t *testing.T) {
	store := &stubStore{}
	rec := HTTPRecorder{Service: &Service{Store: store, Enabled: true}}

	r := chi.NewRouter()
	r.Use(rec.Writes)
	r.Get("/api/v1.0/customer/customer/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Delete("/api/v1.0/customer/customer/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, "/api/v1.0/customer/customer/42", nil))
	}

	require.Len(t, store.entries, 1)
	got := store.entries[0]
	require.Equal(t, "DELETE /api/v1.0/customer/customer/{id}", got.Action)
	require.Equal(t, "42", *got.ResourceID)
	require.Equal(t, http.StatusNoContent, got.Status)
	require.Equal(t, string(ActorKindAnonymous), got.ActorKind)
}
