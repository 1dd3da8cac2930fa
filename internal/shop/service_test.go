package shop_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/listview"
	"github.com/noah-isme/toko-admin/internal/shop"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

type memoryStore struct {
	rows []shop.Shop
}

func (m *memoryStore) List(context.Context) ([]shop.Shop, error) {
	return append([]shop.Shop(nil), m.rows...), nil
}

func (m *memoryStore) Get(_ context.Context, id int64) (shop.Shop, error) {
	for _, s := range m.rows {
		if s.ID == id {
			return s, nil
		}
	}
	return shop.Shop{}, pgx.ErrNoRows
}

func (m *memoryStore) Create(_ context.Context, in shop.Input) (shop.Shop, error) {
	s := shop.Shop{
		ID:               int64(len(m.rows) + 1),
		AccountID:        in.AccountID.Int64(),
		ShopName:         in.ShopName,
		ShopType:         in.ShopType,
		ShopOwnerName:    in.ShopOwnerName,
		ShopEmailID:      in.ShopEmailID,
		ShopMobileNumber: in.ShopMobileNumber,
		ShopCity:         in.ShopCity,
		ShopCityZipCode:  in.ShopCityZipCode,
		PackageType:      in.PackageType,
	}
	m.rows = append(m.rows, s)
	return s, nil
}

func (m *memoryStore) Update(ctx context.Context, id int64, in shop.Input) (shop.Shop, error) {
	for i, s := range m.rows {
		if s.ID == id {
			s.ShopName = in.ShopName
			s.ShopType = in.ShopType
			m.rows[i] = s
			return s, nil
		}
	}
	return shop.Shop{}, pgx.ErrNoRows
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	for i, s := range m.rows {
		if s.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type recordingEmitter struct {
	shops []int64
}

func (r *recordingEmitter) Emit(ctx context.Context, topic string, id int64, _ any) (events.Envelope, error) {
	shopID, _ := tenant.ShopID(ctx)
	r.shops = append(r.shops, shopID)
	return events.Envelope{Topic: topic, AggregateID: id}, nil
}

type invalidations struct {
	shopIDs []int64
}

func (i *invalidations) Invalidate(_ context.Context, shopIDs ...int64) {
	i.shopIDs = append(i.shopIDs, shopIDs...)
}

func validInput(name, kind string) shop.Input {
	return shop.Input{
		ShopName:         name,
		ShopType:         kind,
		ShopOwnerName:    "Owner " + name,
		ShopEmailID:      strings.ToLower(name) + "@example.com",
		ShopMobileNumber: "+91 9876543210",
		ShopCity:         "Pune",
		ShopCityZipCode:  "411001",
		AccountID:        1,
		PackageType:      "Basic",
	}
}

func TestCreateNormalizesInput(t *testing.T) {
	em := &recordingEmitter{}
	svc := shop.NewService(&memoryStore{}, listview.View[shop.Shop]{}, em, zerolog.Nop())

	sh, err := svc.Create(context.Background(), validInput("Mitra", "Medical"))
	require.NoError(t, err)
	require.Equal(t, "9876543210", sh.ShopMobileNumber)
	require.Equal(t, "medical", sh.ShopType)
	require.Equal(t, "basic", sh.PackageType)
	require.Equal(t, []int64{sh.ID}, em.shops)
}

func TestCreateRejectsUnknownShopType(t *testing.T) {
	svc := shop.NewService(&memoryStore{}, listview.View[shop.Shop]{}, nil, zerolog.Nop())
	_, err := svc.Create(context.Background(), validInput("Mitra", "casino"))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "shopType", appErr.Details.(map[string]any)["field"])

	in := validInput("Mitra", "general")
	in.ShopCity = ""
	_, err = svc.Create(context.Background(), in)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "shopCity", appErr.Details.(map[string]any)["field"])
}

func TestListFiltersByCategoryAndSearchesID(t *testing.T) {
	store := &memoryStore{}
	svc := shop.NewService(store, listview.View[shop.Shop]{}, nil, zerolog.Nop())
	ctx := context.Background()
	for _, in := range []shop.Input{
		validInput("Roti", "bakery"),
		validInput("Apotek", "medical"),
		validInput("Bata", "footwear"),
		validInput("Kue", "bakery"),
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, url.Values{"type": {"bakery"}})
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)
	require.Equal(t, "Kue", page.Items[0].ShopName)

	page, err = svc.List(ctx, url.Values{"q": {"3"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Bata", page.Items[0].ShopName)

	page, err = svc.List(ctx, url.Values{"type": {"Bakery"}})
	require.NoError(t, err)
	require.Zero(t, page.TotalCount)
}

func TestDeleteCascadesInvalidation(t *testing.T) {
	store := &memoryStore{}
	inv := &invalidations{}
	svc := shop.NewService(store, listview.View[shop.Shop]{}, nil, zerolog.Nop())
	svc.Cascade = []shop.Invalidator{inv}
	sh, err := svc.Create(context.Background(), validInput("Roti", "bakery"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), sh.ID))
	require.Equal(t, []int64{sh.ID}, inv.shopIDs)

	err = svc.Delete(context.Background(), sh.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestCreateHandlerAcceptsStringAccountID(t *testing.T) {
	svc := shop.NewService(&memoryStore{}, listview.View[shop.Shop]{}, nil, zerolog.Nop())
	h := &shop.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Post("/shop/shop/addshop", h.Create)

	body := `{"shopName":"Roti","shopType":"bakery","shopOwnerName":"Sari","shopEmailId":"sari@example.com",
		"shopMobileNumber":"+919876543210","shopCity":"Pune","shopCityZipCode":"411001","accountId":"4","packageType":"premium"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/shop/shop/addshop", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"accountId":4`)
}

func TestNormalizeMobile(t *testing.T) {
	require.Equal(t, "98765", shop.NormalizeMobile(" +91 98765 "))
	require.Equal(t, "0212", shop.NormalizeMobile("0212"))
}
