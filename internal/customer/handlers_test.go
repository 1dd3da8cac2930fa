package customer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/customer"
	"github.com/noah-isme/toko-admin/internal/listview"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

type memoryStore struct {
	rows []customer.Customer
	// billed holds customers that invoices still point at.
	billed map[int64]bool
}

func visible(c customer.Customer, shopID int64) bool {
	return shopID == 0 || c.ShopID == shopID
}

func (m *memoryStore) List(_ context.Context, shopID int64) ([]customer.Customer, error) {
	var out []customer.Customer
	for _, c := range m.rows {
		if visible(c, shopID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryStore) Get(_ context.Context, shopID, id int64) (customer.Customer, error) {
	for _, c := range m.rows {
		if c.ID == id && visible(c, shopID) {
			return c, nil
		}
	}
	return customer.Customer{}, pgx.ErrNoRows
}

func (m *memoryStore) Create(_ context.Context, in customer.Input) (customer.Customer, error) {
	c := customer.Customer{
		ID:               int64(len(m.rows) + 1),
		ShopID:           in.ShopID.Int64(),
		CustomerName:     in.CustomerName,
		CustomerEmailID:  in.CustomerEmailID,
		CustomerMobileNo: in.CustomerMobileNo,
		CustomerAddress:  in.CustomerAddress,
	}
	m.rows = append(m.rows, c)
	return c, nil
}

func (m *memoryStore) Update(_ context.Context, shopID, id int64, in customer.Input) (customer.Customer, error) {
	for i, c := range m.rows {
		if c.ID == id && visible(c, shopID) {
			c.ShopID = in.ShopID.Int64()
			c.CustomerName = in.CustomerName
			m.rows[i] = c
			return c, nil
		}
	}
	return customer.Customer{}, pgx.ErrNoRows
}

func (m *memoryStore) Delete(_ context.Context, shopID, id int64) (customer.Customer, error) {
	for i, c := range m.rows {
		if c.ID == id && visible(c, shopID) {
			if m.billed[id] {
				return customer.Customer{}, &pgconn.PgError{Code: "23503", TableName: "invoices", ConstraintName: "invoices_customer_id_fkey"}
			}
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return c, nil
		}
	}
	return customer.Customer{}, pgx.ErrNoRows
}

func newRouter(store customer.Store) http.Handler {
	h := &customer.Handler{Svc: customer.NewService(store, listview.View[customer.Customer]{}, nil, zerolog.Nop())}
	r := chi.NewRouter()
	r.Use(tenant.NewResolver("").Middleware)
	r.Get("/customer/getAllCustomers", h.List)
	r.Post("/customer/customer", h.Create)
	r.Get("/customer/customer/{id}", h.Get)
	r.Put("/customer/customer/{id}", h.Update)
	r.Delete("/customer/customer/{id}", h.Delete)
	return r
}

func send(h http.Handler, method, path, shop, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if shop != "" {
		req.Header.Set(tenant.DefaultHeader, shop)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateAcceptsFormAliasesAndScope(t *testing.T) {
	store := &memoryStore{}
	h := newRouter(store)

	rec := send(h, http.MethodPost, "/customer/customer", "3", `{"Name":" Dewi ","Email":"DEWI@example.com","MobileNo":"0811","Address":"Jl. Mawar"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, store.rows, 1)
	c := store.rows[0]
	require.Equal(t, int64(3), c.ShopID)
	require.Equal(t, "Dewi", c.CustomerName)
	require.Equal(t, "dewi@example.com", c.CustomerEmailID)
	require.Equal(t, "Jl. Mawar", c.CustomerAddress)
}

func TestCreateRequiresShop(t *testing.T) {
	h := newRouter(&memoryStore{})
	rec := send(h, http.MethodPost, "/customer/customer", "", `{"customerName":"Dewi"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"shopId"`)

	rec = send(h, http.MethodPost, "/customer/customer", "3", `{"customerName":"Dewi","shopId":4}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndGetAreShopScoped(t *testing.T) {
	store := &memoryStore{}
	h := newRouter(store)
	for _, body := range []string{
		`{"customerName":"Ani","shopId":1}`,
		`{"customerName":"Bayu","shopId":2}`,
		`{"customerName":"Cici","shopId":1}`,
	} {
		require.Equal(t, http.StatusCreated, send(h, http.MethodPost, "/customer/customer", "", body).Code)
	}

	rec := send(h, http.MethodGet, "/customer/getAllCustomers", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []customer.Customer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, "Ani", body.Data[0].CustomerName)

	rec = send(h, http.MethodGet, "/customer/getAllCustomers?shopId=2", "", "")
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	require.Equal(t, http.StatusNotFound, send(h, http.MethodGet, "/customer/customer/2", "1", "").Code)
	require.Equal(t, http.StatusOK, send(h, http.MethodGet, "/customer/customer/2", "", "").Code)
	require.Equal(t, http.StatusNotFound, send(h, http.MethodDelete, "/customer/customer/2", "1", "").Code)
	require.Equal(t, http.StatusNoContent, send(h, http.MethodDelete, "/customer/customer/2", "2", "").Code)
}

func TestUpdateKeepsScope(t *testing.T) {
	store := &memoryStore{}
	h := newRouter(store)
	require.Equal(t, http.StatusCreated, send(h, http.MethodPost, "/customer/customer", "1", `{"customerName":"Ani"}`).Code)

	rec := send(h, http.MethodPut, "/customer/customer/1", "1", `{"customerName":"Ani Lestari"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Ani Lestari", store.rows[0].CustomerName)

	rec = send(h, http.MethodPut, "/customer/customer/1", "2", `{"customerName":"X"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteBilledCustomerConflicts(t *testing.T) {
	store := &memoryStore{billed: map[int64]bool{1: true}}
	h := newRouter(store)
	require.Equal(t, http.StatusCreated, send(h, http.MethodPost, "/customer/customer", "1", `{"customerName":"Ani"}`).Code)

	rec := send(h, http.MethodDelete, "/customer/customer/1", "1", "")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "still referenced by invoices")
	require.Len(t, store.rows, 1)
}
