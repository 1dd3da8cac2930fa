package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/account"
	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/events"
	"github.com/noah-isme/toko-admin/internal/listview"
)

type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]account.Account
	shops  map[int64][]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[int64]account.Account{}}
}

func (m *memoryStore) List(context.Context) ([]account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]account.Account, 0, len(m.rows))
	for id := int64(1); id <= m.nextID; id++ {
		if a, ok := m.rows[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryStore) Get(_ context.Context, id int64) (account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return account.Account{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memoryStore) Create(_ context.Context, in account.Input) (account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a := account.Account{
		ID:               m.nextID,
		CustomerName:     in.CustomerName,
		CustomerEmailID:  in.CustomerEmailID,
		CustomerMobileNo: in.CustomerMobileNo,
		CustomerAddress:  in.CustomerAddress,
		CreatedAt:        time.Now(),
	}
	m.rows[a.ID] = a
	return a, nil
}

func (m *memoryStore) Update(_ context.Context, id int64, in account.Input) (account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return account.Account{}, pgx.ErrNoRows
	}
	a.CustomerName = in.CustomerName
	a.CustomerEmailID = in.CustomerEmailID
	a.CustomerMobileNo = in.CustomerMobileNo
	a.CustomerAddress = in.CustomerAddress
	m.rows[id] = a
	return a, nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil, pgx.ErrNoRows
	}
	delete(m.rows, id)
	shopIDs := m.shops[id]
	delete(m.shops, id)
	return shopIDs, nil
}

type invalidations struct {
	calls [][]int64
}

func (i *invalidations) Invalidate(_ context.Context, shopIDs ...int64) {
	i.calls = append(i.calls, shopIDs)
}

type captureEmitter struct {
	topics []string
}

func (c *captureEmitter) Emit(_ context.Context, topic string, id int64, _ any) (events.Envelope, error) {
	c.topics = append(c.topics, topic)
	return events.Envelope{Topic: topic, AggregateID: id}, nil
}

func newRouter(store account.Store, em events.Emitter) http.Handler {
	svc := account.NewService(store, listview.View[account.Account]{}, em, zerolog.Nop())
	h := &account.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/account/getallaccounts", h.List)
	r.Post("/account/addaccount", h.Create)
	r.Get("/account/{id}", h.Get)
	r.Put("/account/update/{id}", h.Update)
	r.Delete("/account/delete/{id}", h.Delete)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateListAndSearch(t *testing.T) {
	store := newMemoryStore()
	em := &captureEmitter{}
	h := newRouter(store, em)

	for _, body := range []string{
		`{"customerName":"Andi","customerEmailId":"ANDI@example.com","customerMobileNo":"0812"}`,
		`{"customerName":"Budi","customerEmailId":"budi@example.com","customerMobileNo":"0813"}`,
		`{"customerName":"Citra","customerEmailId":"citra@example.com","customerMobileNo":"0899"}`,
	} {
		rec := do(t, h, http.MethodPost, "/account/addaccount", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	require.Equal(t, []string{events.TopicAccountCreated, events.TopicAccountCreated, events.TopicAccountCreated}, em.topics)

	acc, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "andi@example.com", acc.CustomerEmailID)

	rec := do(t, h, http.MethodGet, "/account/getallaccounts?search=081&sortOrder=desc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	var body struct {
		Data       []account.Account `json:"data"`
		Pagination struct {
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, "Budi", body.Data[0].CustomerName)
	require.Equal(t, 1, body.Pagination.TotalPages)
}

func TestCreateRejectsInvalidEmail(t *testing.T) {
	h := newRouter(newMemoryStore(), nil)
	rec := do(t, h, http.MethodPost, "/account/addaccount", `{"customerName":"Andi","customerEmailId":"nope","customerMobileNo":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"customerEmailId"`)
}

func TestListRejectsBadPageSize(t *testing.T) {
	h := newRouter(newMemoryStore(), nil)
	rec := do(t, h, http.MethodGet, "/account/getallaccounts?pageSize=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUpdateDelete(t *testing.T) {
	store := newMemoryStore()
	em := &captureEmitter{}
	h := newRouter(store, em)
	_, err := store.Create(context.Background(), account.Input{CustomerName: "Andi", CustomerEmailID: "a@example.com", CustomerMobileNo: "1"})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/account/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPut, "/account/update/1", `{"customerName":"Andi S","customerEmailId":"a@example.com","customerMobileNo":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Andi S")

	rec = do(t, h, http.MethodDelete, "/account/delete/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{events.TopicAccountUpdated, events.TopicAccountDeleted}, em.topics)

	rec = do(t, h, http.MethodGet, "/account/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/account/zero", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteInvalidatesSnapshotsOfRemovedShops(t *testing.T) {
	store := newMemoryStore()
	acc, err := store.Create(context.Background(), account.Input{CustomerName: "Andi", CustomerEmailID: "a@example.com", CustomerMobileNo: "1"})
	require.NoError(t, err)
	store.shops = map[int64][]int64{acc.ID: {3, 8}}

	shops, products := &invalidations{}, &invalidations{}
	svc := account.NewService(store, listview.View[account.Account]{}, nil, zerolog.Nop())
	svc.Cascade = []account.Invalidator{shops, products}

	require.NoError(t, svc.Delete(context.Background(), acc.ID))
	require.Equal(t, [][]int64{{3, 8}}, shops.calls)
	require.Equal(t, [][]int64{{3, 8}}, products.calls)

	err = svc.Delete(context.Background(), acc.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	require.Len(t, shops.calls, 1)
}
