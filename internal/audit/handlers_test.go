package audit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerList(t *testing.T) {
	store := &stubStore{entries: []Entry{{Action: "TEST", Method: "POST"}}}
	h := Handler{Store: store}
	req := httptest.NewRequest(http.MethodGet, "/audit/logs?limit=25&offset=10&resource=shop.shop", nil)
	req.Header.Set("X-Shop-ID", "3")
	rr := httptest.NewRecorder()
	h.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, ListFilter{Resource: "shop.shop", Limit: 25, Offset: 10}, store.filter)

	var payload struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
}

func TestHandlerListClampsLimit(t *testing.T) {
	store := &stubStore{}
	rr := httptest.NewRecorder()
	Handler{Store: store}.List(rr, httptest.NewRequest(http.MethodGet, "/audit/logs?limit=9000&offset=-4", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 50, store.filter.Limit)
	require.Equal(t, 0, store.filter.Offset)
	require.JSONEq(t, `{"data":[]}`, rr.Body.String())
}
