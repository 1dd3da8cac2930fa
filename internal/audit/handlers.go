package audit

import (
	"net/http"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

// Handler exposes HTTP endpoints for working with audit logs.
type Handler struct {
	Store Store
}

// List handles GET /api/v1.0/audit/logs?resource=&limit=&offset=.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.NotConfigured(w, "audit store")
		return
	}
	q := r.URL.Query()
	limit := common.AtoiDefault(q.Get("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	filter := ListFilter{
		Resource: q.Get("resource"),
		Limit:    limit,
		Offset:   max(common.AtoiDefault(q.Get("offset"), 0), 0),
	}
	if id, ok := tenant.ShopID(r.Context()); ok {
		filter.ShopID = id
	}

	rows, err := h.Store.List(r.Context(), filter)
	if err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}
	if rows == nil {
		rows = []Entry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
