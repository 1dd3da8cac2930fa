package quotation

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/listview"
)

// ShopNamer resolves the shop name printed on PDFs.
type ShopNamer interface {
	ShopName(ctx context.Context, shopID int64) (string, error)
}

// Handler exposes quotation endpoints.
type Handler struct {
	Svc   *Service
	Shops ShopNamer
}

// List handles GET /quotation/getallquotation.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	page, err := h.Svc.List(r.Context(), r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	listview.Write(w, page)
}

// Get handles GET /quotation/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.IDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Create handles POST /quotation/quotation.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": q})
}

// Preview handles POST /quotation/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Svc.Preview(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// Delete handles DELETE /quotation/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.IDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PDF handles GET /quotation/{id}/pdf.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := common.IDParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	ctx := r.Context()
	q, err := h.Svc.Get(ctx, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var shopName string
	if h.Shops != nil {
		if shopName, err = h.Shops.ShopName(ctx, q.ShopID); err != nil {
			h.Svc.Logger.Warn().Err(err).Int64("shop_id", q.ShopID).Msg("quotation_pdf_shop_lookup_failed")
			shopName = ""
		}
	}
	var buf bytes.Buffer
	if err := RenderPDF(&buf, q, shopName); err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="Quotation_%s.pdf"`, q.QuotationNumber))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil {
		common.NotConfigured(w, "quotation service")
		return false
	}
	return true
}
