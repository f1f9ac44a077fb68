package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/httputil"
)

// saveBody accepts the flat save shape and, for convenience, the upload
// response's nested extractedData object as well.
type saveBody struct {
	domain.SaveRequest
	Nested *domain.Extraction `json:"extractedData"`
}

func (h *Handler) decodeSave(r *http.Request) (*domain.SaveRequest, error) {
	var body saveBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		return nil, err
	}

	req := body.SaveRequest
	if body.Nested != nil {
		req.ExtractedData = body.Nested.ExtractedData
		if req.Confidence == nil {
			req.Confidence = body.Nested.Confidence
		}
	}
	req.ExtractedData = req.ExtractedData.Trimmed()

	if err := httputil.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Save handles POST /api/id/save
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeSave(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rec, err := h.records.Save(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.Created(w, rec.Response())
}

// List handles GET /api/id
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	limit, err := strconv.Atoi(query.Get("limit"))
	page, limit = domain.NormalizePage(page, limit, err == nil)

	items, total, err := h.records.List(r.Context(), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, domain.Responses(items), httputil.NewMeta(page, limit, total))
}

// Search handles GET /api/id/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.records.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, domain.Responses(items))
}

// Get handles GET /api/id/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec.Response())
}

// Update handles PUT /api/id/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeSave(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rec, err := h.records.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec.Response())
}
