package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/httputil"
	"github.com/medflow/idscan/pkg/logger"
)

// UploadProcessor is implemented by *service.UploadService
type UploadProcessor interface {
	ProcessUpload(ctx context.Context, r io.Reader, fileName, declaredType string) (*domain.UploadResult, error)
	MaxSize() int64
}

// RecordService is implemented by *service.RecordService
type RecordService interface {
	Save(ctx context.Context, req *domain.SaveRequest) (*domain.Record, error)
	List(ctx context.Context, page, limit int) ([]*domain.Record, int64, error)
	Search(ctx context.Context, q string) ([]*domain.Record, error)
	Get(ctx context.Context, id string) (*domain.Record, error)
	Update(ctx context.Context, id string, req *domain.SaveRequest) (*domain.Record, error)
}

// Handler serves the /api/id endpoints
type Handler struct {
	uploads UploadProcessor
	records RecordService
	logger  *logger.Logger
}

// NewHandler creates a new identity document handler
func NewHandler(uploads UploadProcessor, records RecordService, log *logger.Logger) *Handler {
	return &Handler{
		uploads: uploads,
		records: records,
		logger:  log.WithComponent("handler"),
	}
}

// Routes mounts the handler under r
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/id", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Post("/save", h.Save)
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
	})
}

// fail logs err and writes the error response
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httputil.StatusOf(err)

	log := h.logger
	if reqLog := httputil.LoggerFrom(r.Context(), nil); reqLog != nil {
		log = reqLog.WithComponent("handler")
	}
	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")

	httputil.Error(w, r, err)
}
