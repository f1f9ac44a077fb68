package handler

import (
	"io"
	"net/http"

	"github.com/medflow/idscan/internal/idscan/storage"
	"github.com/medflow/idscan/pkg/errors"
	"github.com/medflow/idscan/pkg/httputil"
)

const (
	uploadField = "idImage"
	// formOverhead leaves room for multipart headers and other small fields
	formOverhead = 1 << 20
)

// Upload handles POST /api/id/upload.
// The file part is streamed straight into the temp store, never buffered whole in memory.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.uploads.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		h.fail(w, r, noFile())
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			h.fail(w, r, noFile())
			return
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.fail(w, r, storage.FileTooLarge(maxSize))
				return
			}
			h.fail(w, r, errors.NewWithKey("BAD_REQUEST", "upload.invalid_form", http.StatusBadRequest).WithCause(err))
			return
		}

		if part.FormName() != uploadField || part.FileName() == "" {
			part.Close()
			continue
		}

		result, err := h.uploads.ProcessUpload(r.Context(), part, part.FileName(), part.Header.Get("Content-Type"))
		part.Close()
		if err != nil {
			h.fail(w, r, err)
			return
		}

		httputil.JSON(w, http.StatusOK, result)
		return
	}
}

func noFile() *errors.AppError {
	return errors.NewWithKey("NO_FILE", "upload.no_file", http.StatusBadRequest)
}
