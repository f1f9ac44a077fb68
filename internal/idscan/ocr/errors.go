package ocr

import (
	"net/http"

	"github.com/medflow/idscan/pkg/errors"
)

func errEmptyResponse() *errors.AppError {
	return errors.NewWithKey("OCR_EMPTY_RESPONSE", "ocr.empty_response", http.StatusInternalServerError)
}

func errNoJSON() *errors.AppError {
	return errors.NewWithKey("OCR_NO_JSON", "ocr.no_json", http.StatusInternalServerError)
}

func errInvalidResponse(cause error) *errors.AppError {
	return errors.NewWithKey("OCR_INVALID_RESPONSE", "ocr.invalid_response", http.StatusInternalServerError).
		WithCause(cause)
}
