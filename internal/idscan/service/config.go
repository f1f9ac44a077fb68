package service

import (
	"github.com/medflow/idscan/internal/idscan/imaging"
	"github.com/medflow/idscan/internal/idscan/ocr"
	"github.com/medflow/idscan/internal/idscan/storage"
	"github.com/medflow/idscan/pkg/config"
	"github.com/medflow/idscan/pkg/logger"
)

// NewUploadServiceFromConfig wires the temp store, HEIC converter and OCR
// extractor described by cfg into an upload service
func NewUploadServiceFromConfig(cfg *config.Config, log *logger.Logger) (*UploadService, error) {
	store, err := storage.NewTempStore(cfg.Upload.Dir, cfg.Upload.MaxSize)
	if err != nil {
		return nil, err
	}

	extractor := ocr.NewOpenAIExtractor(ocr.Config{
		APIKey:    cfg.OCR.APIKey,
		Model:     cfg.OCR.Model,
		BaseURL:   cfg.OCR.BaseURL,
		Timeout:   cfg.OCR.Timeout,
		MaxTokens: cfg.OCR.MaxTokens,
	}, log)

	return NewUploadService(
		store,
		imaging.NewCommandConverter(cfg.Upload.HEICCommand, log),
		extractor,
		UploadOptions{
			AllowedTypes:      cfg.Upload.AllowedTypes,
			MaxImageDimension: cfg.Upload.MaxImageDimension,
			MaxPixels:         cfg.Upload.MaxPixels,
		},
		log,
	), nil
}
