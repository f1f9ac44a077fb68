package service

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/internal/idscan/imaging"
	"github.com/medflow/idscan/internal/idscan/ocr"
	"github.com/medflow/idscan/internal/idscan/storage"
	"github.com/medflow/idscan/pkg/errors"
	"github.com/medflow/idscan/pkg/logger"
)

const octetStream = "application/octet-stream"

// UploadService runs an uploaded document image through type checks,
// optional HEIC conversion and downscaling, and OCR extraction.
// Temp files never outlive the call.
type UploadService struct {
	store     *storage.TempStore
	converter imaging.Converter
	extractor ocr.Extractor
	allowed   map[string]bool
	allowList string
	maxDim    int
	maxPixels int64
	log       *logger.Logger
}

// UploadOptions configures the upload pipeline
type UploadOptions struct {
	AllowedTypes      []string
	MaxImageDimension int
	// MaxPixels rejects images above this decoded size, 0 uses imaging.DefaultMaxPixels
	MaxPixels int64
}

// NewUploadService creates a new upload service
func NewUploadService(store *storage.TempStore, converter imaging.Converter, extractor ocr.Extractor, opts UploadOptions, log *logger.Logger) *UploadService {
	allowed := make(map[string]bool, len(opts.AllowedTypes))
	names := make([]string, 0, len(opts.AllowedTypes))
	for _, t := range opts.AllowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || allowed[t] {
			continue
		}
		allowed[t] = true
		names = append(names, t)
	}

	maxPixels := opts.MaxPixels
	if maxPixels <= 0 {
		maxPixels = imaging.DefaultMaxPixels
	}

	return &UploadService{
		store:     store,
		converter: converter,
		extractor: extractor,
		allowed:   allowed,
		allowList: strings.Join(names, ", "),
		maxDim:    opts.MaxImageDimension,
		maxPixels: maxPixels,
		log:       log.WithComponent("upload"),
	}
}

// MaxSize returns the upload size limit in bytes
func (s *UploadService) MaxSize() int64 {
	return s.store.MaxSize()
}

// ProcessUpload stores r in a temp file and extracts identity fields from it.
// declaredType is the client supplied Content-Type, used only when sniffing
// the content is inconclusive.
func (s *UploadService) ProcessUpload(ctx context.Context, r io.Reader, fileName, declaredType string) (*domain.UploadResult, error) {
	tmp, err := s.store.Save(r, fileName)
	if err != nil {
		return nil, err
	}
	defer s.remove(tmp.Path)

	return s.process(ctx, tmp.Path, fileName, tmp.Size, declaredType)
}

// ProcessFile runs the pipeline on a file that is already on disk. The file is left in place.
func (s *UploadService) ProcessFile(ctx context.Context, path string) (*domain.UploadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.BadRequest("cannot read " + path).WithCause(err)
	}
	if info.Size() > s.store.MaxSize() {
		return nil, storage.FileTooLarge(s.store.MaxSize())
	}

	return s.process(ctx, path, filepath.Base(path), info.Size(), "")
}

func (s *UploadService) process(ctx context.Context, path, fileName string, size int64, declaredType string) (*domain.UploadResult, error) {
	mimeType, err := s.detectType(path, declaredType)
	if err != nil {
		return nil, err
	}

	if !s.allowed[mimeType] {
		return nil, errors.NewWithKey("UNSUPPORTED_FILE_TYPE", "upload.unsupported_type", http.StatusBadRequest,
			map[string]string{"type": mimeType, "allowed": s.allowList})
	}

	log := s.log.With().
		Str("file_name", fileName).
		Int64("file_size", size).
		Str("mime_type", mimeType).
		Logger()

	imagePath := path
	sendType := mimeType
	if imaging.IsHEIC(mimeType) {
		start := time.Now()
		converted, err := s.converter.ToJPEG(ctx, path)
		if err != nil {
			log.Error().Err(err).Msg("HEIC conversion failed")
			return nil, err
		}
		defer s.remove(converted)

		log.Info().Dur("conversion_duration", time.Since(start)).Msg("converted HEIC to JPEG")
		imagePath = converted
		sendType = "image/jpeg"
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, errors.Internal(err)
	}
	defer storage.ZeroBytes(data)

	image, resized, err := imaging.Downscale(data, s.maxDim, s.maxPixels)
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, errors.Internal(err)
	}
	if resized {
		defer storage.ZeroBytes(image)
		sendType = "image/jpeg"
		log.Debug().Int("bytes_before", len(data)).Int("bytes_after", len(image)).Msg("downscaled image")
	}

	start := time.Now()
	extraction, err := s.extractor.Extract(ctx, image, sendType)
	if err != nil {
		log.Warn().Err(err).Dur("ocr_duration", time.Since(start)).Msg("OCR extraction failed")
		return nil, err
	}
	log.Info().Dur("ocr_duration", time.Since(start)).Msg("OCR extraction completed")

	return &domain.UploadResult{
		ExtractedData: *extraction,
		FileName:      fileName,
		FileSize:      size,
		MimeType:      mimeType,
	}, nil
}

// detectType sniffs the file content and falls back to the declared type
func (s *UploadService) detectType(path, declaredType string) (string, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", errors.Internal(err)
	}

	sniffed := baseType(detected.String())
	if sniffed != octetStream {
		return sniffed, nil
	}
	if declared := baseType(declaredType); declared != "" {
		return declared, nil
	}
	return sniffed, nil
}

func (s *UploadService) remove(path string) {
	if err := storage.Remove(path); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("failed to remove temp file")
	}
}

// baseType strips parameters and lowercases a media type
func baseType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return strings.ToLower(t)
}
