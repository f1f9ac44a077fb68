// Package imaging prepares uploaded document photos for OCR.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/medflow/idscan/pkg/errors"
	"github.com/medflow/idscan/pkg/logger"
)

// Converter turns a HEIC/HEIF file into a JPEG file next to it
type Converter interface {
	ToJPEG(ctx context.Context, src string) (string, error)
}

// CommandConverter shells out to a converter such as libheif's heif-convert,
// invoked as "<command> <src> <dst>".
type CommandConverter struct {
	command string
	log     *logger.Logger
}

// NewCommandConverter creates a converter for the given command
func NewCommandConverter(command string, log *logger.Logger) *CommandConverter {
	if command == "" {
		command = "heif-convert"
	}
	return &CommandConverter{command: command, log: log.WithComponent("heic")}
}

// ToJPEG converts src and returns the path of the new JPEG.
// The caller owns the returned file and must remove it.
func (c *CommandConverter) ToJPEG(ctx context.Context, src string) (string, error) {
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".converted.jpg"

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, src, dst)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(dst)
		c.log.Error().
			Err(err).
			Str("command", c.command).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Msg("heic conversion failed")
		return "", ConversionFailed(fmt.Errorf("%s: %w", c.command, err))
	}

	if info, err := os.Stat(dst); err != nil || info.Size() == 0 {
		os.Remove(dst)
		return "", ConversionFailed(fmt.Errorf("%s produced no output", c.command))
	}

	return dst, nil
}

// ConversionFailed is the 500 returned when a HEIC image cannot be converted
func ConversionFailed(cause error) *errors.AppError {
	return errors.NewWithKey("IMAGE_CONVERSION_FAILED", "upload.conversion_failed", http.StatusInternalServerError).
		WithCause(cause)
}

// IsHEIC reports whether a MIME type needs conversion before OCR
func IsHEIC(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}
	return false
}

var _ Converter = (*CommandConverter)(nil)
