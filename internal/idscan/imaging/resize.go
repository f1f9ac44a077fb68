package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/medflow/idscan/pkg/errors"
)

const jpegQuality = 90

// DefaultMaxPixels caps the decoded size of an upload at 50 megapixels
const DefaultMaxPixels int64 = 50_000_000

// Downscale shrinks an image whose longest edge exceeds maxDim and re-encodes it as JPEG.
// It reports whether the image was changed. Images that cannot be decoded, or that
// already fit, are returned untouched. maxDim <= 0 disables resizing.
// Images whose header declares more than maxPixels pixels are rejected with
// ImageTooLarge before any pixel data is decoded; maxPixels <= 0 disables the cap.
func Downscale(data []byte, maxDim int, maxPixels int64) ([]byte, bool, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return data, false, nil
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, false, ImageTooLarge(maxPixels)
	}
	if maxDim <= 0 || (cfg.Width <= maxDim && cfg.Height <= maxDim) {
		return data, false, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, false, nil
	}

	w, h := fit(cfg.Width, cfg.Height, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

// fit scales w x h so the longest edge equals maxDim, keeping the aspect ratio
func fit(w, h, maxDim int) (int, int) {
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}

// ImageTooLarge is the 400 for images whose pixel count exceeds the limit
func ImageTooLarge(maxPixels int64) *errors.AppError {
	return errors.NewWithKey("IMAGE_TOO_LARGE", "upload.image_too_large", http.StatusBadRequest,
		map[string]string{"max": strconv.FormatInt(maxPixels, 10)})
}
