// Package media normalizes image attachments exchanged with providers
// and channel adapters: MIME type lookup by file extension, size limits,
// and thumbnailing.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/nextlevelbuilder/drost/internal/providers"
)

// maxImageBytes is the safety limit for reading image files (10MB).
const maxImageBytes = 10 * 1024 * 1024

// defaultThumbnailWidth bounds the longest edge of a generated thumbnail.
const defaultThumbnailWidth = 512

// Ref identifies a normalized image ready to attach to a provider turn.
type Ref struct {
	Path     string
	MimeType string
	Data     string // base64-encoded
}

// LoadImages reads local image files and returns base64-encoded
// ImageContent slices ready for a provider turn; unreadable or
// oversized files are skipped with a warning, never aborting the turn.
func LoadImages(paths []string) []providers.ImageContent {
	if len(paths) == 0 {
		return nil
	}

	var images []providers.ImageContent
	for _, p := range paths {
		ref, err := loadOne(p)
		if err != nil {
			slog.Warn("media: failed to load image", "path", p, "error", err)
			continue
		}
		images = append(images, providers.ImageContent{
			MimeType: ref.MimeType,
			Data:     ref.Data,
		})
	}
	return images
}

func loadOne(path string) (Ref, error) {
	mime := InferImageMime(path)
	if mime == "" {
		return Ref{}, fmt.Errorf("unsupported image extension: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Ref{}, err
	}
	if len(data) > maxImageBytes {
		return Ref{}, fmt.Errorf("image too large: %d bytes", len(data))
	}

	return Ref{
		Path:     path,
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// InferImageMime returns the MIME type for supported image extensions,
// or "" if path is not a recognized image.
func InferImageMime(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}

// Thumbnail decodes an image and resizes it so its longest edge is at
// most maxWidth, preserving aspect ratio; used to keep channel-bound
// previews and provider attachments within size limits.
func Thumbnail(data []byte, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		maxWidth = defaultThumbnailWidth
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("media: decode: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth && bounds.Dy() <= maxWidth {
		return data, nil
	}

	resized := imaging.Fit(img, maxWidth, maxWidth, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("media: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Dimensions returns the pixel width/height of an already-decoded image.
func Dimensions(img image.Image) (int, int) {
	b := img.Bounds()
	return b.Dx(), b.Dy()
}
