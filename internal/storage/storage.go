// Package storage persists uploaded product images and hands back the
// reference string that is stored on the product.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

// sniffLen is the number of leading bytes inspected to detect the content type.
const sniffLen = 3072

// ImageStore defines the interface for saving product images.
type ImageStore interface {
	// Save writes the image read from r and returns its public reference.
	// originalName is only used for its extension.
	Save(ctx context.Context, originalName, contentType string, r io.Reader) (string, error)
}

// fileName builds the stored name: the current time in nanoseconds plus the
// original extension, or one derived from the content type when there is none.
func fileName(now time.Time, originalName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		if m := mimetype.Lookup(contentType); m != nil {
			ext = m.Extension()
		}
	}
	return fmt.Sprintf("%d%s", now.UnixNano(), ext)
}

// guardedStore rejects uploads that are too large or are not images before
// handing them to the wrapped store.
type guardedStore struct {
	next     ImageStore
	maxBytes int64
	logger   zerolog.Logger
}

// WithLimits wraps store so that only images of at most maxBytes are saved.
// Rejected uploads produce a *model.ValidationError on the "image" field.
func WithLimits(store ImageStore, maxBytes int64, logger zerolog.Logger) ImageStore {
	return &guardedStore{
		next:     store,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "image-guard").Logger(),
	}
}

// Save validates the upload and delegates to the wrapped store.
func (g *guardedStore) Save(ctx context.Context, originalName, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, g.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	if int64(len(data)) > g.maxBytes {
		g.logger.Warn().
			Str("file", originalName).
			Int64("max_bytes", g.maxBytes).
			Msg("upload too large")
		return "", model.NewValidationError("image", fmt.Sprintf("must be at most %d bytes", g.maxBytes))
	}

	if len(data) == 0 {
		return "", model.NewValidationError("image", "must not be empty")
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), "image/") {
		g.logger.Warn().
			Str("file", originalName).
			Str("detected", detected.String()).
			Msg("upload is not an image")
		return "", model.NewValidationError("image", "must be an image file")
	}

	return g.next.Save(ctx, originalName, detected.String(), bytes.NewReader(data))
}
