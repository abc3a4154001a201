package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// fileStore implements ImageStore on the local file system. Saved files are
// expected to be served statically under urlPrefix.
type fileStore struct {
	dir       string
	urlPrefix string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewFileStore creates a file-system image store rooted at dir, creating the
// directory when it does not exist.
func NewFileStore(dir, urlPrefix string, logger zerolog.Logger) (ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}

	return &fileStore{
		dir:       dir,
		urlPrefix: urlPrefix,
		now:       time.Now,
		logger:    logger.With().Str("component", "image-store").Str("backend", "file").Logger(),
	}, nil
}

// Save writes the image to a new file and returns urlPrefix joined with its name.
// An existing file with the same name is never overwritten.
func (s *fileStore) Save(ctx context.Context, originalName, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fileName(s.now(), originalName, contentType)
	fullPath := filepath.Join(s.dir, name)

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		s.logger.Error().Err(err).Str("file", fullPath).Msg("failed to create image file")
		return "", fmt.Errorf("failed to create image file %s: %w", name, err)
	}

	written, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		s.logger.Error().Err(err).Str("file", fullPath).Msg("failed to write image file")
		return "", fmt.Errorf("failed to write image file %s: %w", name, err)
	}

	s.logger.Info().
		Str("file", fullPath).
		Int64("bytes", written).
		Msg("image saved")

	return path.Join(s.urlPrefix, name), nil
}
