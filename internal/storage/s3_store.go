package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// putObjectAPI is the subset of the S3 client used by the store.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store implements ImageStore on AWS S3.
type s3Store struct {
	client    putObjectAPI
	bucket    string
	prefix    string
	publicURL string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewS3Store creates a new S3-backed image store. References are publicURL
// joined with the object key; without a publicURL the virtual-hosted bucket
// endpoint is used.
func NewS3Store(ctx context.Context, bucket, region, prefix, publicURL string, logger zerolog.Logger) (ImageStore, error) {
	logger = logger.With().Str("component", "image-store").Str("backend", "s3").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Str("prefix", prefix).
		Msg("S3 image store initialised")

	return newS3Store(s3.NewFromConfig(cfg), bucket, prefix, publicURL, logger), nil
}

func newS3Store(client putObjectAPI, bucket, prefix, publicURL string, logger zerolog.Logger) *s3Store {
	return &s3Store{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		publicURL: publicURL,
		now:       time.Now,
		logger:    logger,
	}
}

// Save uploads the image under prefix and returns its public URL.
func (s *s3Store) Save(ctx context.Context, originalName, contentType string, r io.Reader) (string, error) {
	// The SDK needs a seekable body to sign the payload.
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	key := s.prefix + fileName(s.now(), originalName, contentType)

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("image uploaded to S3")

	return s.publicURL + "/" + key, nil
}
