package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectInfo is the metadata of a stored object.
type ObjectInfo struct {
	ContentType string
	Size        int64
}

// ObjectStore opens objects by bucket and key.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
}

func (f *Fetcher) fetchObject(ctx context.Context, rawURL string) (*Resource, error) {
	if f.objects == nil {
		return nil, fmt.Errorf("%s: %w", rawURL, ErrObjectStoreAbsent)
	}
	bucket, key, err := objectLocation(rawURL)
	if err != nil {
		return nil, err
	}

	body, info, err := f.objects.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	if f.config.MaxFileSize > 0 && info.Size > f.config.MaxFileSize {
		body.Close()
		return nil, fmt.Errorf("get %s: %d bytes: %w", rawURL, info.Size, ErrTooLarge)
	}

	return &Resource{
		Body:        f.limit(body),
		ContentType: info.ContentType,
		FinalURL:    rawURL,
		Size:        info.Size,
	}, nil
}

// =============================================================================
// MINIO / S3
// =============================================================================

// S3Config holds connection settings for an S3-compatible endpoint.
type S3Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
}

// S3Store implements ObjectStore using the minio-go SDK.
type S3Store struct {
	client *minio.Client
}

// NewS3Store creates an S3-backed object store.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.EndpointURL == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("s3 credentials are required")
	}

	endpoint := cfg.EndpointURL
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.EndpointURL); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Store{client: client}, nil
}

// GetObject opens an object and reads its metadata.
func (s *S3Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, classifyObjectError(err)
	}

	// GetObject is lazy; Stat performs the request and surfaces missing keys.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, classifyObjectError(err)
	}

	return obj, ObjectInfo{ContentType: stat.ContentType, Size: stat.Size}, nil
}

func classifyObjectError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "no such key") || strings.Contains(msg, "does not exist") {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}
