package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// uploadChunkSize must be a multiple of 256 KiB; progress is reported per chunk.
const uploadChunkSize = 256 * 1024

type BucketConfig struct {
	Name      string
	CDNDomain string
	Storage   ObjectStorageConfig
	// Timeout bounds one upload; zero means two minutes.
	Timeout time.Duration
}

// ShelfImageStore uploads capture images to one GCS bucket.
type ShelfImageStore struct {
	log     *logger.Logger
	client  *storage.Client
	bucket  string
	cdn     string
	storage ObjectStorageConfig
	timeout time.Duration
}

func NewShelfImageStore(ctx context.Context, log *logger.Logger, cfg BucketConfig) (*ShelfImageStore, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("missing SHELF_IMAGES_GCS_BUCKET_NAME")
	}
	client, err := newStorageClient(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	s := newShelfImageStore(log, client, cfg)
	s.log.Info("Object storage initialized",
		"mode", cfg.Storage.Mode,
		"mode_inferred", cfg.Storage.Inferred,
		"bucket", s.bucket,
		"public_base_url", cfg.Storage.PublicBaseURL,
	)
	return s, nil
}

func newShelfImageStore(log *logger.Logger, client *storage.Client, cfg BucketConfig) *ShelfImageStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ShelfImageStore{
		log:     log.With("service", "ShelfImageStore"),
		client:  client,
		bucket:  strings.TrimSpace(cfg.Name),
		cdn:     strings.Trim(strings.TrimSpace(cfg.CDNDomain), "/"),
		storage: cfg.Storage,
		timeout: timeout,
	}
}

func newStorageClient(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		// The storage client only honours the emulator through the environment.
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{Field: "OBJECT_STORAGE_MODE", Value: string(cfg.Mode)}
	}
}

// Upload writes data to path and returns its public URL. onProgress receives
// the bytes acknowledged so far and always ends with written == total.
func (s *ShelfImageStore) Upload(ctx context.Context, path, contentType string, data []byte, onProgress func(written, total int64)) (string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", apierr.InvalidArgument("upload path is required")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	total := int64(len(data))
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.ChunkSize = uploadChunkSize
	if onProgress != nil {
		w.ProgressFunc = func(written int64) { onProgress(written, total) }
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", ClassifyUploadError(fmt.Errorf("write %s: %w", path, err))
	}
	if err := w.Close(); err != nil {
		return "", ClassifyUploadError(fmt.Errorf("finalize %s: %w", path, err))
	}
	if onProgress != nil {
		onProgress(total, total)
	}
	s.log.Debug("object uploaded", "bucket", s.bucket, "path", path, "bytes", total)
	return s.PublicURL(path), nil
}

func (s *ShelfImageStore) PublicURL(path string) string {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if s.cdn != "" {
		return fmt.Sprintf("https://%s/%s", s.cdn, path)
	}
	if s.storage.IsEmulator() {
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", s.storage.PublicBaseURL, url.PathEscape(s.bucket), url.PathEscape(path))
	}
	if s.storage.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.storage.PublicBaseURL, s.bucket, path)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, path)
}

func (s *ShelfImageStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// ClassifyUploadError maps storage failures onto the upload error codes.
func ClassifyUploadError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return apierr.Wrap(apierr.CodeUploadCanceled, err)
	}
	if errors.Is(err, storage.ErrBucketNotExist) {
		return apierr.Wrap(apierr.CodeBucketNotFound, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apierr.Wrap(apierr.CodeUploadUnauthorized, err)
		case http.StatusNotFound:
			return apierr.Wrap(apierr.CodeBucketNotFound, err)
		}
	}
	return apierr.Wrap(apierr.CodeUploadUnknown, err)
}
