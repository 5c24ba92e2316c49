package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/shelfscan-backend/internal/modules/intake"
	"github.com/yungbote/shelfscan-backend/internal/modules/reports"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/gcp"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// Clients holds the external services. Any of them may be unconfigured, in
// which case the operations that need it fail with failed-precondition.
type Clients struct {
	Blobs     intake.BlobStore
	Extractor intake.TextExtractor
	Sheets    reports.SheetWriter
	closers   []func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	if strings.TrimSpace(cfg.BucketName) != "" {
		storageCfg, err := gcp.ResolveObjectStorageConfig(cfg.ObjectStorageMode, cfg.EmulatorHost, cfg.PublicBaseURL)
		if err != nil {
			return out, err
		}
		store, err := gcp.NewShelfImageStore(ctx, log, gcp.BucketConfig{
			Name:      cfg.BucketName,
			CDNDomain: cfg.CDNDomain,
			Storage:   storageCfg,
		})
		if err != nil {
			return out, fmt.Errorf("init shelf image store: %w", err)
		}
		out.Blobs = store
		out.closers = append(out.closers, store.Close)
	} else {
		log.Warn("SHELF_IMAGES_GCS_BUCKET_NAME not set; image uploads disabled")
		out.Blobs = missingBlobs{}
	}

	switch cfg.OCRProvider {
	case OCRProviderVision:
		ocr, err := gcp.NewVisionOCR(ctx, log)
		if err != nil {
			return out, fmt.Errorf("init vision: %w", err)
		}
		out.Extractor = ocr
		out.closers = append(out.closers, ocr.Close)
	default:
		log.Warn("OCR disabled", "provider", cfg.OCRProvider)
		out.Extractor = missingOCR{}
	}

	if strings.TrimSpace(cfg.SheetsSpreadsheetID) != "" {
		sheets, err := gcp.NewSheetsClient(ctx, log)
		if err != nil {
			return out, fmt.Errorf("init sheets: %w", err)
		}
		out.Sheets = sheets
	}
	return out, nil
}

func (c Clients) Close(log *logger.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn("client close failed", "error", err)
		}
	}
}

type missingBlobs struct{}

func (missingBlobs) Upload(ctx context.Context, path, contentType string, data []byte, onProgress func(written, total int64)) (string, error) {
	return "", apierr.FailedPrecondition("image storage is not configured")
}

type missingOCR struct{}

func (missingOCR) ExtractText(ctx context.Context, imageURL string) (string, error) {
	return "", apierr.FailedPrecondition("OCR is not configured")
}
