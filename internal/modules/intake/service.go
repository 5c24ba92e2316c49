package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// BlobStore uploads one object and returns a durable URL for it. onProgress,
// when set, receives bytes written so far and the total.
type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte, onProgress func(written, total int64)) (string, error)
}

const (
	StageUpload     = "upload"
	StageProcessing = "processing"
)

type Progress struct {
	Stage            string `json:"stage"`
	BytesTransferred int64  `json:"bytesTransferred"`
	TotalBytes       int64  `json:"totalBytes"`
}

type ServiceDeps struct {
	Store  docstore.Store
	Blobs  BlobStore
	Bridge *Bridge
	Log    *logger.Logger
	Now    func() time.Time
}

// Service is the contractor capture path: upload the photo, then hand its
// URL to the bridge.
type Service struct {
	store  docstore.Store
	blobs  BlobStore
	bridge *Bridge
	log    *logger.Logger
	now    func() time.Time
}

func NewService(deps ServiceDeps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  deps.Store,
		blobs:  deps.Blobs,
		bridge: deps.Bridge,
		log:    deps.Log.With("service", "ImageIntake"),
		now:    now,
	}
}

// ObjectPath is where a capture for jobID taken at t is stored.
func ObjectPath(jobID string, t time.Time, ext string) string {
	return fmt.Sprintf("shelf_images/%s/%d.%s", jobID, t.UnixMilli(), ext)
}

func (s *Service) CaptureAndSubmit(ctx context.Context, sess *domain.Session, jobID string, image []byte, onProgress func(Progress)) (*ParseResponse, error) {
	if !sess.Authenticated() {
		return nil, apierr.Unauthenticated("sign in to upload shelf images")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, apierr.InvalidArgument("jobId is required")
	}
	info, err := SniffImage(image)
	if err != nil {
		return nil, err
	}

	var job domain.Job
	if err := s.store.Get(ctx, docstore.Jobs, jobID, &job); err != nil {
		return nil, err
	}
	if job.ContractorID == nil || *job.ContractorID != sess.UserID {
		return nil, apierr.PermissionDenied("this job is not assigned to you")
	}

	report := func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	total := int64(len(image))
	report(Progress{Stage: StageUpload, TotalBytes: total})

	path := ObjectPath(jobID, s.now(), info.Ext)
	url, err := s.blobs.Upload(ctx, path, info.ContentType, image, func(written, total int64) {
		report(Progress{Stage: StageUpload, BytesTransferred: written, TotalBytes: total})
	})
	if err != nil {
		err = classifyUpload(err)
		observability.Current().ObserveUpload(string(apierr.CodeOf(err)), total)
		s.log.Warn("shelf image upload failed", "job_id", jobID, "path", path, "code", apierr.CodeOf(err), "error", err)
		return nil, err
	}
	observability.Current().ObserveUpload("ok", total)
	s.log.Info("shelf image uploaded", "job_id", jobID, "path", path, "bytes", total, "format", info.Format)

	report(Progress{Stage: StageProcessing, BytesTransferred: total, TotalBytes: total})
	return s.bridge.ParseShelfImage(ctx, sess, ParseRequest{ImageURL: url, JobID: jobID})
}

// CaptureFrom takes a photo from capture and submits it for jobID.
func (s *Service) CaptureFrom(ctx context.Context, sess *domain.Session, jobID string, capture ImageCapture, onProgress func(Progress)) (*ParseResponse, error) {
	if capture == nil {
		return nil, apierr.InvalidArgument("no image capture available")
	}
	image, err := capture.Capture(ctx)
	if err != nil {
		return nil, apierr.WithMessage(apierr.CodeInvalidArgument, "Could not capture an image.", err)
	}
	return s.CaptureAndSubmit(ctx, sess, jobID, image, onProgress)
}

func classifyUpload(err error) error {
	switch apierr.CodeOf(err) {
	case apierr.CodeUploadCanceled, apierr.CodeUploadUnauthorized, apierr.CodeBucketNotFound, apierr.CodeUploadUnknown:
		return err
	default:
		return apierr.Wrap(apierr.CodeUploadUnknown, err)
	}
}
