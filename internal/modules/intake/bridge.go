package intake

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/modules/activity"
	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

const MsgProcessingFailed = "Error processing image."

// TextExtractor returns the full text detected in the image at imageURL.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageURL string) (string, error)
}

type ParseRequest struct {
	ImageURL string `json:"imageUrl"`
	JobID    string `json:"jobId"`
}

type ParseResponse struct {
	ParsedData domain.ProductData `json:"parsedData"`
	ReviewID   string             `json:"reviewId"`
}

type BridgeDeps struct {
	Store     docstore.Store
	Extractor TextExtractor
	Ledger    *activity.Ledger
	Log       *logger.Logger
}

// Bridge runs OCR on an uploaded shelf image and records the result as a
// pending review owned by the caller.
type Bridge struct {
	store     docstore.Store
	extractor TextExtractor
	ledger    *activity.Ledger
	log       *logger.Logger
}

func NewBridge(deps BridgeDeps) *Bridge {
	return &Bridge{
		store:     deps.Store,
		extractor: deps.Extractor,
		ledger:    deps.Ledger,
		log:       deps.Log.With("service", "OCRBridge"),
	}
}

func (b *Bridge) ParseShelfImage(ctx context.Context, sess *domain.Session, req ParseRequest) (*ParseResponse, error) {
	if !sess.Authenticated() {
		return nil, apierr.Unauthenticated("The function must be called while authenticated.")
	}
	imageURL := strings.TrimSpace(req.ImageURL)
	jobID := strings.TrimSpace(req.JobID)
	if imageURL == "" || jobID == "" {
		return nil, apierr.InvalidArgument("imageUrl, jobId, and authenticated user are required.")
	}

	ctx, span := observability.StartSpan(ctx, "ocr.parse_shelf_image")
	defer span.End()

	start := time.Now()
	resp, err := b.run(ctx, sess, imageURL, jobID)
	if err != nil {
		observability.Current().ObserveOCR("error", time.Since(start))
		b.log.Error("Error processing image", "job_id", jobID, "contractor_id", sess.UserID, "error", err)
		return nil, apierr.WithMessage(apierr.CodeInternal, MsgProcessingFailed, err)
	}
	observability.Current().ObserveOCR("ok", time.Since(start))
	b.log.Info("shelf image parsed", "job_id", jobID, "review_id", resp.ReviewID, "products", len(resp.ParsedData.Products))
	return resp, nil
}

func (b *Bridge) run(ctx context.Context, sess *domain.Session, imageURL, jobID string) (*ParseResponse, error) {
	if b.extractor == nil {
		return nil, errors.New("no text extractor configured")
	}
	text, err := b.extractor.ExtractText(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	items := ParseShelfText(text)
	raw, err := domain.EncodeProducts(items)
	if err != nil {
		return nil, err
	}

	// The review is the last write; if it fails nothing is left behind.
	review := &domain.Review{
		JobID:        jobID,
		ContractorID: sess.UserID,
		ImageURL:     imageURL,
		OCRText:      text,
		Status:       domain.ReviewStatusPending,
		ParsedData:   raw,
	}
	id, err := b.store.Create(ctx, docstore.Reviews, review)
	if err != nil {
		return nil, err
	}

	b.ledger.Append(ctx, activity.Entry{
		Kind:     domain.EventReviewCreated,
		JobID:    jobID,
		ReviewID: id,
		ActorID:  sess.UserID,
		To:       string(domain.ReviewStatusPending),
		Data:     map[string]interface{}{"products": len(items)},
	})
	return &ParseResponse{ParsedData: domain.ProductData{Products: items}, ReviewID: id}, nil
}
