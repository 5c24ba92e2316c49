package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/http/response"
	"github.com/yungbote/shelfscan-backend/internal/modules/activity"
	"github.com/yungbote/shelfscan-backend/internal/modules/reviews"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/ctxutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

type ReviewHandler struct {
	log     *logger.Logger
	reviews *reviews.Manager
	ledger  *activity.Ledger
}

func NewReviewHandler(log *logger.Logger, reviews *reviews.Manager, ledger *activity.Ledger) *ReviewHandler {
	return &ReviewHandler{log: log.With("handler", "ReviewHandler"), reviews: reviews, ledger: ledger}
}

type reviewView struct {
	*domain.Review
	WorkingCopy []domain.LineItem `json:"workingCopy"`
}

type saveReviewRequest struct {
	Products []reviews.DraftItem `json:"products"`
}

// GET /api/reviews/:id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	rv, items, err := h.reviews.WorkingCopy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err, "view this review")
		return
	}
	response.RespondOK(c, gin.H{"review": reviewView{Review: rv, WorkingCopy: items}})
}

// POST /api/reviews/:id/submit
func (h *ReviewHandler) Submit(c *gin.Context) {
	h.save(c, "submit this review", h.reviews.SubmitContractorReview)
}

// POST /api/reviews/:id/admin-review
func (h *ReviewHandler) AdminReview(c *gin.Context) {
	h.save(c, "save this review", h.reviews.SaveAdminReview)
}

type saveFunc func(ctx context.Context, sess *domain.Session, reviewID string, drafts []reviews.DraftItem) (*domain.Review, error)

func (h *ReviewHandler) save(c *gin.Context, action string, fn saveFunc) {
	var req saveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Wrap(apierr.CodeInvalidArgument, err), action)
		return
	}
	// An omitted list would otherwise save as empty and wipe the line items.
	if req.Products == nil {
		response.RespondError(c, apierr.InvalidArgument("products is required"), action)
		return
	}
	rv, err := fn(c.Request.Context(), ctxutil.GetSession(c.Request.Context()), c.Param("id"), req.Products)
	if err != nil {
		var verrs reviews.ValidationErrors
		if errors.As(err, &verrs) {
			response.RespondErrorWithDetails(c, err, action, verrs)
			return
		}
		response.RespondError(c, err, action)
		return
	}
	response.RespondOK(c, gin.H{"review": rv})
}

// GET /api/reviews/:id/events
func (h *ReviewHandler) Events(c *gin.Context) {
	reviewID := strings.TrimSpace(c.Param("id"))
	events, err := h.ledger.ForReview(c.Request.Context(), reviewID)
	if err != nil {
		response.RespondError(c, err, "view review history")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	response.RespondOK(c, gin.H{"events": events})
}

// GET /api/reviews/:id/stream
func (h *ReviewHandler) StreamReview(c *gin.Context) {
	reviewID := strings.TrimSpace(c.Param("id"))
	serveLive(c, h.log, func(ctx context.Context, out *realtime.Outbox) docstore.Unsubscribe {
		onData, onError := snapshotsTo[*reviewView](out, "view this review")
		return h.reviews.WatchReview(ctx, reviewID, func(rv *domain.Review) {
			if rv == nil {
				onData(nil)
				return
			}
			onData(&h.withWorkingCopies([]domain.Review{*rv})[0])
		}, onError)
	})
}

// GET /api/jobs/:id/reviews/stream
func (h *ReviewHandler) StreamJobReviews(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	serveLive(c, h.log, func(ctx context.Context, out *realtime.Outbox) docstore.Unsubscribe {
		onData, onError := snapshotsTo[[]reviewView](out, "view reviews for this job")
		return h.reviews.WatchJobReviews(ctx, jobID, func(list []domain.Review) {
			onData(h.withWorkingCopies(list))
		}, onError)
	})
}

func (h *ReviewHandler) withWorkingCopies(list []domain.Review) []reviewView {
	out := make([]reviewView, 0, len(list))
	for i := range list {
		rv := &list[i]
		items, err := rv.WorkingCopy()
		if err != nil {
			h.log.Warn("review products not decodable", "review_id", rv.ID, "error", err)
			items = []domain.LineItem{}
		}
		out = append(out, reviewView{Review: rv, WorkingCopy: items})
	}
	return out
}
