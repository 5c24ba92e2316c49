package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/modules/activity"
	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

const MsgFixBeforeSaving = "Please fix validation errors before saving."

type Deps struct {
	Store  docstore.Store
	Log    *logger.Logger
	Ledger *activity.Ledger
}

// Manager owns the review lifecycle: pending, reviewed, admin_reviewed.
type Manager struct {
	store  docstore.Store
	log    *logger.Logger
	ledger *activity.Ledger
}

func New(deps Deps) *Manager {
	return &Manager{
		store:  deps.Store,
		log:    deps.Log.With("service", "ReviewManager"),
		ledger: deps.Ledger,
	}
}

func (m *Manager) Get(ctx context.Context, reviewID string) (*domain.Review, error) {
	var r domain.Review
	if err := m.store.Get(ctx, docstore.Reviews, strings.TrimSpace(reviewID), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WorkingCopy loads a review and returns the line items an editor should start from.
func (m *Manager) WorkingCopy(ctx context.Context, reviewID string) (*domain.Review, []domain.LineItem, error) {
	r, err := m.Get(ctx, reviewID)
	if err != nil {
		return nil, nil, err
	}
	items, err := r.WorkingCopy()
	if err != nil {
		return nil, nil, apierr.Wrap(apierr.CodeInternal, err)
	}
	return r, items, nil
}

// SubmitContractorReview records the contractor's corrected items and moves
// the review from pending to reviewed.
func (m *Manager) SubmitContractorReview(ctx context.Context, sess *domain.Session, reviewID string, drafts []DraftItem) (*domain.Review, error) {
	return m.save(ctx, transition{
		sess:      sess,
		reviewID:  reviewID,
		drafts:    drafts,
		to:        domain.ReviewStatusReviewed,
		dataField: "reviewed_data",
		event:     domain.EventReviewSubmitted,
		authorize: func(r *domain.Review) error {
			if !sess.IsContractor() || r.ContractorID != sess.UserID {
				return apierr.PermissionDenied("only the assigned contractor can submit this review")
			}
			return nil
		},
	})
}

// SaveAdminReview records the admin's final items. It may be repeated; each
// save overwrites the previous admin data.
func (m *Manager) SaveAdminReview(ctx context.Context, sess *domain.Session, reviewID string, drafts []DraftItem) (*domain.Review, error) {
	return m.save(ctx, transition{
		sess:      sess,
		reviewID:  reviewID,
		drafts:    drafts,
		to:        domain.ReviewStatusAdminReviewed,
		dataField: "admin_reviewed_data",
		extra:     docstore.Fields{"admin_reviewed_at": docstore.ServerTimestamp},
		event:     domain.EventReviewAdminSaved,
		authorize: func(*domain.Review) error {
			if !sess.IsAdmin() {
				return apierr.PermissionDenied("only admins can finalize reviews")
			}
			return nil
		},
	})
}

type transition struct {
	sess      *domain.Session
	reviewID  string
	drafts    []DraftItem
	to        domain.ReviewStatus
	dataField string
	extra     docstore.Fields
	event     domain.EventKind
	authorize func(*domain.Review) error
}

func (m *Manager) save(ctx context.Context, t transition) (*domain.Review, error) {
	r, from, err := m.apply(ctx, t)
	outcome := "ok"
	if err != nil {
		outcome = string(apierr.CodeOf(err))
		m.log.Warn("review save rejected", "review_id", t.reviewID, "to", t.to, "code", outcome, "error", err)
	} else {
		m.log.Info("review saved", "review_id", r.ID, "from", from, "to", r.Status)
	}
	observability.Current().IncReviewTransition(string(from), string(t.to), outcome)
	return r, err
}

func (m *Manager) apply(ctx context.Context, t transition) (*domain.Review, domain.ReviewStatus, error) {
	if !t.sess.Authenticated() {
		return nil, "", apierr.Unauthenticated("sign in to save reviews")
	}
	reviewID := strings.TrimSpace(t.reviewID)
	if reviewID == "" {
		return nil, "", apierr.InvalidArgument("reviewId is required")
	}

	// Validation happens before any read or write; a rejected save touches nothing.
	items, verrs := ValidateLineItems(t.drafts)
	if verrs != nil {
		for _, fe := range verrs {
			observability.Current().IncValidationError(fe.Field)
		}
		return nil, "", apierr.WithMessage(apierr.CodeInvalidArgument, MsgFixBeforeSaving, verrs)
	}

	r, err := m.Get(ctx, reviewID)
	if err != nil {
		return nil, "", err
	}
	from := r.Status
	if err := t.authorize(r); err != nil {
		return nil, from, err
	}
	if !domain.CanTransition(from, t.to) {
		return nil, from, apierr.Errorf(apierr.CodeFailedPrecondition, "review is %s and cannot become %s", from, t.to)
	}

	raw, err := domain.EncodeProducts(items)
	if err != nil {
		return nil, from, apierr.Wrap(apierr.CodeInternal, err)
	}
	fields := docstore.Fields{
		"status":    t.to,
		t.dataField: raw,
	}
	for k, v := range t.extra {
		fields[k] = v
	}
	sources := domain.SourcesFor(t.to)
	if err := m.store.Update(ctx, docstore.Reviews, reviewID, fields, docstore.In("status", sources...)); err != nil {
		if errors.Is(err, docstore.ErrFailedPrecondition) {
			return nil, from, apierr.WithMessage(apierr.CodeFailedPrecondition, "This review was changed by someone else. Reload and try again.", err)
		}
		return nil, from, err
	}

	m.ledger.Append(ctx, activity.Entry{
		Kind:     t.event,
		JobID:    r.JobID,
		ReviewID: r.ID,
		ActorID:  t.sess.UserID,
		From:     string(from),
		To:       string(t.to),
		Data:     map[string]interface{}{"products": len(items)},
	})

	saved, err := m.Get(ctx, reviewID)
	if err != nil {
		// The write landed; fall back to the local view.
		r.Status = t.to
		switch t.dataField {
		case "reviewed_data":
			r.ReviewedData = raw
		case "admin_reviewed_data":
			r.AdminReviewedData = raw
		}
		return r, from, nil
	}
	return saved, from, nil
}

// JobReviewsQuery selects every review of a job, oldest first.
func JobReviewsQuery(jobID string) docstore.Query {
	return docstore.Where(docstore.Eq("job_id", jobID)).Asc("timestamp")
}

// HistoryQuery selects a contractor's submitted reviews, newest first.
func HistoryQuery(contractorID string) docstore.Query {
	return docstore.Where(
		docstore.Eq("contractor_id", contractorID),
		docstore.Eq("status", domain.ReviewStatusReviewed),
	).Desc("timestamp")
}

func (m *Manager) WatchJobReviews(ctx context.Context, jobID string, onData func([]domain.Review), onError func(error)) docstore.Unsubscribe {
	return docstore.Subscribe[domain.Review](ctx, m.store, docstore.Reviews, JobReviewsQuery(jobID), onData, m.logged("job_reviews", onError))
}

func (m *Manager) WatchContractorHistory(ctx context.Context, contractorID string, onData func([]domain.Review), onError func(error)) docstore.Unsubscribe {
	return docstore.Subscribe[domain.Review](ctx, m.store, docstore.Reviews, HistoryQuery(contractorID), onData, m.logged("history", onError))
}

// WatchReview follows one review; onData receives nil while it does not exist.
func (m *Manager) WatchReview(ctx context.Context, reviewID string, onData func(*domain.Review), onError func(error)) docstore.Unsubscribe {
	return docstore.SubscribeOne[domain.Review](ctx, m.store, docstore.Reviews, reviewID, onData, m.logged("review", onError))
}

func (m *Manager) logged(view string, onError func(error)) func(error) {
	return func(err error) {
		m.log.Warn("live view failed", "view", view, "code", apierr.CodeOf(err), "error", err)
		if onError != nil {
			onError(err)
		}
	}
}
