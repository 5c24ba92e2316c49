package activity

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// Entry describes one lifecycle transition to record.
type Entry struct {
	Kind     domain.EventKind
	JobID    string
	ReviewID string
	ActorID  string
	From     string
	To       string
	Data     map[string]interface{}
}

// Ledger appends transition events. Appends are best effort: a failure is
// logged and never undoes the transition that produced it.
type Ledger struct {
	store docstore.Store
	log   *logger.Logger
}

func NewLedger(store docstore.Store, log *logger.Logger) *Ledger {
	return &Ledger{store: store, log: log.With("service", "ActivityLedger")}
}

func (l *Ledger) Append(ctx context.Context, e Entry) {
	if l == nil {
		return
	}
	ev := &domain.Event{
		Kind:       e.Kind,
		JobID:      e.JobID,
		ReviewID:   e.ReviewID,
		ActorID:    e.ActorID,
		FromStatus: e.From,
		ToStatus:   e.To,
	}
	if len(e.Data) > 0 {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			l.log.Warn("activity data not encodable", "kind", e.Kind, "error", err)
		} else {
			ev.Data = datatypes.JSON(raw)
		}
	}
	if _, err := l.store.Create(context.WithoutCancel(ctx), docstore.ActivityEvents, ev); err != nil {
		l.log.Warn("activity append failed", "kind", e.Kind, "job_id", e.JobID, "review_id", e.ReviewID, "error", err)
	}
}

// ForReview lists a review's events oldest first.
func (l *Ledger) ForReview(ctx context.Context, reviewID string) ([]domain.Event, error) {
	var out []domain.Event
	q := docstore.Where(docstore.Eq("review_id", reviewID)).Asc("created_at")
	if err := l.store.Query(ctx, docstore.ActivityEvents, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ForJob lists a job's events oldest first.
func (l *Ledger) ForJob(ctx context.Context, jobID string) ([]domain.Event, error) {
	var out []domain.Event
	q := docstore.Where(docstore.Eq("job_id", jobID)).Asc("created_at")
	if err := l.store.Query(ctx, docstore.ActivityEvents, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}
