package reports

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/modules/reviews"
	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/ctxutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

const defaultJoinConcurrency = 8

type Deps struct {
	Store           docstore.Store
	Log             *logger.Logger
	JoinConcurrency int
}

// Aggregator joins completed reviews with their job and contractor.
// Query failures fail the view; lookup failures degrade to the Unknown labels.
type Aggregator struct {
	store docstore.Store
	log   *logger.Logger
	limit int
}

func New(deps Deps) *Aggregator {
	limit := deps.JoinConcurrency
	if limit <= 0 {
		limit = defaultJoinConcurrency
	}
	return &Aggregator{
		store: deps.Store,
		log:   deps.Log.With("service", "ReportAggregator"),
		limit: limit,
	}
}

// CompletedQuery selects reviewed and admin reviewed reviews, newest first.
func CompletedQuery() docstore.Query {
	return docstore.Where(docstore.In("status", domain.ReportStatuses...)).Desc("timestamp")
}

// Rows is a one-shot report snapshot.
func (a *Aggregator) Rows(ctx context.Context) ([]Row, error) {
	var list []domain.Review
	if err := a.store.Query(ctx, docstore.Reviews, CompletedQuery(), &list); err != nil {
		a.log.Warn("report query failed", "code", apierr.CodeOf(err), "error", err)
		return nil, err
	}
	return a.Join(ctx, list), nil
}

// Watch delivers the joined report on every change to reviews.
func (a *Aggregator) Watch(ctx context.Context, onData func([]Row), onError func(error)) docstore.Unsubscribe {
	return a.watch(ctx, CompletedQuery(), "reports", onData, onError)
}

// WatchHistory is the contractor's submitted reviews joined with job titles.
func (a *Aggregator) WatchHistory(ctx context.Context, contractorID string, onData func([]Row), onError func(error)) docstore.Unsubscribe {
	return a.watch(ctx, reviews.HistoryQuery(contractorID), "history", onData, onError)
}

func (a *Aggregator) watch(ctx context.Context, q docstore.Query, view string, onData func([]Row), onError func(error)) docstore.Unsubscribe {
	joinCtx, cancel := context.WithCancel(ctxutil.Default(ctx))
	unsub := docstore.Subscribe[domain.Review](ctx, a.store, docstore.Reviews, q, func(list []domain.Review) {
		rows := a.Join(joinCtx, list)
		// Lookups cut short by teardown only produced sentinels; drop them.
		if joinCtx.Err() != nil {
			return
		}
		onData(rows)
	}, func(err error) {
		a.log.Warn("live view failed", "view", view, "code", apierr.CodeOf(err), "error", err)
		if onError != nil {
			onError(err)
		}
	})
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			unsub()
		})
	}
}

// Join resolves each distinct job and contractor once.
func (a *Aggregator) Join(ctx context.Context, list []domain.Review) []Row {
	jobIDs := map[string]struct{}{}
	userIDs := map[string]struct{}{}
	for _, r := range list {
		if r.JobID != "" {
			jobIDs[r.JobID] = struct{}{}
		}
		if r.ContractorID != "" {
			userIDs[r.ContractorID] = struct{}{}
		}
	}

	var (
		mu    sync.Mutex
		jobs  = make(map[string]domain.Job, len(jobIDs))
		users = make(map[string]domain.User, len(userIDs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for id := range jobIDs {
		id := id
		g.Go(func() error {
			var job domain.Job
			if a.lookup(gctx, docstore.Jobs, id, &job) {
				mu.Lock()
				jobs[id] = job
				mu.Unlock()
			}
			return nil
		})
	}
	for id := range userIDs {
		id := id
		g.Go(func() error {
			var u domain.User
			if a.lookup(gctx, docstore.Users, id, &u) {
				mu.Lock()
				users[id] = u
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	rows := make([]Row, 0, len(list))
	for _, r := range list {
		row := Row{
			ReviewID:        r.ID,
			JobID:           r.JobID,
			JobTitle:        UnknownJob,
			ContractorID:    r.ContractorID,
			ContractorName:  UnknownContractor,
			Status:          r.Status,
			ImageURL:        r.ImageURL,
			Timestamp:       r.Timestamp,
			AdminReviewedAt: r.AdminReviewedAt,
		}
		if job, ok := jobs[r.JobID]; ok {
			row.JobTitle = job.Title
			row.JobLocation = job.Location
		}
		if u, ok := users[r.ContractorID]; ok {
			row.ContractorName = u.Name
		}
		items, err := r.WorkingCopy()
		if err != nil {
			a.log.Warn("review data unreadable", "review_id", r.ID, "error", err)
			items = []domain.LineItem{}
		}
		row.Products = items
		rows = append(rows, row)
	}
	return rows
}

func (a *Aggregator) lookup(ctx context.Context, coll docstore.Collection, id string, dst interface{}) bool {
	err := a.store.Get(ctx, coll, id, dst)
	switch {
	case err == nil:
		observability.Current().IncReportLookup(string(coll), "found")
		return true
	case errors.Is(err, docstore.ErrNotFound):
		observability.Current().IncReportLookup(string(coll), "missing")
	default:
		observability.Current().IncReportLookup(string(coll), "error")
		a.log.Warn("report lookup failed", "collection", coll, "id", id, "error", err)
	}
	return false
}
