package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/ctxutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

type gormStore struct {
	db     *gorm.DB
	log    *logger.Logger
	local  ChangeSource
	remote realtime.Publisher
	poll   time.Duration
}

type Option func(*gormStore)

// WithPollInterval makes live subscriptions re-read every d and re-deliver
// when the result differs, so writes from other processes show up without
// a change bus.
func WithPollInterval(d time.Duration) Option {
	return func(s *gormStore) {
		if d > 0 {
			s.poll = d
		}
	}
}

// NewGormStore persists documents through gorm. Every committed write is
// signalled on local and, when remote is non-nil, also published there for
// other instances.
func NewGormStore(db *gorm.DB, log *logger.Logger, local ChangeSource, remote realtime.Publisher, opts ...Option) Store {
	s := &gormStore{
		db:     db,
		log:    log.With("service", "DocStore"),
		local:  local,
		remote: remote,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gormStore) Get(ctx context.Context, coll Collection, id string, dst interface{}) error {
	ctx = ctxutil.Default(ctx)
	if strings.TrimSpace(id) == "" {
		return apierr.Wrap(apierr.CodeNotFound, fmt.Errorf("%s: empty id: %w", coll, ErrNotFound))
	}
	err := s.db.WithContext(ctx).Table(string(coll)).Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id}).Take(dst).Error
	if err != nil {
		return classify(fmt.Sprintf("get %s/%s", coll, id), err)
	}
	return nil
}

func (s *gormStore) Query(ctx context.Context, coll Collection, q Query, dst interface{}) error {
	ctx = ctxutil.Default(ctx)
	tx := s.db.WithContext(ctx).Table(string(coll))
	tx, err := applyFilters(tx, q.Filters)
	if err != nil {
		return apierr.Wrap(apierr.CodeInvalidArgument, err)
	}
	if q.OrderBy != nil {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy.Field}, Desc: q.OrderBy.Desc})
	}
	// Stable order for documents sharing the sort key.
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if err := tx.Find(dst).Error; err != nil {
		return classify(fmt.Sprintf("query %s", coll), err)
	}
	return nil
}

func (s *gormStore) Create(ctx context.Context, coll Collection, doc Document) (string, error) {
	ctx = ctxutil.Default(ctx)
	if err := s.db.WithContext(ctx).Table(string(coll)).Create(doc).Error; err != nil {
		return "", classify(fmt.Sprintf("create %s", coll), err)
	}
	id := doc.DocumentID()
	s.publish(ctx, realtime.Change{Collection: string(coll), ID: id, Op: realtime.ChangeCreated})
	return id, nil
}

func (s *gormStore) Update(ctx context.Context, coll Collection, id string, fields Fields, conds ...Filter) error {
	ctx = ctxutil.Default(ctx)
	if len(fields) == 0 {
		return apierr.InvalidArgument("update requires at least one field")
	}
	now := s.db.NowFunc()
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if k == "id" {
			return apierr.InvalidArgument("id is immutable")
		}
		if _, ok := v.(serverTimestamp); ok {
			v = now
		}
		values[k] = v
	}

	tx := s.db.WithContext(ctx).Table(string(coll)).Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id})
	tx, err := applyFilters(tx, conds)
	if err != nil {
		return apierr.Wrap(apierr.CodeInvalidArgument, err)
	}
	res := tx.Updates(values)
	if res.Error != nil {
		return classify(fmt.Sprintf("update %s/%s", coll, id), res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Table(string(coll)).Where(clause.Eq{Column: clause.Column{Name: "id"}, Value: id}).Count(&n).Error; err != nil {
			return classify(fmt.Sprintf("update %s/%s", coll, id), err)
		}
		if n == 0 {
			return apierr.Wrap(apierr.CodeNotFound, fmt.Errorf("update %s/%s: %w", coll, id, ErrNotFound))
		}
		return apierr.Wrap(apierr.CodeFailedPrecondition, fmt.Errorf("update %s/%s: %w", coll, id, ErrFailedPrecondition))
	}
	s.publish(ctx, realtime.Change{Collection: string(coll), ID: id, Op: realtime.ChangeUpdated, At: now})
	return nil
}

func (s *gormStore) Listen(coll Collection) Listener {
	return s.local.Listen(string(coll))
}

func (s *gormStore) PollInterval() time.Duration { return s.poll }

func (s *gormStore) publish(ctx context.Context, ch realtime.Change) {
	if ch.At.IsZero() {
		ch.At = time.Now().UTC()
	}
	ctx = context.WithoutCancel(ctx)
	if s.local != nil {
		_ = s.local.Publish(ctx, ch)
	}
	if s.remote == nil {
		return
	}
	// The write already committed; other instances catch up on their next poll.
	if err := s.remote.Publish(ctx, ch); err != nil {
		s.log.Warn("change publish failed", "collection", ch.Collection, "id", ch.ID, "error", err)
	}
}

func applyFilters(tx *gorm.DB, filters []Filter) (*gorm.DB, error) {
	for _, f := range filters {
		if strings.TrimSpace(f.Field) == "" {
			return nil, errors.New("filter field required")
		}
		col := clause.Column{Name: f.Field}
		switch f.Op {
		case OpEq:
			tx = tx.Where(clause.Eq{Column: col, Value: f.Value})
		case OpIn:
			vals, _ := f.Value.([]interface{})
			if len(vals) == 0 {
				return nil, fmt.Errorf("filter %s: in requires values", f.Field)
			}
			tx = tx.Where(clause.IN{Column: col, Values: vals})
		default:
			return nil, fmt.Errorf("filter %s: unsupported op %q", f.Field, f.Op)
		}
	}
	return tx, nil
}

// classify maps driver failures onto the store error codes.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", op, err)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierr.Wrap(apierr.CodeNotFound, fmt.Errorf("%s: %w", op, ErrNotFound))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apierr.Wrap(apierr.CodeUnavailable, wrapped)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501":
			return apierr.Wrap(apierr.CodePermissionDenied, wrapped)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"), pgErr.Code == "53300":
			return apierr.Wrap(apierr.CodeUnavailable, wrapped)
		}
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return apierr.Wrap(apierr.CodeUnavailable, wrapped)
	}
	return apierr.Wrap(apierr.CodeInternal, wrapped)
}
