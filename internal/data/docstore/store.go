package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

type Collection string

const (
	Jobs           Collection = "jobs"
	Reviews        Collection = "reviews"
	Users          Collection = "users"
	ActivityEvents Collection = "activity_events"
)

var (
	ErrNotFound           = errors.New("document not found")
	ErrFailedPrecondition = errors.New("document precondition failed")
)

// Document is implemented by every persisted type so Create can report the
// store-assigned id.
type Document interface {
	DocumentID() string
}

// Fields is a partial update keyed by column name. A ServerTimestamp value is
// replaced by the store clock at write time.
type Fields map[string]interface{}

type serverTimestamp struct{}

var ServerTimestamp = serverTimestamp{}

type Listener interface {
	C() <-chan struct{}
	Close()
}

type Store interface {
	// Get loads one document into dst. Missing documents yield ErrNotFound.
	Get(ctx context.Context, coll Collection, id string, dst interface{}) error
	// Query loads every matching document into dst, a pointer to a slice.
	Query(ctx context.Context, coll Collection, q Query, dst interface{}) error
	Create(ctx context.Context, coll Collection, doc Document) (string, error)
	// Update applies fields to document id in one statement. When conds are
	// given and the document exists but does not satisfy them, nothing is
	// written and ErrFailedPrecondition is returned.
	Update(ctx context.Context, coll Collection, id string, fields Fields, conds ...Filter) error
	Listen(coll Collection) Listener
	// PollInterval is how often live subscriptions re-read to catch writes
	// made outside this process. Zero disables polling.
	PollInterval() time.Duration
}

// ChangeSource is satisfied by *realtime.Hub.
type ChangeSource interface {
	realtime.Publisher
	Listen(collection string) *realtime.Listener
}
