package docstore

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/ctxutil"
)

// Unsubscribe stops a live subscription. Once it returns no callback of the
// subscription runs again. It is idempotent and must not be called from
// inside onData or onError.
type Unsubscribe func()

// Subscribe delivers the full result of q immediately and again after every
// change to coll. Bursts of changes are coalesced into one re-delivery. When
// the store polls, a periodic re-read is delivered only if the result changed.
// A failing query is reported once through onError and ends the subscription.
func Subscribe[T any](ctx context.Context, s Store, coll Collection, q Query, onData func([]T), onError func(error)) Unsubscribe {
	ctx, cancel := context.WithCancel(ctxutil.Default(ctx))
	// Listen before the first read so no write between read and wait is missed.
	l := s.Listen(coll)
	done := make(chan struct{})
	m := observability.Current()
	m.SubscriptionOpened(string(coll))

	go func() {
		defer close(done)
		defer m.SubscriptionClosed(string(coll))
		defer l.Close()

		var tick <-chan time.Time
		if d := s.PollInterval(); d > 0 {
			t := time.NewTicker(d)
			defer t.Stop()
			tick = t.C
		}

		var last []T
		signalled := true
		for {
			rows := make([]T, 0)
			err := s.Query(ctx, coll, q, &rows)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if onError != nil {
					onError(err)
				}
				return
			}
			if signalled || !reflect.DeepEqual(rows, last) {
				onData(rows)
				last = rows
			}
			select {
			case <-ctx.Done():
				return
			case <-l.C():
				signalled = true
			case <-tick:
				signalled = false
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// SubscribeOne follows a single document by id. onData receives nil while the
// document does not exist.
func SubscribeOne[T any](ctx context.Context, s Store, coll Collection, id string, onData func(*T), onError func(error)) Unsubscribe {
	return Subscribe[T](ctx, s, coll, Where(Eq("id", id)).WithLimit(1), func(rows []T) {
		if len(rows) == 0 {
			onData(nil)
			return
		}
		onData(&rows[0])
	}, onError)
}
