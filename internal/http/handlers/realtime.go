package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/http/response"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

const outboxSize = 8

// serveLive streams a live view as SSE until the client goes away or the
// view fails. The subscription is torn down before serveLive returns.
func serveLive(c *gin.Context, log *logger.Logger, start func(ctx context.Context, out *realtime.Outbox) docstore.Unsubscribe) {
	stream, err := realtime.NewStream(c.Writer, log)
	if err != nil {
		response.RespondError(c, err, "open a live view")
		return
	}
	ctx := c.Request.Context()
	out := realtime.NewOutbox(log, outboxSize)
	unsub := start(ctx, out)
	stream.Run(ctx, out)
	unsub()
	out.Close()
}

// snapshotsTo adapts a view's callbacks to an outbox. A view error is the
// last message of the stream.
func snapshotsTo[T any](out *realtime.Outbox, action string) (func(T), func(error)) {
	return func(v T) {
			out.Offer(realtime.SSEMessage{Event: realtime.EventSnapshot, Data: v})
		}, func(err error) {
			out.Offer(realtime.SSEMessage{Event: realtime.EventError, Data: response.ErrorBody(err, action), Final: true})
		}
}
