package bus

import (
	"context"

	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

// Bus carries document changes between service instances.
type Bus interface {
	realtime.Publisher
	StartForwarder(ctx context.Context, onMsg func(ch realtime.Change)) error
	Close() error
}
