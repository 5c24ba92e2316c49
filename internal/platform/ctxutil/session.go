package ctxutil

import (
	"context"

	"github.com/yungbote/shelfscan-backend/internal/domain"
)

type sessionKey struct{}

func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(Default(ctx), sessionKey{}, s)
}

// GetSession returns the authenticated caller, or nil for anonymous requests.
func GetSession(ctx context.Context) *domain.Session {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(sessionKey{}).(*domain.Session); ok {
		return s
	}
	return nil
}
