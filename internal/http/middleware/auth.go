package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/http/response"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/ctxutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

type TokenParser interface {
	Parse(token string) (*domain.Session, error)
}

type AuthMiddleware struct {
	log    *logger.Logger
	tokens TokenParser
}

func NewAuthMiddleware(log *logger.Logger, tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

// RequireAuth attaches the caller's Session to the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.RespondError(c, apierr.Unauthenticated("missing or invalid token"), "continue")
			return
		}
		sess, err := am.tokens.Parse(token)
		if err != nil {
			am.log.Debug("token rejected", "path", c.FullPath(), "error", err)
			response.RespondError(c, err, "continue")
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

// RequireRole rejects callers whose session does not carry role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := ctxutil.GetSession(c.Request.Context())
		if !sess.Authenticated() {
			response.RespondError(c, apierr.Unauthenticated("missing session"), "continue")
			return
		}
		if sess.Role != role {
			response.RespondError(c, apierr.PermissionDenied("requires role "+string(role)), "access this page")
			return
		}
		c.Next()
	}
}

// EventSource cannot set headers, so streams pass the token as ?token=.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}
