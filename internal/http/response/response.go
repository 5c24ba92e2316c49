package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// ErrorBody renders err for the user; action completes phrases like
// "You do not have permission to <action>.".
func ErrorBody(err error, action string) APIError {
	return APIError{
		Message: apierr.Describe(err, action),
		Code:    string(apierr.CodeOf(err)),
	}
}

func RespondError(c *gin.Context, err error, action string) {
	RespondErrorWithDetails(c, err, action, nil)
}

func RespondErrorWithDetails(c *gin.Context, err error, action string, details any) {
	body := ErrorBody(err, action)
	body.Details = details
	_ = c.Error(err)
	c.AbortWithStatusJSON(apierr.StatusOf(err), ErrorEnvelope{Error: body})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
