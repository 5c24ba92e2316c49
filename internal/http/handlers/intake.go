package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shelfscan-backend/internal/http/response"
	"github.com/yungbote/shelfscan-backend/internal/modules/intake"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/ctxutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

// DefaultMaxImageBytes bounds a single shelf photo upload.
const DefaultMaxImageBytes int64 = 20 << 20

type IntakeHandler struct {
	log      *logger.Logger
	bridge   *intake.Bridge
	intake   *intake.Service
	maxBytes int64
}

func NewIntakeHandler(log *logger.Logger, bridge *intake.Bridge, svc *intake.Service, maxBytes int64) *IntakeHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &IntakeHandler{
		log:      log.With("handler", "IntakeHandler"),
		bridge:   bridge,
		intake:   svc,
		maxBytes: maxBytes,
	}
}

// POST /api/functions/parseShelfImage
func (h *IntakeHandler) ParseShelfImage(c *gin.Context) {
	var req intake.ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Wrap(apierr.CodeInvalidArgument, err), "process this image")
		return
	}
	res, err := h.bridge.ParseShelfImage(c.Request.Context(), ctxutil.GetSession(c.Request.Context()), req)
	if err != nil {
		response.RespondError(c, err, "process this image")
		return
	}
	response.RespondOK(c, res)
}

// POST /api/jobs/:id/captures
//
// Accepts a multipart "image" field. With Accept: text/event-stream the
// upload progress is streamed before the final result.
func (h *IntakeHandler) Capture(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	fh, err := c.FormFile("image")
	if err != nil {
		response.RespondError(c, apierr.WithMessage(apierr.CodeInvalidArgument, "An image file is required.", err), "upload this image")
		return
	}
	capture := intake.CaptureFunc(func(ctx context.Context) ([]byte, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	})
	sess := ctxutil.GetSession(c.Request.Context())
	jobID := c.Param("id")

	if !strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		res, err := h.intake.CaptureFrom(c.Request.Context(), sess, jobID, capture, nil)
		if err != nil {
			response.RespondError(c, err, "upload this image")
			return
		}
		response.RespondCreated(c, res)
		return
	}

	stream, err := realtime.NewStream(c.Writer, h.log)
	if err != nil {
		response.RespondError(c, err, "upload this image")
		return
	}
	ctx := c.Request.Context()
	out := realtime.NewOutbox(h.log, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				h.log.Error("capture panicked", "job_id", jobID, "panic", r)
				out.Offer(realtime.SSEMessage{
					Event: realtime.EventError,
					Data:  response.ErrorBody(apierr.Wrap(apierr.CodeInternal, fmt.Errorf("panic: %v", r)), "upload this image"),
					Final: true,
				})
			}
		}()
		res, err := h.intake.CaptureFrom(ctx, sess, jobID, capture, func(p intake.Progress) {
			out.Offer(realtime.SSEMessage{Event: realtime.EventProgress, Data: p})
		})
		if err != nil {
			out.Offer(realtime.SSEMessage{Event: realtime.EventError, Data: response.ErrorBody(err, "upload this image"), Final: true})
			return
		}
		out.Offer(realtime.SSEMessage{Event: realtime.EventResult, Data: res, Final: true})
	}()
	stream.Run(ctx, out)
	<-done
	out.Close()
}
