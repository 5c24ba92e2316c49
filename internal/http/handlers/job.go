package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/domain"
	"github.com/yungbote/shelfscan-backend/internal/http/response"
	"github.com/yungbote/shelfscan-backend/internal/modules/activity"
	"github.com/yungbote/shelfscan-backend/internal/modules/jobs"
	"github.com/yungbote/shelfscan-backend/internal/platform/apierr"
	"github.com/yungbote/shelfscan-backend/internal/platform/ctxutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

type JobHandler struct {
	log    *logger.Logger
	jobs   *jobs.Manager
	ledger *activity.Ledger
}

func NewJobHandler(log *logger.Logger, jobs *jobs.Manager, ledger *activity.Ledger) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), jobs: jobs, ledger: ledger}
}

// POST /api/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req jobs.NewJob
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Wrap(apierr.CodeInvalidArgument, err), "create the job")
		return
	}
	job, err := h.jobs.Create(c.Request.Context(), ctxutil.GetSession(c.Request.Context()), req)
	if err != nil {
		response.RespondError(c, err, "create the job")
		return
	}
	response.RespondCreated(c, gin.H{"job": job})
}

// GET /api/jobs/:id/events
func (h *JobHandler) Events(c *gin.Context) {
	events, err := h.ledger.ForJob(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondError(c, err, "view job history")
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	response.RespondOK(c, gin.H{"events": events})
}

type assignRequest struct {
	ContractorID string `json:"contractorId"`
}

// POST /api/jobs/:id/assign
func (h *JobHandler) AssignJob(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Wrap(apierr.CodeInvalidArgument, err), "assign this job")
		return
	}
	job, err := h.jobs.Assign(c.Request.Context(), ctxutil.GetSession(c.Request.Context()), c.Param("id"), req.ContractorID)
	if err != nil {
		response.RespondError(c, err, "assign this job")
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/contractors
func (h *JobHandler) ListContractors(c *gin.Context) {
	users, err := h.jobs.ListContractors(c.Request.Context())
	if err != nil {
		response.RespondError(c, err, "list contractors")
		return
	}
	response.RespondOK(c, gin.H{"contractors": users})
}

// GET /api/jobs/stream
func (h *JobHandler) StreamQueue(c *gin.Context) {
	serveLive(c, h.log, func(ctx context.Context, out *realtime.Outbox) docstore.Unsubscribe {
		onData, onError := snapshotsTo[[]domain.Job](out, "view jobs")
		return h.jobs.WatchQueue(ctx, onData, onError)
	})
}

// GET /api/jobs/:id/stream
func (h *JobHandler) StreamJob(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	serveLive(c, h.log, func(ctx context.Context, out *realtime.Outbox) docstore.Unsubscribe {
		onData, onError := snapshotsTo[*domain.Job](out, "view this job")
		return h.jobs.WatchJob(ctx, jobID, onData, onError)
	})
}

// GET /api/me/jobs/stream
func (h *JobHandler) StreamMyJobs(c *gin.Context) {
	sess := ctxutil.GetSession(c.Request.Context())
	serveLive(c, h.log, func(ctx context.Context, out *realtime.Outbox) docstore.Unsubscribe {
		onData, onError := snapshotsTo[[]domain.Job](out, "view your jobs")
		return h.jobs.WatchAssigned(ctx, sess.UserID, onData, onError)
	})
}
