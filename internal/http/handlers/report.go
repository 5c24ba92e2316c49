package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/http/response"
	"github.com/yungbote/shelfscan-backend/internal/modules/reports"
	"github.com/yungbote/shelfscan-backend/internal/platform/ctxutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

type ReportHandler struct {
	log     *logger.Logger
	reports *reports.Aggregator
	xlsx    reports.ReportExporter
	sheets  reports.ReportExporter
}

// NewReportHandler wires the report endpoints. sheets may be nil when no
// spreadsheet is configured.
func NewReportHandler(log *logger.Logger, agg *reports.Aggregator, xlsx, sheets reports.ReportExporter) *ReportHandler {
	return &ReportHandler{
		log:     log.With("handler", "ReportHandler"),
		reports: agg,
		xlsx:    xlsx,
		sheets:  sheets,
	}
}

// GET /api/reports
func (h *ReportHandler) List(c *gin.Context) {
	rows, err := h.reports.Rows(c.Request.Context())
	if err != nil {
		response.RespondError(c, err, "view reports")
		return
	}
	response.RespondOK(c, gin.H{"reports": rows})
}

// GET /api/reports/stream
func (h *ReportHandler) Stream(c *gin.Context) {
	serveLive(c, h.log, func(ctx context.Context, out *realtime.Outbox) docstore.Unsubscribe {
		onData, onError := snapshotsTo[[]reports.Row](out, "view reports")
		return h.reports.Watch(ctx, onData, onError)
	})
}

// GET /api/me/history/stream
func (h *ReportHandler) StreamHistory(c *gin.Context) {
	sess := ctxutil.GetSession(c.Request.Context())
	serveLive(c, h.log, func(ctx context.Context, out *realtime.Outbox) docstore.Unsubscribe {
		onData, onError := snapshotsTo[[]reports.Row](out, "view your history")
		return h.reports.WatchHistory(ctx, sess.UserID, onData, onError)
	})
}

// GET /api/reports/export.xlsx
func (h *ReportHandler) ExportXLSX(c *gin.Context) {
	res, err := h.reports.Export(c.Request.Context(), h.xlsx)
	if err != nil {
		response.RespondError(c, err, "export reports")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.ContentType, res.Data)
}

// POST /api/reports/export/sheets
func (h *ReportHandler) ExportSheets(c *gin.Context) {
	res, err := h.reports.Export(c.Request.Context(), h.sheets)
	if err != nil {
		response.RespondError(c, err, "export reports")
		return
	}
	response.RespondOK(c, gin.H{"export": res})
}
