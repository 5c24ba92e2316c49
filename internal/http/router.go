package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/shelfscan-backend/internal/domain"
	httpH "github.com/yungbote/shelfscan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/shelfscan-backend/internal/http/middleware"
	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware
	AllowedOrigins []string
	// ServiceName enables otelgin spans when non-empty.
	ServiceName string
	Metrics     *observability.Metrics

	HealthHandler *httpH.HealthHandler
	JobHandler    *httpH.JobHandler
	ReviewHandler *httpH.ReviewHandler
	IntakeHandler *httpH.IntakeHandler
	ReportHandler *httpH.ReportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	admin := api.Group("/", httpMW.RequireRole(domain.RoleAdmin))
	contractor := api.Group("/", httpMW.RequireRole(domain.RoleContractor))

	// Jobs
	if cfg.JobHandler != nil {
		admin.GET("/jobs/stream", cfg.JobHandler.StreamQueue)
		admin.POST("/jobs", cfg.JobHandler.CreateJob)
		admin.GET("/jobs/:id/stream", cfg.JobHandler.StreamJob)
		admin.POST("/jobs/:id/assign", cfg.JobHandler.AssignJob)
		admin.GET("/jobs/:id/events", cfg.JobHandler.Events)
		admin.GET("/contractors", cfg.JobHandler.ListContractors)
		contractor.GET("/me/jobs/stream", cfg.JobHandler.StreamMyJobs)
	}

	// Capture + OCR
	if cfg.IntakeHandler != nil {
		contractor.POST("/jobs/:id/captures", cfg.IntakeHandler.Capture)
		api.POST("/functions/parseShelfImage", cfg.IntakeHandler.ParseShelfImage)
	}

	// Reviews
	if cfg.ReviewHandler != nil {
		admin.GET("/jobs/:id/reviews/stream", cfg.ReviewHandler.StreamJobReviews)
		api.GET("/reviews/:id", cfg.ReviewHandler.GetReview)
		api.GET("/reviews/:id/stream", cfg.ReviewHandler.StreamReview)
		contractor.POST("/reviews/:id/submit", cfg.ReviewHandler.Submit)
		admin.POST("/reviews/:id/admin-review", cfg.ReviewHandler.AdminReview)
		admin.GET("/reviews/:id/events", cfg.ReviewHandler.Events)
	}

	// Reports
	if cfg.ReportHandler != nil {
		admin.GET("/reports", cfg.ReportHandler.List)
		admin.GET("/reports/stream", cfg.ReportHandler.Stream)
		admin.GET("/reports/export.xlsx", cfg.ReportHandler.ExportXLSX)
		admin.POST("/reports/export/sheets", cfg.ReportHandler.ExportSheets)
		contractor.GET("/me/history/stream", cfg.ReportHandler.StreamHistory)
	}

	return r
}
