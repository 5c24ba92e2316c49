package app

import (
	"context"

	"github.com/yungbote/shelfscan-backend/internal/data/db"
	httpapi "github.com/yungbote/shelfscan-backend/internal/http"
	httpH "github.com/yungbote/shelfscan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/shelfscan-backend/internal/http/middleware"
	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/envutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Job    *httpH.JobHandler
	Review *httpH.ReviewHandler
	Intake *httpH.IntakeHandler
	Report *httpH.ReportHandler
}

func wireHandlers(log *logger.Logger, cfg Config, dbs db.Service, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"db": func(ctx context.Context) error {
				sqlDB, err := dbs.DB().DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		}),
		Job:    httpH.NewJobHandler(log, services.Jobs, services.Ledger),
		Review: httpH.NewReviewHandler(log, services.Reviews, services.Ledger),
		Intake: httpH.NewIntakeHandler(log, services.Bridge, services.Intake, cfg.MaxImageBytes),
		Report: httpH.NewReportHandler(log, services.Reports, services.XLSX, services.Sheets),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, services Services, metrics *observability.Metrics) *httpapi.Server {
	serviceName := ""
	if envutil.Bool("OTEL_ENABLED", false) {
		serviceName = cfg.ServiceName
	}
	return httpapi.NewServer(httpapi.RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, services.Tokens),
		AllowedOrigins: cfg.AllowedOrigins,
		ServiceName:    serviceName,
		Metrics:        metrics,
		HealthHandler:  handlers.Health,
		JobHandler:     handlers.Job,
		ReviewHandler:  handlers.Review,
		IntakeHandler:  handlers.Intake,
		ReportHandler:  handlers.Report,
	})
}
