package app

import (
	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/modules/activity"
	"github.com/yungbote/shelfscan-backend/internal/modules/auth"
	"github.com/yungbote/shelfscan-backend/internal/modules/intake"
	"github.com/yungbote/shelfscan-backend/internal/modules/jobs"
	"github.com/yungbote/shelfscan-backend/internal/modules/reports"
	"github.com/yungbote/shelfscan-backend/internal/modules/reviews"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

type Services struct {
	Tokens  *auth.TokenService
	Ledger  *activity.Ledger
	Jobs    *jobs.Manager
	Reviews *reviews.Manager
	Bridge  *intake.Bridge
	Intake  *intake.Service
	Reports *reports.Aggregator
	XLSX    reports.XLSXExporter
	Sheets  reports.SheetsExporter
}

func wireServices(log *logger.Logger, cfg Config, store docstore.Store, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	tokens, err := auth.NewTokenService(log, cfg.JWTSecretKey, cfg.TokenTTL)
	if err != nil {
		return Services{}, err
	}
	ledger := activity.NewLedger(store, log)
	bridge := intake.NewBridge(intake.BridgeDeps{
		Store:     store,
		Extractor: clients.Extractor,
		Ledger:    ledger,
		Log:       log,
	})
	return Services{
		Tokens:  tokens,
		Ledger:  ledger,
		Jobs:    jobs.New(jobs.Deps{Store: store, Log: log, Ledger: ledger}),
		Reviews: reviews.New(reviews.Deps{Store: store, Log: log, Ledger: ledger}),
		Bridge:  bridge,
		Intake: intake.NewService(intake.ServiceDeps{
			Store:  store,
			Blobs:  clients.Blobs,
			Bridge: bridge,
			Log:    log,
		}),
		Reports: reports.New(reports.Deps{Store: store, Log: log, JoinConcurrency: cfg.ReportJoinConcurrency}),
		Sheets: reports.SheetsExporter{
			Writer:        clients.Sheets,
			SpreadsheetID: cfg.SheetsSpreadsheetID,
			Range:         cfg.SheetsRange,
		},
	}, nil
}
