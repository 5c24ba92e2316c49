package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/shelfscan-backend/internal/data/db"
	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	httpapi "github.com/yungbote/shelfscan-backend/internal/http"
	"github.com/yungbote/shelfscan-backend/internal/observability"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
	"github.com/yungbote/shelfscan-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       db.Service
	Hub      *realtime.Hub
	Bus      bus.Bus
	Store    docstore.Store
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics
	Server   *httpapi.Server

	otelShutdown func(context.Context) error
}

// New builds the logger and config from the environment and wires the app.
func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("config: %w", err)
	}
	a, err := NewWithConfig(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	a.Metrics = observability.Init(log)

	dbs, err := db.Open(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	a.DB = dbs
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		a.Close()
		return nil, err
	}

	a.Hub = realtime.NewHub(log)
	var remote realtime.Publisher
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		b, err := bus.NewRedisBus(log, bus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init change bus: %w", err)
		}
		a.Bus = b
		remote = b
	}
	a.Store = docstore.NewGormStore(dbs.DB(), log, a.Hub, remote, docstore.WithPollInterval(cfg.ChangePollInterval))

	a.Clients, err = wireClients(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Services, err = wireServices(log, cfg, a.Store, a.Clients)
	if err != nil {
		a.Close()
		return nil, err
	}
	handlers := wireHandlers(log, cfg, dbs, a.Services)
	a.Server = wireServer(log, cfg, handlers, a.Services, a.Metrics)
	return a, nil
}

// Start runs the background workers: change forwarding between instances
// and the metrics collectors.
func (a *App) Start(ctx context.Context) error {
	if a.Bus != nil {
		if err := a.Bus.StartForwarder(ctx, func(ch realtime.Change) {
			_ = a.Hub.Publish(ctx, ch)
		}); err != nil {
			return fmt.Errorf("start change forwarder: %w", err)
		}
	}
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB.DB())
	a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
	return nil
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.Server.Run(ctx, ":"+a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close(a.Log)
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("change bus close failed", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
