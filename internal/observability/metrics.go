package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/shelfscan-backend/internal/platform/envutil"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	assignments       *CounterVec
	reviewTransitions *CounterVec
	validationErrors  *CounterVec
	ocrRequests       *CounterVec
	ocrLatency        *HistogramVec
	uploads           *CounterVec
	uploadBytes       *Counter
	reportLookups     *CounterVec
	exports           *CounterVec
	subscriptions     *GaugeVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current returns the process metrics, or nil when metrics are disabled.
// Every method is safe on a nil receiver.
func Current() *Metrics { return instance }

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("shelf_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"shelf_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight:       NewGauge("shelf_api_inflight_requests", "In-flight API requests."),
		assignments:       NewCounterVec("shelf_job_assignments_total", "Job assignment attempts by outcome.", []string{"outcome"}),
		reviewTransitions: NewCounterVec("shelf_review_transitions_total", "Review status transitions by from/to/outcome.", []string{"from", "to", "outcome"}),
		validationErrors:  NewCounterVec("shelf_review_validation_errors_total", "Rejected line items by field.", []string{"field"}),
		ocrRequests:       NewCounterVec("shelf_ocr_requests_total", "OCR bridge calls by outcome.", []string{"outcome"}),
		ocrLatency: NewHistogramVec(
			"shelf_ocr_duration_seconds",
			"OCR bridge latency in seconds by outcome.",
			[]string{"outcome"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 30},
		),
		uploads:       NewCounterVec("shelf_image_uploads_total", "Shelf image uploads by outcome.", []string{"outcome"}),
		uploadBytes:   NewCounter("shelf_image_upload_bytes_total", "Bytes uploaded for shelf images."),
		reportLookups: NewCounterVec("shelf_report_lookups_total", "Report join lookups by kind/outcome.", []string{"kind", "outcome"}),
		exports:       NewCounterVec("shelf_report_exports_total", "Report exports by format/outcome.", []string{"format", "outcome"}),
		subscriptions: NewGaugeVec("shelf_live_subscriptions", "Active live subscriptions by collection.", []string{"collection"}),
		dbStats:       NewGaugeVec("shelf_db_pool", "Database pool stats.", []string{"stat"}),
		redisUp:       NewGauge("shelf_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:     NewGauge("shelf_redis_ping_seconds", "Last redis ping latency."),
	}
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL", 10*time.Second)
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.assignments, m.reviewTransitions, m.validationErrors,
		m.ocrRequests, m.ocrLatency, m.uploads, m.uploadBytes,
		m.reportLookups, m.exports, m.subscriptions,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	code := strconv.Itoa(status)
	m.apiRequests.Inc(method, route, code)
	m.apiLatency.Observe(dur.Seconds(), method, route, code)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncAssignment(outcome string) {
	if m == nil {
		return
	}
	m.assignments.Inc(outcome)
}

func (m *Metrics) IncReviewTransition(from, to, outcome string) {
	if m == nil {
		return
	}
	m.reviewTransitions.Inc(from, to, outcome)
}

func (m *Metrics) IncValidationError(field string) {
	if m == nil {
		return
	}
	m.validationErrors.Inc(field)
}

func (m *Metrics) ObserveOCR(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ocrRequests.Inc(outcome)
	m.ocrLatency.Observe(dur.Seconds(), outcome)
}

func (m *Metrics) ObserveUpload(outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.uploads.Inc(outcome)
	if bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) IncReportLookup(kind, outcome string) {
	if m == nil {
		return
	}
	m.reportLookups.Inc(kind, outcome)
}

func (m *Metrics) IncExport(format, outcome string) {
	if m == nil {
		return
	}
	m.exports.Inc(format, outcome)
}

func (m *Metrics) SubscriptionOpened(collection string) {
	if m == nil {
		return
	}
	m.subscriptions.Add(1, collection)
}

func (m *Metrics) SubscriptionClosed(collection string) {
	if m == nil {
		return
	}
	m.subscriptions.Add(-1, collection)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
