package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"castle-wars/internal/config"
	"castle-wars/internal/game"
)

// Metrics with bounded cardinality (no per-player labels to prevent DoS)
var (
	// Game engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in game tick",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.0167, 0.025, 0.05},
	})

	tickOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_tick_overruns_total",
		Help: "Ticks that exceeded their time budget",
	})

	entityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "game_entities",
		Help: "Live entities by kind",
	}, []string{"kind"}) // Bounded: "all", "projectile", "player"

	spawnRejected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_spawn_rejected",
		Help: "Unit spawns refused by the population limit this match",
	})

	castleMoney = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "castle_money",
		Help: "Castle money by team",
	}, []string{"team"})

	castleTier = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "castle_tier",
		Help: "Castle tier by team",
	}, []string{"team"})

	castlePopulation = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "castle_population",
		Help: "Castle population by team",
	}, []string{"team"})

	castleHP = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "castle_hp",
		Help: "Castle hit points by team",
	}, []string{"team"})

	// Sync metrics
	syncVisible = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_visible_records",
		Help:    "Entities in one player's view per tick",
		Buckets: []float64{0, 10, 25, 50, 100, 200, 400},
	})

	syncRemovals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_removals_total",
		Help: "Removal records sent",
	})

	syncBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_bytes_total",
		Help: "Bytes of sync batches queued",
	})

	commandsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commands_rejected_total",
		Help: "Client commands dropped by the engine or the session",
	}, []string{"reason"}) // Bounded by the opcode list plus a few session reasons

	// Session metrics
	sessionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "Currently connected game sessions",
	}, []string{"transport"}) // Bounded: "tcp", "ws"

	bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_bytes_written_total",
		Help: "Bytes written to clients",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin check or handshake",
	}, []string{"reason"})

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})
)

// Metrics publishes engine and session measurements to Prometheus. It
// implements game.Observer and session.Observer.
type Metrics struct{}

// ObserveTick records tick timing
func (Metrics) ObserveTick(d time.Duration, overrun bool) {
	tickDuration.Observe(d.Seconds())
	if overrun {
		tickOverruns.Inc()
	}
}

// ObserveSync records one viewer's sync
func (Metrics) ObserveSync(res game.SyncResult) {
	syncVisible.Observe(float64(res.Visible))
	syncRemovals.Add(float64(res.Removed))
	syncBytes.Add(float64(res.Bytes))
}

// ObserveWorld records the periodic world gauges
func (Metrics) ObserveWorld(stats game.WorldStats, castles [2]game.CastleStatus) {
	entityCount.WithLabelValues("all").Set(float64(stats.Entities))
	entityCount.WithLabelValues("projectile").Set(float64(stats.Projectiles))
	entityCount.WithLabelValues("player").Set(float64(stats.RedPlayers + stats.BluePlayers))
	spawnRejected.Set(float64(stats.SpawnRejected))
	for _, c := range castles {
		castleMoney.WithLabelValues(c.Team).Set(float64(c.Money))
		castleTier.WithLabelValues(c.Team).Set(float64(c.Tier))
		castlePopulation.WithLabelValues(c.Team).Set(float64(c.Population))
		castleHP.WithLabelValues(c.Team).Set(float64(c.HP))
	}
}

// CommandRejected counts a command the engine refused
func (Metrics) CommandRejected(reason string) {
	commandsRejected.WithLabelValues(reason).Inc()
}

// CommandDropped counts a line the session dropped before the engine
func (Metrics) CommandDropped(reason string) {
	commandsRejected.WithLabelValues(reason).Inc()
}

// SessionOpened updates the session gauge
func (Metrics) SessionOpened(transport string) {
	sessionsActive.WithLabelValues(transport).Inc()
}

// SessionClosed updates the session gauge
func (Metrics) SessionClosed(transport string) {
	sessionsActive.WithLabelValues(transport).Dec()
}

// ConnectionRejected increments the rejection counter
func (Metrics) ConnectionRejected(reason string) {
	RecordConnectionRejected(reason)
}

// BytesWritten counts bytes sent to clients
func (Metrics) BytesWritten(n int) {
	bytesWritten.Add(float64(n))
}

// RegisterEventLog exposes the event log counters. Call once per process.
func RegisterEventLog(el *game.EventLog) {
	promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "event_log_total",
		Help: "Total events logged",
	}, func() float64 { return float64(el.Stats().Total) })
	promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "event_log_dropped_total",
		Help: "Events dropped due to rate limiting or buffer full",
	}, func() float64 { return float64(el.Stats().Dropped) })
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// metricsMiddleware records latency per route pattern
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// NewDebugHandler returns the pprof, metrics and health mux
func NewDebugHandler() http.Handler {
	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// StartDebugServer starts the internal observability server and stops it
// when ctx is done.
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(ctx context.Context, cfg config.ObservabilityConfig, log logrus.FieldLogger) {
	if !cfg.DebugEnabled {
		log.Info("📊 Debug server disabled")
		return
	}

	srv := &http.Server{
		Addr:              cfg.DebugAddr,
		Handler:           NewDebugHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.DebugAddr).Info("📊 Debug server starting (pprof, /metrics)")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("⚠️ Debug server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
