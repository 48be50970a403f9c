package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"castle-wars/internal/game"
	"castle-wars/internal/scoreboard"
	"castle-wars/internal/session"
)

// EngineInterface defines the game engine methods used by the API.
// This interface enables mocking for tests without spinning up the full game loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// Snapshot returns a copy of the state as of the last tick
	Snapshot() game.GameSnapshot
	// Map returns the static terrain
	Map() *game.TileMap
	TickRate() int
	Overruns() uint64
	SessionCount() int
}

// ScoreboardInterface is the scoreboard read side.
type ScoreboardInterface interface {
	Top(n int) []scoreboard.Entry
	Matches(n int) []scoreboard.MatchResult
}

// EventSource is the world event log read side.
type EventSource interface {
	Recent(n int) []game.Event
	Stats() game.EventLogStats
}

// SessionServer runs game sessions for the WebSocket transport.
type SessionServer interface {
	AcquireIP(ip string) bool
	ReleaseIP(ip string)
	Serve(ctx context.Context, conn session.LineConn, transport string)
	MaxLineLength() int
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Scores serves /api/scoreboard and /api/matches. Optional.
	Scores ScoreboardInterface

	// Events serves the admin event routes. Optional.
	Events EventSource

	// Admin guards /api/admin. Nil disables the admin routes.
	Admin AdminVerifier

	// Sessions serves /ws. Nil disables the WebSocket transport.
	Sessions SessionServer

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS and WebSocket origins.
	// If nil, only localhost is allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool

	Log logrus.FieldLogger
}

// routerHandlers holds the handler dependencies.
type routerHandlers struct {
	engine   EngineInterface
	scores   ScoreboardInterface
	events   EventSource
	sessions SessionServer
	limiter  *IPRateLimiter
	origins  []string
	log      logrus.FieldLogger
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &routerHandlers{
		engine:   cfg.Engine,
		scores:   cfg.Scores,
		events:   cfg.Events,
		sessions: cfg.Sessions,
		limiter:  rateLimiter,
		origins:  corsOrigins,
		log:      log,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/castles", h.handleGetCastles)
		r.Get("/players", h.handleGetPlayers)
		r.Get("/scoreboard", h.handleGetScoreboard)
		r.Get("/matches", h.handleGetMatches)
		r.Get("/map.png", h.handleGetMap)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Admin))
			r.Get("/events", h.handleGetEvents)
			r.Get("/stats", h.handleGetEventStats)
		})
	})

	if cfg.Sessions != nil {
		r.Get("/ws", h.handleWS)
	}
	r.Get("/health", h.handleHealth)

	return r
}

// newRouterHandlers is used by tests that call handlers directly.
func newRouterHandlers(engine EngineInterface) *routerHandlers {
	return &routerHandlers{
		engine:  engine,
		limiter: NewIPRateLimiter(DefaultRateLimitConfig),
		log:     logrus.StandardLogger(),
	}
}
