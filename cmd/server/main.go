package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"castle-wars/internal/api"
	"castle-wars/internal/auth"
	"castle-wars/internal/bus"
	"castle-wars/internal/config"
	"castle-wars/internal/game"
	"castle-wars/internal/logging"
	"castle-wars/internal/scoreboard"
	"castle-wars/internal/session"
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json or toml)")
	flag.Parse()

	// Load .env file from parent directory
	envErr := godotenv.Load("../.env")
	if envErr != nil {
		// Try current directory as fallback
		envErr = godotenv.Load(".env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log)
	if envErr != nil {
		log.Debug("💡 No .env file found, using environment variables only")
	}

	log.Info("🏰 ================================")
	log.Info("🏰  CASTLE WARS - GO SERVER")
	log.Info("🏰 ================================")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("❌ Server failed")
	}
	log.Info("👋 Goodbye!")
}

func run(cfg config.AppConfig, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tileMap, err := loadMap(cfg)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"rows": tileMap.Rows, "cols": tileMap.Cols}).Info("🗺️ Map ready")

	// Event log
	eventLog := game.NewEventLog()
	if err := eventLog.Start(cfg.Observability.EventLogPath); err != nil {
		log.WithError(err).Warn("⚠️ Event log file disabled")
		eventLog.Start("")
	} else if cfg.Observability.EventLogPath != "" {
		log.WithField("path", cfg.Observability.EventLogPath).Info("📝 Event log started")
	}
	defer eventLog.Stop()
	api.RegisterEventLog(eventLog)

	// Scoreboard, optionally mirrored into Redis
	boardOpts := []scoreboard.Option{scoreboard.WithLogger(log)}
	if cfg.Redis.Enabled {
		client, err := scoreboard.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		boardOpts = append(boardOpts, scoreboard.WithStore(scoreboard.NewRedisStore(client, scoreboard.DefaultHistory)))
		log.WithField("addr", cfg.Redis.Addr()).Info("🗄️ Scoreboard mirrored to Redis")
	}
	board := scoreboard.NewBoard(boardOpts...)
	if err := board.LoadHistory(ctx); err != nil {
		log.WithError(err).Warn("⚠️ Match history not loaded")
	}

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		board.Run(ctx)
	}()

	// Engine
	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := game.NewEngine(tileMap, game.EngineConfig{
		TickRate:    cfg.World.TickRate,
		IntentQueue: cfg.Limits.IntentQueue,
		MaxPlayers:  cfg.Limits.MaxPlayers,
		Seed:        seed,
		CellSize:    float64(cfg.Spatial.GridCellSize),
		Capacity:    cfg.Limits.MaxEntities,
	},
		game.WithLogger(log),
		game.WithObserver(api.Metrics{}),
		game.WithScores(board),
		game.WithEventLog(eventLog),
	)
	engine.SetMatchID(uuid.NewString())

	// Broadcast relay across server processes
	if cfg.Nats.Enabled {
		conn, embedded, err := bus.Connect(cfg.Nats, log)
		if err != nil {
			return err
		}
		defer func() {
			conn.Close()
			if embedded != nil {
				embedded.Shutdown()
			}
		}()

		relay := bus.NewNATS(conn, cfg.Nats.Subject, engine, log)
		if err := relay.Subscribe(); err != nil {
			return err
		}
		defer relay.Close()
		engine.SetBroadcaster(relay)
	} else {
		engine.SetBroadcaster(bus.NewLocal(engine))
	}

	engine.Start(ctx)
	defer engine.Stop()

	verifier := auth.NewVerifier(cfg.Auth)
	if verifier.GuestMode() {
		log.Warn("⚠️ No JWT secret configured, accepting guest tokens")
	}
	if !verifier.AdminEnabled() {
		log.Info("🔐 Admin routes disabled (set CASTLE_AUTH_ADMIN_SECRET to enable)")
	}

	sessions := session.NewServer(
		session.ConfigFrom(cfg.Server, cfg.Limits),
		engine,
		verifier,
		session.WithLogger(log),
		session.WithObserver(api.Metrics{}),
	)

	api.StartDebugServer(ctx, cfg.Observability, log)

	server := api.NewServer(api.RouterConfig{
		Engine:      engine,
		Scores:      board,
		Events:      eventLog,
		Admin:       verifier,
		Sessions:    sessions,
		CORSOrigins: cfg.Server.AllowOrigins,
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: cfg.Limits.HTTPRequestsPerIP,
			Burst:             cfg.Limits.HTTPBurst,
		},
		Log: log,
	})

	errc := make(chan error, 2)
	go func() {
		errc <- sessions.ListenTCP(ctx, cfg.Server.GameAddr)
	}()
	go func() {
		errc <- server.Start(ctx, fmt.Sprintf(":%d", cfg.Server.HTTPPort))
	}()

	log.Info("✅ Server ready! Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		stop()
	}

	log.Info("🛑 Shutting down...")
	sessions.Wait()
	workers.Wait()
	return runErr
}

// loadMap reads the configured map file or generates the default field.
func loadMap(cfg config.AppConfig) (*game.TileMap, error) {
	tileSize := float64(cfg.Spatial.TileSize)
	if cfg.World.MapPath == "" {
		return game.GenerateTileMap(cfg.World.MapRows, cfg.World.MapCols, tileSize), nil
	}
	m, err := game.LoadTileMap(cfg.World.MapPath, tileSize)
	if err != nil {
		return nil, fmt.Errorf("loading map: %w", err)
	}
	return m, nil
}
