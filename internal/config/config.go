// Package config provides centralized configuration management.
// Default*() constructors are the single source of truth for every value;
// a config file and CASTLE_* environment variables override them.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/spf13/viper"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// WorldConfig holds simulation settings.
type WorldConfig struct {
	TickRate int    `mapstructure:"tick_rate"` // Ticks per second
	MapPath  string `mapstructure:"map_path"`  // Tile map file; empty generates the default map
	MapRows  int    `mapstructure:"map_rows"`  // Generated map height in tiles
	MapCols  int    `mapstructure:"map_cols"`  // Generated map width in tiles
	Seed     int64  `mapstructure:"seed"`      // RNG seed; 0 seeds from the clock
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		TickRate: 60,
		MapRows:  60,
		MapCols:  300,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds listener settings.
type ServerConfig struct {
	GameAddr      string        `mapstructure:"game_addr"`      // Raw TCP game protocol listener
	HTTPPort      int           `mapstructure:"http_port"`      // Admin API and WebSocket transport
	MaxLineLength int           `mapstructure:"max_line_length"` // Longest accepted client line in bytes
	HandshakeWait time.Duration `mapstructure:"handshake_wait"` // Time allowed for the first line
	AllowOrigins  []string      `mapstructure:"allow_origins"`  // CORS / WebSocket origins
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		GameAddr:      ":5000",
		HTTPPort:      3000,
		MaxLineLength: 4096,
		HandshakeWait: 10 * time.Second,
		AllowOrigins:  []string{"http://localhost:3000"},
	}
}

// =============================================================================
// SPATIAL CONFIGURATION
// =============================================================================

// SpatialConfig holds spatial indexing settings.
type SpatialConfig struct {
	TileSize     int `mapstructure:"tile_size"`      // Terrain tile size in pixels
	GridCellSize int `mapstructure:"grid_cell_size"` // Object grid cell size in pixels
}

// DefaultSpatial returns the default spatial configuration.
func DefaultSpatial() SpatialConfig {
	return SpatialConfig{
		TileSize:     32,
		GridCellSize: 64,
	}
}

// =============================================================================
// GAME RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxPlayers        int     `mapstructure:"max_players"`          // Hard cap on connected players
	MaxConnsPerIP     int     `mapstructure:"max_conns_per_ip"`     // Concurrent game connections per IP
	MaxEntities       int     `mapstructure:"max_entities"`         // Entity arena capacity hint
	IntentQueue       int     `mapstructure:"intent_queue"`         // Buffered intents between sessions and the tick loop
	CommandsPerSecond float64 `mapstructure:"commands_per_second"`  // Sustained client commands per session
	CommandBurst      int     `mapstructure:"command_burst"`        // Client command burst per session
	OutboxBytes       int     `mapstructure:"outbox_bytes"`         // Pending outbound bytes before a slow session is dropped
	HTTPRequestsPerIP float64 `mapstructure:"http_requests_per_ip"` // Admin API requests per second per IP
	HTTPBurst         int     `mapstructure:"http_burst"`
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxPlayers:        64,
		MaxConnsPerIP:     4,
		MaxEntities:       8192,
		IntentQueue:       4096,
		CommandsPerSecond: 120,
		CommandBurst:      60,
		OutboxBytes:       1 << 20,
		HTTPRequestsPerIP: 10,
		HTTPBurst:         20,
	}
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig configures the debug server and event log.
type ObservabilityConfig struct {
	DebugEnabled bool   `mapstructure:"debug_enabled"`
	DebugAddr    string `mapstructure:"debug_addr"` // Bind to localhost only
	EventLogPath string `mapstructure:"event_log_path"`
}

// DefaultObservability returns the default observability configuration.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugEnabled: true,
		DebugAddr:    "127.0.0.1:6060",
		EventLogPath: "events.jsonl",
	}
}

// =============================================================================
// AUTH CONFIGURATION
// =============================================================================

// AuthConfig configures identity token verification.
type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`   // HS256 secret; empty accepts guest tokens
	Issuer      string `mapstructure:"issuer"`       // Required issuer when set
	AdminSecret string `mapstructure:"admin_secret"` // Bearer secret for admin-only routes; empty disables them
}

// DefaultAuth returns the default auth configuration.
func DefaultAuth() AuthConfig {
	return AuthConfig{}
}

// =============================================================================
// REDIS CONFIGURATION
// =============================================================================

// RedisConfig configures the scoreboard mirror.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DefaultRedis returns the default Redis configuration.
func DefaultRedis() RedisConfig {
	return RedisConfig{
		Host: "localhost",
		Port: 6379,
	}
}

// Addr returns the host:port of the Redis server.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// =============================================================================
// NATS CONFIGURATION
// =============================================================================

// NatsConfig configures the broadcast relay.
type NatsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`      // External server; empty starts an embedded one
	Host         string        `mapstructure:"host"`     // Embedded server host
	Port         int           `mapstructure:"port"`     // Embedded server port
	StartTimeout time.Duration `mapstructure:"start_timeout"`
	Subject      string        `mapstructure:"subject"` // Subject prefix
}

// DefaultNats returns the default NATS configuration.
func DefaultNats() NatsConfig {
	return NatsConfig{
		Host:         "127.0.0.1",
		Port:         4222,
		StartTimeout: 10 * time.Second,
		Subject:      "castlewars",
	}
}

// =============================================================================
// LOG CONFIGURATION
// =============================================================================

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// DefaultLog returns the default log configuration.
func DefaultLog() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World         WorldConfig         `mapstructure:"world"`
	Server        ServerConfig        `mapstructure:"server"`
	Spatial       SpatialConfig       `mapstructure:"spatial"`
	Limits        ResourceLimits      `mapstructure:"limits"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Nats          NatsConfig          `mapstructure:"nats"`
	Log           LogConfig           `mapstructure:"log"`
}

// Default returns the complete default configuration.
func Default() AppConfig {
	return AppConfig{
		World:         DefaultWorld(),
		Server:        DefaultServer(),
		Spatial:       DefaultSpatial(),
		Limits:        DefaultLimits(),
		Observability: DefaultObservability(),
		Auth:          DefaultAuth(),
		Redis:         DefaultRedis(),
		Nats:          DefaultNats(),
		Log:           DefaultLog(),
	}
}

// EnvPrefix prefixes every environment override, e.g. CASTLE_WORLD_TICK_RATE.
const EnvPrefix = "CASTLE"

// Load returns the configuration built from defaults, the optional file at
// path and environment overrides, in that order of precedence.
func Load(path string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid value at once.
func (c AppConfig) Validate() error {
	el := errors.NewErrorList()

	if c.World.TickRate <= 0 || c.World.TickRate > 1000 {
		el.Add(fmt.Errorf("world.tick_rate must be in 1..1000, got %d", c.World.TickRate))
	}
	if c.World.MapPath == "" && (c.World.MapRows < 16 || c.World.MapCols < 64) {
		el.Add(fmt.Errorf("generated map must be at least 16x64 tiles, got %dx%d", c.World.MapRows, c.World.MapCols))
	}
	if c.Spatial.TileSize <= 0 {
		el.Add(fmt.Errorf("spatial.tile_size must be positive"))
	}
	if c.Spatial.GridCellSize < c.Spatial.TileSize {
		el.Add(fmt.Errorf("spatial.grid_cell_size (%d) must be at least the tile size (%d)", c.Spatial.GridCellSize, c.Spatial.TileSize))
	}
	if c.Server.GameAddr == "" {
		el.Add(fmt.Errorf("server.game_addr is required"))
	}
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		el.Add(fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort))
	}
	if c.Server.MaxLineLength < 64 {
		el.Add(fmt.Errorf("server.max_line_length must be at least 64"))
	}
	if c.Limits.MaxPlayers <= 0 {
		el.Add(fmt.Errorf("limits.max_players must be positive"))
	}
	if c.Limits.IntentQueue <= 0 {
		el.Add(fmt.Errorf("limits.intent_queue must be positive"))
	}
	if c.Limits.CommandsPerSecond <= 0 || c.Limits.CommandBurst <= 0 {
		el.Add(fmt.Errorf("limits.commands_per_second and limits.command_burst must be positive"))
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		el.Add(fmt.Errorf("redis.host is required when redis is enabled"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		el.Add(fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return el.Err()
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, c AppConfig) {
	v.SetDefault("world.tick_rate", c.World.TickRate)
	v.SetDefault("world.map_path", c.World.MapPath)
	v.SetDefault("world.map_rows", c.World.MapRows)
	v.SetDefault("world.map_cols", c.World.MapCols)
	v.SetDefault("world.seed", c.World.Seed)

	v.SetDefault("server.game_addr", c.Server.GameAddr)
	v.SetDefault("server.http_port", c.Server.HTTPPort)
	v.SetDefault("server.max_line_length", c.Server.MaxLineLength)
	v.SetDefault("server.handshake_wait", c.Server.HandshakeWait)
	v.SetDefault("server.allow_origins", c.Server.AllowOrigins)

	v.SetDefault("spatial.tile_size", c.Spatial.TileSize)
	v.SetDefault("spatial.grid_cell_size", c.Spatial.GridCellSize)

	v.SetDefault("limits.max_players", c.Limits.MaxPlayers)
	v.SetDefault("limits.max_conns_per_ip", c.Limits.MaxConnsPerIP)
	v.SetDefault("limits.max_entities", c.Limits.MaxEntities)
	v.SetDefault("limits.intent_queue", c.Limits.IntentQueue)
	v.SetDefault("limits.commands_per_second", c.Limits.CommandsPerSecond)
	v.SetDefault("limits.command_burst", c.Limits.CommandBurst)
	v.SetDefault("limits.outbox_bytes", c.Limits.OutboxBytes)
	v.SetDefault("limits.http_requests_per_ip", c.Limits.HTTPRequestsPerIP)
	v.SetDefault("limits.http_burst", c.Limits.HTTPBurst)

	v.SetDefault("observability.debug_enabled", c.Observability.DebugEnabled)
	v.SetDefault("observability.debug_addr", c.Observability.DebugAddr)
	v.SetDefault("observability.event_log_path", c.Observability.EventLogPath)

	v.SetDefault("auth.jwt_secret", c.Auth.JWTSecret)
	v.SetDefault("auth.issuer", c.Auth.Issuer)
	v.SetDefault("auth.admin_secret", c.Auth.AdminSecret)

	v.SetDefault("redis.enabled", c.Redis.Enabled)
	v.SetDefault("redis.host", c.Redis.Host)
	v.SetDefault("redis.port", c.Redis.Port)
	v.SetDefault("redis.password", c.Redis.Password)
	v.SetDefault("redis.db", c.Redis.DB)

	v.SetDefault("nats.enabled", c.Nats.Enabled)
	v.SetDefault("nats.url", c.Nats.URL)
	v.SetDefault("nats.host", c.Nats.Host)
	v.SetDefault("nats.port", c.Nats.Port)
	v.SetDefault("nats.start_timeout", c.Nats.StartTimeout)
	v.SetDefault("nats.subject", c.Nats.Subject)

	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
}
