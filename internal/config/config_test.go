package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestLoadDefaults verifies Load with no file returns the defaults
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.World.TickRate != 60 {
		t.Errorf("Expected tick rate 60, got %d", cfg.World.TickRate)
	}
	if cfg.Spatial.TileSize != 32 {
		t.Errorf("Expected tile size 32, got %d", cfg.Spatial.TileSize)
	}
	if cfg.Server.HandshakeWait != 10*time.Second {
		t.Errorf("Expected handshake wait 10s, got %v", cfg.Server.HandshakeWait)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("Expected redis addr localhost:6379, got %s", cfg.Redis.Addr())
	}
}

// TestLoadEnvOverride verifies CASTLE_* variables take precedence
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CASTLE_WORLD_TICK_RATE", "30")
	t.Setenv("CASTLE_LOG_FORMAT", "json")
	t.Setenv("CASTLE_SERVER_HANDSHAKE_WAIT", "3s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.World.TickRate != 30 {
		t.Errorf("Expected tick rate 30, got %d", cfg.World.TickRate)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected json format, got %s", cfg.Log.Format)
	}
	if cfg.Server.HandshakeWait != 3*time.Second {
		t.Errorf("Expected 3s, got %v", cfg.Server.HandshakeWait)
	}
}

// TestLoadFile verifies a YAML file overrides defaults
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "castle.yaml")
	data := "world:\n  tick_rate: 20\nlimits:\n  max_players: 8\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.World.TickRate != 20 {
		t.Errorf("Expected tick rate 20, got %d", cfg.World.TickRate)
	}
	if cfg.Limits.MaxPlayers != 8 {
		t.Errorf("Expected max players 8, got %d", cfg.Limits.MaxPlayers)
	}
	if cfg.Spatial.GridCellSize != 64 {
		t.Errorf("Expected untouched grid cell size 64, got %d", cfg.Spatial.GridCellSize)
	}
}

// TestLoadMissingFile verifies an unreadable file is an error
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

// TestValidateCollectsAllErrors verifies every invalid field is reported
func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.World.TickRate = 0
	cfg.Limits.MaxPlayers = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "tick_rate") {
		t.Errorf("Expected error to mention tick_rate, got %v", err)
	}

	cfg = Default()
	cfg.Log.Format = "xml"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "log.format") {
		t.Errorf("Expected log.format error, got %v", err)
	}
}

// TestDefaultIsValid guards the defaults themselves
func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}
