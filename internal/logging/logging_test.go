package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"

	"castle-wars/internal/config"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(config.LogConfig{Level: "debug", Format: "json"}, &buf)

	log.WithField("team", 1).Info("castle upgraded")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "castle upgraded" {
		t.Errorf("Expected msg field, got %v", entry["msg"])
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %v", log.GetLevel())
	}
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	log := NewWithOutput(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{})
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level, got %v", log.GetLevel())
	}
}

func TestEnvOverridesLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	log := NewWithOutput(config.DefaultLog(), &bytes.Buffer{})
	if log.GetLevel() != logrus.WarnLevel {
		t.Errorf("Expected warn level, got %v", log.GetLevel())
	}
}
