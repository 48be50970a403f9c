package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Query limits for list endpoints.
const (
	defaultListLimit = 10
	maxListLimit     = 200
)

// StateResponse is the /api/state body.
type StateResponse struct {
	Sequence      uint64    `json:"sequence"`
	Timestamp     time.Time `json:"timestamp"`
	Tick          uint64    `json:"tick"`
	TickRate      int       `json:"tickRate"`
	Overruns      uint64    `json:"overruns"`
	Sessions      int       `json:"sessions"`
	Players       int       `json:"players"`
	Entities      int       `json:"entities"`
	Units         int       `json:"units"`
	Projectiles   int       `json:"projectiles"`
	SpawnRejected int       `json:"spawnRejected"`
	GameOver      bool      `json:"gameOver"`
	Loser         string    `json:"loser,omitempty"`
	MapWidth      float64   `json:"mapWidth"`
	MapHeight     float64   `json:"mapHeight"`
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, StateResponse{
		Sequence:      snap.Sequence,
		Timestamp:     snap.Timestamp,
		Tick:          snap.Tick,
		TickRate:      h.engine.TickRate(),
		Overruns:      h.engine.Overruns(),
		Sessions:      h.engine.SessionCount(),
		Players:       len(snap.Players),
		Entities:      snap.Entities,
		Units:         snap.Units,
		Projectiles:   snap.Projectiles,
		SpawnRejected: snap.SpawnRejected,
		GameOver:      snap.GameOver,
		Loser:         snap.Loser,
		MapWidth:      snap.MapWidth,
		MapHeight:     snap.MapHeight,
	})
}

func (h *routerHandlers) handleGetCastles(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, snap.Castles)
}

func (h *routerHandlers) handleGetPlayers(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, snap.Players)
}

func (h *routerHandlers) handleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	if h.scores == nil {
		writeError(w, "scoreboard unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, h.scores.Top(queryLimit(r)))
}

func (h *routerHandlers) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	if h.scores == nil {
		writeError(w, "scoreboard unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, h.scores.Matches(queryLimit(r)))
}

func (h *routerHandlers) handleGetMap(w http.ResponseWriter, r *http.Request) {
	width, _ := strconv.Atoi(r.URL.Query().Get("w"))
	snap := h.engine.Snapshot()

	var buf bytes.Buffer
	if err := renderMinimap(&buf, h.engine.Map(), snap.Dots, width); err != nil {
		h.log.WithError(err).Warn("⚠️ Minimap render failed")
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSON(w, []any{})
		return
	}
	writeJSON(w, h.events.Recent(queryLimit(r)))
}

func (h *routerHandlers) handleGetEventStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"rateLimit": h.limiter.Stats()}
	if h.events != nil {
		resp["eventLog"] = h.events.Stats()
	}
	if d, ok := h.scores.(interface{ Dropped() uint64 }); ok {
		resp["scoreWritesDropped"] = d.Dropped()
	}
	writeJSON(w, resp)
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// queryLimit reads ?n=, clamped to 1..maxListLimit
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
