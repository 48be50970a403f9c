package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"castle-wars/internal/session"
)

// newUpgrader builds an upgrader that only accepts the configured origins.
// Requests without an Origin header (native clients) are allowed.
func (h *routerHandlers) newUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || IsAllowedOrigin(origin, h.origins) {
				return true
			}

			// Log rejected origin for security monitoring
			h.log.WithField("origin", origin).Warn("⚠️ WebSocket connection rejected")
			RecordConnectionRejected("origin")
			return false
		},
	}
}

// handleWS upgrades the request and runs a game session on it until the
// session ends. Each line of the line protocol travels as one text frame.
func (h *routerHandlers) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if !h.sessions.AcquireIP(ip) {
		h.log.WithField("ip", ip).Warn("⚠️ WebSocket connection rejected: per-IP limit reached")
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}
	defer h.sessions.ReleaseIP(ip)

	conn, err := h.newUpgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	h.sessions.Serve(r.Context(), session.NewWSConn(conn, h.sessions.MaxLineLength()), "ws")
}
