package server

import (
	"net/http"
	"time"

	"stillfm/core/auth"
	"stillfm/logger"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// PlayerSocketHandler streams playback snapshots to an observer surface
// (mini bar or now-playing view) over a websocket. Observers are pure
// consumers: they receive state here and mutate it only through the player
// REST operations. Any number of observers may attach; each gets every
// state change, and a slow one only misses intermediate frames.
//
// Browsers cannot set headers on websocket requests, so the JWT arrives as
// a query parameter.
func (h *APIHandler) PlayerSocketHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	userID := claims.UserID

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	coord := h.players.Player(userID)
	snaps, cancel := coord.Subscribe()
	defer cancel()

	logger.Info("player observer attached", logger.Int64("userId", userID))

	// Read loop: the client sends nothing meaningful; we only watch for
	// close and keep the pong deadline fresh.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Initial frame so the observer renders current state immediately.
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(coord.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				// Coordinator torn down (sign-out).
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			logger.Debug("player observer detached", logger.Int64("userId", userID))
			return
		}
	}
}
