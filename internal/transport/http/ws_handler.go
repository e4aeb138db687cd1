package http

import (
	"log"
	"net/http"

	"spotfake-daily/internal/app"
	"spotfake-daily/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams live leaderboard snapshots to spectators: an
// initial snapshot on connect, then one after every accepted attempt.
type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	board, err := h.service.LeaderboardToday(r.Context(), 0)
	if err != nil {
		log.Printf("ws initial snapshot: %v", err)
		return
	}
	if board.Entries == nil {
		board.Entries = []domain.LeaderboardEntry{}
	}
	if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: board}); err != nil {
		return
	}

	updates, cancel := h.service.Subscribe()
	defer cancel()

	// Reader only watches for the peer closing; inbound payloads are ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
