package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"spotfake-daily/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketLeaderboardFeed(t *testing.T) {
	service := newTestService()
	server := httptest.NewServer(NewHandler(service).Routes())
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives first, empty board included.
	board := readBoard(conn, t)
	if len(board.Entries) != 0 {
		t.Fatalf("expected empty initial board, got %+v", board.Entries)
	}

	// An accepted attempt pushes a fresh snapshot.
	_, already, err := service.SubmitAttempt(context.Background(), "u1", "2026-08-31",
		map[string]string{"1": "ai", "2": "real", "3": "ai"})
	if err != nil || already {
		t.Fatalf("submit: already=%v err=%v", already, err)
	}

	board = readBoard(conn, t)
	if len(board.Entries) != 1 || board.Entries[0].User != "u1" || board.Entries[0].Score != 3 {
		t.Fatalf("expected u1 with score 3, got %+v", board.Entries)
	}
}

func readBoard(conn *websocket.Conn, t *testing.T) domain.Leaderboard {
	t.Helper()
	var msg struct {
		Type    string             `json:"type"`
		Payload domain.Leaderboard `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %s", msg.Type)
	}
	return msg.Payload
}
