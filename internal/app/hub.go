package app

import (
	"sync"

	"spotfake-daily/internal/domain"
)

// LeaderboardHub fans fresh leaderboard snapshots out to live
// subscribers (the websocket feed). Slow consumers lose intermediate
// snapshots rather than blocking the publisher.
type LeaderboardHub struct {
	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{subscribers: make(map[chan domain.Leaderboard]struct{})}
}

// Subscribe returns a channel of snapshots. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber. A full channel has
// its oldest snapshot dropped first; only the latest board matters.
func (h *LeaderboardHub) Publish(board domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- board:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
}
