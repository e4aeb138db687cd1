package memory

import (
	"context"
	"sort"
	"sync"

	"spotfake-daily/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
// The first attempt per (user, date) wins; later ones are replayed.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]map[string]domain.Attempt // date -> user -> attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]map[string]domain.Attempt)}
}

func (s *AttemptStore) Record(_ context.Context, attempt domain.Attempt) (domain.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.attempts[attempt.PuzzleDate]
	if !ok {
		byUser = make(map[string]domain.Attempt)
		s.attempts[attempt.PuzzleDate] = byUser
	}
	if existing, ok := byUser[attempt.UserID]; ok {
		return existing, false, nil
	}
	byUser[attempt.UserID] = attempt
	return attempt, true, nil
}

func (s *AttemptStore) Leaderboard(_ context.Context, date string, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := s.attempts[date]
	attempts := make([]domain.Attempt, 0, len(byUser))
	for _, attempt := range byUser {
		attempts = append(attempts, attempt)
	}
	// Score descending, earlier submission breaks ties, then user for
	// a stable order.
	sort.Slice(attempts, func(i, j int) bool {
		if attempts[i].Score != attempts[j].Score {
			return attempts[i].Score > attempts[j].Score
		}
		if !attempts[i].CreatedAt.Equal(attempts[j].CreatedAt) {
			return attempts[i].CreatedAt.Before(attempts[j].CreatedAt)
		}
		return attempts[i].UserID < attempts[j].UserID
	})

	if limit > 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	entries := make([]domain.LeaderboardEntry, len(attempts))
	for i, attempt := range attempts {
		entries[i] = domain.LeaderboardEntry{
			Rank:      i + 1,
			User:      attempt.UserID,
			Score:     attempt.Score,
			CreatedAt: attempt.CreatedAt,
		}
	}
	return entries, nil
}
