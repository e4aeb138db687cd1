package redis

import (
	"context"
	"time"

	"spotfake-daily/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptStore matches app.AttemptStore; redeclared here so the guard
// can wrap any inner implementation without importing app.
type AttemptStore interface {
	Record(ctx context.Context, attempt domain.Attempt) (domain.Attempt, bool, error)
	Leaderboard(ctx context.Context, date string, limit int) ([]domain.LeaderboardEntry, error)
}

// AttemptGuard is a Redis-aware wrapper around an AttemptStore.
// Notes:
//   - The inner store stays the source of truth for idempotency; the
//     Redis marker is a best-effort liveness record other instances can
//     inspect (and could be extended to cross-instance pub/sub).
//   - When Redis is unreachable the inner store's own uniqueness
//     guarantee still holds.
type AttemptGuard struct {
	client *redis.Client
	inner  AttemptStore
	ttl    time.Duration
}

func NewAttemptGuard(client *redis.Client, inner AttemptStore, ttl time.Duration) *AttemptGuard {
	return &AttemptGuard{client: client, inner: inner, ttl: ttl}
}

func (g *AttemptGuard) Record(ctx context.Context, attempt domain.Attempt) (domain.Attempt, bool, error) {
	stored, created, err := g.inner.Record(ctx, attempt)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	if created {
		// best-effort marker
		_ = g.client.Set(ctx, g.key(attempt.PuzzleDate, attempt.UserID), "1", g.ttl).Err()
	}
	return stored, created, nil
}

func (g *AttemptGuard) Leaderboard(ctx context.Context, date string, limit int) ([]domain.LeaderboardEntry, error) {
	return g.inner.Leaderboard(ctx, date, limit)
}

func (g *AttemptGuard) key(date, userID string) string {
	return "attempt:" + date + ":" + userID
}
