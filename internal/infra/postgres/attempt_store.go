package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"spotfake-daily/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore persists attempts in Postgres. The unique constraint on
// (user_id, puzzle_date) is the idempotency guarantee: an insert that
// conflicts reads the original row back instead.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) Record(ctx context.Context, attempt domain.Attempt) (domain.Attempt, bool, error) {
	answers, err := json.Marshal(wireAnswers(attempt.Answers))
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("marshal answers: %w", err)
	}

	var createdAt time.Time
	err = s.pool.QueryRow(ctx,
		`INSERT INTO attempts (user_id, puzzle_date, score, total_rounds, answers, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, puzzle_date) DO NOTHING
		 RETURNING created_at`,
		attempt.UserID, attempt.PuzzleDate, attempt.Score, attempt.TotalRounds, answers, attempt.CreatedAt,
	).Scan(&createdAt)
	if err == nil {
		attempt.CreatedAt = createdAt
		return attempt, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, false, fmt.Errorf("insert attempt: %w", err)
	}

	// Conflict: replay the attempt recorded first.
	existing, err := s.byUserAndDate(ctx, attempt.UserID, attempt.PuzzleDate)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	return existing, false, nil
}

func (s *AttemptStore) byUserAndDate(ctx context.Context, userID, date string) (domain.Attempt, error) {
	var (
		attempt = domain.Attempt{UserID: userID, PuzzleDate: date}
		raw     []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT score, total_rounds, answers, created_at FROM attempts WHERE user_id=$1 AND puzzle_date=$2`,
		userID, date,
	).Scan(&attempt.Score, &attempt.TotalRounds, &raw, &attempt.CreatedAt)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	var wire map[string]domain.Choice
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	attempt.Answers = make(map[int]domain.Choice, len(wire))
	for key, choice := range wire {
		if index, err := strconv.Atoi(key); err == nil {
			attempt.Answers[index] = choice
		}
	}
	return attempt, nil
}

func (s *AttemptStore) Leaderboard(ctx context.Context, date string, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, score, created_at FROM attempts
		 WHERE puzzle_date=$1
		 ORDER BY score DESC, created_at ASC, user_id ASC
		 LIMIT $2`,
		date, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		entry := domain.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&entry.User, &entry.Score, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func wireAnswers(answers map[int]domain.Choice) map[string]domain.Choice {
	wire := make(map[string]domain.Choice, len(answers))
	for index, choice := range answers {
		wire[strconv.Itoa(index)] = choice
	}
	return wire
}
