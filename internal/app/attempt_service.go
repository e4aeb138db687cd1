package app

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"spotfake-daily/internal/domain"
)

// PuzzleRepository loads puzzle content for a calendar date, truth
// included (from cache/backing store).
type PuzzleRepository interface {
	PuzzleByDate(ctx context.Context, date string) (domain.Puzzle, error)
}

// AttemptStore persists scored attempts. Record keeps at most one
// attempt per (user, date): created is false when a prior attempt
// existed, and the returned attempt is always the effective one.
type AttemptStore interface {
	Record(ctx context.Context, attempt domain.Attempt) (domain.Attempt, bool, error)
	Leaderboard(ctx context.Context, date string, limit int) ([]domain.LeaderboardEntry, error)
}

// ValidationError enriches a rejection with the fields the attempt API
// reports back to clients.
type ValidationError struct {
	Err         error
	Details     string
	PuzzleDate  string
	TotalRounds int
	Answered    int
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// AttemptService contains the server-side use cases: serve today's
// puzzle, score submissions idempotently, and expose the day's
// leaderboard as both a query and a live feed.
type AttemptService struct {
	puzzles  PuzzleRepository
	attempts AttemptStore
	hub      *LeaderboardHub
	now      func() time.Time
}

func NewAttemptService(puzzles PuzzleRepository, attempts AttemptStore) *AttemptService {
	return NewAttemptServiceWithClock(puzzles, attempts, time.Now)
}

// NewAttemptServiceWithClock is test-only for deterministic dates.
func NewAttemptServiceWithClock(puzzles PuzzleRepository, attempts AttemptStore, now func() time.Time) *AttemptService {
	return &AttemptService{
		puzzles:  puzzles,
		attempts: attempts,
		hub:      NewLeaderboardHub(),
		now:      now,
	}
}

// Today is the current UTC puzzle date.
func (s *AttemptService) Today() string {
	return s.now().UTC().Format("2006-01-02")
}

// PuzzleToday returns the published puzzle for the current date with
// per-round truth stripped and rounds sorted by index.
func (s *AttemptService) PuzzleToday(ctx context.Context) (domain.Puzzle, error) {
	puzzle, err := s.puzzles.PuzzleByDate(ctx, s.Today())
	if err != nil {
		return domain.Puzzle{}, err
	}
	if len(puzzle.Rounds) == 0 {
		return domain.Puzzle{}, domain.ErrEmptyPuzzle
	}
	// Cached puzzles share their rounds slice; sort a copy.
	puzzle.Rounds = append([]domain.Round(nil), puzzle.Rounds...)
	puzzle.SortRounds()
	return puzzle.Public(), nil
}

// SubmitAttempt validates and scores a raw answer map against today's
// puzzle. The second return is true when the user had already
// submitted and the stored attempt was replayed unchanged.
func (s *AttemptService) SubmitAttempt(ctx context.Context, userID, puzzleDate string, answers map[string]string) (domain.Attempt, bool, error) {
	if userID == "" {
		return domain.Attempt{}, false, domain.ErrMissingUser
	}
	today := s.Today()
	if puzzleDate != today {
		return domain.Attempt{}, false, &ValidationError{
			Err:        domain.ErrDateMismatch,
			Details:    fmt.Sprintf("attempt for %s, today is %s", puzzleDate, today),
			PuzzleDate: today,
		}
	}

	puzzle, err := s.puzzles.PuzzleByDate(ctx, today)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	total := len(puzzle.Rounds)
	if total == 0 {
		return domain.Attempt{}, false, domain.ErrEmptyPuzzle
	}

	valid := make(map[int]domain.Choice, total)
	for _, r := range puzzle.Rounds {
		valid[r.Index] = r.Truth
	}

	parsed := make(map[int]domain.Choice, len(answers))
	for key, raw := range answers {
		index, err := strconv.Atoi(key)
		if err != nil {
			return domain.Attempt{}, false, &ValidationError{
				Err:        domain.ErrUnknownRound,
				Details:    fmt.Sprintf("answer key %q is not a round index", key),
				PuzzleDate: today, TotalRounds: total,
			}
		}
		if _, ok := valid[index]; !ok {
			return domain.Attempt{}, false, &ValidationError{
				Err:        domain.ErrUnknownRound,
				Details:    fmt.Sprintf("round %d is not part of today's puzzle", index),
				PuzzleDate: today, TotalRounds: total,
			}
		}
		choice, err := domain.ParseChoice(raw)
		if err != nil {
			return domain.Attempt{}, false, &ValidationError{
				Err:        domain.ErrBadChoice,
				Details:    fmt.Sprintf("round %d: %q", index, raw),
				PuzzleDate: today, TotalRounds: total,
			}
		}
		parsed[index] = choice
	}
	if len(parsed) != total {
		return domain.Attempt{}, false, &ValidationError{
			Err:         domain.ErrIncomplete,
			Details:     fmt.Sprintf("answered %d of %d rounds", len(parsed), total),
			PuzzleDate:  today,
			TotalRounds: total,
			Answered:    len(parsed),
		}
	}

	score := 0
	for index, truth := range valid {
		if parsed[index] == truth {
			score++
		}
	}

	attempt := domain.Attempt{
		UserID:      userID,
		PuzzleDate:  today,
		Score:       score,
		TotalRounds: total,
		Answers:     parsed,
		CreatedAt:   s.now().UTC(),
	}
	stored, created, err := s.attempts.Record(ctx, attempt)
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("record attempt: %w", err)
	}
	if created {
		s.publishLeaderboard(ctx, today)
	}
	return stored, !created, nil
}

// LeaderboardToday returns the top attempts for the current date,
// limit clamped to [1, 100] with a default of 10.
func (s *AttemptService) LeaderboardToday(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	today := s.Today()
	entries, err := s.attempts.Leaderboard(ctx, today, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("leaderboard: %w", err)
	}
	return domain.Leaderboard{PuzzleDate: today, Entries: entries}, nil
}

// Subscribe attaches a live leaderboard consumer. The caller must
// invoke the returned cancel function.
func (s *AttemptService) Subscribe() (<-chan domain.Leaderboard, func()) {
	return s.hub.Subscribe()
}

func (s *AttemptService) publishLeaderboard(ctx context.Context, date string) {
	entries, err := s.attempts.Leaderboard(ctx, date, defaultLeaderboardLimit)
	if err != nil {
		log.Printf("leaderboard publish skipped: %v", err)
		return
	}
	s.hub.Publish(domain.Leaderboard{PuzzleDate: date, Entries: entries})
}
