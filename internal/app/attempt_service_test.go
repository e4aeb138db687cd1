package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spotfake-daily/internal/app"
	"spotfake-daily/internal/domain"
	"spotfake-daily/internal/infra/memory"
)

func TestSubmitAttemptScoresAgainstTruth(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	attempt, already, err := service.SubmitAttempt(ctx, "u1", "2026-08-31",
		map[string]string{"1": "ai", "2": "ai", "3": "ai"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if already {
		t.Fatalf("first attempt flagged as already submitted")
	}
	if attempt.Score != 2 || attempt.TotalRounds != 3 {
		t.Fatalf("expected 2/3, got %d/%d", attempt.Score, attempt.TotalRounds)
	}
}

func TestSubmitAttemptIdempotentPerUserAndDate(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	first, _, err := service.SubmitAttempt(ctx, "u1", "2026-08-31",
		map[string]string{"1": "ai", "2": "real", "3": "ai"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	second, already, err := service.SubmitAttempt(ctx, "u1", "2026-08-31",
		map[string]string{"1": "real", "2": "ai", "3": "real"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !already {
		t.Fatalf("expected alreadySubmitted on replay")
	}
	if second.Score != first.Score || second.CreatedAt != first.CreatedAt {
		t.Fatalf("replay altered the attempt: first=%+v second=%+v", first, second)
	}
}

func TestSubmitAttemptValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	if _, _, err := service.SubmitAttempt(ctx, "", "2026-08-31", nil); !errors.Is(err, domain.ErrMissingUser) {
		t.Fatalf("expected missing user, got %v", err)
	}

	_, _, err := service.SubmitAttempt(ctx, "u1", "2026-08-30",
		map[string]string{"1": "ai", "2": "real", "3": "ai"})
	if !errors.Is(err, domain.ErrDateMismatch) {
		t.Fatalf("expected date mismatch, got %v", err)
	}

	_, _, err = service.SubmitAttempt(ctx, "u1", "2026-08-31",
		map[string]string{"1": "ai", "2": "real"})
	var validation *app.ValidationError
	if !errors.As(err, &validation) || !errors.Is(err, domain.ErrIncomplete) {
		t.Fatalf("expected incomplete validation error, got %v", err)
	}
	if validation.Answered != 2 || validation.TotalRounds != 3 {
		t.Fatalf("wrong validation detail: %+v", validation)
	}

	_, _, err = service.SubmitAttempt(ctx, "u1", "2026-08-31",
		map[string]string{"1": "ai", "2": "real", "9": "ai"})
	if !errors.Is(err, domain.ErrUnknownRound) {
		t.Fatalf("expected unknown round, got %v", err)
	}

	_, _, err = service.SubmitAttempt(ctx, "u1", "2026-08-31",
		map[string]string{"1": "ai", "2": "real", "3": "maybe"})
	if !errors.Is(err, domain.ErrBadChoice) {
		t.Fatalf("expected bad choice, got %v", err)
	}
}

func TestPuzzleTodayStripsTruthAndSorts(t *testing.T) {
	service := newTestService()
	puzzle, err := service.PuzzleToday(context.Background())
	if err != nil {
		t.Fatalf("puzzle today: %v", err)
	}
	for i, round := range puzzle.Rounds {
		if round.Truth != "" {
			t.Fatalf("truth leaked: %+v", round)
		}
		if i > 0 && puzzle.Rounds[i-1].Index >= round.Index {
			t.Fatalf("rounds out of order: %+v", puzzle.Rounds)
		}
	}
}

func TestAcceptedAttemptPublishesLeaderboard(t *testing.T) {
	ctx := context.Background()
	service := newTestService()

	updates, cancel := service.Subscribe()
	defer cancel()

	if _, _, err := service.SubmitAttempt(ctx, "u1", "2026-08-31",
		map[string]string{"1": "ai", "2": "real", "3": "ai"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case board := <-updates:
		if len(board.Entries) != 1 || board.Entries[0].User != "u1" {
			t.Fatalf("unexpected snapshot %+v", board.Entries)
		}
	case <-time.After(time.Second):
		t.Fatalf("no leaderboard snapshot published")
	}

	// A replayed attempt publishes nothing.
	if _, already, err := service.SubmitAttempt(ctx, "u1", "2026-08-31",
		map[string]string{"1": "ai", "2": "real", "3": "ai"}); err != nil || !already {
		t.Fatalf("replay: already=%v err=%v", already, err)
	}
	select {
	case board := <-updates:
		t.Fatalf("replay must not publish, got %+v", board.Entries)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestService() *app.AttemptService {
	loader := memory.NewStaticPuzzleLoader(map[string]domain.Puzzle{
		"2026-08-31": {
			Date: "2026-08-31",
			Rounds: []domain.Round{
				{Index: 3, ImageURL: "https://img/3", Truth: domain.ChoiceAI},
				{Index: 1, ImageURL: "https://img/1", Truth: domain.ChoiceAI},
				{Index: 2, ImageURL: "https://img/2", Truth: domain.ChoiceReal},
			},
		},
	})
	repo := memory.NewPuzzleRepository(loader, 5*time.Minute)
	now := func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	return app.NewAttemptServiceWithClock(repo, memory.NewAttemptStore(), now)
}
