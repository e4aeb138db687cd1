package memory

import (
	"context"
	"testing"
	"time"

	"spotfake-daily/internal/domain"
)

func TestPuzzleRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		PuzzleLoader: NewStaticPuzzleLoader(map[string]domain.Puzzle{
			"2026-08-31": samplePuzzle(),
		}),
	}
	repo := NewPuzzleRepository(loader, time.Minute)

	if _, err := repo.PuzzleByDate(context.Background(), "2026-08-31"); err != nil {
		t.Fatalf("get puzzle: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.PuzzleByDate(context.Background(), "2026-08-31"); err != nil {
		t.Fatalf("get puzzle 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestPuzzleRepositoryUnknownDate(t *testing.T) {
	repo := NewPuzzleRepository(NewStaticPuzzleLoader(nil), time.Minute)
	if _, err := repo.PuzzleByDate(context.Background(), "2026-08-31"); err != domain.ErrPuzzleNotFound {
		t.Fatalf("expected puzzle not found, got %v", err)
	}
}

type countingLoader struct {
	PuzzleLoader
	calls int
}

func (l *countingLoader) LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	l.calls++
	return l.PuzzleLoader.LoadPuzzle(ctx, date)
}

func samplePuzzle() domain.Puzzle {
	return domain.Puzzle{
		Date: "2026-08-31",
		Rounds: []domain.Round{
			{Index: 1, ImageURL: "https://img/1", Truth: domain.ChoiceAI},
			{Index: 2, ImageURL: "https://img/2", Truth: domain.ChoiceReal},
		},
	}
}
