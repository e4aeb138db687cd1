package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"spotfake-daily/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PuzzleLoader loads puzzle JSONB from Postgres.
type PuzzleLoader struct {
	pool *pgxpool.Pool
}

func NewPuzzleLoader(pool *pgxpool.Pool) *PuzzleLoader {
	return &PuzzleLoader{pool: pool}
}

func (l *PuzzleLoader) LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM puzzles WHERE puzzle_date=$1`, date).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Puzzle{}, domain.ErrPuzzleNotFound
	}
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("load puzzle: %w", err)
	}
	var puzzle domain.Puzzle
	if err := json.Unmarshal(raw, &puzzle); err != nil {
		return domain.Puzzle{}, fmt.Errorf("unmarshal puzzle: %w", err)
	}
	puzzle.Date = date
	return puzzle, nil
}
