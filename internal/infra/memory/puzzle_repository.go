package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"spotfake-daily/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PuzzleLoader fetches puzzle content from a backing store (e.g., Postgres).
type PuzzleLoader interface {
	LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error)
}

// PuzzleRepository caches puzzles with TTL to avoid repeated DB hits.
type PuzzleRepository struct {
	loader PuzzleLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPuzzle
}

type cachedPuzzle struct {
	puzzle    domain.Puzzle
	expiresAt time.Time
}

func NewPuzzleRepository(loader PuzzleLoader, ttl time.Duration) *PuzzleRepository {
	return &PuzzleRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPuzzle),
	}
}

func (r *PuzzleRepository) PuzzleByDate(ctx context.Context, date string) (domain.Puzzle, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[date]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.puzzle, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(date, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[date]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.puzzle, nil
		}
		r.mu.RUnlock()

		puzzle, err := r.loader.LoadPuzzle(ctx, date)
		if err != nil {
			return domain.Puzzle{}, err
		}

		r.mu.Lock()
		r.cache[date] = cachedPuzzle{
			puzzle:    puzzle,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return puzzle, nil
	})
	if err != nil {
		return domain.Puzzle{}, err
	}
	return result.(domain.Puzzle), nil
}

// StaticPuzzleLoader is a simple loader backed by an in-memory map
// keyed by date (useful for tests/demos).
type StaticPuzzleLoader struct {
	puzzles map[string]domain.Puzzle
}

func NewStaticPuzzleLoader(puzzles map[string]domain.Puzzle) *StaticPuzzleLoader {
	return &StaticPuzzleLoader{puzzles: puzzles}
}

func (l *StaticPuzzleLoader) LoadPuzzle(_ context.Context, date string) (domain.Puzzle, error) {
	if puzzle, ok := l.puzzles[date]; ok {
		return puzzle, nil
	}
	return domain.Puzzle{}, domain.ErrPuzzleNotFound
}

func (r *PuzzleRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
