package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"spotfake-daily/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PuzzleLoader fetches puzzle content from a backing store (e.g., Postgres).
type PuzzleLoader interface {
	LoadPuzzle(ctx context.Context, date string) (domain.Puzzle, error)
}

// PuzzleRepository caches puzzles in Redis (two hashes per date) and
// falls back to a loader on cache miss.
// Truths are stored as: HSET puzzle:{date}:truth  {roundIndex} {real|ai}
// Images are stored as: HSET puzzle:{date}:images {roundIndex} {imageUrl}
type PuzzleRepository struct {
	client *redis.Client
	loader PuzzleLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPuzzleRepository(client *redis.Client, loader PuzzleLoader, ttl time.Duration) *PuzzleRepository {
	return &PuzzleRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PuzzleRepository) PuzzleByDate(ctx context.Context, date string) (domain.Puzzle, error) {
	truthKey := r.truthKey(date)
	imageKey := r.imageKey(date)

	truths, err := r.client.HGetAll(ctx, truthKey).Result()
	if err == nil && len(truths) > 0 {
		images, _ := r.client.HGetAll(ctx, imageKey).Result()
		return buildPuzzleFromCache(date, truths, images), nil
	}

	result, err, _ := r.sf.Do(date, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		truths, err := r.client.HGetAll(ctx, truthKey).Result()
		if err == nil && len(truths) > 0 {
			images, _ := r.client.HGetAll(ctx, imageKey).Result()
			return buildPuzzleFromCache(date, truths, images), nil
		}

		puzzle, err := r.loader.LoadPuzzle(ctx, date)
		if err != nil {
			return domain.Puzzle{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for _, round := range puzzle.Rounds {
			field := strconv.Itoa(round.Index)
			pipe.HSet(ctx, truthKey, field, string(round.Truth))
			pipe.HSet(ctx, imageKey, field, round.ImageURL)
		}
		if ttl > 0 {
			pipe.Expire(ctx, truthKey, ttl)
			pipe.Expire(ctx, imageKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return puzzle, nil
	})
	if err != nil {
		return domain.Puzzle{}, err
	}
	return result.(domain.Puzzle), nil
}

func (r *PuzzleRepository) truthKey(date string) string {
	return "puzzle:" + date + ":truth"
}

func (r *PuzzleRepository) imageKey(date string) string {
	return "puzzle:" + date + ":images"
}

func buildPuzzleFromCache(date string, truths, images map[string]string) domain.Puzzle {
	rounds := make([]domain.Round, 0, len(truths))
	for field, truth := range truths {
		index, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		rounds = append(rounds, domain.Round{
			Index:    index,
			ImageURL: images[field],
			Truth:    domain.Choice(truth),
		})
	}
	puzzle := domain.Puzzle{Date: date, Rounds: rounds}
	puzzle.SortRounds()
	return puzzle
}

func (r *PuzzleRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
