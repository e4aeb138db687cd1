package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spotfake-daily/internal/app"
	"spotfake-daily/internal/config"
	"spotfake-daily/internal/domain"
	"spotfake-daily/internal/infra/memory"
	pgstore "spotfake-daily/internal/infra/postgres"
	redisstore "spotfake-daily/internal/infra/redis"
	transport "spotfake-daily/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the puzzle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 48*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.PuzzleLoader = memory.NewStaticPuzzleLoader(samplePuzzles())
	if pool != nil {
		loader = pgstore.NewPuzzleLoader(pool)
	}

	puzzleTTL := config.TTLDuration(cfg.Puzzle.TTL, 10*time.Minute)
	var puzzles app.PuzzleRepository
	if redisClient != nil {
		puzzles = redisstore.NewPuzzleRepository(redisClient, loader, puzzleTTL)
	} else {
		puzzles = memory.NewPuzzleRepository(loader, puzzleTTL)
	}

	var attempts app.AttemptStore
	if pool != nil {
		attempts = pgstore.NewAttemptStore(pool)
	} else {
		attempts = memory.NewAttemptStore()
	}
	if redisClient != nil {
		attempts = redisstore.NewAttemptGuard(redisClient, attempts, redisTTL)
	}

	service := app.NewAttemptService(puzzles, attempts)
	handler := transport.NewHandler(service)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting puzzle server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// samplePuzzles seeds a demo puzzle for today; swap the loader for the
// Postgres-backed one in production.
func samplePuzzles() map[string]domain.Puzzle {
	today := time.Now().UTC().Format("2006-01-02")
	return map[string]domain.Puzzle{
		today: {
			Date: today,
			Rounds: []domain.Round{
				{Index: 1, ImageURL: "https://images.spotfake.dev/demo/1.jpg", Truth: domain.ChoiceReal},
				{Index: 2, ImageURL: "https://images.spotfake.dev/demo/2.jpg", Truth: domain.ChoiceAI},
				{Index: 3, ImageURL: "https://images.spotfake.dev/demo/3.jpg", Truth: domain.ChoiceAI},
				{Index: 4, ImageURL: "https://images.spotfake.dev/demo/4.jpg", Truth: domain.ChoiceReal},
				{Index: 5, ImageURL: "https://images.spotfake.dev/demo/5.jpg", Truth: domain.ChoiceAI},
			},
		},
	}
}
