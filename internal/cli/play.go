package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spotfake-daily/internal/client"
	"spotfake-daily/internal/config"
	"spotfake-daily/internal/domain"
	"spotfake-daily/internal/identity"
	"spotfake-daily/internal/session"
	"github.com/spf13/cobra"
)

// NewPlayCmd builds the terminal client for today's puzzle.
func NewPlayCmd(configPath *string) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play today's puzzle from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, serverURL)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "puzzle server base URL (overrides config)")
	return cmd
}

func runPlay(ctx context.Context, configPath, serverFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		// The client runs fine on flags and defaults alone.
		cfg = config.Config{}
	}

	base := serverFlag
	if base == "" {
		base = cfg.Client.BaseURL
	}
	if base == "" {
		base = "http://localhost:8080"
	}

	idPath := cfg.Client.IdentityPath
	if idPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("identity path: %w", err)
		}
		idPath = filepath.Join(configDir, "spotfake", "identity")
	}

	api := client.New(base, nil)
	sess := session.New(api, api, api, identity.NewFileProvider(idPath))
	sess.SetLeaderboardLimit(cfg.Client.LeaderboardLimit)

	if err := sess.LoadToday(ctx); err != nil {
		return fmt.Errorf("load today's puzzle: %w", err)
	}

	puzzle := sess.Puzzle()
	fmt.Printf("Puzzle for %s: %d rounds. Call each image real or ai.\n", puzzle.Date, len(puzzle.Rounds))
	fmt.Println("Commands: real, ai, back, next, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for sess.Phase() != session.PhaseFinalized {
		round, ok := sess.CurrentRound()
		if !ok {
			return errors.New("no round to show")
		}
		fmt.Printf("\nRound %d of %d: %s\n", sess.Position()+1, len(puzzle.Rounds), round.ImageURL)
		if choice, answered := sess.Answer(round.Index); answered {
			fmt.Printf("Your answer: %s", choice)
			if !sess.Editable() {
				fmt.Print(" (locked)")
			}
			fmt.Println()
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		switch input := strings.ToLower(strings.TrimSpace(scanner.Text())); input {
		case "real", "ai":
			if err := sess.Record(domain.Choice(input)); err != nil {
				fmt.Printf("cannot answer: %v\n", err)
				continue
			}
			if err := sess.Advance(ctx); err != nil {
				fmt.Printf("cannot continue: %v\n", err)
			}
		case "back":
			sess.Back()
		case "next":
			if err := sess.Advance(ctx); err != nil {
				fmt.Printf("cannot continue: %v\n", err)
			}
		case "quit":
			return nil
		default:
			fmt.Println("commands: real, ai, back, next, quit")
		}
	}

	printResult(sess)
	return nil
}

func printResult(sess *session.Session) {
	accepted, ok := sess.Result().(domain.Accepted)
	if !ok {
		return
	}
	if accepted.AlreadySubmitted {
		fmt.Printf("\nAlready submitted today. Your score: %d/%d\n", accepted.Score, accepted.TotalRounds)
	} else {
		fmt.Printf("\nScore: %d/%d\n", accepted.Score, accepted.TotalRounds)
	}

	board, err := sess.Leaderboard()
	if err != nil {
		fmt.Printf("leaderboard unavailable: %v\n", err)
		return
	}
	if board == nil || len(board.Entries) == 0 {
		return
	}
	fmt.Println("\nToday's leaderboard:")
	for _, entry := range board.Entries {
		fmt.Printf("%3d. %-12s %d\n", entry.Rank, shortUser(entry.User), entry.Score)
	}
}

// shortUser trims opaque tokens down to something readable.
func shortUser(user string) string {
	if len(user) > 8 {
		return user[:8]
	}
	return user
}
