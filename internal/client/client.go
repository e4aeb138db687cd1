// Package client implements the HTTP side of the session's
// collaborator interfaces: puzzle source, scorer, and leaderboard
// fetcher, speaking the daily-puzzle API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spotfake-daily/internal/domain"
)

const userHeader = "X-User-Id"

type Client struct {
	base string
	http *http.Client
}

// New builds a client for the given base URL. A nil httpClient gets a
// sane default timeout.
func New(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: httpClient}
}

// PuzzleToday fetches the day's puzzle.
func (c *Client) PuzzleToday(ctx context.Context) (domain.Puzzle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/puzzle/today", nil)
	if err != nil {
		return domain.Puzzle{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("load puzzle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Puzzle{}, domain.ErrPuzzleNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Puzzle{}, fmt.Errorf("load puzzle: %s", serverMessage(resp))
	}
	var puzzle domain.Puzzle
	if err := json.NewDecoder(resp.Body).Decode(&puzzle); err != nil {
		return domain.Puzzle{}, fmt.Errorf("decode puzzle: %w", err)
	}
	return puzzle, nil
}

type attemptRequest struct {
	PuzzleDate string                   `json:"puzzleDate"`
	Answers    map[string]domain.Choice `json:"answers"`
}

type attemptAccepted struct {
	OK               bool       `json:"ok"`
	AlreadySubmitted bool       `json:"alreadySubmitted"`
	PuzzleDate       string     `json:"puzzleDate"`
	Score            int        `json:"score"`
	TotalRounds      int        `json:"totalRounds"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
}

type attemptRejected struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Score posts the completed answer set. Server-side rejections come
// back as a Rejected result; the error return is transport-level only.
func (c *Client) Score(ctx context.Context, userToken, puzzleDate string, answers map[string]domain.Choice) (domain.AttemptResult, error) {
	body, err := json.Marshal(attemptRequest{PuzzleDate: puzzleDate, Answers: answers})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/attempt", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userHeader, userToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit attempt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var rejected attemptRejected
		if err := json.NewDecoder(resp.Body).Decode(&rejected); err != nil || rejected.Error == "" {
			rejected.Error = "server returned " + strconv.Itoa(resp.StatusCode)
		}
		return domain.Rejected{
			Kind:    domain.KindSubmission,
			Message: rejected.Error,
			Details: rejected.Details,
		}, nil
	}

	var accepted attemptAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return nil, fmt.Errorf("decode attempt result: %w", err)
	}
	if !accepted.OK {
		return nil, fmt.Errorf("malformed success response")
	}
	return domain.Accepted{
		AlreadySubmitted: accepted.AlreadySubmitted,
		PuzzleDate:       accepted.PuzzleDate,
		Score:            accepted.Score,
		TotalRounds:      accepted.TotalRounds,
		CreatedAt:        accepted.CreatedAt,
	}, nil
}

// LeaderboardToday fetches the top entries for the day.
func (c *Client) LeaderboardToday(ctx context.Context, limit int) (domain.Leaderboard, error) {
	url := c.base + "/api/leaderboard/today"
	if limit > 0 {
		url += "?limit=" + strconv.Itoa(limit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %s", serverMessage(resp))
	}
	var board domain.Leaderboard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return domain.Leaderboard{}, fmt.Errorf("decode leaderboard: %w", err)
	}
	return board, nil
}

func serverMessage(resp *http.Response) string {
	var body attemptRejected
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return resp.Status
}
