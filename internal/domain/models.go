package domain

import (
	"fmt"
	"sort"
	"time"
)

// Choice is a player's binary verdict on a round's image.
type Choice string

const (
	ChoiceReal Choice = "real"
	ChoiceAI   Choice = "ai"
)

// ParseChoice validates a wire value into a Choice.
func ParseChoice(raw string) (Choice, error) {
	switch Choice(raw) {
	case ChoiceReal, ChoiceAI:
		return Choice(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadChoice, raw)
}

// Round is one image-judgment unit within a daily puzzle.
// Truth marks which verdict is correct; it is stripped before the
// round leaves the server.
type Round struct {
	Index    int    `json:"roundIndex"`
	ImageURL string `json:"imageUrl"`
	Truth    Choice `json:"truth,omitempty"`
}

// Puzzle is the day's fixed, ordered set of rounds. Date is a UTC
// calendar date in "2006-01-02" form.
type Puzzle struct {
	Date   string  `json:"date"`
	Rounds []Round `json:"rounds"`
}

// SortRounds orders rounds by index ascending and reports whether the
// indexes are unique.
func (p *Puzzle) SortRounds() bool {
	sort.Slice(p.Rounds, func(i, j int) bool {
		return p.Rounds[i].Index < p.Rounds[j].Index
	})
	for i := 1; i < len(p.Rounds); i++ {
		if p.Rounds[i].Index == p.Rounds[i-1].Index {
			return false
		}
	}
	return true
}

// Public returns a copy of the puzzle safe to hand to clients, with
// every round's truth removed.
func (p Puzzle) Public() Puzzle {
	rounds := make([]Round, len(p.Rounds))
	for i, r := range p.Rounds {
		r.Truth = ""
		rounds[i] = r
	}
	return Puzzle{Date: p.Date, Rounds: rounds}
}

// Attempt is one scored submission of a complete answer set. The
// server creates at most one per (user, puzzle date).
type Attempt struct {
	UserID      string
	PuzzleDate  string
	Score       int
	TotalRounds int
	Answers     map[int]Choice
	CreatedAt   time.Time
}

// ErrorKind classifies a rejected attempt.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindSubmission ErrorKind = "submission"
	KindTransport  ErrorKind = "transport"
)

// AttemptResult is the outcome of a submission: exactly one of
// Accepted or Rejected. Callers discriminate with a type switch.
type AttemptResult interface {
	attemptResult()
}

// Accepted is the scorer's authoritative result. AlreadySubmitted is
// set when the server recognized a prior attempt for the same
// (user, date) and returned its score unchanged.
type Accepted struct {
	AlreadySubmitted bool
	PuzzleDate       string
	Score            int
	TotalRounds      int
	CreatedAt        *time.Time
}

// Rejected carries the server's or transport layer's reason for
// refusing an attempt.
type Rejected struct {
	Kind    ErrorKind
	Message string
	Details string
}

func (Accepted) attemptResult() {}
func (Rejected) attemptResult() {}

// LeaderboardEntry is one ranked row of a day's scoreboard.
type LeaderboardEntry struct {
	Rank      int       `json:"rank"`
	User      string    `json:"user"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// Leaderboard is a fresh snapshot of the day's top attempts.
type Leaderboard struct {
	PuzzleDate string             `json:"puzzleDate"`
	Entries    []LeaderboardEntry `json:"leaderboard"`
}
