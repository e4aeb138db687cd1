package session

import (
	"context"
	"fmt"
	"sync"

	"spotfake-daily/internal/domain"
)

// Phase is the session's position in its lifecycle.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseSubmitting
	PhaseFinalized
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseSubmitting:
		return "submitting"
	case PhaseFinalized:
		return "finalized"
	case PhaseErrored:
		return "errored"
	}
	return "unknown"
}

// PuzzleSource supplies today's puzzle.
type PuzzleSource interface {
	PuzzleToday(ctx context.Context) (domain.Puzzle, error)
}

// Scorer submits a completed answer set for scoring. A non-success
// server response surfaces as a Rejected result with a nil error; the
// error return is reserved for transport and parse failures.
type Scorer interface {
	Score(ctx context.Context, userToken, puzzleDate string, answers map[string]domain.Choice) (domain.AttemptResult, error)
}

// LeaderboardFetcher returns a fresh ranked snapshot for today.
type LeaderboardFetcher interface {
	LeaderboardToday(ctx context.Context, limit int) (domain.Leaderboard, error)
}

// IdentityProvider yields the stable opaque token identifying this player.
type IdentityProvider interface {
	Token() (string, error)
}

const defaultLeaderboardLimit = 10

// Session drives one day's puzzle from load through submission. Rounds
// are answered strictly forward: only the unlocked round accepts a
// choice, though earlier rounds stay browsable read-only. All state
// transitions happen under one mutex; network calls run with the mutex
// released and are tagged with the session generation so a reload
// discards their late results.
type Session struct {
	source   PuzzleSource
	scorer   Scorer
	boards   LeaderboardFetcher
	identity IdentityProvider
	limit    int

	mu         sync.Mutex
	generation uint64
	phase      Phase
	puzzle     domain.Puzzle
	current    int // view cursor, position in Rounds
	unlocked   int // Round.Index currently writable
	answers    *ledger
	result     domain.AttemptResult
	board      *domain.Leaderboard
	boardErr   error
	lastErr    error
}

func New(source PuzzleSource, scorer Scorer, boards LeaderboardFetcher, identity IdentityProvider) *Session {
	return &Session{
		source:   source,
		scorer:   scorer,
		boards:   boards,
		identity: identity,
		limit:    defaultLeaderboardLimit,
		phase:    PhaseLoading,
		unlocked: -1,
		answers:  newLedger(),
	}
}

// SetLeaderboardLimit caps the post-submission leaderboard fetch.
// Call before LoadToday.
func (s *Session) SetLeaderboardLimit(n int) {
	if n > 0 {
		s.limit = n
	}
}

// LoadToday fetches the day's puzzle and resets the session around it.
// Any submission or leaderboard fetch still outstanding from a prior
// load is invalidated before the fetch begins.
func (s *Session) LoadToday(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.phase = PhaseLoading
	s.mu.Unlock()

	puzzle, err := s.source.PuzzleToday(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return domain.ErrStaleSession
	}
	if err != nil {
		s.clearLocked()
		s.phase = PhaseErrored
		s.lastErr = err
		return err
	}
	return s.installLocked(puzzle)
}

// Load installs an already-fetched puzzle, for callers that obtain one
// out of band.
func (s *Session) Load(puzzle domain.Puzzle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.installLocked(puzzle)
}

func (s *Session) installLocked(p domain.Puzzle) error {
	if len(p.Rounds) == 0 {
		s.clearLocked()
		s.phase = PhaseErrored
		s.lastErr = domain.ErrEmptyPuzzle
		return domain.ErrEmptyPuzzle
	}
	if !p.SortRounds() {
		s.clearLocked()
		s.phase = PhaseErrored
		s.lastErr = domain.ErrDuplicateRound
		return domain.ErrDuplicateRound
	}
	s.puzzle = p
	s.answers.reset()
	s.current = 0
	s.unlocked = p.Rounds[0].Index
	s.result = nil
	s.board = nil
	s.boardErr = nil
	s.lastErr = nil
	s.phase = PhaseReady
	return nil
}

func (s *Session) clearLocked() {
	s.puzzle = domain.Puzzle{}
	s.answers.reset()
	s.current = 0
	s.unlocked = -1
	s.result = nil
	s.board = nil
	s.boardErr = nil
}

// Record writes the player's choice for the round under the view
// cursor. It is rejected whenever that round is not the unlocked one,
// regardless of what any UI layer allowed.
func (s *Session) Record(choice domain.Choice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.answers.put(s.puzzle.Rounds[s.current].Index, choice)
	return nil
}

// editableLocked is the one editability predicate. Every write path
// goes through it; there is no second copy to drift.
func (s *Session) editableLocked() error {
	if len(s.puzzle.Rounds) == 0 {
		return domain.ErrNotLoaded
	}
	switch s.phase {
	case PhaseLoading:
		return domain.ErrNotLoaded
	case PhaseSubmitting:
		return domain.ErrSubmitInFlight
	case PhaseFinalized:
		return domain.ErrFinalized
	}
	if s.puzzle.Rounds[s.current].Index != s.unlocked {
		return domain.ErrRoundLocked
	}
	return nil
}

// Editable reports whether the viewed round currently accepts a choice.
func (s *Session) Editable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editableLocked() == nil
}

// Back moves the view cursor one round earlier, floored at the first
// round. Browsing never changes which round is unlocked and stays
// available after finalization.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
}

// Advance moves forward past an answered round. On the last round it
// submits the full ledger instead; there is no cursor position past
// the end.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	cur := s.puzzle.Rounds[s.current]
	if _, ok := s.answers.get(cur.Index); !ok {
		s.mu.Unlock()
		return domain.ErrUnanswered
	}
	if s.current < len(s.puzzle.Rounds)-1 {
		if cur.Index == s.unlocked {
			s.unlocked = s.puzzle.Rounds[s.current+1].Index
		}
		s.current++
		s.mu.Unlock()
		return nil
	}
	return s.submitLocked(ctx)
}

// Submit validates and performs the one scoring call. Safe to call
// again after a rejected or failed attempt; the server is idempotent
// per (user, date).
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if err := s.mutableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	return s.submitLocked(ctx)
}

func (s *Session) mutableLocked() error {
	if len(s.puzzle.Rounds) == 0 {
		return domain.ErrNotLoaded
	}
	switch s.phase {
	case PhaseLoading:
		return domain.ErrNotLoaded
	case PhaseSubmitting:
		return domain.ErrSubmitInFlight
	case PhaseFinalized:
		return domain.ErrFinalized
	}
	return nil
}

// submitLocked enters with s.mu held and returns with it released. No
// request leaves this method unless the ledger covers every round.
func (s *Session) submitLocked(ctx context.Context) error {
	if !s.answers.complete(s.puzzle) {
		s.mu.Unlock()
		return domain.ErrIncomplete
	}
	token, err := s.identity.Token()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("identity: %w", err)
	}
	payload := s.answers.payload()
	date := s.puzzle.Date
	s.phase = PhaseSubmitting
	gen := s.generation
	s.mu.Unlock()

	result, err := s.scorer.Score(ctx, token, date, payload)
	if err != nil {
		result = domain.Rejected{Kind: domain.KindTransport, Message: err.Error()}
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return domain.ErrStaleSession
	}
	s.result = result
	rejected, isRejected := result.(domain.Rejected)
	if isRejected {
		s.phase = PhaseErrored
		s.lastErr = fmt.Errorf("attempt rejected (%s): %s", rejected.Kind, rejected.Message)
		err := s.lastErr
		s.mu.Unlock()
		return err
	}
	s.phase = PhaseFinalized
	s.lastErr = nil
	s.mu.Unlock()

	// Exactly one leaderboard fetch per accepted attempt. Its failure
	// never touches the recorded result.
	board, boardErr := s.boards.LeaderboardToday(ctx, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	if boardErr != nil {
		s.boardErr = fmt.Errorf("leaderboard: %w", boardErr)
		return nil
	}
	s.board = &board
	return nil
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Err reports the reason for the current Errored phase, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) Puzzle() domain.Puzzle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puzzle
}

// Position is the 0-based view cursor into the round sequence.
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// UnlockedIndex is the Round.Index that may currently be answered, or
// -1 before a puzzle is loaded.
func (s *Session) UnlockedIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked
}

// CurrentRound returns the round under the view cursor.
func (s *Session) CurrentRound() (domain.Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.puzzle.Rounds) == 0 {
		return domain.Round{}, false
	}
	return s.puzzle.Rounds[s.current], true
}

// Answer returns the recorded choice for a round index.
func (s *Session) Answer(index int) (domain.Choice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.get(index)
}

// Answered counts rounds with a recorded choice.
func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.size()
}

// Result is the attempt outcome, nil until a submission resolves.
func (s *Session) Result() domain.AttemptResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Leaderboard returns the post-submission snapshot, or the fetch error
// if that independent call failed.
func (s *Session) Leaderboard() (*domain.Leaderboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board, s.boardErr
}
