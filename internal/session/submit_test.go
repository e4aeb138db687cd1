package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spotfake-daily/internal/domain"
	"spotfake-daily/internal/session"
)

func TestFullRunSubmitsOnceAndFetchesLeaderboard(t *testing.T) {
	scorer := &idempotentScorer{score: 2}
	boards := &countingBoards{board: domain.Leaderboard{
		PuzzleDate: "2026-08-31",
		Entries:    []domain.LeaderboardEntry{{Rank: 1, User: "user-1", Score: 2}},
	}}
	s := newTestSession(t, scorer, boards)
	mustLoad(t, s, threeRounds())

	mustRecord(t, s, domain.ChoiceAI)
	mustAdvance(t, s)
	mustRecord(t, s, domain.ChoiceReal)
	mustAdvance(t, s)
	mustRecord(t, s, domain.ChoiceAI)
	// Final advance submits instead of stepping past the end.
	mustAdvance(t, s)

	if scorer.calls != 1 {
		t.Fatalf("expected exactly one submission, got %d", scorer.calls)
	}
	want := map[string]domain.Choice{"1": domain.ChoiceAI, "2": domain.ChoiceReal, "3": domain.ChoiceAI}
	if len(scorer.last) != len(want) {
		t.Fatalf("payload has %d keys, want %d: %v", len(scorer.last), len(want), scorer.last)
	}
	for k, v := range want {
		if scorer.last[k] != v {
			t.Fatalf("payload[%s]=%q, want %q", k, scorer.last[k], v)
		}
	}

	accepted, ok := s.Result().(domain.Accepted)
	if !ok {
		t.Fatalf("expected accepted result, got %#v", s.Result())
	}
	if accepted.Score != 2 || accepted.AlreadySubmitted {
		t.Fatalf("unexpected result %+v", accepted)
	}
	if s.Phase() != session.PhaseFinalized {
		t.Fatalf("expected finalized, got %s", s.Phase())
	}
	if boards.calls != 1 {
		t.Fatalf("expected exactly one leaderboard fetch, got %d", boards.calls)
	}
	board, err := s.Leaderboard()
	if err != nil || board == nil || len(board.Entries) != 1 {
		t.Fatalf("leaderboard snapshot missing: board=%v err=%v", board, err)
	}
}

func TestSubmitRejectedWhileIncomplete(t *testing.T) {
	calls := 0
	s := newTestSession(t, countingScorer{calls: &calls}, &countingBoards{})
	mustLoad(t, s, threeRounds())

	mustRecord(t, s, domain.ChoiceAI)
	mustAdvance(t, s)

	if err := s.Submit(context.Background()); !errors.Is(err, domain.ErrIncomplete) {
		t.Fatalf("expected incomplete, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("incomplete submit must not reach the scorer, %d calls", calls)
	}
	if s.Phase() != session.PhaseReady {
		t.Fatalf("expected ready, got %s", s.Phase())
	}
}

func TestTransportFailureLeavesSessionResubmittable(t *testing.T) {
	scorer := &idempotentScorer{score: 3, failure: errors.New("connection reset")}
	boards := &countingBoards{}
	s := newTestSession(t, scorer, boards)
	mustLoad(t, s, threeRounds())

	answerThree(t, s)
	err := s.Advance(context.Background())
	if err == nil {
		t.Fatalf("expected rejected attempt error")
	}
	rejected, ok := s.Result().(domain.Rejected)
	if !ok || rejected.Kind != domain.KindTransport {
		t.Fatalf("expected transport rejection, got %#v", s.Result())
	}
	if s.Phase() != session.PhaseErrored {
		t.Fatalf("expected errored, got %s", s.Phase())
	}
	if boards.calls != 0 {
		t.Fatalf("rejected attempt must not fetch the leaderboard")
	}

	// Retry re-runs validation and succeeds; the server replays its score.
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	accepted, ok := s.Result().(domain.Accepted)
	if !ok || !accepted.AlreadySubmitted || accepted.Score != 3 {
		t.Fatalf("expected replayed accepted result, got %#v", s.Result())
	}
}

func TestLeaderboardFailureKeepsAcceptedResult(t *testing.T) {
	scorer := &idempotentScorer{score: 1}
	boards := &countingBoards{err: errors.New("boom")}
	s := newTestSession(t, scorer, boards)
	mustLoad(t, s, threeRounds())

	answerThree(t, s)
	if err := s.Advance(context.Background()); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if _, ok := s.Result().(domain.Accepted); !ok {
		t.Fatalf("leaderboard failure downgraded the result: %#v", s.Result())
	}
	if s.Phase() != session.PhaseFinalized {
		t.Fatalf("expected finalized, got %s", s.Phase())
	}
	board, err := s.Leaderboard()
	if board != nil || err == nil {
		t.Fatalf("expected separate leaderboard error, board=%v err=%v", board, err)
	}
}

func TestSecondSubmitRejectedWhileInFlight(t *testing.T) {
	scorer := newGateScorer(domain.Accepted{Score: 1})
	s := newTestSession(t, scorer, &countingBoards{})
	mustLoad(t, s, threeRounds())
	answerThree(t, s)

	done := make(chan error, 1)
	go func() { done <- s.Advance(context.Background()) }()
	<-scorer.entered

	if err := s.Submit(context.Background()); !errors.Is(err, domain.ErrSubmitInFlight) {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}
	if err := s.Record(domain.ChoiceReal); !errors.Is(err, domain.ErrSubmitInFlight) {
		t.Fatalf("ledger must be frozen mid-submit, got %v", err)
	}

	close(scorer.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}

func TestStaleSubmissionDiscardedAfterReload(t *testing.T) {
	scorer := newGateScorer(domain.Accepted{Score: 3})
	s := newTestSession(t, scorer, &countingBoards{})
	mustLoad(t, s, threeRounds())
	answerThree(t, s)

	done := make(chan error, 1)
	go func() { done <- s.Advance(context.Background()) }()
	<-scorer.entered

	// A new day rolls over mid-flight.
	mustLoad(t, s, domain.Puzzle{
		Date:   "2026-09-01",
		Rounds: []domain.Round{{Index: 1}, {Index: 2}},
	})
	close(scorer.release)

	if err := <-done; !errors.Is(err, domain.ErrStaleSession) {
		t.Fatalf("expected stale session, got %v", err)
	}
	if s.Result() != nil {
		t.Fatalf("stale response applied to fresh session: %#v", s.Result())
	}
	if s.Phase() != session.PhaseReady {
		t.Fatalf("expected fresh ready session, got %s", s.Phase())
	}
}

func TestLoadTodayFetchesFromSource(t *testing.T) {
	src := staticSource{puzzle: threeRounds()}
	s := session.New(src, &idempotentScorer{}, &countingBoards{}, staticIdentity("u"))
	if err := s.LoadToday(context.Background()); err != nil {
		t.Fatalf("load today: %v", err)
	}
	if s.UnlockedIndex() != 1 {
		t.Fatalf("expected round 1 unlocked, got %d", s.UnlockedIndex())
	}

	failing := session.New(staticSource{err: errors.New("down")}, &idempotentScorer{}, &countingBoards{}, staticIdentity("u"))
	if err := failing.LoadToday(context.Background()); err == nil {
		t.Fatalf("expected load failure")
	}
	if failing.Phase() != session.PhaseErrored {
		t.Fatalf("expected errored, got %s", failing.Phase())
	}
}

func answerThree(t *testing.T, s *session.Session) {
	t.Helper()
	mustRecord(t, s, domain.ChoiceAI)
	mustAdvance(t, s)
	mustRecord(t, s, domain.ChoiceReal)
	mustAdvance(t, s)
	mustRecord(t, s, domain.ChoiceAI)
}

// gateScorer blocks inside Score until released, exposing the
// in-flight window to tests.
type gateScorer struct {
	entered chan struct{}
	release chan struct{}
	result  domain.AttemptResult
}

func newGateScorer(result domain.AttemptResult) *gateScorer {
	return &gateScorer{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  result,
	}
}

func (g *gateScorer) Score(ctx context.Context, _, _ string, _ map[string]domain.Choice) (domain.AttemptResult, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
	}
	return g.result, nil
}
