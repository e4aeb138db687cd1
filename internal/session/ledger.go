package session

import (
	"strconv"

	"spotfake-daily/internal/domain"
)

// ledger accumulates one choice per round index. It never holds a key
// for a round outside the current puzzle; Session resets it on every
// load and gates writes through the editability predicate.
type ledger struct {
	answers map[int]domain.Choice
}

func newLedger() *ledger {
	return &ledger{answers: make(map[int]domain.Choice)}
}

func (l *ledger) reset() {
	l.answers = make(map[int]domain.Choice)
}

func (l *ledger) put(index int, choice domain.Choice) {
	l.answers[index] = choice
}

func (l *ledger) get(index int) (domain.Choice, bool) {
	choice, ok := l.answers[index]
	return choice, ok
}

func (l *ledger) size() int {
	return len(l.answers)
}

// complete reports whether every round of the puzzle has an entry.
func (l *ledger) complete(p domain.Puzzle) bool {
	for _, r := range p.Rounds {
		if _, ok := l.answers[r.Index]; !ok {
			return false
		}
	}
	return true
}

// payload renders the ledger as the wire answer map, keyed by the
// canonical decimal form of each round index.
func (l *ledger) payload() map[string]domain.Choice {
	out := make(map[string]domain.Choice, len(l.answers))
	for index, choice := range l.answers {
		out[strconv.Itoa(index)] = choice
	}
	return out
}
