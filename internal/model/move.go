package model

import "strings"

// Move is one of the three playable symbols.
type Move string

const (
	MoveRock     Move = "rock"
	MovePaper    Move = "paper"
	MoveScissors Move = "scissors"
)

// beats is the full dominance relation: key beats value.
// Cyclic and total over the three moves; equal moves are a draw by omission.
var beats = map[Move]Move{
	MoveRock:     MoveScissors,
	MoveScissors: MovePaper,
	MovePaper:    MoveRock,
}

// ParseMove validates a wire value and returns the canonical Move.
func ParseMove(s string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := beats[m]; !ok {
		return "", ErrInvalidMove
	}
	return m, nil
}

// Valid reports whether m is one of the three moves.
func (m Move) Valid() bool {
	_, ok := beats[m]
	return ok
}

// Beats reports whether m defeats other.
func (m Move) Beats(other Move) bool {
	return beats[m] == other
}

// Outcome is a participant's result in a resolved match.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// Score returns the Elo actual score for an outcome.
func (o Outcome) Score() float64 {
	switch o {
	case OutcomeWin:
		return 1
	case OutcomeLose:
		return 0
	default:
		return 0.5
	}
}

// ResolveMoves maps a pair of moves to the pair of outcomes (a's, then b's).
// Anti-symmetric: ResolveMoves(a, b) is always the complement of ResolveMoves(b, a).
func ResolveMoves(a, b Move) (Outcome, Outcome) {
	switch {
	case a == b:
		return OutcomeDraw, OutcomeDraw
	case a.Beats(b):
		return OutcomeWin, OutcomeLose
	default:
		return OutcomeLose, OutcomeWin
	}
}
