package arena

import "strings"

type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

func ParseMove(s string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMove
	}
	return m, nil
}

func (m Move) Valid() bool {
	return m == Rock || m == Paper || m == Scissors
}

// Beats reports whether m wins against other.
func (m Move) Beats(other Move) bool {
	switch m {
	case Rock:
		return other == Scissors
	case Scissors:
		return other == Paper
	case Paper:
		return other == Rock
	default:
		return false
	}
}

type Slot int

const (
	SlotPlayer1 Slot = 1
	SlotPlayer2 Slot = 2
)

func (s Slot) Other() Slot {
	if s == SlotPlayer1 {
		return SlotPlayer2
	}
	return SlotPlayer1
}

type Outcome string

const (
	OutcomePending Outcome = "waiting"
	OutcomeDraw    Outcome = "draw"
	OutcomePlayer1 Outcome = "player1"
	OutcomePlayer2 Outcome = "player2"
)

// DecideRound resolves one round from the player1 and player2 moves.
func DecideRound(p1, p2 Move) Outcome {
	switch {
	case p1 == p2:
		return OutcomeDraw
	case p1.Beats(p2):
		return OutcomePlayer1
	default:
		return OutcomePlayer2
	}
}

func (o Outcome) Winner() (Slot, bool) {
	switch o {
	case OutcomePlayer1:
		return SlotPlayer1, true
	case OutcomePlayer2:
		return SlotPlayer2, true
	default:
		return 0, false
	}
}
