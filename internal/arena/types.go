package arena

import "time"

const DefaultRating = 1000

type TxKind string

const (
	TxStake      TxKind = "stake"
	TxWin        TxKind = "win"
	TxCommission TxKind = "commission"
	TxPurchase   TxKind = "purchase"
	TxWithdrawal TxKind = "withdrawal"
)

func (k TxKind) Valid() bool {
	switch k {
	case TxStake, TxWin, TxCommission, TxPurchase, TxWithdrawal:
		return true
	default:
		return false
	}
}

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchActive   MatchStatus = "active"
	MatchFinished MatchStatus = "finished"
)

// CanTransition reports whether a match may move from s to next.
// Status only ever moves forward.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	switch s {
	case MatchPending:
		return next == MatchActive || next == MatchFinished
	case MatchActive:
		return next == MatchFinished
	default:
		return false
	}
}

type Player struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Balance       int64     `json:"balance"`
	LockedBalance int64     `json:"locked_balance"`
	Flagged       bool      `json:"flagged"`
	Rating        int       `json:"rating"`
	CreatedAt     time.Time `json:"created_at"`
}

type Balance struct {
	PlayerID string `json:"player_id"`
	Balance  int64  `json:"balance"`
	Locked   int64  `json:"locked_balance"`
}

type Transaction struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"player_id"`
	Amount    int64     `json:"amount"`
	Kind      TxKind    `json:"kind"`
	MatchID   string    `json:"match_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Match struct {
	ID           string      `json:"id"`
	Player1ID    string      `json:"player1_id"`
	Player2ID    string      `json:"player2_id"`
	Stake        int64       `json:"stake"`
	Player1Score int         `json:"player1_score"`
	Player2Score int         `json:"player2_score"`
	Status       MatchStatus `json:"status"`
	WinnerID     string      `json:"winner_id,omitempty"`
	Player1IP    string      `json:"player1_ip,omitempty"`
	Player2IP    string      `json:"player2_ip,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
}

// Slot returns the seat of playerID in the match.
func (m *Match) Slot(playerID string) (Slot, bool) {
	switch playerID {
	case m.Player1ID:
		return SlotPlayer1, true
	case m.Player2ID:
		return SlotPlayer2, true
	default:
		return 0, false
	}
}

func (m *Match) PlayerAt(s Slot) string {
	if s == SlotPlayer2 {
		return m.Player2ID
	}
	return m.Player1ID
}

func (m *Match) Score(s Slot) int {
	if s == SlotPlayer2 {
		return m.Player2Score
	}
	return m.Player1Score
}

// Opponent returns the other participant, or "" for a non-participant.
func (m *Match) Opponent(playerID string) string {
	switch playerID {
	case m.Player1ID:
		return m.Player2ID
	case m.Player2ID:
		return m.Player1ID
	default:
		return ""
	}
}

// NewMatch is what the queue hands to the store once two entries pair up.
type NewMatch struct {
	Player1ID string
	Player2ID string
	Stake     int64
	Player1IP string
	Player2IP string
	CreatedAt time.Time
}

type PlatformRevenue struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	MatchID   string    `json:"match_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

type Withdrawal struct {
	ID          string           `json:"id"`
	PlayerID    string           `json:"player_id"`
	Amount      int64            `json:"amount"`
	Status      WithdrawalStatus `json:"status"`
	RequestedAt time.Time        `json:"requested_at"`
	ProcessedAt *time.Time       `json:"processed_at,omitempty"`
}

// DailyCap bounds the non-rejected withdrawal total a player may request
// since Since. A zero Limit disables the check.
type DailyCap struct {
	Since time.Time
	Limit int64
}

// RateFunc maps (winner, loser) ratings to their new values.
type RateFunc func(winner, loser int) (int, int)

// Settlement is the single atomic unit that closes a match.
type Settlement struct {
	MatchID  string
	WinnerID string
	LoserID  string
	Reward   int64
	Rake     int64
	// Rate is nil when the rating change is suppressed.
	Rate RateFunc
	At   time.Time
}

type SettlementResult struct {
	Match          Match `json:"match"`
	Reward         int64 `json:"reward"`
	Rake           int64 `json:"rake"`
	RatingApplied  bool  `json:"rating_applied"`
	WinnerRating   int   `json:"winner_rating"`
	LoserRating    int   `json:"loser_rating"`
	WinnerBalance  int64 `json:"winner_balance"`
	AlreadySettled bool  `json:"already_settled"`
	// SuppressionReason is set by the caller when the farming guard blocked
	// the rating change. Stores leave it empty.
	SuppressionReason string `json:"suppression_reason,omitempty"`
}

type PlatformStats struct {
	TotalRake       int64 `json:"total_rake"`
	TodayRake       int64 `json:"today_rake"`
	TotalPlayers    int64 `json:"total_players"`
	NewPlayersToday int64 `json:"new_players_today"`
	TotalMatches    int64 `json:"total_matches"`
	MatchesToday    int64 `json:"matches_today"`
}
