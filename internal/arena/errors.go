package arena

import "errors"

var (
	ErrInvalidAmount             = errors.New("invalid_amount")
	ErrInsufficientBalance       = errors.New("insufficient_balance")
	ErrInsufficientLockedBalance = errors.New("insufficient_locked_balance")
	ErrEscrowFailed              = errors.New("escrow_failed")
	ErrInvalidMove               = errors.New("invalid_move")
	ErrRoundTimeout              = errors.New("round_timeout")
	ErrRateLimited               = errors.New("rate_limited")
	ErrMatchNotFound             = errors.New("match_not_found")

	ErrPlayerNotFound       = errors.New("player_not_found")
	ErrNotParticipant       = errors.New("not_participant")
	ErrMatchNotActive       = errors.New("match_not_active")
	ErrAlreadyQueued        = errors.New("already_queued")
	ErrInvalidTransition    = errors.New("invalid_status_transition")
	ErrPlayerFlagged        = errors.New("player_flagged")
	ErrBelowMinimum         = errors.New("below_minimum")
	ErrDailyCapExceeded     = errors.New("daily_cap_exceeded")
	ErrWithdrawalNotFound   = errors.New("withdrawal_not_found")
	ErrWithdrawalNotPending = errors.New("withdrawal_not_pending")
)

// EscrowError reports which player's stake could not be debited while
// pairing. It unwraps to both ErrEscrowFailed and the ledger cause.
type EscrowError struct {
	PlayerID string
	Cause    error
}

func (e *EscrowError) Error() string {
	return ErrEscrowFailed.Error() + ": " + e.PlayerID + ": " + e.Cause.Error()
}

func (e *EscrowError) Unwrap() []error {
	return []error{ErrEscrowFailed, e.Cause}
}
