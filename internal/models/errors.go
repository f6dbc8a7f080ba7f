package models

import "errors"

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInvalidStakeTier  = errors.New("invalid entry fee: must be one of 5, 10, 20, 50")
	ErrInvalidDifficulty = errors.New("invalid difficulty: must be easy, medium or hard")
	ErrTicketNotFound    = errors.New("battle ticket not found")
	ErrAlreadyTerminal   = errors.New("battle ticket already in a terminal state")
	ErrPairingConflict   = errors.New("ticket was matched by another player")
	ErrNotParticipant    = errors.New("user is not a participant of this battle")
	ErrCancelDenied      = errors.New("only a waiting battle can be cancelled by its creator")
)
