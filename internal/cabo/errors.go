package cabo

import (
	"errors"
	"strings"
)

var (
	ErrGameNotFound       = errors.New("GameNotFound: Game not found")
	ErrGameFull           = errors.New("GameFull: Game is full (8/8 players)")
	ErrNameTaken          = errors.New("NameTaken: That name is already taken in this game")
	ErrInvalidName        = errors.New("InvalidName: Name must be 1-20 characters")
	ErrNotEnoughPlayers   = errors.New("NotEnoughPlayers: At least 2 players are needed to start")
	ErrGameAlreadyStarted = errors.New("GameAlreadyStarted: Game has already started")
	ErrGameNotStarted     = errors.New("GameNotStarted: Game is not in progress")
	ErrNotYourTurn        = errors.New("NotYourTurn: It is not your turn")
	ErrAlreadyHeldCard    = errors.New("AlreadyHeldCard: A drawn card must be resolved first")
	ErrNoHeldCard         = errors.New("NoHeldCard: There is no drawn card to resolve")
	ErrCaboAlreadyCalled  = errors.New("CaboAlreadyCalled: Cabo has already been called")
	ErrInvalidCardIndex   = errors.New("InvalidCardIndex: Card index must be between 0 and 3")
	ErrPlayerNotFound     = errors.New("PlayerNotFound: Player is not in this game")
	ErrDeckEmpty          = errors.New("DeckEmpty: No cards left to draw")
	ErrDiscardEmpty       = errors.New("DiscardEmpty: The discard pile is empty")
)

var kinds = []error{
	ErrGameNotFound, ErrGameFull, ErrNameTaken, ErrInvalidName,
	ErrNotEnoughPlayers, ErrGameAlreadyStarted, ErrGameNotStarted,
	ErrNotYourTurn, ErrAlreadyHeldCard, ErrNoHeldCard, ErrCaboAlreadyCalled,
	ErrInvalidCardIndex, ErrPlayerNotFound, ErrDeckEmpty, ErrDiscardEmpty,
}

// Code returns the kind of a rules error, e.g. "NotYourTurn", or "" for other errors.
func Code(err error) string {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			code, _, _ := strings.Cut(kind.Error(), ":")
			return code
		}
	}
	return ""
}

// Reason returns the human-readable part of a rules error.
func Reason(err error) string {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			_, reason, _ := strings.Cut(kind.Error(), ": ")
			return reason
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
