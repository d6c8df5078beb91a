package cabo

type Action string

const (
	ActionStart       Action = "start"
	ActionDraw        Action = "draw"
	ActionTakeDiscard Action = "take_discard"
	ActionReplace     Action = "replace"
	ActionDiscardHeld Action = "discard_held"
	ActionCallCabo    Action = "call_cabo"

	ActionPeekOwn      Action = "peek_own"
	ActionPeekOpponent Action = "peek_opponent"
	ActionSwitch       Action = "switch"
)

// Validate reports whether playerID may perform action right now. It only
// reads game state and never mutates it. Powers need a round in progress and
// a seated player but are not tied to the turn.
func (g *Game) Validate(action Action, playerID string) error {
	if action == ActionStart {
		if g.State != StateLobby {
			return ErrGameAlreadyStarted
		}
		if len(g.Players) < MinPlayers {
			return ErrNotEnoughPlayers
		}
		return nil
	}

	if g.State != StatePlaying {
		return ErrGameNotStarted
	}

	switch action {
	case ActionPeekOwn, ActionPeekOpponent, ActionSwitch:
		if g.Player(playerID) == nil {
			return ErrPlayerNotFound
		}
		return nil
	}

	if playerID != g.CurrentPlayerID {
		return ErrNotYourTurn
	}

	switch action {
	case ActionDraw, ActionTakeDiscard:
		if g.HeldCard != nil {
			return ErrAlreadyHeldCard
		}
	case ActionReplace, ActionDiscardHeld:
		if g.HeldCard == nil {
			return ErrNoHeldCard
		}
	case ActionCallCabo:
		if g.CaboCallerID != "" {
			return ErrCaboAlreadyCalled
		}
	}
	return nil
}
