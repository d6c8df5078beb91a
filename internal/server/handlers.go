package server

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cabo-server/internal/cabo"
)

// handleRequest routes one decoded message. Every Request implementation has a case.
func (s *Server) handleRequest(c *Client, req Request) {
	switch req := req.(type) {
	case *PingRequest:
		c.Send(NoticeMessage{Type: MsgPong})
	case *CreateGameRequest:
		s.handleCreateGame(c, req)
	case *JoinGameRequest:
		s.handleJoinGame(c, req)
	case *StartGameRequest:
		s.handleStartGame(c, req)
	case *DrawCardRequest:
		s.handleDrawCard(c, req)
	case *TakeDiscardRequest:
		s.handleTakeDiscard(c, req)
	case *ReplaceCardRequest:
		s.handleReplaceCard(c, req)
	case *DiscardDrawnRequest:
		s.handleDiscardDrawn(c, req)
	case *CallCaboRequest:
		s.handleCallCabo(c, req)
	case *PeekOwnCardRequest:
		s.handlePeekOwnCard(c, req)
	case *PeekOpponentCardRequest:
		s.handlePeekOpponentCard(c, req)
	case *SwitchCardsRequest:
		s.handleSwitchCards(c, req)
	case *LeaveGameRequest:
		s.handleLeaveGame(c, req)
	default:
		s.sendError(c, ErrUnknownMessageType)
	}
}

// sendError replies to the requester only. Rules errors keep their kind as the code.
func (s *Server) sendError(c *Client, err error) {
	msg := ErrorMessage{Type: MsgError}

	switch {
	case cabo.Code(err) != "":
		msg.Code = cabo.Code(err)
		msg.Message = cabo.Reason(err)
	case errors.Is(err, ErrUnknownMessageType), errors.Is(err, ErrRateLimited), errors.Is(err, ErrMalformedMessage):
		msg.Code, msg.Message, _ = strings.Cut(err.Error(), ": ")
	default:
		log.Error().Err(err).Str("conn", c.ID()).Msg("Unexpected handler error")
		msg.Code = "InternalError"
		msg.Message = "Something went wrong"
	}

	c.Send(msg)
}

// resolve finds the room and acting player for a request. A bound connection
// always acts as the player it is bound to.
func (s *Server) resolve(c *Client, req RoomRequest) (*Room, string, error) {
	code, playerID := c.Binding()
	if code == "" {
		code, playerID = req.Target()
	}

	room := s.registry.Get(code)
	if room == nil {
		return nil, "", cabo.ErrGameNotFound
	}
	return room, playerID, nil
}

// update resolves the room and applies fn, replying with an error on failure.
func (s *Server) update(c *Client, req RoomRequest, fn func(g *cabo.Game, playerID string) (any, error)) {
	room, playerID, err := s.resolve(c, req)
	if err != nil {
		s.sendError(c, err)
		return
	}

	err = room.Update(func(g *cabo.Game) (any, error) {
		return fn(g, playerID)
	})
	if err != nil {
		log.Debug().Err(err).Str("room", room.Code()).Str("player", playerID).Str("type", string(req.MessageType())).Msg("Request rejected")
		s.sendError(c, err)
	}
}

// leaveCurrentRoom takes a bound connection out of its room.
func (s *Server) leaveCurrentRoom(c *Client) {
	code, playerID := c.Binding()
	s.leaveRoom(c, code, playerID)
}

// leaveRoom gives up a seat c held. Create and join call it only once the new
// seat is taken, so a rejected request leaves the old room untouched.
func (s *Server) leaveRoom(c *Client, code, playerID string) {
	if code == "" {
		return
	}
	if err := s.registry.Leave(code, playerID); err != nil {
		log.Debug().Err(err).Str("room", code).Str("player", playerID).Msg("Leave failed")
	}
	c.UnbindFrom(code, playerID)
}

// ============================================================================
// LOBBY
// ============================================================================

func (s *Server) handleCreateGame(c *Client, req *CreateGameRequest) {
	if _, err := cabo.NormalizeName(req.PlayerName); err != nil {
		s.sendError(c, err)
		return
	}

	playerID := req.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	oldCode, oldPlayerID := c.Binding()
	if _, err := s.registry.Create(playerID, req.PlayerName, c); err != nil {
		s.sendError(c, err)
		return
	}
	s.leaveRoom(c, oldCode, oldPlayerID)
}

func (s *Server) handleJoinGame(c *Client, req *JoinGameRequest) {
	if _, err := cabo.NormalizeName(req.PlayerName); err != nil {
		s.sendError(c, err)
		return
	}

	playerID := req.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	oldCode, oldPlayerID := c.Binding()
	if _, err := s.registry.Join(req.GameCode, playerID, req.PlayerName, c); err != nil {
		s.sendError(c, err)
		return
	}
	s.leaveRoom(c, oldCode, oldPlayerID)
}

func (s *Server) handleStartGame(c *Client, req *StartGameRequest) {
	s.update(c, req, func(g *cabo.Game, _ string) (any, error) {
		if err := g.Start(); err != nil {
			return nil, err
		}
		log.Info().Str("room", g.Code).Int("players", len(g.Players)).Msg("Round started")
		return GameMessage{Type: MsgGameStarted, Game: g}, nil
	})
}

func (s *Server) handleLeaveGame(c *Client, req *LeaveGameRequest) {
	room, playerID, err := s.resolve(c, req)
	if err != nil {
		s.sendError(c, err)
		return
	}

	if err := s.registry.Leave(room.Code(), playerID); err != nil {
		s.sendError(c, err)
		return
	}
	c.Send(NoticeMessage{Type: MsgGameLeft})
}

// ============================================================================
// TURNS
// ============================================================================

func (s *Server) handleDrawCard(c *Client, req *DrawCardRequest) {
	s.update(c, req, func(g *cabo.Game, playerID string) (any, error) {
		card, err := g.Draw(playerID)
		if err != nil {
			return nil, err
		}
		return CardDrawnMessage{Type: MsgCardDrawn, Game: g, DrawnCard: card, PlayerID: playerID}, nil
	})
}

func (s *Server) handleTakeDiscard(c *Client, req *TakeDiscardRequest) {
	s.update(c, req, func(g *cabo.Game, playerID string) (any, error) {
		card, err := g.TakeDiscard(playerID)
		if err != nil {
			return nil, err
		}
		return CardDrawnMessage{Type: MsgCardDrawn, Game: g, DrawnCard: card, PlayerID: playerID}, nil
	})
}

func (s *Server) handleReplaceCard(c *Client, req *ReplaceCardRequest) {
	s.update(c, req, func(g *cabo.Game, playerID string) (any, error) {
		if _, err := g.Replace(playerID, req.CardIndex); err != nil {
			return nil, err
		}
		return GameMessage{Type: MsgCardReplaced, Game: g}, nil
	})
}

func (s *Server) handleDiscardDrawn(c *Client, req *DiscardDrawnRequest) {
	s.update(c, req, func(g *cabo.Game, playerID string) (any, error) {
		if _, err := g.DiscardHeld(playerID); err != nil {
			return nil, err
		}
		return GameMessage{Type: MsgCardDiscarded, Game: g}, nil
	})
}

func (s *Server) handleCallCabo(c *Client, req *CallCaboRequest) {
	s.update(c, req, func(g *cabo.Game, playerID string) (any, error) {
		if err := g.CallCabo(playerID); err != nil {
			return nil, err
		}
		caller := g.Player(playerID)
		log.Info().Str("room", g.Code).Str("player", playerID).Msg("Cabo called")
		return CaboCalledMessage{Type: MsgCaboCalled, Game: g, CallerName: caller.Name}, nil
	})
}

// ============================================================================
// POWERS
// ============================================================================

func (s *Server) handlePeekOwnCard(c *Client, req *PeekOwnCardRequest) {
	room, playerID, err := s.resolve(c, req)
	if err != nil {
		s.sendError(c, err)
		return
	}

	err = room.View(func(g *cabo.Game) error {
		card, err := g.PeekOwn(playerID, req.CardIndex)
		if err != nil {
			return err
		}
		c.Send(CardPeekedMessage{Type: MsgCardPeeked, Card: card, CardIndex: req.CardIndex})
		return nil
	})
	if err != nil {
		s.sendError(c, err)
	}
}

func (s *Server) handlePeekOpponentCard(c *Client, req *PeekOpponentCardRequest) {
	room, playerID, err := s.resolve(c, req)
	if err != nil {
		s.sendError(c, err)
		return
	}

	err = room.View(func(g *cabo.Game) error {
		card, err := g.PeekOpponent(playerID, req.OpponentID, req.CardIndex)
		if err != nil {
			return err
		}
		c.Send(CardPeekedMessage{
			Type:       MsgOpponentCardPeeked,
			Card:       card,
			CardIndex:  req.CardIndex,
			OpponentID: req.OpponentID,
		})
		return nil
	})
	if err != nil {
		s.sendError(c, err)
	}
}

func (s *Server) handleSwitchCards(c *Client, req *SwitchCardsRequest) {
	s.update(c, req, func(g *cabo.Game, playerID string) (any, error) {
		if err := g.Switch(playerID, req.PlayerCardIndex, req.OpponentID, req.OpponentCardIndex); err != nil {
			return nil, err
		}
		return GameMessage{Type: MsgCardsSwitched, Game: g}, nil
	})
}
