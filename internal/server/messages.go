package server

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

// Client -> server
const (
	MsgPing             MessageType = "PING"
	MsgCreateGame       MessageType = "CREATE_GAME"
	MsgJoinGame         MessageType = "JOIN_GAME"
	MsgStartGame        MessageType = "START_GAME"
	MsgDrawCard         MessageType = "DRAW_CARD"
	MsgTakeDiscard      MessageType = "TAKE_DISCARD"
	MsgReplaceCard      MessageType = "REPLACE_CARD"
	MsgDiscardDrawn     MessageType = "DISCARD_DRAWN"
	MsgCallCabo         MessageType = "CALL_CABO"
	MsgPeekOwnCard      MessageType = "PEEK_OWN_CARD"
	MsgPeekOpponentCard MessageType = "PEEK_OPPONENT_CARD"
	MsgSwitchCards      MessageType = "SWITCH_CARDS"
	MsgLeaveGame        MessageType = "LEAVE_GAME"
)

// Server -> client
const (
	MsgPong               MessageType = "PONG"
	MsgError              MessageType = "ERROR"
	MsgGameCreated        MessageType = "GAME_CREATED"
	MsgGameJoined         MessageType = "GAME_JOINED"
	MsgGameStarted        MessageType = "GAME_STARTED"
	MsgCardDrawn          MessageType = "CARD_DRAWN"
	MsgCardReplaced       MessageType = "CARD_REPLACED"
	MsgCardDiscarded      MessageType = "CARD_DISCARDED"
	MsgCaboCalled         MessageType = "CABO_CALLED"
	MsgCardPeeked         MessageType = "CARD_PEEKED"
	MsgOpponentCardPeeked MessageType = "OPPONENT_CARD_PEEKED"
	MsgCardsSwitched      MessageType = "CARDS_SWITCHED"
	MsgGameLeft           MessageType = "GAME_LEFT"
	MsgPlayerLeft         MessageType = "PLAYER_LEFT"
	MsgGameFinished       MessageType = "GAME_FINISHED"
	MsgServerShutdown     MessageType = "SERVER_SHUTDOWN"
)

var (
	ErrMalformedMessage   = errors.New("MalformedMessage: Message could not be parsed")
	ErrUnknownMessageType = errors.New("UnknownMessageType: Unknown message type")
)

// Request is one inbound message. The set of implementations is closed.
type Request interface {
	MessageType() MessageType
}

// RoomRequest is implemented by every request that acts on an existing room.
type RoomRequest interface {
	Request
	Target() (gameCode, playerID string)
}

type roomTarget struct {
	GameCode string `json:"gameCode"`
	PlayerID string `json:"playerId"`
}

func (t roomTarget) Target() (string, string) { return t.GameCode, t.PlayerID }

type PingRequest struct{}

type CreateGameRequest struct {
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

type JoinGameRequest struct {
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
	GameCode   string `json:"gameCode"`
}

type StartGameRequest struct {
	roomTarget
}

type DrawCardRequest struct {
	roomTarget
}

type TakeDiscardRequest struct {
	roomTarget
}

type ReplaceCardRequest struct {
	roomTarget
	CardIndex int `json:"cardIndex"`
}

type DiscardDrawnRequest struct {
	roomTarget
}

type CallCaboRequest struct {
	roomTarget
}

type PeekOwnCardRequest struct {
	roomTarget
	CardIndex int `json:"cardIndex"`
}

type PeekOpponentCardRequest struct {
	roomTarget
	OpponentID string `json:"opponentId"`
	CardIndex  int    `json:"cardIndex"`
}

type SwitchCardsRequest struct {
	roomTarget
	OpponentID        string `json:"opponentId"`
	PlayerCardIndex   int    `json:"playerCardIndex"`
	OpponentCardIndex int    `json:"opponentCardIndex"`
}

type LeaveGameRequest struct {
	roomTarget
}

func (PingRequest) MessageType() MessageType             { return MsgPing }
func (CreateGameRequest) MessageType() MessageType       { return MsgCreateGame }
func (JoinGameRequest) MessageType() MessageType         { return MsgJoinGame }
func (StartGameRequest) MessageType() MessageType        { return MsgStartGame }
func (DrawCardRequest) MessageType() MessageType         { return MsgDrawCard }
func (TakeDiscardRequest) MessageType() MessageType      { return MsgTakeDiscard }
func (ReplaceCardRequest) MessageType() MessageType      { return MsgReplaceCard }
func (DiscardDrawnRequest) MessageType() MessageType     { return MsgDiscardDrawn }
func (CallCaboRequest) MessageType() MessageType         { return MsgCallCabo }
func (PeekOwnCardRequest) MessageType() MessageType      { return MsgPeekOwnCard }
func (PeekOpponentCardRequest) MessageType() MessageType { return MsgPeekOpponentCard }
func (SwitchCardsRequest) MessageType() MessageType      { return MsgSwitchCards }
func (LeaveGameRequest) MessageType() MessageType        { return MsgLeaveGame }

// DecodeRequest parses a flat JSON message, using its "type" field to pick the request.
func DecodeRequest(data []byte) (Request, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var req Request
	switch envelope.Type {
	case MsgPing:
		req = &PingRequest{}
	case MsgCreateGame:
		req = &CreateGameRequest{}
	case MsgJoinGame:
		req = &JoinGameRequest{}
	case MsgStartGame:
		req = &StartGameRequest{}
	case MsgDrawCard:
		req = &DrawCardRequest{}
	case MsgTakeDiscard:
		req = &TakeDiscardRequest{}
	case MsgReplaceCard:
		req = &ReplaceCardRequest{}
	case MsgDiscardDrawn:
		req = &DiscardDrawnRequest{}
	case MsgCallCabo:
		req = &CallCaboRequest{}
	case MsgPeekOwnCard:
		req = &PeekOwnCardRequest{}
	case MsgPeekOpponentCard:
		req = &PeekOpponentCardRequest{}
	case MsgSwitchCards:
		req = &SwitchCardsRequest{}
	case MsgLeaveGame:
		req = &LeaveGameRequest{}
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, envelope.Type)
	}

	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return req, nil
}
