package server

import (
	"time"

	"cabo-server/internal/cabo"
)

// ============================================================================
// ERRORS
// ============================================================================

type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
}

// ============================================================================
// ROOM SNAPSHOTS
// ============================================================================

// GameMessage carries the full room snapshot. Used for GAME_JOINED,
// GAME_STARTED, CARD_REPLACED, CARD_DISCARDED, CARDS_SWITCHED and PLAYER_LEFT.
type GameMessage struct {
	Type MessageType `json:"type"`
	Game *cabo.Game  `json:"game"`
}

type GameCreatedMessage struct {
	Type     MessageType `json:"type"`
	GameCode string      `json:"gameCode"`
	PlayerID string      `json:"playerId"`
	Game     *cabo.Game  `json:"game"`
}

// CardDrawnMessage goes to the whole room. Only the drawing player's client
// should reveal DrawnCard.
type CardDrawnMessage struct {
	Type      MessageType `json:"type"`
	Game      *cabo.Game  `json:"game"`
	DrawnCard cabo.Card   `json:"drawnCard"`
	PlayerID  string      `json:"playerId"`
}

type CaboCalledMessage struct {
	Type       MessageType `json:"type"`
	Game       *cabo.Game  `json:"game"`
	CallerName string      `json:"callerName"`
}

type GameFinishedMessage struct {
	Type    MessageType   `json:"type"`
	Game    *cabo.Game    `json:"game"`
	Results []cabo.Result `json:"results"`
}

// ============================================================================
// PRIVATE REPLIES
// ============================================================================

type CardPeekedMessage struct {
	Type       MessageType `json:"type"`
	Card       cabo.Card   `json:"card"`
	CardIndex  int         `json:"cardIndex"`
	OpponentID string      `json:"opponentId,omitempty"`
}

type NoticeMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message,omitempty"`
}

// ============================================================================
// HTTP
// ============================================================================

type RoomSummary struct {
	GameCode    string     `json:"gameCode"`
	State       cabo.State `json:"state"`
	PlayerCount int        `json:"playerCount"`
	Host        string     `json:"host,omitempty"`
}

type HealthResponse struct {
	Status      string            `json:"status"`
	Rooms       int               `json:"rooms"`
	Connections int               `json:"connections"`
	Uptime      string            `json:"uptime"`
	Archive     map[string]string `json:"archive"`
}

// FinishedRound is the archived outcome of one round.
type FinishedRound struct {
	GameCode       string        `json:"gameCode"`
	CaboCallerID   string        `json:"caboCallerId,omitempty"`
	CaboCallerName string        `json:"caboCallerName,omitempty"`
	FinishedAt     time.Time     `json:"finishedAt"`
	Results        []cabo.Result `json:"results"`
}
