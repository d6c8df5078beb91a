package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"cabo-server/internal/cabo"
)

// FinishFunc is called once per room when its round reaches Finished.
// It runs with the room locked and must not block.
type FinishFunc func(round FinishedRound)

// Room pairs a game with the connections seated in it. Every mutation and the
// enqueueing of its broadcast happen under mu, so rounds on one room never
// interleave and every member sees snapshots in mutation order.
type Room struct {
	code string

	mu       sync.Mutex
	game     *cabo.Game
	members  map[string]*Client // playerID → client
	closed   bool
	onFinish FinishFunc
}

func (r *Room) Code() string {
	return r.code
}

// Update runs fn against the game and broadcasts the message it returns to
// every member. Nothing is sent when fn fails.
func (r *Room) Update(fn func(g *cabo.Game) (any, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.apply(func() (any, error) {
		return fn(r.game)
	})
}

// View runs fn against the game without broadcasting.
func (r *Room) View(fn func(g *cabo.Game) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return cabo.ErrGameNotFound
	}
	return fn(r.game)
}

// Summary describes the room without revealing any cards.
func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := RoomSummary{
		GameCode:    r.code,
		State:       r.game.State,
		PlayerCount: len(r.game.Players),
	}
	if host := r.game.Host(); host != nil {
		summary.Host = host.Name
	}
	return summary
}

// apply must be called with mu held.
func (r *Room) apply(fn func() (any, error)) error {
	if r.closed {
		return cabo.ErrGameNotFound
	}

	wasFinished := r.game.State == cabo.StateFinished
	msg, err := fn()
	if err != nil {
		return err
	}
	if msg != nil {
		r.broadcast(msg)
	}

	if !wasFinished && r.game.State == cabo.StateFinished {
		r.broadcast(GameFinishedMessage{
			Type:    MsgGameFinished,
			Game:    r.game,
			Results: r.game.Results(),
		})
		log.Info().Str("room", r.code).Msg("Round finished")
		if r.onFinish != nil {
			r.onFinish(r.finishedRound())
		}
	}
	return nil
}

// broadcast must be called with mu held. The snapshot is marshaled once.
func (r *Room) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("room", r.code).Msg("Failed to marshal broadcast")
		return
	}
	for _, c := range r.members {
		c.Enqueue(data)
	}
}

func (r *Room) finishedRound() FinishedRound {
	round := FinishedRound{
		GameCode:     r.code,
		CaboCallerID: r.game.CaboCallerID,
		FinishedAt:   time.Now().UTC(),
		Results:      r.game.Results(),
	}
	if caller := r.game.Player(r.game.CaboCallerID); caller != nil {
		round.CaboCallerName = caller.Name
	}
	return round
}

// join seats a player and broadcasts GAME_JOINED to the whole room, the
// joiner included.
func (r *Room) join(playerID, name string, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.apply(func() (any, error) {
		if _, err := r.game.AddPlayer(playerID, name); err != nil {
			return nil, err
		}
		r.members[playerID] = c
		c.Bind(r.code, playerID)
		return GameMessage{Type: MsgGameJoined, Game: r.game}, nil
	})
}

// leave removes a player and tells the rest of the room. It reports whether
// the room is now empty; an empty room is closed and must be removed from the
// registry.
func (r *Room) leave(playerID string) (empty bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.apply(func() (any, error) {
		if err := r.game.RemovePlayer(playerID); err != nil {
			return nil, err
		}
		if member := r.members[playerID]; member != nil {
			member.UnbindFrom(r.code, playerID)
			delete(r.members, playerID)
		}
		if len(r.game.Players) == 0 {
			return nil, nil
		}
		return GameMessage{Type: MsgPlayerLeft, Game: r.game}, nil
	})
	if err != nil {
		return false, err
	}

	if len(r.game.Players) == 0 {
		r.closed = true
		return true, nil
	}
	return false, nil
}

// Registry owns every active room, keyed by code. Its lock only guards the
// map; game state is guarded by each room's own lock.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	options  []cabo.Option
	onFinish FinishFunc
}

type RegistryOption func(*Registry)

// WithGameOptions is applied to every game the registry creates.
func WithGameOptions(opts ...cabo.Option) RegistryOption {
	return func(reg *Registry) {
		reg.options = append(reg.options, opts...)
	}
}

func WithFinishFunc(fn FinishFunc) RegistryOption {
	return func(reg *Registry) {
		reg.onFinish = fn
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	reg := &Registry{
		rooms: make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(reg)
	}
	return reg
}

// Create opens a room with the creator seated as host. GAME_CREATED is queued
// to the creator before the room becomes visible to joiners.
func (reg *Registry) Create(playerID, name string, c *Client) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := GenerateRoomCode(func(code string) bool {
		_, taken := reg.rooms[code]
		return taken
	})

	room := &Room{
		code:     code,
		game:     cabo.NewGame(code, reg.options...),
		members:  make(map[string]*Client),
		onFinish: reg.onFinish,
	}
	if _, err := room.game.AddPlayer(playerID, name); err != nil {
		return nil, err
	}
	room.members[playerID] = c
	c.Bind(code, playerID)
	c.Send(GameCreatedMessage{
		Type:     MsgGameCreated,
		GameCode: code,
		PlayerID: playerID,
		Game:     room.game,
	})

	reg.rooms[code] = room
	log.Info().Str("room", code).Str("player", playerID).Msg("Room created")
	return room, nil
}

// Join seats a player in an existing room.
func (reg *Registry) Join(code, playerID, name string, c *Client) (*Room, error) {
	room := reg.Get(code)
	if room == nil {
		return nil, cabo.ErrGameNotFound
	}
	if err := room.join(playerID, name, c); err != nil {
		return nil, err
	}
	log.Info().Str("room", room.code).Str("player", playerID).Msg("Player joined")
	return room, nil
}

// Leave takes a player out of a room, destroying the room once it is empty.
func (reg *Registry) Leave(code, playerID string) error {
	room := reg.Get(code)
	if room == nil {
		return cabo.ErrGameNotFound
	}
	empty, err := room.leave(playerID)
	if err != nil {
		return err
	}
	log.Info().Str("room", room.code).Str("player", playerID).Msg("Player left")
	if empty {
		reg.Remove(room)
	}
	return nil
}

// Get looks a room up by code, accepting lower-case input.
func (reg *Registry) Get(code string) *Room {
	code, err := ParseRoomCode(code)
	if err != nil {
		return nil
	}

	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[code]
}

// Remove deletes room from the map if it is still the room registered under its code.
func (reg *Registry) Remove(room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.rooms[room.code] == room {
		delete(reg.rooms, room.code)
		log.Info().Str("room", room.code).Msg("Room destroyed")
	}
}

func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
