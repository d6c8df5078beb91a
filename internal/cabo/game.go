package cabo

import (
	"math/rand"
	"slices"
	"strings"
	"time"
)

type State string

const (
	StateLobby    State = "lobby"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

const (
	HandSize      = 4
	MinPlayers    = 2
	MaxPlayers    = 8
	MaxNameLength = 20
)

// Player is a seat at the table. Hand is positional; slots never shift.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
	Hand   []Card `json:"hand"`
	Score  int    `json:"score"`
}

// Game is one room's round of Cabo. It is not safe for concurrent use;
// callers serialize access per room.
type Game struct {
	Code            string    `json:"code"`
	Players         []*Player `json:"players"`
	State           State     `json:"state"`
	Deck            Pile      `json:"deck"`
	DiscardPile     Pile      `json:"discardPile"`
	TurnIndex       int       `json:"turnIndex"`
	CurrentPlayerID string    `json:"currentPlayerId"`
	HeldCard        *Card     `json:"heldCard"`
	CaboCallerID    string    `json:"caboCallerId,omitempty"`
	TurnsSinceCabo  int       `json:"turnsSinceCabo"`

	rng *rand.Rand
}

// Option configures a Game at construction.
type Option func(*Game)

// WithRand makes shuffling deterministic, mostly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) {
		g.rng = rng
	}
}

// NewGame returns an empty lobby. Without WithRand it shuffles from the clock.
func NewGame(code string, opts ...Option) *Game {
	g := &Game{
		Code:    code,
		Players: make([]*Player, 0, MaxPlayers),
		State:   StateLobby,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g
}

// NormalizeName trims a display name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// AddPlayer seats a new player at the end of the turn order. The first
// player seated becomes the host.
func (g *Game) AddPlayer(id, name string) (*Player, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if g.State != StateLobby {
		return nil, ErrGameAlreadyStarted
	}
	if len(g.Players) >= MaxPlayers {
		return nil, ErrGameFull
	}
	for _, p := range g.Players {
		if p.Name == name || p.ID == id {
			return nil, ErrNameTaken
		}
	}

	player := &Player{
		ID:     id,
		Name:   name,
		IsHost: len(g.Players) == 0,
		Hand:   make([]Card, 0, HandSize),
	}
	g.Players = append(g.Players, player)
	return player, nil
}

// RemovePlayer takes a player out of the game. The host flag passes to the
// first remaining player. Mid-round, the leaver's cards go back under the deck
// so the card count is preserved.
func (g *Game) RemovePlayer(id string) error {
	idx := g.playerIndex(id)
	if idx == -1 {
		return ErrPlayerNotFound
	}
	leaver := g.Players[idx]
	g.Players = slices.Delete(g.Players, idx, idx+1)

	if leaver.IsHost && len(g.Players) > 0 {
		g.Players[0].IsHost = true
	}

	if g.State != StatePlaying {
		return nil
	}

	g.Deck.PushBottom(leaver.Hand...)
	leaver.Hand = nil

	if idx == g.TurnIndex && g.HeldCard != nil {
		g.DiscardPile.Push(*g.HeldCard)
		g.HeldCard = nil
	}

	if len(g.Players) < MinPlayers {
		g.finish()
		return nil
	}

	if idx < g.TurnIndex {
		g.TurnIndex--
	}
	g.TurnIndex %= len(g.Players)
	g.CurrentPlayerID = g.Players[g.TurnIndex].ID

	if g.CaboCallerID != "" && g.TurnsSinceCabo >= len(g.Players) {
		g.finish()
	}
	return nil
}

// Start shuffles a fresh deck, seeds the discard pile and deals every player a hand.
func (g *Game) Start() error {
	if err := g.Validate(ActionStart, ""); err != nil {
		return err
	}

	g.Deck = *BuildDeck(g.rng)
	g.DiscardPile = Pile{}
	g.HeldCard = nil
	g.CaboCallerID = ""
	g.TurnsSinceCabo = 0

	seed, _ := g.Deck.Pop()
	g.DiscardPile.Push(seed)

	for _, player := range g.Players {
		player.Hand = make([]Card, 0, HandSize)
		player.Score = 0
	}
	for range HandSize {
		for _, player := range g.Players {
			card, _ := g.Deck.Pop()
			player.Hand = append(player.Hand, card)
		}
	}

	g.TurnIndex = 0
	g.CurrentPlayerID = g.Players[0].ID
	g.State = StatePlaying
	return nil
}

/*
 * Acquire
 */

// Draw takes the top of the deck into the player's held card. An empty deck is
// refilled from the discard pile, minus its top card.
func (g *Game) Draw(playerID string) (Card, error) {
	if err := g.Validate(ActionDraw, playerID); err != nil {
		return Card{}, err
	}

	if g.Deck.Count() == 0 {
		g.Deck.Push(g.DiscardPile.TakeAllButTop()...)
		g.Deck.Shuffle(g.rng)
	}

	card, err := g.Deck.Pop()
	if err != nil {
		return Card{}, ErrDeckEmpty
	}
	g.HeldCard = &card
	return card, nil
}

// TakeDiscard takes the top of the discard pile into the player's held card.
func (g *Game) TakeDiscard(playerID string) (Card, error) {
	if err := g.Validate(ActionTakeDiscard, playerID); err != nil {
		return Card{}, err
	}

	card, err := g.DiscardPile.Pop()
	if err != nil {
		return Card{}, ErrDiscardEmpty
	}
	g.HeldCard = &card
	return card, nil
}

/*
 * Resolve
 */

// Replace puts the held card into the given hand slot and discards the card it displaces.
func (g *Game) Replace(playerID string, slot int) (Card, error) {
	if err := g.Validate(ActionReplace, playerID); err != nil {
		return Card{}, err
	}
	if slot < 0 || slot >= HandSize {
		return Card{}, ErrInvalidCardIndex
	}

	player := g.Players[g.TurnIndex]
	displaced := player.Hand[slot]
	player.Hand[slot] = *g.HeldCard
	g.HeldCard = nil
	g.DiscardPile.Push(displaced)

	g.endTurn()
	return displaced, nil
}

// DiscardHeld throws the held card onto the discard pile.
func (g *Game) DiscardHeld(playerID string) (Card, error) {
	if err := g.Validate(ActionDiscardHeld, playerID); err != nil {
		return Card{}, err
	}

	card := *g.HeldCard
	g.HeldCard = nil
	g.DiscardPile.Push(card)

	g.endTurn()
	return card, nil
}

// CallCabo starts the final countdown. Every player, the caller included,
// resolves once more before the round is scored.
func (g *Game) CallCabo(playerID string) error {
	if err := g.Validate(ActionCallCabo, playerID); err != nil {
		return err
	}
	g.CaboCallerID = playerID
	g.TurnsSinceCabo = 0
	return nil
}

/*
 * Powers
 *
 * Peeks and switches are open to any seated player at any time during a round.
 */

func (g *Game) PeekOwn(playerID string, slot int) (Card, error) {
	if err := g.Validate(ActionPeekOwn, playerID); err != nil {
		return Card{}, err
	}
	player, err := g.handFor(playerID, slot)
	if err != nil {
		return Card{}, err
	}
	return player.Hand[slot], nil
}

func (g *Game) PeekOpponent(playerID, opponentID string, slot int) (Card, error) {
	if err := g.Validate(ActionPeekOpponent, playerID); err != nil {
		return Card{}, err
	}
	opponent, err := g.handFor(opponentID, slot)
	if err != nil {
		return Card{}, err
	}
	return opponent.Hand[slot], nil
}

// Switch exchanges one of the player's cards with one of the opponent's.
func (g *Game) Switch(playerID string, playerSlot int, opponentID string, opponentSlot int) error {
	if err := g.Validate(ActionSwitch, playerID); err != nil {
		return err
	}
	player, err := g.handFor(playerID, playerSlot)
	if err != nil {
		return err
	}
	opponent, err := g.handFor(opponentID, opponentSlot)
	if err != nil {
		return err
	}
	player.Hand[playerSlot], opponent.Hand[opponentSlot] = opponent.Hand[opponentSlot], player.Hand[playerSlot]
	return nil
}

// handFor finds a seated player and checks slot against their hand.
func (g *Game) handFor(playerID string, slot int) (*Player, error) {
	player := g.Player(playerID)
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	if slot < 0 || slot >= len(player.Hand) {
		return nil, ErrInvalidCardIndex
	}
	return player, nil
}

/*
 * Turn bookkeeping
 */

func (g *Game) endTurn() {
	if g.CaboCallerID != "" {
		g.TurnsSinceCabo++
		if g.TurnsSinceCabo >= len(g.Players) {
			g.finish()
			return
		}
	}
	g.TurnIndex = (g.TurnIndex + 1) % len(g.Players)
	g.CurrentPlayerID = g.Players[g.TurnIndex].ID
}

func (g *Game) finish() {
	for _, player := range g.Players {
		player.Score = Score(player.Hand)
	}
	g.State = StateFinished
}

/*
 * Lookups
 */

func (g *Game) Player(id string) *Player {
	if idx := g.playerIndex(id); idx != -1 {
		return g.Players[idx]
	}
	return nil
}

func (g *Game) Host() *Player {
	for _, p := range g.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (g *Game) playerIndex(id string) int {
	return slices.IndexFunc(g.Players, func(p *Player) bool {
		return p.ID == id
	})
}

// CardCount totals the cards in the deck, the discard pile, every hand and the held card.
func (g *Game) CardCount() int {
	count := g.Deck.Count() + g.DiscardPile.Count()
	for _, p := range g.Players {
		count += len(p.Hand)
	}
	if g.HeldCard != nil {
		count++
	}
	return count
}

type Result struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// Results lists final scores in seat order. It is empty until the round finishes.
func (g *Game) Results() []Result {
	if g.State != StateFinished {
		return nil
	}
	results := make([]Result, 0, len(g.Players))
	for _, p := range g.Players {
		results = append(results, Result{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	return results
}
