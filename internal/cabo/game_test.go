package cabo_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"cabo-server/internal/cabo"
)

func newLobby(t *testing.T, players int, seed int64) *cabo.Game {
	t.Helper()
	g := cabo.NewGame("TEST", cabo.WithRand(rand.New(rand.NewSource(seed))))
	for i := range players {
		if _, err := g.AddPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i)); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}
	return g
}

func newStartedGame(t *testing.T, players int, seed int64) *cabo.Game {
	t.Helper()
	g := newLobby(t, players, seed)
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g
}

// playTurn draws and discards for whoever holds the turn.
func playTurn(t *testing.T, g *cabo.Game) {
	t.Helper()
	current := g.CurrentPlayerID
	if _, err := g.Draw(current); err != nil {
		t.Fatalf("Draw for %s: %v", current, err)
	}
	if _, err := g.DiscardHeld(current); err != nil {
		t.Fatalf("DiscardHeld for %s: %v", current, err)
	}
}

func TestStartDeals(t *testing.T) {
	for players := cabo.MinPlayers; players <= cabo.MaxPlayers; players++ {
		t.Run(fmt.Sprintf("%d players", players), func(t *testing.T) {
			g := newStartedGame(t, players, 1)

			if g.State != cabo.StatePlaying {
				t.Errorf("Expected playing, got %s", g.State)
			}
			for _, p := range g.Players {
				if len(p.Hand) != cabo.HandSize {
					t.Errorf("Player %s has %d cards, %d expected", p.Name, len(p.Hand), cabo.HandSize)
				}
				if p.Score != 0 {
					t.Errorf("Player %s starts with score %d", p.Name, p.Score)
				}
			}
			if g.DiscardPile.Count() != 1 {
				t.Errorf("Only one card should be discarded. %d given.", g.DiscardPile.Count())
			}
			if want := 52 - 1 - players*cabo.HandSize; g.Deck.Count() != want {
				t.Errorf("Have %d in deck, %d expected.", g.Deck.Count(), want)
			}
			if g.CurrentPlayerID != g.Players[0].ID || g.TurnIndex != 0 {
				t.Errorf("First player should start, got %s at %d", g.CurrentPlayerID, g.TurnIndex)
			}
			if g.CardCount() != 52 {
				t.Errorf("Card count %d after deal", g.CardCount())
			}
		})
	}
}

func TestStartDealsRoundRobin(t *testing.T) {
	g := newLobby(t, 2, 3)
	deck := cabo.BuildDeck(rand.New(rand.NewSource(3))).Cards
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}

	top := len(deck) - 1
	if seed, _ := g.DiscardPile.Peek(); seed != deck[top] {
		t.Errorf("Discard should be seeded with the top card %s, got %s", deck[top], seed)
	}
	for round := range cabo.HandSize {
		for i, p := range g.Players {
			want := deck[top-1-round*len(g.Players)-i]
			if p.Hand[round] != want {
				t.Errorf("%s slot %d: got %s, want %s", p.Name, round, p.Hand[round], want)
			}
		}
	}
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	g := newLobby(t, 1, 1)

	if err := g.Start(); !errors.Is(err, cabo.ErrNotEnoughPlayers) {
		t.Errorf("Expected NotEnoughPlayers, got %v", err)
	}
	if g.State != cabo.StateLobby {
		t.Errorf("Game should still be in the lobby, got %s", g.State)
	}
}

func TestAddPlayer(t *testing.T) {
	g := newLobby(t, cabo.MaxPlayers, 1)

	if !g.Players[0].IsHost {
		t.Error("First player should be host")
	}
	for _, p := range g.Players[1:] {
		if p.IsHost {
			t.Errorf("%s should not be host", p.Name)
		}
	}

	if _, err := g.AddPlayer("late", "Latecomer"); !errors.Is(err, cabo.ErrGameFull) {
		t.Errorf("Expected GameFull, got %v", err)
	}
	if len(g.Players) != cabo.MaxPlayers {
		t.Errorf("Full room changed size to %d", len(g.Players))
	}

	g = newLobby(t, 2, 1)
	if _, err := g.AddPlayer("dupe", "Player 1"); !errors.Is(err, cabo.ErrNameTaken) {
		t.Errorf("Expected NameTaken, got %v", err)
	}
	if _, err := g.AddPlayer("case", "player 1"); err != nil {
		t.Errorf("Names are case-sensitive, got %v", err)
	}
	if _, err := g.AddPlayer("blank", "   "); !errors.Is(err, cabo.ErrInvalidName) {
		t.Errorf("Expected InvalidName, got %v", err)
	}
	if len(g.Players) != 3 {
		t.Errorf("Expected 3 players, got %d", len(g.Players))
	}

	g = newStartedGame(t, 2, 1)
	if _, err := g.AddPlayer("late", "Latecomer"); !errors.Is(err, cabo.ErrGameAlreadyStarted) {
		t.Errorf("Expected GameAlreadyStarted, got %v", err)
	}
}

func TestTurnRotation(t *testing.T) {
	for players := cabo.MinPlayers; players <= cabo.MaxPlayers; players++ {
		g := newStartedGame(t, players, int64(players))
		start := g.CurrentPlayerID

		for turn := range players {
			if turn > 0 && g.CurrentPlayerID == start {
				t.Fatalf("%d players: back to the first player after %d turns", players, turn)
			}
			playTurn(t, g)
		}

		if g.CurrentPlayerID != start {
			t.Errorf("%d players: expected %s to be up again, got %s", players, start, g.CurrentPlayerID)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(g *cabo.Game)
		action cabo.Action
		player string
		want   error
	}{
		{name: "draw on turn", action: cabo.ActionDraw, player: "p0"},
		{name: "draw off turn", action: cabo.ActionDraw, player: "p1", want: cabo.ErrNotYourTurn},
		{
			name:   "draw twice",
			setup:  func(g *cabo.Game) { g.Draw("p0") },
			action: cabo.ActionTakeDiscard, player: "p0", want: cabo.ErrAlreadyHeldCard,
		},
		{name: "replace without card", action: cabo.ActionReplace, player: "p0", want: cabo.ErrNoHeldCard},
		{name: "discard without card", action: cabo.ActionDiscardHeld, player: "p0", want: cabo.ErrNoHeldCard},
		{
			name:   "discard off turn",
			setup:  func(g *cabo.Game) { g.Draw("p0") },
			action: cabo.ActionDiscardHeld, player: "p1", want: cabo.ErrNotYourTurn,
		},
		{name: "cabo off turn", action: cabo.ActionCallCabo, player: "p2", want: cabo.ErrNotYourTurn},
		{
			name:   "cabo twice",
			setup:  func(g *cabo.Game) { g.CallCabo("p0") },
			action: cabo.ActionCallCabo, player: "p0", want: cabo.ErrCaboAlreadyCalled,
		},
		{name: "start twice", action: cabo.ActionStart, want: cabo.ErrGameAlreadyStarted},
		{name: "peek off turn", action: cabo.ActionPeekOwn, player: "p2"},
		{name: "peek opponent off turn", action: cabo.ActionPeekOpponent, player: "p1"},
		{
			name:   "switch while another player holds",
			setup:  func(g *cabo.Game) { g.Draw("p0") },
			action: cabo.ActionSwitch, player: "p1",
		},
		{name: "switch by stranger", action: cabo.ActionSwitch, player: "nobody", want: cabo.ErrPlayerNotFound},
		{
			name:   "switch after finish",
			setup:  func(g *cabo.Game) { g.State = cabo.StateFinished },
			action: cabo.ActionSwitch, player: "p0", want: cabo.ErrGameNotStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newStartedGame(t, 3, 1)
			if tt.setup != nil {
				tt.setup(g)
			}
			before := g.CardCount()
			held := g.HeldCard

			err := g.Validate(tt.action, tt.player)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if g.CardCount() != before || g.HeldCard != held {
				t.Error("Validate mutated the game")
			}
		})
	}
}

func TestActionsOutsideRound(t *testing.T) {
	g := newLobby(t, 2, 1)

	if _, err := g.Draw("p0"); !errors.Is(err, cabo.ErrGameNotStarted) {
		t.Errorf("Expected GameNotStarted in lobby, got %v", err)
	}
	if _, err := g.PeekOwn("p0", 0); !errors.Is(err, cabo.ErrGameNotStarted) {
		t.Errorf("Expected GameNotStarted peeking in lobby, got %v", err)
	}
}

func TestReplace(t *testing.T) {
	g := newStartedGame(t, 2, 5)
	p0 := g.Player("p0")
	old := p0.Hand[2]

	drawn, err := g.Draw("p0")
	if err != nil {
		t.Fatal(err)
	}
	if g.HeldCard == nil || *g.HeldCard != drawn {
		t.Fatal("Drawn card should be held")
	}

	if _, err := g.Replace("p0", 4); !errors.Is(err, cabo.ErrInvalidCardIndex) {
		t.Errorf("Expected InvalidCardIndex, got %v", err)
	}

	displaced, err := g.Replace("p0", 2)
	if err != nil {
		t.Fatal(err)
	}
	if displaced != old || p0.Hand[2] != drawn {
		t.Errorf("Replace swapped the wrong cards")
	}
	if top, _ := g.DiscardPile.Peek(); top != old {
		t.Errorf("Displaced card should top the discard pile, got %s", top)
	}
	if g.HeldCard != nil {
		t.Error("Held card should be cleared")
	}
	if g.CurrentPlayerID != "p1" {
		t.Errorf("Turn should pass to p1, got %s", g.CurrentPlayerID)
	}
}

func TestTakeDiscard(t *testing.T) {
	g := newStartedGame(t, 2, 5)
	top, _ := g.DiscardPile.Peek()

	card, err := g.TakeDiscard("p0")
	if err != nil {
		t.Fatal(err)
	}
	if card != top || g.DiscardPile.Count() != 0 {
		t.Errorf("Expected to take %s and empty the pile", top)
	}

	if _, err := g.DiscardHeld("p0"); err != nil {
		t.Fatal(err)
	}
	if g.DiscardPile.Count() != 1 {
		t.Errorf("Discard pile should have the card back, has %d", g.DiscardPile.Count())
	}
}

func TestCaboEndsRound(t *testing.T) {
	for players := cabo.MinPlayers; players <= cabo.MaxPlayers; players++ {
		t.Run(fmt.Sprintf("%d players", players), func(t *testing.T) {
			g := newStartedGame(t, players, 11)
			playTurn(t, g)

			caller := g.CurrentPlayerID
			if err := g.CallCabo(caller); err != nil {
				t.Fatal(err)
			}
			if g.CaboCallerID != caller || g.TurnsSinceCabo != 0 {
				t.Fatalf("Cabo not recorded: %q %d", g.CaboCallerID, g.TurnsSinceCabo)
			}
			if g.CurrentPlayerID != caller {
				t.Fatal("Calling Cabo should not pass the turn")
			}

			for i := range players {
				if g.State != cabo.StatePlaying {
					t.Fatalf("Round ended after %d resolves", i)
				}
				playTurn(t, g)
			}

			if g.State != cabo.StateFinished {
				t.Fatalf("Expected finished after %d resolves, got %s", players, g.State)
			}
			if g.CaboCallerID != caller {
				t.Error("Cabo caller changed")
			}
			for _, p := range g.Players {
				if p.Score != cabo.Score(p.Hand) {
					t.Errorf("%s scored %d, hand is worth %d", p.Name, p.Score, cabo.Score(p.Hand))
				}
			}
			if len(g.Results()) != players {
				t.Errorf("Expected %d results", players)
			}

			if _, err := g.Draw(g.CurrentPlayerID); !errors.Is(err, cabo.ErrGameNotStarted) {
				t.Errorf("Finished game accepted a draw: %v", err)
			}
			if err := g.Start(); !errors.Is(err, cabo.ErrGameAlreadyStarted) {
				t.Errorf("Finished game restarted: %v", err)
			}
		})
	}
}

func TestCardCountInvariant(t *testing.T) {
	for seed := range int64(10) {
		rng := rand.New(rand.NewSource(seed))
		players := cabo.MinPlayers + rng.Intn(cabo.MaxPlayers-cabo.MinPlayers+1)
		g := newStartedGame(t, players, seed)
		callAt := 5 + rng.Intn(40)

		for step := 0; g.State == cabo.StatePlaying; step++ {
			if step > 2000 {
				t.Fatalf("Seed %d: round never finished", seed)
			}
			current := g.CurrentPlayerID

			if step == callAt {
				if err := g.CallCabo(current); err != nil {
					t.Fatalf("Seed %d: CallCabo: %v", seed, err)
				}
			}

			var err error
			if rng.Intn(3) == 0 && g.DiscardPile.Count() > 0 {
				_, err = g.TakeDiscard(current)
			} else {
				_, err = g.Draw(current)
			}
			if err != nil {
				t.Fatalf("Seed %d step %d: acquire: %v", seed, step, err)
			}
			if g.CardCount() != 52 {
				t.Fatalf("Seed %d step %d: %d cards after acquire", seed, step, g.CardCount())
			}

			other := g.Players[rng.Intn(len(g.Players))].ID
			if err := g.Switch(current, rng.Intn(4), other, rng.Intn(4)); err != nil {
				t.Fatalf("Seed %d step %d: switch: %v", seed, step, err)
			}

			if rng.Intn(2) == 0 {
				_, err = g.Replace(current, rng.Intn(cabo.HandSize))
			} else {
				_, err = g.DiscardHeld(current)
			}
			if err != nil {
				t.Fatalf("Seed %d step %d: resolve: %v", seed, step, err)
			}
			if g.CardCount() != 52 {
				t.Fatalf("Seed %d step %d: %d cards after resolve", seed, step, g.CardCount())
			}
			for _, p := range g.Players {
				if len(p.Hand) != cabo.HandSize {
					t.Fatalf("Seed %d: %s has %d cards", seed, p.Name, len(p.Hand))
				}
			}
		}
	}
}

func TestDrawReshufflesDiscard(t *testing.T) {
	g := newStartedGame(t, 2, 9)

	// Move the whole deck onto the discard pile.
	for g.Deck.Count() > 0 {
		card, _ := g.Deck.Pop()
		g.DiscardPile.Push(card)
	}
	top, _ := g.DiscardPile.Peek()
	discarded := g.DiscardPile.Count()

	if _, err := g.Draw("p0"); err != nil {
		t.Fatalf("Draw after exhaustion: %v", err)
	}
	if g.DiscardPile.Count() != 1 {
		t.Errorf("Discard pile should keep only its top card, has %d", g.DiscardPile.Count())
	}
	if kept, _ := g.DiscardPile.Peek(); kept != top {
		t.Errorf("Top discard changed from %s to %s", top, kept)
	}
	if g.Deck.Count() != discarded-2 {
		t.Errorf("Deck should hold %d cards, has %d", discarded-2, g.Deck.Count())
	}
	if g.CardCount() != 52 {
		t.Errorf("Card count %d after reshuffle", g.CardCount())
	}
}

func TestDrawWithNothingToReshuffle(t *testing.T) {
	g := newStartedGame(t, 2, 9)
	g.Deck = cabo.Pile{}

	if _, err := g.Draw("p0"); !errors.Is(err, cabo.ErrDeckEmpty) {
		t.Errorf("Expected DeckEmpty, got %v", err)
	}
	if g.HeldCard != nil {
		t.Error("Failed draw should not hold a card")
	}
}

func TestPowers(t *testing.T) {
	g := newStartedGame(t, 3, 2)
	p0, p2 := g.Player("p0"), g.Player("p2")

	card, err := g.PeekOwn("p1", 3)
	if err != nil || card != g.Player("p1").Hand[3] {
		t.Errorf("PeekOwn returned %s, %v", card, err)
	}

	card, err = g.PeekOpponent("p1", "p2", 0)
	if err != nil || card != p2.Hand[0] {
		t.Errorf("PeekOpponent returned %s, %v", card, err)
	}
	if _, err := g.PeekOpponent("p1", "nobody", 0); !errors.Is(err, cabo.ErrPlayerNotFound) {
		t.Errorf("Expected PlayerNotFound, got %v", err)
	}
	if _, err := g.PeekOwn("p1", -1); !errors.Is(err, cabo.ErrInvalidCardIndex) {
		t.Errorf("Expected InvalidCardIndex, got %v", err)
	}

	mine, theirs := p0.Hand[1], p2.Hand[3]
	turn, held, count := g.CurrentPlayerID, g.HeldCard, g.TurnsSinceCabo
	if err := g.Switch("p0", 1, "p2", 3); err != nil {
		t.Fatal(err)
	}
	if p0.Hand[1] != theirs || p2.Hand[3] != mine {
		t.Error("Switch did not exchange the cards")
	}
	if g.CurrentPlayerID != turn || g.HeldCard != held || g.TurnsSinceCabo != count {
		t.Error("Switch touched turn state")
	}
}

func TestRemovePlayerInLobby(t *testing.T) {
	g := newLobby(t, 3, 1)

	if err := g.RemovePlayer("p0"); err != nil {
		t.Fatal(err)
	}
	if !g.Players[0].IsHost || g.Players[0].ID != "p1" {
		t.Error("First remaining player should be promoted to host")
	}
	if g.Players[1].IsHost {
		t.Error("Only one host allowed")
	}

	if err := g.RemovePlayer("p0"); !errors.Is(err, cabo.ErrPlayerNotFound) {
		t.Errorf("Expected PlayerNotFound, got %v", err)
	}
}

func TestRemovePlayerMidRound(t *testing.T) {
	t.Run("current player holding a card", func(t *testing.T) {
		g := newStartedGame(t, 3, 4)
		playTurn(t, g) // p1 is up
		if _, err := g.Draw("p1"); err != nil {
			t.Fatal(err)
		}

		if err := g.RemovePlayer("p1"); err != nil {
			t.Fatal(err)
		}
		if g.HeldCard != nil {
			t.Error("Held card should be discarded")
		}
		if g.CurrentPlayerID != "p2" {
			t.Errorf("p2 should be up, got %s", g.CurrentPlayerID)
		}
		if g.CardCount() != 52 {
			t.Errorf("Card count %d after leave", g.CardCount())
		}
	})

	t.Run("earlier seat", func(t *testing.T) {
		g := newStartedGame(t, 3, 4)
		playTurn(t, g)
		playTurn(t, g) // p2 is up

		if err := g.RemovePlayer("p0"); err != nil {
			t.Fatal(err)
		}
		if g.CurrentPlayerID != "p2" || g.TurnIndex != 1 {
			t.Errorf("p2 should keep the turn at index 1, got %s at %d", g.CurrentPlayerID, g.TurnIndex)
		}
		if !g.Player("p1").IsHost {
			t.Error("p1 should be host")
		}
	})

	t.Run("last seat while up", func(t *testing.T) {
		g := newStartedGame(t, 3, 4)
		playTurn(t, g)
		playTurn(t, g) // p2 is up

		if err := g.RemovePlayer("p2"); err != nil {
			t.Fatal(err)
		}
		if g.CurrentPlayerID != "p0" || g.TurnIndex != 0 {
			t.Errorf("Turn should wrap to p0, got %s at %d", g.CurrentPlayerID, g.TurnIndex)
		}
	})

	t.Run("down to one player", func(t *testing.T) {
		g := newStartedGame(t, 2, 4)

		if err := g.RemovePlayer("p1"); err != nil {
			t.Fatal(err)
		}
		if g.State != cabo.StateFinished {
			t.Errorf("Round should finish, got %s", g.State)
		}
		if g.Players[0].Score != cabo.Score(g.Players[0].Hand) {
			t.Error("Remaining player should be scored")
		}
	})
}
