package cabo

import (
	"fmt"
	"math/rand"
)

// Suit encodes on the wire as its symbol ("♥", "♦", "♣", "♠").
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suitString = map[Suit]string{
	Hearts:   "Hearts",
	Diamonds: "Diamonds",
	Clubs:    "Clubs",
	Spades:   "Spades",
}

var suitSymbol = map[Suit]string{
	Hearts:   "♥",
	Diamonds: "♦",
	Clubs:    "♣",
	Spades:   "♠",
}

func (s Suit) String() string {
	return suitString[s]
}

func (s Suit) Symbol() string {
	return suitSymbol[s]
}

func (s Suit) MarshalText() ([]byte, error) {
	symbol, ok := suitSymbol[s]
	if !ok {
		return nil, fmt.Errorf("invalid suit %d", int(s))
	}
	return []byte(symbol), nil
}

func (s *Suit) UnmarshalText(text []byte) error {
	for suit, symbol := range suitSymbol {
		if symbol == string(text) {
			*s = suit
			return nil
		}
	}
	return fmt.Errorf("invalid suit %q", text)
}

func (s Suit) isRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank runs from Ace (1) to King (13) and encodes as its short name.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

var rankString = map[Rank]string{
	Ace:   "A",
	Two:   "2",
	Three: "3",
	Four:  "4",
	Five:  "5",
	Six:   "6",
	Seven: "7",
	Eight: "8",
	Nine:  "9",
	Ten:   "10",
	Jack:  "J",
	Queen: "Q",
	King:  "K",
}

var suits = []Suit{Hearts, Diamonds, Clubs, Spades}
var ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

func (r Rank) String() string {
	return rankString[r]
}

func (r Rank) MarshalText() ([]byte, error) {
	name, ok := rankString[r]
	if !ok {
		return nil, fmt.Errorf("invalid rank %d", int(r))
	}
	return []byte(name), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	for rank, name := range rankString {
		if name == string(text) {
			*r = rank
			return nil
		}
	}
	return fmt.Errorf("invalid rank %q", text)
}

// HasPower reports whether discarding this rank conventionally grants a peek or switch.
func (r Rank) HasPower() bool {
	return r >= Six
}

// Card is a plain value; two cards are equal when suit and rank match.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Value is the card's point value. Ranks count at face value (J=11, Q=12, K=13)
// except a red King, which is worth -1.
func (card Card) Value() int {
	if card.Rank == King && card.Suit.isRed() {
		return -1
	}
	return int(card.Rank)
}

func (card Card) String() string {
	return fmt.Sprintf("%s%s", card.Rank.String(), card.Suit.Symbol())
}

// Score sums the value of every card in a hand.
func Score(hand []Card) (total int) {
	for _, card := range hand {
		total += card.Value()
	}
	return
}

// NewDeck returns all 52 suit/rank pairs in a fixed order. The last card is the top.
func NewDeck() *Pile {
	cards := make([]Card, 0, len(suits)*len(ranks))
	for _, suit := range suits {
		for _, rank := range ranks {
			cards = append(cards, Card{suit, rank})
		}
	}
	return &Pile{Cards: cards}
}

// BuildDeck returns a freshly shuffled 52-card deck.
func BuildDeck(rng *rand.Rand) *Pile {
	deck := NewDeck()
	deck.Shuffle(rng)
	return deck
}
