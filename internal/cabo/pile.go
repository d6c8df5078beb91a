package cabo

import (
	"encoding/json"
	"errors"
	"math/rand"
)

var errEmptyPile = errors.New("pile is empty")

// Pile is a LIFO stack of cards. The last element of Cards is the top.
type Pile struct {
	Cards []Card
}

// MarshalJSON encodes the pile as a bare bottom-to-top card array.
func (p Pile) MarshalJSON() ([]byte, error) {
	if p.Cards == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Cards)
}

func (p *Pile) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.Cards)
}

func (p *Pile) Count() int {
	return len(p.Cards)
}

func (p *Pile) Push(cards ...Card) {
	p.Cards = append(p.Cards, cards...)
}

// Pop removes and returns the top card.
func (p *Pile) Pop() (Card, error) {
	if len(p.Cards) == 0 {
		return Card{}, errEmptyPile
	}
	card := p.Cards[len(p.Cards)-1]
	p.Cards = p.Cards[:len(p.Cards)-1]
	return card, nil
}

// Peek returns the top card without removing it.
func (p *Pile) Peek() (Card, bool) {
	if len(p.Cards) == 0 {
		return Card{}, false
	}
	return p.Cards[len(p.Cards)-1], true
}

// PushBottom slides cards underneath the pile, keeping their relative order.
func (p *Pile) PushBottom(cards ...Card) {
	p.Cards = append(append(make([]Card, 0, len(cards)+len(p.Cards)), cards...), p.Cards...)
}

// TakeAllButTop empties the pile except for its top card and returns what was removed.
func (p *Pile) TakeAllButTop() []Card {
	if len(p.Cards) <= 1 {
		return nil
	}
	rest := p.Cards[:len(p.Cards)-1]
	p.Cards = []Card{p.Cards[len(p.Cards)-1]}
	return rest
}

func (p *Pile) Shuffle(rng *rand.Rand) {
	rng.Shuffle(p.Count(), func(i, j int) {
		p.Cards[i], p.Cards[j] = p.Cards[j], p.Cards[i]
	})
}
