package game

import (
	mrand "math/rand"
	"time"
)

// RNG is the randomness source for shuffles and rule activation.
type RNG interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

func NewRNG(seed int64) RNG {
	return mrand.New(mrand.NewSource(seed))
}

func newTimeSeededRNG() RNG {
	return NewRNG(time.Now().UnixNano())
}

// Deck is a draw pile plus a discard pile. The last element of each slice
// is its top.
type Deck struct {
	cards   []Card
	discard []Card
	nextID  int
	pool    int
	rng     RNG
}

// NewDeck returns a full, unshuffled 52-card deck.
func NewDeck(rng RNG) *Deck {
	if rng == nil {
		rng = newTimeSeededRNG()
	}
	d := &Deck{rng: rng}
	d.Reset()
	return d
}

// Reset rebuilds the base 52-card pool, dropping any order, special cards
// and discards.
func (d *Deck) Reset() {
	d.cards = make([]Card, 0, 55)
	d.discard = nil
	d.nextID = 0
	d.pool = 0
	for s := Hearts; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			d.cards = append(d.cards, d.newCard(s, r))
		}
	}
}

func (d *Deck) newCard(s Suit, r Rank) Card {
	d.nextID++
	d.pool++
	return Card{ID: d.nextID, Suit: s, Rank: r}
}

// AddJokers appends both jokers to the draw pile. Callers shuffle afterwards.
func (d *Deck) AddJokers() {
	d.cards = append(d.cards, d.newCard(NoSuit, Joker), d.newCard(NoSuit, Joker2))
}

func (d *Deck) AddRulesCard() {
	d.cards = append(d.cards, d.newCard(NoSuit, RulesCard))
}

// Shuffle permutes the draw pile only.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw pops the top of the draw pile. ok is false when the pile is empty.
func (d *Deck) Draw() (Card, bool) {
	n := len(d.cards)
	if n == 0 {
		return Card{}, false
	}
	c := d.cards[n-1]
	d.cards = d.cards[:n-1]
	return c, true
}

func (d *Deck) AddToDiscard(c Card) {
	d.discard = append(d.discard, c)
}

func (d *Deck) PeekDiscard() (Card, bool) {
	if len(d.discard) == 0 {
		return Card{}, false
	}
	return d.discard[len(d.discard)-1], true
}

// Reshuffle moves the whole discard pile into the draw pile and shuffles.
// It does nothing while the discard pile is empty.
func (d *Deck) Reshuffle() {
	if len(d.discard) == 0 {
		return
	}
	d.cards = append(d.cards, d.discard...)
	d.discard = nil
	d.Shuffle()
}

func (d *Deck) Count() int        { return len(d.cards) }
func (d *Deck) DiscardCount() int { return len(d.discard) }

// PoolSize is the number of cards this deck has created since the last Reset.
func (d *Deck) PoolSize() int { return d.pool }

// DiscardPile returns a copy, bottom first.
func (d *Deck) DiscardPile() []Card {
	return append([]Card(nil), d.discard...)
}
