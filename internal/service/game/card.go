package game

import (
	"fmt"

	appErr "rulecard-service/pkg/errors"
)

type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
	NoSuit
)

var suitNames = [...]string{"Hearts", "Diamonds", "Clubs", "Spades", ""}

func (s Suit) String() string {
	if s < Hearts || s > NoSuit {
		return "?"
	}
	return suitNames[s]
}

// Rank values 2..14 match the pip/face order; specials follow Ace.
type Rank int

const (
	Two Rank = iota + 2
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
	Ace
	Joker
	Joker2
	RulesCard
)

func (r Rank) String() string {
	switch {
	case r >= Two && r <= Ten:
		return fmt.Sprintf("%d", int(r))
	case r == Jack:
		return "Jack"
	case r == Queen:
		return "Queen"
	case r == King:
		return "King"
	case r == Ace:
		return "Ace"
	case r == Joker, r == Joker2:
		return "Joker"
	case r == RulesCard:
		return "Rules Card"
	default:
		return "?"
	}
}

const (
	MinJokerValue = 1
	MaxJokerValue = 13
)

// Card is immutable apart from Value, which a joker's owner sets once
// before the card is scored. Value 0 means unassigned.
type Card struct {
	ID    int  `json:"id"`
	Suit  Suit `json:"suit"`
	Rank  Rank `json:"rank"`
	Value int  `json:"value,omitempty"`
}

func (c Card) IsJoker() bool {
	return c.Rank == Joker || c.Rank == Joker2
}

func (c Card) IsRulesCard() bool {
	return c.Rank == RulesCard
}

// WithJokerValue returns a copy of the joker carrying the chosen value.
func (c Card) WithJokerValue(value int) (Card, error) {
	if !c.IsJoker() {
		return c, appErr.ErrNotAJoker
	}
	if c.Value != 0 {
		return c, appErr.ErrJokerValueSet
	}
	if value < MinJokerValue || value > MaxJokerValue {
		return c, appErr.ErrInvalidJokerValue
	}
	c.Value = value
	return c, nil
}

// String renders the display form sent to the agent and the UI,
// e.g. "Queen of Hearts", "7 of Clubs", "Joker", "Rules Card".
func (c Card) String() string {
	if c.Suit == NoSuit {
		if c.IsJoker() && c.Value != 0 {
			return fmt.Sprintf("Joker (%d)", c.Value)
		}
		return c.Rank.String()
	}
	return c.Rank.String() + " of " + c.Suit.String()
}
