package game_test

import (
	"testing"

	"rulecard-service/internal/service/game"
	appErr "rulecard-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHasBasePool(t *testing.T) {
	deck := game.NewDeck(game.NewRNG(1))

	assert.Equal(t, 52, deck.Count())
	assert.Equal(t, 52, deck.PoolSize())
	assert.Equal(t, 0, deck.DiscardCount())

	seen := make(map[int]bool)
	for {
		c, ok := deck.Draw()
		if !ok {
			break
		}
		require.False(t, seen[c.ID], "duplicate card id %d", c.ID)
		seen[c.ID] = true
		assert.NotEqual(t, game.NoSuit, c.Suit)
	}
	assert.Len(t, seen, 52)
}

func TestDrawFromEmptyDeckSignalsEmpty(t *testing.T) {
	deck := game.NewDeck(game.NewRNG(2))
	for deck.Count() > 0 {
		deck.Draw()
	}

	c, ok := deck.Draw()
	assert.False(t, ok)
	assert.Equal(t, game.Card{}, c)
}

func TestDrawFewerThanRequestedWithoutReshuffle(t *testing.T) {
	for _, tc := range []struct{ remaining, want int }{{0, 3}, {2, 3}, {5, 5}} {
		deck := game.NewDeck(game.NewRNG(3))
		for deck.Count() > tc.remaining {
			c, _ := deck.Draw()
			deck.AddToDiscard(c)
		}

		drawn := 0
		for i := 0; i < tc.want; i++ {
			if _, ok := deck.Draw(); !ok {
				break
			}
			drawn++
		}
		assert.Equal(t, min(tc.remaining, tc.want), drawn)
	}
}

func TestReshuffleIsNoOpWhenDiscardEmpty(t *testing.T) {
	deck := game.NewDeck(game.NewRNG(4))
	deck.Draw()
	before := deck.Count()

	deck.Reshuffle()

	assert.Equal(t, before, deck.Count())
	assert.Equal(t, 0, deck.DiscardCount())
}

func TestReshuffleMovesWholeDiscardPile(t *testing.T) {
	deck := game.NewDeck(game.NewRNG(5))
	for i := 0; i < 10; i++ {
		c, ok := deck.Draw()
		require.True(t, ok)
		deck.AddToDiscard(c)
	}
	require.Equal(t, 42, deck.Count())

	deck.Reshuffle()

	assert.Equal(t, 52, deck.Count())
	assert.Equal(t, 0, deck.DiscardCount())
	_, ok := deck.PeekDiscard()
	assert.False(t, ok)
}

func TestPeekDiscardReturnsNewest(t *testing.T) {
	deck := game.NewDeck(game.NewRNG(6))
	first, _ := deck.Draw()
	second, _ := deck.Draw()
	deck.AddToDiscard(first)
	deck.AddToDiscard(second)

	top, ok := deck.PeekDiscard()
	require.True(t, ok)
	assert.Equal(t, second, top)
	assert.Equal(t, 2, deck.DiscardCount())
}

func TestSpecialCardsGrowPool(t *testing.T) {
	deck := game.NewDeck(game.NewRNG(7))
	deck.AddJokers()
	deck.AddRulesCard()
	deck.Shuffle()

	assert.Equal(t, 55, deck.PoolSize())
	assert.Equal(t, 55, deck.Count())

	jokers, rules := 0, 0
	for {
		c, ok := deck.Draw()
		if !ok {
			break
		}
		if c.IsJoker() {
			jokers++
			assert.Equal(t, game.NoSuit, c.Suit)
		}
		if c.IsRulesCard() {
			rules++
		}
	}
	assert.Equal(t, 2, jokers)
	assert.Equal(t, 1, rules)
}

func TestResetDropsSpecialsAndDiscards(t *testing.T) {
	deck := game.NewDeck(game.NewRNG(8))
	deck.AddJokers()
	c, _ := deck.Draw()
	deck.AddToDiscard(c)

	deck.Reset()

	assert.Equal(t, 52, deck.Count())
	assert.Equal(t, 52, deck.PoolSize())
	assert.Equal(t, 0, deck.DiscardCount())
}

func TestCardLabels(t *testing.T) {
	cases := []struct {
		card game.Card
		want string
	}{
		{game.Card{Suit: game.Hearts, Rank: game.Queen}, "Queen of Hearts"},
		{game.Card{Suit: game.Clubs, Rank: game.Seven}, "7 of Clubs"},
		{game.Card{Suit: game.Spades, Rank: game.Ten}, "10 of Spades"},
		{game.Card{Suit: game.NoSuit, Rank: game.Joker}, "Joker"},
		{game.Card{Suit: game.NoSuit, Rank: game.Joker2, Value: 7}, "Joker (7)"},
		{game.Card{Suit: game.NoSuit, Rank: game.RulesCard}, "Rules Card"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.card.String())
	}
}

func TestJokerValueAssignedOnce(t *testing.T) {
	joker := game.Card{ID: 53, Suit: game.NoSuit, Rank: game.Joker}

	_, err := joker.WithJokerValue(0)
	assert.ErrorIs(t, err, appErr.ErrInvalidJokerValue)
	_, err = joker.WithJokerValue(14)
	assert.ErrorIs(t, err, appErr.ErrInvalidJokerValue)

	set, err := joker.WithJokerValue(13)
	require.NoError(t, err)
	assert.Equal(t, 13, set.Value)

	_, err = set.WithJokerValue(5)
	assert.ErrorIs(t, err, appErr.ErrJokerValueSet)

	_, err = game.Card{Suit: game.Hearts, Rank: game.Two}.WithJokerValue(5)
	assert.ErrorIs(t, err, appErr.ErrNotAJoker)
}
