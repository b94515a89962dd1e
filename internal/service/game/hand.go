package game

import "sort"

// Hand is an ordered set of cards. Order only matters for the positional
// indices used by selection and by agent responses.
type Hand struct {
	cards []Card
}

func (h *Hand) Len() int { return len(h.cards) }

func (h *Hand) At(i int) (Card, bool) {
	if i < 0 || i >= len(h.cards) {
		return Card{}, false
	}
	return h.cards[i], true
}

func (h *Hand) Add(c Card) {
	h.cards = append(h.cards, c)
}

func (h *Hand) set(i int, c Card) {
	h.cards[i] = c
}

// Cards returns a copy of the hand.
func (h *Hand) Cards() []Card {
	return append([]Card(nil), h.cards...)
}

func (h *Hand) Strings() []string {
	out := make([]string, len(h.cards))
	for i, c := range h.cards {
		out[i] = c.String()
	}
	return out
}

// RemoveDescending removes the given indices highest first so lower indices
// stay valid, and returns the removed cards in removal order. Out-of-range
// and duplicate indices are ignored.
func (h *Hand) RemoveDescending(indices []int) []Card {
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	removed := make([]Card, 0, len(sorted))
	last := -1
	for _, idx := range sorted {
		if idx == last || idx < 0 || idx >= len(h.cards) {
			continue
		}
		last = idx
		removed = append(removed, h.cards[idx])
		h.cards = append(h.cards[:idx], h.cards[idx+1:]...)
	}
	return removed
}
