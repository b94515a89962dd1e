package game

// CardPoints is the score of a single played card. An unassigned joker
// scores jokerDefault.
func CardPoints(c Card, jokerDefault int) int {
	switch {
	case c.Rank >= Two && c.Rank <= Nine:
		return int(c.Rank)
	case c.Rank >= Ten && c.Rank <= King:
		return 10
	case c.Rank == Ace:
		return 11
	case c.IsJoker():
		if c.Value != 0 {
			return c.Value
		}
		return jokerDefault
	default:
		return 0
	}
}

func PlayPoints(cards []Card, jokerDefault int) int {
	total := 0
	for _, c := range cards {
		total += CardPoints(c, jokerDefault)
	}
	return total
}

// Outcome values reported when the game ends.
const (
	WinnerHuman = "human"
	WinnerAI    = "ai"
	WinnerTie   = "tie"
)

// Score holds both running totals. Totals never decrease.
type Score struct {
	Human int `json:"human"`
	AI    int `json:"ai"`
}

func (s Score) reachedLimit(limit int) bool {
	return s.Human >= limit || s.AI >= limit
}

func (s Score) leader() string {
	switch {
	case s.Human > s.AI:
		return WinnerHuman
	case s.AI > s.Human:
		return WinnerAI
	default:
		return WinnerTie
	}
}
