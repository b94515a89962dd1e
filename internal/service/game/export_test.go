package game

import "time"

// ForceHumanCard swaps a card matching pred into human hand slot i, taking
// it from the draw pile or the AI hand so the pool stays intact.
func (s *Session) ForceHumanCard(i int, pred func(Card) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return forceCard(&s.human, &s.ai, s.deck, i, pred)
}

func (s *Session) ForceAICard(i int, pred func(Card) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return forceCard(&s.ai, &s.human, s.deck, i, pred)
}

func forceCard(target, other *Hand, deck *Deck, i int, pred func(Card) bool) bool {
	if i < 0 || i >= len(target.cards) {
		return false
	}
	if pred(target.cards[i]) {
		return true
	}
	for j, c := range deck.cards {
		if pred(c) {
			deck.cards[j], target.cards[i] = target.cards[i], c
			return true
		}
	}
	for j, c := range other.cards {
		if pred(c) {
			other.cards[j], target.cards[i] = target.cards[i], c
			return true
		}
	}
	for j, c := range target.cards {
		if j != i && pred(c) {
			target.cards[j], target.cards[i] = target.cards[i], c
			return true
		}
	}
	return false
}

func (s *Session) AIHand() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ai.Cards()
}

func (s *Session) DiscardPile() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck.DiscardPile()
}

// CardCounts returns the cards currently held anywhere and the pool size.
func (s *Session) CardCounts() (held, pool int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	held = s.deck.Count() + s.deck.DiscardCount() + s.human.Len() + s.ai.Len()
	return held, s.deck.PoolSize()
}

func (s *Session) RuleEnabled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.IsEnabled(name)
}

func (s *Session) SetScore(score Score) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = score
}

// SetFinishedTTL must be called before the first session is created.
func (s *Service) SetFinishedTTL(d time.Duration) {
	s.finishedTTL = d
}
