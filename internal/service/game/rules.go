package game

import (
	"fmt"

	appErr "rulecard-service/pkg/errors"
	"rulecard-service/pkg/logger"

	"go.uber.org/zap"
)

// Rule names, in catalog order.
const (
	RuleStartingHand = "Starting hand size"
	RuleDrawEachTurn = "Draw each turn"
	RulePoints       = "Points enabled"
	RuleMostPoints   = "Most points win"
	RulePointsEnd    = "Game ends on points"
	RuleMaxHand      = "Max hand size"
	RuleReshuffle    = "Reshuffle deck when empty"
	RuleJokers       = "Jokers enabled"
	RuleRulesCard    = "Rules Card enabled"
)

const DefaultJokerValue = 25

// Settings is the shared game configuration that rule effects mutate.
// Zero counts mean "off" (Draw) or "unbounded" (MaxHand).
type Settings struct {
	StartHand     int  `json:"startHand" mapstructure:"startHand"`
	Draw          int  `json:"draw" mapstructure:"draw"`
	MaxHand       int  `json:"maxHand" mapstructure:"maxHand"`
	PointsEnabled bool `json:"pointsEnabled" mapstructure:"pointsEnabled"`
	PointsEnd     bool `json:"pointsEnd" mapstructure:"pointsEnd"`
	PointsWin     bool `json:"pointsWin" mapstructure:"pointsWin"`
	PointLimit    int  `json:"pointLimit" mapstructure:"pointLimit"`
	Reshuffle     bool `json:"reshuffle" mapstructure:"reshuffle"`
	Jokers        bool `json:"jokers" mapstructure:"jokers"`
	RulesCard     bool `json:"rulesCard" mapstructure:"rulesCard"`
	JokerDefault  int  `json:"jokerDefault" mapstructure:"jokerDefault"`
}

func DefaultSettings() Settings {
	return Settings{StartHand: 5, JokerDefault: DefaultJokerValue}
}

// Validate rejects negative counts and an end-on-points rule without a
// limit. Zero StartHand and JokerDefault fall back to their defaults.
func (s Settings) Validate() error {
	counts := []struct {
		name  string
		value int
	}{
		{"startHand", s.StartHand},
		{"draw", s.Draw},
		{"maxHand", s.MaxHand},
		{"pointLimit", s.PointLimit},
		{"jokerDefault", s.JokerDefault},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", appErr.ErrInvalidSettings, c.name, c.value)
		}
	}
	if s.PointsEnd && s.PointLimit <= 0 {
		return fmt.Errorf("%w: pointsEnd needs a positive pointLimit", appErr.ErrInvalidSettings)
	}
	return nil
}

type EffectKind int

const (
	EffectSetStartHand EffectKind = iota
	EffectSetDraw
	EffectSetMaxHand
	EffectEnablePoints
	EffectEnableMostPoints
	EffectEnablePointsEnd
	EffectEnableReshuffle
	EffectAddJokers
	EffectAddRulesCard
)

// Effect is a rule's activation side effect. Min/Max bound the numeric
// parameter drawn at activation, inclusive.
type Effect struct {
	Kind EffectKind
	Min  int
	Max  int
}

type Rule struct {
	Name     string
	Enabled  bool
	Requires []string
	Effect   Effect
}

// Catalog is the fixed, ordered rule set of one game.
type Catalog struct {
	rules    []*Rule
	byName   map[string]*Rule
	settings *Settings
}

type ruleDef struct {
	name     string
	requires []string
	effect   Effect
	enabled  func(s *Settings) bool
}

var catalogDefs = []ruleDef{
	{RuleStartingHand, nil, Effect{EffectSetStartHand, 1, 10}, func(s *Settings) bool { return s.StartHand != 5 }},
	{RuleDrawEachTurn, nil, Effect{EffectSetDraw, 1, 5}, func(s *Settings) bool { return s.Draw > 0 }},
	{RulePoints, nil, Effect{Kind: EffectEnablePoints}, func(s *Settings) bool { return s.PointsEnabled }},
	{RuleMostPoints, []string{RulePoints}, Effect{Kind: EffectEnableMostPoints}, func(s *Settings) bool { return s.PointsWin }},
	{RulePointsEnd, []string{RulePoints}, Effect{EffectEnablePointsEnd, 50, 300}, func(s *Settings) bool { return s.PointsEnd }},
	{RuleMaxHand, nil, Effect{EffectSetMaxHand, 1, 8}, func(s *Settings) bool { return s.MaxHand > 0 }},
	{RuleReshuffle, nil, Effect{Kind: EffectEnableReshuffle}, func(s *Settings) bool { return s.Reshuffle }},
	{RuleJokers, nil, Effect{Kind: EffectAddJokers}, func(s *Settings) bool { return s.Jokers }},
	{RuleRulesCard, nil, Effect{Kind: EffectAddRulesCard}, func(s *Settings) bool { return s.RulesCard }},
}

// NewCatalog builds the catalog with its initial state taken from settings.
// A rule switched on without its prerequisites is forced off.
func NewCatalog(settings *Settings) *Catalog {
	c := &Catalog{
		rules:    make([]*Rule, 0, len(catalogDefs)),
		byName:   make(map[string]*Rule, len(catalogDefs)),
		settings: settings,
	}
	for _, def := range catalogDefs {
		r := &Rule{
			Name:     def.name,
			Enabled:  def.enabled(settings),
			Requires: def.requires,
			Effect:   def.effect,
		}
		c.rules = append(c.rules, r)
		c.byName[r.Name] = r
	}
	for _, r := range c.rules {
		if r.Enabled && !c.prerequisitesMet(r) {
			logger.Log.Warn("rule disabled: prerequisites off",
				zap.String("rule", r.Name),
				zap.Strings("requires", r.Requires),
			)
			r.Enabled = false
			c.clearSetting(r.Effect.Kind)
		}
	}
	return c
}

func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = *r
	}
	return out
}

func (c *Catalog) IsEnabled(name string) bool {
	r, ok := c.byName[name]
	return ok && r.Enabled
}

func (c *Catalog) prerequisitesMet(r *Rule) bool {
	for _, name := range r.Requires {
		if !c.IsEnabled(name) {
			return false
		}
	}
	return true
}

// Eligible returns the disabled rules whose prerequisites are all enabled.
func (c *Catalog) Eligible() []*Rule {
	out := make([]*Rule, 0, len(c.rules))
	for _, r := range c.rules {
		if !r.Enabled && c.prerequisitesMet(r) {
			out = append(out, r)
		}
	}
	return out
}

// Activate enables a rule and applies its effect. Activating an enabled
// rule is a no-op and reports false.
func (c *Catalog) Activate(name string, deck *Deck, rng RNG) (bool, error) {
	r, ok := c.byName[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", appErr.ErrUnknownRule, name)
	}
	if r.Enabled {
		return false, nil
	}
	if !c.prerequisitesMet(r) {
		return false, fmt.Errorf("%w: %s", appErr.ErrRulePrerequisites, name)
	}
	r.Enabled = true
	applyEffect(c.settings, deck, r.Effect, rng)
	logger.Log.Info("rule enabled", zap.String("rule", r.Name), zap.String("detail", c.describe(r)))
	return true, nil
}

// ActivateRandom enables one eligible rule chosen uniformly at random.
func (c *Catalog) ActivateRandom(deck *Deck, rng RNG) (*Rule, bool) {
	eligible := c.Eligible()
	if len(eligible) == 0 {
		logger.Log.Info("rules card played but no rule is eligible")
		return nil, false
	}
	chosen := eligible[rng.Intn(len(eligible))]
	if _, err := c.Activate(chosen.Name, deck, rng); err != nil {
		logger.Log.Warn("rule activation failed", zap.String("rule", chosen.Name), zap.Error(err))
		return nil, false
	}
	return chosen, true
}

// ActiveDescriptions renders enabled rules for the agent. Disabled rules
// are left out entirely.
func (c *Catalog) ActiveDescriptions() []string {
	out := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		if r.Enabled {
			out = append(out, c.describe(r))
		}
	}
	return out
}

func (c *Catalog) describe(r *Rule) string {
	s := c.settings
	switch r.Effect.Kind {
	case EffectSetStartHand:
		return fmt.Sprintf("%s: %d cards", r.Name, s.StartHand)
	case EffectSetDraw:
		return fmt.Sprintf("%s: draw %d card(s) after playing", r.Name, s.Draw)
	case EffectSetMaxHand:
		return fmt.Sprintf("%s: at most %d cards in hand", r.Name, s.MaxHand)
	case EffectEnablePoints:
		return fmt.Sprintf("%s: played cards score points (2-9 face value, 10/J/Q/K 10, Ace 11, Joker chosen value, Rules Card 0)", r.Name)
	case EffectEnablePointsEnd:
		return fmt.Sprintf("%s: the game ends when a player reaches %d points", r.Name, s.PointLimit)
	case EffectAddJokers:
		return fmt.Sprintf("%s: jokers are wild", r.Name)
	case EffectAddRulesCard:
		return fmt.Sprintf("%s: playing a Rules Card enables a random new rule", r.Name)
	default:
		return r.Name
	}
}

// applyEffect interprets one effect against the shared settings and deck.
func applyEffect(s *Settings, deck *Deck, e Effect, rng RNG) {
	switch e.Kind {
	case EffectSetStartHand:
		s.StartHand = drawParam(e, rng)
	case EffectSetDraw:
		s.Draw = drawParam(e, rng)
	case EffectSetMaxHand:
		s.MaxHand = drawParam(e, rng)
	case EffectEnablePoints:
		s.PointsEnabled = true
	case EffectEnableMostPoints:
		s.PointsWin = true
	case EffectEnablePointsEnd:
		s.PointsEnd = true
		s.PointLimit = drawParam(e, rng)
	case EffectEnableReshuffle:
		s.Reshuffle = true
	case EffectAddJokers:
		s.Jokers = true
		if deck != nil {
			deck.AddJokers()
			deck.Shuffle()
		}
	case EffectAddRulesCard:
		s.RulesCard = true
		if deck != nil {
			deck.AddRulesCard()
			deck.Shuffle()
		}
	}
}

func (c *Catalog) clearSetting(kind EffectKind) {
	switch kind {
	case EffectEnableMostPoints:
		c.settings.PointsWin = false
	case EffectEnablePointsEnd:
		c.settings.PointsEnd = false
	}
}

func drawParam(e Effect, rng RNG) int {
	if e.Max <= e.Min {
		return e.Min
	}
	return e.Min + rng.Intn(e.Max-e.Min+1)
}
