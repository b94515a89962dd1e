package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rulecard-service/internal/service/agent"
	appErr "rulecard-service/pkg/errors"
	"rulecard-service/pkg/logger"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseAwaitingSelection  Phase = "awaiting_selection"
	PhaseAwaitingJokerValue Phase = "awaiting_joker_value"
	PhaseResolvingHuman     Phase = "resolving_human"
	PhaseAwaitingAI         Phase = "awaiting_ai"
	PhaseResolvingAI        Phase = "resolving_ai"
	PhaseScoring            Phase = "scoring"
	PhaseDrawing            Phase = "drawing"
	PhaseGameOver           Phase = "game_over"
)

const (
	ActorHuman = "human"
	ActorAI    = "ai"
)

const defaultAgentTimeout = 30 * time.Second

// Decider produces the AI move for a request.
type Decider interface {
	Decide(ctx context.Context, req agent.Request) (*agent.Result, string, error)
}

type LogItem struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

type State struct {
	SessionID      string    `json:"sessionId"`
	GameID         string    `json:"gameId"`
	Phase          Phase     `json:"phase"`
	Turn           int       `json:"turn"`
	Hand           []Card    `json:"hand"`
	HandLabels     []string  `json:"handLabels"`
	Selected       []int     `json:"selected"`
	JokerIndex     *int      `json:"jokerIndex,omitempty"`
	AIHandCount    int       `json:"aiHandCount"`
	DiscardTop     *Card     `json:"discardTop,omitempty"`
	DeckCount      int       `json:"deckCount"`
	Score          Score     `json:"score"`
	Settings       Settings  `json:"settings"`
	ActiveRules    []string  `json:"activeRules"`
	AllowedActions []string  `json:"allowedActions"`
	Status         string    `json:"status,omitempty"`
	GameOver       bool      `json:"gameOver"`
	Winner         string    `json:"winner,omitempty"`
	Logs           []LogItem `json:"logs"`
}

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

// TurnRecord describes one resolved (or failed) play.
type TurnRecord struct {
	SessionID string
	GameID    string
	Turn      int
	Actor     string
	Cards     []string
	Points    int
	Score     Score
	Action    string
	Raw       string
	Skipped   []string
	Status    string
	Failed    bool
	At        time.Time
}

type SessionOptions struct {
	ID           string
	GameID       string
	Settings     Settings
	RNG          RNG
	Agent        Decider
	AgentTimeout time.Duration
	Instruction  string
	OnTurn       func(TurnRecord)
	OnFinish     func(*Session)
}

type pendingCall struct {
	id     int64
	cancel context.CancelFunc
}

// Session is one human-versus-AI game. All state changes happen under mu;
// only the agent call runs outside it.
type Session struct {
	id     string
	gameID string
	phase  Phase
	turn   int

	settings Settings
	catalog  *Catalog
	deck     *Deck
	rng      RNG

	human      Hand
	ai         Hand
	selected   map[int]bool
	jokerQueue []int

	score  Score
	winner string
	status string
	logs   []LogItem
	seq    int64

	subscribers map[int64]chan OutgoingMessage
	nextSubID   int64

	agent        Decider
	agentTimeout time.Duration
	instruction  string
	baseCtx      context.Context
	baseCancel   context.CancelFunc
	pending      *pendingCall
	callSeq      int64
	closed       bool

	mu sync.Mutex

	log      *zap.Logger
	onTurn   func(TurnRecord)
	onFinish func(*Session)
}

// NewSession builds the deck, applies the starting rules and deals both
// hands, human first.
func NewSession(opts SessionOptions) *Session {
	settings := opts.Settings
	if settings.StartHand <= 0 {
		settings.StartHand = DefaultSettings().StartHand
	}
	if settings.JokerDefault <= 0 {
		settings.JokerDefault = DefaultJokerValue
	}
	rng := opts.RNG
	if rng == nil {
		rng = newTimeSeededRNG()
	}
	timeout := opts.AgentTimeout
	if timeout <= 0 {
		timeout = defaultAgentTimeout
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())

	s := &Session{
		id:           opts.ID,
		gameID:       opts.GameID,
		phase:        PhaseAwaitingSelection,
		rng:          rng,
		selected:     make(map[int]bool),
		logs:         []LogItem{},
		subscribers:  make(map[int64]chan OutgoingMessage),
		agent:        opts.Agent,
		agentTimeout: timeout,
		instruction:  opts.Instruction,
		baseCtx:      baseCtx,
		baseCancel:   baseCancel,
		log:          logger.Session(opts.ID),
		onTurn:       opts.OnTurn,
		onFinish:     opts.OnFinish,
	}
	s.settings = settings
	s.catalog = NewCatalog(&s.settings)
	s.deck = NewDeck(rng)
	if s.settings.Jokers {
		s.deck.AddJokers()
	}
	if s.settings.RulesCard {
		s.deck.AddRulesCard()
	}
	s.deck.Shuffle()

	s.drawIntoLocked(&s.human, s.settings.StartHand)
	s.drawIntoLocked(&s.ai, s.settings.StartHand)
	s.appendLogLocked(fmt.Sprintf("game started, %d cards dealt each", s.settings.StartHand))
	s.log.Info("session started",
		zap.String("gameID", s.gameID),
		zap.Int("humanHand", s.human.Len()),
		zap.Int("aiHand", s.ai.Len()),
		zap.Strings("rules", s.catalog.ActiveDescriptions()),
	)
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) GameID() string { return s.gameID }

func (s *Session) Subscribe() (int64, <-chan OutgoingMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	ch := make(chan OutgoingMessage, 8)
	if s.closed {
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	s.pushStateLocked(id)
	return id, ch
}

func (s *Session) Unsubscribe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportStateLocked()
}

// OnCardSelected toggles a card of the human hand in or out of the
// selection.
func (s *Session) OnCardSelected(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSelectionPhaseLocked(); err != nil {
		return err
	}
	if _, ok := s.human.At(index); !ok {
		return fmt.Errorf("%w: %d", appErr.ErrInvalidCardIndex, index)
	}
	if s.selected[index] {
		delete(s.selected, index)
	} else {
		s.selected[index] = true
	}
	s.broadcastStateLocked()
	return nil
}

func (s *Session) OnEndTurnRequested() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSelectionPhaseLocked(); err != nil {
		return err
	}
	if len(s.selected) == 0 {
		return appErr.ErrNoSelection
	}

	s.jokerQueue = s.jokerQueue[:0]
	for _, idx := range s.selectedIndicesLocked() {
		c, _ := s.human.At(idx)
		if c.IsJoker() && c.Value == 0 {
			s.jokerQueue = append(s.jokerQueue, idx)
		}
	}
	if len(s.jokerQueue) > 0 {
		s.phase = PhaseAwaitingJokerValue
		s.status = "Choose a value for your joker."
		s.broadcastStateLocked()
		return nil
	}
	s.resolveHumanLocked()
	return nil
}

// OnJokerValueChosen assigns value to the next selected joker that has
// none. The play resolves once every selected joker has a value.
func (s *Session) OnJokerValueChosen(value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	if s.phase != PhaseAwaitingJokerValue || len(s.jokerQueue) == 0 {
		return appErr.ErrNotYourTurn
	}
	idx := s.jokerQueue[0]
	c, ok := s.human.At(idx)
	if !ok {
		return fmt.Errorf("%w: %d", appErr.ErrInvalidCardIndex, idx)
	}
	updated, err := c.WithJokerValue(value)
	if err != nil {
		return err
	}
	s.human.set(idx, updated)
	s.jokerQueue = s.jokerQueue[1:]
	s.appendLogLocked(fmt.Sprintf("joker set to %d", value))

	if len(s.jokerQueue) > 0 {
		s.broadcastStateLocked()
		return nil
	}
	s.resolveHumanLocked()
	return nil
}

// Close cancels any outstanding agent call and drops all subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancelPendingLocked()
	s.baseCancel()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	s.log.Info("session closed", zap.String("phase", string(s.phase)))
}

func (s *Session) checkOpenLocked() error {
	if s.closed {
		return appErr.ErrSessionClosed
	}
	if s.phase == PhaseGameOver {
		return appErr.ErrGameOver
	}
	return nil
}

func (s *Session) checkSelectionPhaseLocked() error {
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	switch s.phase {
	case PhaseAwaitingSelection:
		return nil
	case PhaseAwaitingAI:
		return appErr.ErrAwaitingAgent
	case PhaseAwaitingJokerValue:
		return appErr.ErrJokerValuePending
	default:
		return appErr.ErrNotYourTurn
	}
}

func (s *Session) selectedIndicesLocked() []int {
	out := make([]int, 0, len(s.selected))
	for idx := range s.selected {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func (s *Session) resolveHumanLocked() {
	s.phase = PhaseResolvingHuman
	played := s.human.RemoveDescending(s.selectedIndicesLocked())
	s.selected = make(map[int]bool)
	s.jokerQueue = nil

	points := s.playLocked(ActorHuman, played)
	s.status = ""
	rec := s.turnRecordLocked(ActorHuman, played, points)
	s.emitTurnLocked(rec)

	if s.checkGameOverLocked() {
		return
	}
	s.phase = PhaseDrawing
	s.drawIntoLocked(&s.human, s.settings.Draw)
	s.dispatchAgentLocked()
}

// playLocked discards the played cards, fires rules cards, then scores.
func (s *Session) playLocked(actor string, played []Card) int {
	labels := make([]string, len(played))
	for i, c := range played {
		s.deck.AddToDiscard(c)
		labels[i] = c.String()
	}
	s.appendLogLocked(fmt.Sprintf("%s played %s", actor, strings.Join(labels, ", ")))

	for _, c := range played {
		if !c.IsRulesCard() {
			continue
		}
		if rule, ok := s.catalog.ActivateRandom(s.deck, s.rng); ok {
			s.appendLogLocked("new rule: " + s.catalog.describe(rule))
		} else {
			s.appendLogLocked("rules card played, no rule left to enable")
		}
	}

	s.phase = PhaseScoring
	points := PlayPoints(played, s.settings.JokerDefault)
	if !s.settings.PointsEnabled {
		return 0
	}
	if actor == ActorHuman {
		s.score.Human += points
	} else {
		s.score.AI += points
	}
	return points
}

func (s *Session) checkGameOverLocked() bool {
	if !s.settings.PointsEnabled || !s.settings.PointsEnd {
		return false
	}
	if !s.score.reachedLimit(s.settings.PointLimit) {
		return false
	}
	s.finishLocked()
	return true
}

func (s *Session) finishLocked() {
	s.phase = PhaseGameOver
	s.cancelPendingLocked()
	if s.settings.PointsWin {
		s.winner = s.score.leader()
	}
	s.status = "Game over."
	s.appendLogLocked(fmt.Sprintf("game over, human %d ai %d", s.score.Human, s.score.AI))
	s.log.Info("game over",
		zap.Int("human", s.score.Human),
		zap.Int("ai", s.score.AI),
		zap.String("winner", s.winner),
	)
	s.broadcastStateLocked()
	if s.onFinish != nil {
		go s.onFinish(s)
	}
}

// drawIntoLocked draws up to n cards, stopping at the max hand size or
// when the deck runs dry. The discard pile is recycled only when the
// reshuffle rule is on.
func (s *Session) drawIntoLocked(h *Hand, n int) int {
	drawn := 0
	for i := 0; i < n; i++ {
		if s.settings.MaxHand > 0 && h.Len() >= s.settings.MaxHand {
			break
		}
		c, ok := s.deck.Draw()
		if !ok && s.settings.Reshuffle && s.deck.DiscardCount() > 0 {
			s.deck.Reshuffle()
			s.appendLogLocked("discard pile reshuffled into the deck")
			c, ok = s.deck.Draw()
		}
		if !ok {
			break
		}
		h.Add(c)
		drawn++
	}
	return drawn
}

func (s *Session) dispatchAgentLocked() {
	s.phase = PhaseAwaitingAI
	s.broadcastStateLocked()

	discardTop := ""
	if top, ok := s.deck.PeekDiscard(); ok {
		discardTop = top.String()
	}
	req := agent.BuildRequest(agent.RequestInput{
		GameID:      s.gameID,
		Instruction: s.instruction,
		ActiveRules: s.catalog.ActiveDescriptions(),
		Hand:        s.ai.Strings(),
		DiscardTop:  discardTop,
		StackCount:  s.deck.Count(),
	})

	if s.agent == nil {
		s.failAgentTurnLocked(appErr.ErrAgentNotConfigured, "")
		return
	}

	s.callSeq++
	id := s.callSeq
	ctx, cancel := context.WithTimeout(s.baseCtx, s.agentTimeout)
	s.pending = &pendingCall{id: id, cancel: cancel}
	go s.runAgentCall(ctx, id, req)
}

func (s *Session) runAgentCall(ctx context.Context, id int64, req agent.Request) {
	res, raw, err := s.agent.Decide(ctx, req)
	s.completeAgentCall(id, res, raw, err)
}

func (s *Session) completeAgentCall(id int64, res *agent.Result, raw string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil || s.pending.id != id {
		s.log.Info("stale agent response discarded", zap.Int64("callID", id))
		return
	}
	s.pending.cancel()
	s.pending = nil
	if s.closed || s.phase != PhaseAwaitingAI {
		s.log.Info("agent response discarded", zap.String("phase", string(s.phase)))
		return
	}

	if err != nil {
		s.failAgentTurnLocked(err, raw)
		return
	}
	s.resolveAILocked(res, raw)
}

// failAgentTurnLocked hands control back to the human. The AI hand and the
// discard pile stay as they were.
func (s *Session) failAgentTurnLocked(err error, raw string) {
	s.status = agent.StatusMessage(err)
	s.appendLogLocked("ai turn failed: " + s.status)
	s.log.Warn("ai turn failed", zap.Int("turn", s.turn), zap.Error(err))

	rec := s.turnRecordLocked(ActorAI, nil, 0)
	rec.Raw = raw
	rec.Failed = true
	s.emitTurnLocked(rec)

	s.turn++
	s.phase = PhaseAwaitingSelection
	s.broadcastStateLocked()
}

func (s *Session) resolveAILocked(res *agent.Result, raw string) {
	s.phase = PhaseResolvingAI
	valid, skipped := agent.ParseDiscardIndices(string(res.DiscardReturn), s.ai.Len())
	if len(skipped) > 0 {
		s.log.Warn("ai discard indices skipped",
			zap.Strings("skipped", skipped),
			zap.Int("handLen", s.ai.Len()),
		)
	}
	if res.UpdatedHand != "" {
		s.log.Debug("ai updatedHand ignored", zap.String("updatedHand", string(res.UpdatedHand)))
	}

	played := s.ai.RemoveDescending(valid)
	points := s.playLocked(ActorAI, played)
	s.status = ""

	rec := s.turnRecordLocked(ActorAI, played, points)
	rec.Action = res.Action
	rec.Raw = raw
	rec.Skipped = skipped
	s.emitTurnLocked(rec)

	if s.checkGameOverLocked() {
		return
	}
	s.phase = PhaseDrawing
	s.drawIntoLocked(&s.ai, s.settings.Draw)
	s.turn++
	s.phase = PhaseAwaitingSelection
	s.broadcastStateLocked()
}

func (s *Session) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.cancel()
		s.pending = nil
	}
}

func (s *Session) turnRecordLocked(actor string, played []Card, points int) TurnRecord {
	labels := make([]string, len(played))
	for i, c := range played {
		labels[i] = c.String()
	}
	return TurnRecord{
		SessionID: s.id,
		GameID:    s.gameID,
		Turn:      s.turn,
		Actor:     actor,
		Cards:     labels,
		Points:    points,
		Score:     s.score,
		Status:    s.status,
		At:        time.Now(),
	}
}

// emitTurnLocked runs under mu, so OnTurn must not block.
func (s *Session) emitTurnLocked(rec TurnRecord) {
	if s.onTurn != nil {
		s.onTurn(rec)
	}
}

func (s *Session) pushStateLocked(subID int64) {
	s.pushMessageLocked(subID, OutgoingMessage{
		Type: "state",
		Seq:  s.nextSeqLocked(),
		Data: s.exportStateLocked(),
	})
}

func (s *Session) broadcastStateLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	msg := OutgoingMessage{
		Type: "state",
		Seq:  s.nextSeqLocked(),
		Data: s.exportStateLocked(),
	}
	for id := range s.subscribers {
		s.pushMessageLocked(id, msg)
	}
}

func (s *Session) pushMessageLocked(subID int64, msg OutgoingMessage) {
	if ch, ok := s.subscribers[subID]; ok {
		select {
		case ch <- msg:
		default:
			s.log.Warn("ws subscriber channel full", zap.Int64("subscriber", subID))
		}
	}
}

func (s *Session) nextSeqLocked() int64 {
	s.seq++
	return s.seq
}

func (s *Session) exportStateLocked() State {
	state := State{
		SessionID:      s.id,
		GameID:         s.gameID,
		Phase:          s.phase,
		Turn:           s.turn,
		Hand:           s.human.Cards(),
		HandLabels:     s.human.Strings(),
		Selected:       s.selectedIndicesLocked(),
		AIHandCount:    s.ai.Len(),
		DeckCount:      s.deck.Count(),
		Score:          s.score,
		Settings:       s.settings,
		ActiveRules:    s.catalog.ActiveDescriptions(),
		AllowedActions: s.allowedActionsLocked(),
		Status:         s.status,
		GameOver:       s.phase == PhaseGameOver,
		Winner:         s.winner,
		Logs:           append([]LogItem(nil), s.logs...),
	}
	if len(s.jokerQueue) > 0 && s.phase == PhaseAwaitingJokerValue {
		idx := s.jokerQueue[0]
		state.JokerIndex = &idx
	}
	if top, ok := s.deck.PeekDiscard(); ok {
		state.DiscardTop = &top
	}
	return state
}

func (s *Session) allowedActionsLocked() []string {
	if s.closed {
		return nil
	}
	switch s.phase {
	case PhaseAwaitingSelection:
		if len(s.selected) > 0 {
			return []string{"select", "end_turn"}
		}
		return []string{"select"}
	case PhaseAwaitingJokerValue:
		return []string{"joker"}
	default:
		return nil
	}
}

func (s *Session) appendLogLocked(content string) {
	s.logs = append(s.logs, LogItem{
		ID:        fmt.Sprintf("%d-%d", time.Now().UnixNano(), len(s.logs)+1),
		Timestamp: time.Now().UnixMilli(),
		Content:   content,
	})
}
