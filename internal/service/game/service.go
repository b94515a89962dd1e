package game

import (
	"context"
	"sync"
	"time"

	"rulecard-service/internal/config"
	"rulecard-service/internal/model"
	appErr "rulecard-service/pkg/errors"
	"rulecard-service/pkg/logger"
	"rulecard-service/pkg/utils/random"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultChannel     = "cardgame:events"
	recordingTimeout   = 5 * time.Second
	recordQueueSize    = 256
	defaultFinishedTTL = 10 * time.Minute
)

// recordJob is one history write. Exactly one field is set.
type recordJob struct {
	turn   *TurnRecord
	finish *State
}

// Service owns the live sessions and their history.
type Service struct {
	store     *Store
	publisher Publisher
	agent     Decider

	rules        Settings
	agentTimeout time.Duration
	gamePrefix   string
	finishedTTL  time.Duration

	sessions sync.Map
	jobs     chan recordJob
}

// NewService wires history and event publishing when db and rdb are set.
// Either may be nil.
func NewService(db *gorm.DB, rdb *redis.Client, decider Decider) *Service {
	s := &Service{
		agent:        decider,
		rules:        DefaultSettings(),
		agentTimeout: defaultAgentTimeout,
		gamePrefix:   "GAME-",
		finishedTTL:  defaultFinishedTTL,
		jobs:         make(chan recordJob, recordQueueSize),
	}
	if db != nil {
		s.store = NewStore(db)
	}
	channel := defaultChannel
	if cfg := config.GlobalConfig; cfg != nil {
		s.rules = SettingsFromConfig(cfg.Rules)
		if cfg.Agent.TimeoutSeconds > 0 {
			s.agentTimeout = time.Duration(cfg.Agent.TimeoutSeconds) * time.Second
		}
		if cfg.Agent.GameIDPrefix != "" {
			s.gamePrefix = cfg.Agent.GameIDPrefix
		}
		if cfg.Server.FinishedTTL > 0 {
			s.finishedTTL = time.Duration(cfg.Server.FinishedTTL) * time.Second
		}
		if cfg.Redis.Channel != "" {
			channel = cfg.Redis.Channel
		}
	}
	if rdb != nil {
		s.publisher = NewRedisPublisher(rdb, channel)
	}
	return s
}

// Start runs the history writer until ctx is done. Writes are applied in
// the order sessions emit them.
func (s *Service) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-s.jobs:
				s.applyJob(job)
			}
		}
	}()
}

func SettingsFromConfig(rc config.RulesConfig) Settings {
	return Settings{
		StartHand:     rc.StartHand,
		Draw:          rc.Draw,
		MaxHand:       rc.MaxHand,
		PointsEnabled: rc.PointsEnabled,
		PointsEnd:     rc.PointsEnd,
		PointsWin:     rc.PointsWin,
		PointLimit:    rc.PointLimit,
		Reshuffle:     rc.Reshuffle,
		Jokers:        rc.Jokers,
		RulesCard:     rc.RulesCard,
		JokerDefault:  rc.JokerDefault,
	}
}

// DefaultRules is the starting rule set used when a create request brings
// no overrides.
func (s *Service) DefaultRules() Settings {
	return s.rules
}

type CreateParams struct {
	Settings *Settings
	RNG      RNG
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Session, error) {
	settings := s.rules
	if params.Settings != nil {
		settings = *params.Settings
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	gameID := random.GameID(s.gamePrefix)

	if s.store != nil {
		if err := s.store.CreateGame(ctx, id, gameID, settings); err != nil {
			return nil, err
		}
	}

	sess := NewSession(SessionOptions{
		ID:           id,
		GameID:       gameID,
		Settings:     settings,
		RNG:          params.RNG,
		Agent:        s.agent,
		AgentTimeout: s.agentTimeout,
		OnTurn:       s.handleTurn,
		OnFinish:     s.handleFinish,
	})
	s.sessions.Store(id, sess)
	logger.Log.Info("session created", zap.String("sessionID", id), zap.String("gameID", gameID))
	return sess, nil
}

func (s *Service) Get(id string) (*Session, error) {
	if v, ok := s.sessions.Load(id); ok {
		return v.(*Session), nil
	}
	return nil, appErr.ErrSessionNotFound
}

// Close stops the session and drops it from the registry.
func (s *Service) Close(ctx context.Context, id string) error {
	v, ok := s.sessions.LoadAndDelete(id)
	if !ok {
		return appErr.ErrSessionNotFound
	}
	sess := v.(*Session)
	sess.Close()

	state := sess.Snapshot()
	if s.store != nil {
		if err := s.store.FinishGame(ctx, id, state.Score, state.Winner, state.GameOver); err != nil {
			logger.Log.Error("failed to close game record", zap.String("sessionID", id), zap.Error(err))
		}
	}
	s.publish(Event{
		SessionID: id,
		GameID:    state.GameID,
		Type:      "closed",
		Turn:      state.Turn,
		Score:     state.Score,
		Winner:    state.Winner,
		Timestamp: time.Now().UnixMilli(),
	})
	return nil
}

// Shutdown closes every live session.
func (s *Service) Shutdown(ctx context.Context) {
	s.sessions.Range(func(key, _ interface{}) bool {
		_ = s.Close(ctx, key.(string))
		return true
	})
}

func (s *Service) History(ctx context.Context, id string) ([]model.TurnLog, error) {
	if s.store == nil {
		if _, err := s.Get(id); err != nil {
			return nil, err
		}
		return []model.TurnLog{}, nil
	}
	if _, err := s.store.Game(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

func (s *Service) handleTurn(rec TurnRecord) {
	s.enqueue(recordJob{turn: &rec})
}

// handleFinish records the result and schedules the session for eviction.
// Clients can still read the final state until then.
func (s *Service) handleFinish(sess *Session) {
	state := sess.Snapshot()
	s.enqueue(recordJob{finish: &state})
	time.AfterFunc(s.finishedTTL, func() { s.evict(sess) })
}

// evict drops a finished session unless Close already removed it.
func (s *Service) evict(sess *Session) {
	if !s.sessions.CompareAndDelete(sess.ID(), sess) {
		return
	}
	sess.Close()
	logger.Log.Info("finished session evicted", zap.String("sessionID", sess.ID()))
}

func (s *Service) enqueue(job recordJob) {
	select {
	case s.jobs <- job:
	default:
		logger.Log.Warn("history queue full, record dropped")
	}
}

func (s *Service) applyJob(job recordJob) {
	ctx, cancel := context.WithTimeout(context.Background(), recordingTimeout)
	defer cancel()

	switch {
	case job.turn != nil:
		rec := *job.turn
		if s.store != nil {
			if err := s.store.RecordTurn(ctx, rec); err != nil {
				logger.Log.Error("failed to record turn",
					zap.String("sessionID", rec.SessionID),
					zap.Int("turn", rec.Turn),
					zap.String("actor", rec.Actor),
					zap.Error(err),
				)
			}
		}
		s.publish(turnEvent(rec))
	case job.finish != nil:
		state := *job.finish
		if s.store != nil {
			if err := s.store.FinishGame(ctx, state.SessionID, state.Score, state.Winner, true); err != nil {
				logger.Log.Error("failed to finish game record", zap.String("sessionID", state.SessionID), zap.Error(err))
			}
		}
		s.publish(Event{
			SessionID: state.SessionID,
			GameID:    state.GameID,
			Type:      "game_over",
			Turn:      state.Turn,
			Score:     state.Score,
			Winner:    state.Winner,
			Timestamp: time.Now().UnixMilli(),
		})
	}
}

func (s *Service) publish(ev Event) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.Log.Warn("failed to publish session event",
			zap.String("sessionID", ev.SessionID),
			zap.String("type", ev.Type),
			zap.Error(err),
		)
	}
}
