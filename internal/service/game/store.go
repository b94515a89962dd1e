package game

import (
	"context"
	"encoding/json"
	"time"

	"rulecard-service/internal/model"
	appErr "rulecard-service/pkg/errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	recordPlaying = "playing"
	recordEnded   = "ended"
	recordClosed  = "closed"
)

// Store persists game records and the turn log.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (st *Store) CreateGame(ctx context.Context, sessionID, gameID string, settings Settings) error {
	rec := model.GameRecord{
		SessionID:    sessionID,
		GameID:       gameID,
		Status:       recordPlaying,
		SettingsJSON: mustJSON(settings),
	}
	return st.db.WithContext(ctx).Create(&rec).Error
}

// RecordTurn appends the turn and moves the running totals on the game
// record in one transaction.
func (st *Store) RecordTurn(ctx context.Context, rec TurnRecord) error {
	return st.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game model.GameRecord
		if err := tx.Where("session_id = ?", rec.SessionID).First(&game).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return appErr.ErrSessionNotFound
			}
			return err
		}

		row := model.TurnLog{
			SessionID:   rec.SessionID,
			Turn:        rec.Turn,
			Actor:       rec.Actor,
			CardsJSON:   mustJSON(rec.Cards),
			Points:      rec.Points,
			HumanScore:  rec.Score.Human,
			AIScore:     rec.Score.AI,
			Action:      rec.Action,
			RawResponse: rec.Raw,
			SkippedJSON: mustJSON(rec.Skipped),
			Status:      rec.Status,
			Failed:      rec.Failed,
			CreatedAt:   rec.At,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		return tx.Model(&model.GameRecord{}).
			Where("id = ?", game.ID).
			Updates(map[string]interface{}{
				"human_score": rec.Score.Human,
				"ai_score":    rec.Score.AI,
				"turns":       rec.Turn + 1,
			}).Error
	})
}

// FinishGame closes the record. A game already ended keeps its result.
func (st *Store) FinishGame(ctx context.Context, sessionID string, score Score, winner string, over bool) error {
	now := time.Now()
	status := recordClosed
	if over {
		status = recordEnded
	}
	result := st.db.WithContext(ctx).
		Model(&model.GameRecord{}).
		Where("session_id = ? AND ended_at IS NULL", sessionID).
		Updates(map[string]interface{}{
			"status":      status,
			"human_score": score.Human,
			"ai_score":    score.AI,
			"winner":      winner,
			"ended_at":    &now,
		})
	return result.Error
}

func (st *Store) Game(ctx context.Context, sessionID string) (*model.GameRecord, error) {
	var rec model.GameRecord
	if err := st.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&rec).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrSessionNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (st *Store) History(ctx context.Context, sessionID string) ([]model.TurnLog, error) {
	logs := make([]model.TurnLog, 0)
	err := st.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

func mustJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("null")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
