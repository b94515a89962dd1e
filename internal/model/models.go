package model

import (
	"time"

	"gorm.io/datatypes"
)

// GameRecord is one session, updated after every turn and closed at game
// over or when the session is deleted.
type GameRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	SessionID    string `gorm:"size:64;uniqueIndex;not null"`
	GameID       string `gorm:"size:64"`
	Status       string `gorm:"size:16;default:playing"` // playing/ended/closed
	HumanScore   int
	AIScore      int    `gorm:"column:ai_score"`
	Winner       string `gorm:"size:8"` // human/ai/tie
	Turns        int
	SettingsJSON datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
	EndedAt      *time.Time
}

type TurnLog struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	SessionID   string `gorm:"size:64;index"`
	Turn        int
	Actor       string `gorm:"size:8"` // human/ai
	CardsJSON   datatypes.JSON
	Points      int
	HumanScore  int
	AIScore     int `gorm:"column:ai_score"`
	Action      string
	RawResponse string `gorm:"type:text"`
	SkippedJSON datatypes.JSON
	Status      string
	Failed      bool
	CreatedAt   time.Time
}

func AllModels() []interface{} {
	return []interface{}{&GameRecord{}, &TurnLog{}}
}
