package game

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// Event is the message published for every turn and game end.
type Event struct {
	SessionID string   `json:"sessionId"`
	GameID    string   `json:"gameId"`
	Type      string   `json:"type"` // turn, game_over, closed
	Turn      int      `json:"turn"`
	Actor     string   `json:"actor,omitempty"`
	Cards     []string `json:"cards,omitempty"`
	Points    int      `json:"points"`
	Score     Score    `json:"score"`
	Failed    bool     `json:"failed,omitempty"`
	Winner    string   `json:"winner,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Publisher fans session events out to other processes.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

func turnEvent(rec TurnRecord) Event {
	return Event{
		SessionID: rec.SessionID,
		GameID:    rec.GameID,
		Type:      "turn",
		Turn:      rec.Turn,
		Actor:     rec.Actor,
		Cards:     rec.Cards,
		Points:    rec.Points,
		Score:     rec.Score,
		Failed:    rec.Failed,
		Timestamp: rec.At.UnixMilli(),
	}
}
