package redis

import (
	"context"
	"encoding/json"
	"time"

	"vocab-battle/internal/domain"

	"github.com/redis/go-redis/v9"
)

// AnswerLog appends answer records to a per-match Redis list as an audit trail.
// Keys:
//
//	battle:{matchID}:answers        list of JSON entries
//	battle:answer:{correlationID}   dedup marker for retried writes
type AnswerLog struct {
	client *redis.Client
	ttl    time.Duration
}

type loggedAnswer struct {
	CorrelationID string              `json:"correlationId"`
	Record        domain.AnswerRecord `json:"record"`
}

func NewAnswerLog(client *redis.Client, ttl time.Duration) *AnswerLog {
	return &AnswerLog{client: client, ttl: ttl}
}

func (l *AnswerLog) SaveAnswer(ctx context.Context, correlationID, matchID string, rec domain.AnswerRecord) error {
	payload, err := json.Marshal(loggedAnswer{CorrelationID: correlationID, Record: rec})
	if err != nil {
		return err
	}
	fresh, err := l.client.SetNX(ctx, l.markerKey(correlationID), "1", l.ttl).Result()
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, l.listKey(matchID), payload)
	if l.ttl > 0 {
		pipe.Expire(ctx, l.listKey(matchID), l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// let the next retry write it
		_ = l.client.Del(ctx, l.markerKey(correlationID)).Err()
		return err
	}
	return nil
}

// Answers reads back the logged records of a match in append order.
func (l *AnswerLog) Answers(ctx context.Context, matchID string) ([]domain.AnswerRecord, error) {
	raw, err := l.client.LRange(ctx, l.listKey(matchID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.AnswerRecord, 0, len(raw))
	for _, item := range raw {
		var entry loggedAnswer
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, err
		}
		out = append(out, entry.Record)
	}
	return out, nil
}

func (l *AnswerLog) listKey(matchID string) string {
	return "battle:" + matchID + ":answers"
}

func (l *AnswerLog) markerKey(correlationID string) string {
	return "battle:answer:" + correlationID
}
