package redis

import (
	"context"
	"encoding/json"
	"time"

	"vocab-battle/internal/domain"

	"github.com/redis/go-redis/v9"
)

// TurnAnnouncement is the message published when a student is selected.
type TurnAnnouncement struct {
	MatchID   string         `json:"matchId"`
	Student   domain.Student `json:"student"`
	Announced time.Time      `json:"announcedAt"`
}

// Announcer publishes turn announcements on battle:{matchID}:turns so speech or
// display clients can pick them up.
type Announcer struct {
	client *redis.Client
	now    func() time.Time
}

func NewAnnouncer(client *redis.Client) *Announcer {
	return &Announcer{client: client, now: time.Now}
}

func (a *Announcer) Announce(ctx context.Context, matchID string, student domain.Student) error {
	payload, err := json.Marshal(TurnAnnouncement{
		MatchID:   matchID,
		Student:   student,
		Announced: a.now(),
	})
	if err != nil {
		return err
	}
	return a.client.Publish(ctx, TurnsChannel(matchID), payload).Err()
}

// TurnsChannel names the Pub/Sub channel carrying a match's announcements.
func TurnsChannel(matchID string) string {
	return "battle:" + matchID + ":turns"
}
