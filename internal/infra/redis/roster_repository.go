package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"vocab-battle/internal/domain"
	"vocab-battle/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RosterLoader fetches class rosters from a backing store (e.g., Postgres).
type RosterLoader interface {
	LoadRoster(ctx context.Context, classID string) ([]domain.Student, error)
}

const classesKey = "battle:classes"

// RosterRepository caches rosters in Redis as a JSON array and falls back to a
// loader on cache miss.
// Rosters are stored as: SET battle:roster:{classID} [{"id":...}, ...]
type RosterRepository struct {
	client *redis.Client
	loader RosterLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewRosterRepository(client *redis.Client, loader RosterLoader, ttl time.Duration) *RosterRepository {
	return &RosterRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RosterRepository) ListStudents(ctx context.Context, classID string) ([]domain.Student, error) {
	if students, ok := r.cached(ctx, classID); ok {
		return students, nil
	}

	result, err, _ := r.sf.Do(classID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if students, ok := r.cached(ctx, classID); ok {
			return students, nil
		}

		students, err := r.loader.LoadRoster(ctx, classID)
		if err != nil {
			return nil, err
		}
		// Empty rosters are not cached so a newly filled class shows up at once.
		if len(students) > 0 {
			if raw, err := json.Marshal(students); err == nil {
				_ = r.client.Set(ctx, r.key(classID), raw, r.ttlWithJitter()).Err()
			}
		}
		return students, nil
	})
	if err != nil {
		return nil, err
	}
	students := result.([]domain.Student)
	out := make([]domain.Student, len(students))
	copy(out, students)
	return out, nil
}

// ListClasses returns the class ids, cached as a JSON array under battle:classes.
// Loaders implementing memory.ClassLister are asked directly; otherwise the
// classes are derived from the full roster.
func (r *RosterRepository) ListClasses(ctx context.Context) ([]string, error) {
	if raw, err := r.client.Get(ctx, classesKey).Bytes(); err == nil {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err == nil {
			return ids, nil
		}
	}

	result, err, _ := r.sf.Do(classesKey, func() (interface{}, error) {
		var ids []string
		if lister, ok := r.loader.(memory.ClassLister); ok {
			loaded, err := lister.ListClasses(ctx)
			if err != nil {
				return nil, err
			}
			ids = loaded
		} else {
			students, err := r.loader.LoadRoster(ctx, "all")
			if err != nil {
				return nil, err
			}
			ids = memory.DistinctClasses(students)
		}
		if len(ids) > 0 {
			if raw, err := json.Marshal(ids); err == nil {
				_ = r.client.Set(ctx, classesKey, raw, r.ttlWithJitter()).Err()
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	ids := result.([]string)
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// Invalidate drops the cached roster of a class along with the "all" roster and
// the class list.
func (r *RosterRepository) Invalidate(ctx context.Context, classID string) error {
	return r.client.Del(ctx, r.key(classID), r.key("all"), classesKey).Err()
}

func (r *RosterRepository) cached(ctx context.Context, classID string) ([]domain.Student, bool) {
	raw, err := r.client.Get(ctx, r.key(classID)).Bytes()
	if err != nil {
		// redis.Nil or a cache outage: fall through to the loader
		return nil, false
	}
	var students []domain.Student
	if err := json.Unmarshal(raw, &students); err != nil {
		return nil, false
	}
	return students, true
}

func (r *RosterRepository) key(classID string) string {
	return "battle:roster:" + classID
}

func (r *RosterRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
