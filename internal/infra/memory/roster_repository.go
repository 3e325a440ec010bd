package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"vocab-battle/internal/domain"

	"golang.org/x/sync/singleflight"
)

// RosterLoader fetches class rosters from a backing store (e.g., Postgres).
type RosterLoader interface {
	LoadRoster(ctx context.Context, classID string) ([]domain.Student, error)
}

// ClassLister is implemented by loaders that can list class ids without loading
// every student.
type ClassLister interface {
	ListClasses(ctx context.Context) ([]string, error)
}

const classesFlight = "\x00classes"

// RosterRepository caches rosters with TTL to avoid repeated DB hits.
type RosterRepository struct {
	loader RosterLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu      sync.RWMutex
	cache   map[string]cachedRoster
	classes cachedClasses
}

type cachedClasses struct {
	ids       []string
	expiresAt time.Time
}

type cachedRoster struct {
	students  []domain.Student
	expiresAt time.Time
}

func NewRosterRepository(loader RosterLoader, ttl time.Duration) *RosterRepository {
	return &RosterRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedRoster),
	}
}

func (r *RosterRepository) ListStudents(ctx context.Context, classID string) ([]domain.Student, error) {
	if students, ok := r.cached(classID); ok {
		return students, nil
	}

	result, err, _ := r.sf.Do(classID, func() (interface{}, error) {
		if students, ok := r.cached(classID); ok {
			return students, nil
		}

		students, err := r.loader.LoadRoster(ctx, classID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[classID] = cachedRoster{
			students:  students,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return students, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneStudents(result.([]domain.Student)), nil
}

// ListClasses returns the known class ids, cached with the same TTL as rosters.
func (r *RosterRepository) ListClasses(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	entry := r.classes
	r.mu.RUnlock()
	if entry.expiresAt.After(r.clock()) {
		return cloneStrings(entry.ids), nil
	}

	result, err, _ := r.sf.Do(classesFlight, func() (interface{}, error) {
		ids, err := loadClasses(ctx, r.loader)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.classes = cachedClasses{ids: ids, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneStrings(result.([]string)), nil
}

// Invalidate drops the cached roster of classID together with the "all" roster
// and the class list, so the next read goes to the loader.
func (r *RosterRepository) Invalidate(_ context.Context, classID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, classID)
	delete(r.cache, "all")
	r.classes = cachedClasses{}
	return nil
}

func (r *RosterRepository) cached(classID string) ([]domain.Student, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[classID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return cloneStudents(entry.students), true
}

func (r *RosterRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticRosterLoader is a simple loader backed by an in-memory map of class id to
// students (useful for tests/demos).
type StaticRosterLoader struct {
	classes map[string][]domain.Student
}

func NewStaticRosterLoader(classes map[string][]domain.Student) *StaticRosterLoader {
	return &StaticRosterLoader{classes: classes}
}

// LoadRoster returns the class roster. "all" concatenates every class ordered by
// class id. An unknown class yields an empty roster.
func (l *StaticRosterLoader) LoadRoster(ctx context.Context, classID string) ([]domain.Student, error) {
	if classID != "all" {
		return cloneStudents(l.classes[classID]), nil
	}
	ids, _ := l.ListClasses(ctx)
	var out []domain.Student
	for _, id := range ids {
		out = append(out, l.classes[id]...)
	}
	return out, nil
}

// ListClasses returns the class ids in sorted order.
func (l *StaticRosterLoader) ListClasses(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(l.classes))
	for id := range l.classes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// loadClasses asks the loader for class ids, falling back to the distinct
// classes of the full roster.
func loadClasses(ctx context.Context, loader RosterLoader) ([]string, error) {
	if lister, ok := loader.(ClassLister); ok {
		return lister.ListClasses(ctx)
	}
	students, err := loader.LoadRoster(ctx, "all")
	if err != nil {
		return nil, err
	}
	return DistinctClasses(students), nil
}

// DistinctClasses collects the non-empty class ids of students in sorted order.
func DistinctClasses(students []domain.Student) []string {
	seen := make(map[string]struct{})
	ids := []string{}
	for _, st := range students {
		if st.Class == "" {
			continue
		}
		if _, ok := seen[st.Class]; ok {
			continue
		}
		seen[st.Class] = struct{}{}
		ids = append(ids, st.Class)
	}
	sort.Strings(ids)
	return ids
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneStudents(in []domain.Student) []domain.Student {
	out := make([]domain.Student, len(in))
	copy(out, in)
	return out
}
