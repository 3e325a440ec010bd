package redis

import (
	"context"
	"testing"
	"time"

	"vocab-battle/internal/domain"
	"vocab-battle/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRosterRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		RosterLoader: memory.NewStaticRosterLoader(sampleClasses()),
	}
	repo := NewRosterRepository(client, loader, time.Minute)

	students, err := repo.ListStudents(context.Background(), "3A")
	if err != nil {
		t.Fatalf("list students: %v", err)
	}
	if len(students) != 2 || loader.calls != 1 {
		t.Fatalf("expected 2 students from one load, got %d and %d loads", len(students), loader.calls)
	}
	if !mr.Exists("battle:roster:3A") {
		t.Fatalf("expected roster cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	again, _ := repo.ListStudents(context.Background(), "3A")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if again[1].Name != "Bob" {
		t.Fatalf("unexpected cached roster %+v", again)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.ListStudents(context.Background(), "3A")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestRosterRepositoryDoesNotCacheEmptyClass(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewRosterRepository(newClient(mr), memory.NewStaticRosterLoader(sampleClasses()), time.Minute)
	students, err := repo.ListStudents(context.Background(), "9Z")
	if err != nil {
		t.Fatalf("list students: %v", err)
	}
	if len(students) != 0 {
		t.Fatalf("expected empty roster, got %+v", students)
	}
	if mr.Exists("battle:roster:9Z") {
		t.Fatalf("empty roster should not be cached")
	}
}

func TestRosterRepositoryInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewRosterRepository(newClient(mr), memory.NewStaticRosterLoader(sampleClasses()), time.Minute)
	_, _ = repo.ListStudents(context.Background(), "3A")
	if err := repo.Invalidate(context.Background(), "3A"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("battle:roster:3A") {
		t.Fatalf("expected roster key removed")
	}
}

func TestRosterRepositoryListClasses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{RosterLoader: memory.NewStaticRosterLoader(sampleClasses())}
	repo := NewRosterRepository(newClient(mr), loader, time.Minute)

	classes, err := repo.ListClasses(context.Background())
	if err != nil {
		t.Fatalf("list classes: %v", err)
	}
	if len(classes) != 1 || classes[0] != "3A" {
		t.Fatalf("unexpected classes: %v", classes)
	}
	if !mr.Exists("battle:classes") {
		t.Fatalf("expected class list cached in redis")
	}
	_, _ = repo.ListClasses(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	if err := repo.Invalidate(context.Background(), "3A"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("battle:classes") {
		t.Fatalf("expected class list removed on invalidate")
	}
}

type countingLoader struct {
	memory.RosterLoader
	calls int
}

func (l *countingLoader) LoadRoster(ctx context.Context, classID string) ([]domain.Student, error) {
	l.calls++
	return l.RosterLoader.LoadRoster(ctx, classID)
}

func sampleClasses() map[string][]domain.Student {
	return map[string][]domain.Student{
		"3A": {
			{ID: "s1", Name: "Alice", Class: "3A"},
			{ID: "s2", Name: "Bob", Class: "3A"},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
