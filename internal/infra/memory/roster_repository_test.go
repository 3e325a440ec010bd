package memory

import (
	"context"
	"testing"
	"time"

	"vocab-battle/internal/domain"
)

func TestRosterRepositoryCaches(t *testing.T) {
	loader := &countingLoader{RosterLoader: NewStaticRosterLoader(sampleClasses())}
	repo := NewRosterRepository(loader, time.Minute)

	students, err := repo.ListStudents(context.Background(), "3A")
	if err != nil {
		t.Fatalf("list students: %v", err)
	}
	if len(students) != 2 || loader.calls != 1 {
		t.Fatalf("expected 2 students from one load, got %d students and %d loads", len(students), loader.calls)
	}

	students[0].Name = "mutated"
	again, err := repo.ListStudents(context.Background(), "3A")
	if err != nil {
		t.Fatalf("list students 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if again[0].Name != "Alice" {
		t.Fatalf("cached roster was mutated through a returned slice: %+v", again[0])
	}
}

func TestRosterRepositoryExpires(t *testing.T) {
	loader := &countingLoader{RosterLoader: NewStaticRosterLoader(sampleClasses())}
	repo := NewRosterRepository(loader, time.Minute)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.ListStudents(context.Background(), "3A")
	now = now.Add(2 * time.Minute)
	_, _ = repo.ListStudents(context.Background(), "3A")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestRosterRepositoryListClasses(t *testing.T) {
	repo := NewRosterRepository(NewStaticRosterLoader(sampleClasses()), time.Minute)

	classes, err := repo.ListClasses(context.Background())
	if err != nil {
		t.Fatalf("list classes: %v", err)
	}
	if len(classes) != 2 || classes[0] != "3A" || classes[1] != "3B" {
		t.Fatalf("unexpected classes: %v", classes)
	}
}

func TestRosterRepositoryListClassesFromRoster(t *testing.T) {
	// countingLoader hides ListClasses, so classes come from the full roster.
	loader := &countingLoader{RosterLoader: NewStaticRosterLoader(sampleClasses())}
	repo := NewRosterRepository(loader, time.Minute)

	classes, err := repo.ListClasses(context.Background())
	if err != nil {
		t.Fatalf("list classes: %v", err)
	}
	if len(classes) != 2 || classes[1] != "3B" {
		t.Fatalf("unexpected classes: %v", classes)
	}
	_, _ = repo.ListClasses(context.Background())
	if loader.calls != 1 {
		t.Fatalf("expected cached class list, loader calls %d", loader.calls)
	}
}

func TestRosterRepositoryInvalidate(t *testing.T) {
	loader := &countingLoader{RosterLoader: NewStaticRosterLoader(sampleClasses())}
	repo := NewRosterRepository(loader, time.Minute)

	_, _ = repo.ListStudents(context.Background(), "3A")
	_, _ = repo.ListClasses(context.Background())
	if err := repo.Invalidate(context.Background(), "3A"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.ListStudents(context.Background(), "3A")
	_, _ = repo.ListClasses(context.Background())
	if loader.calls != 4 {
		t.Fatalf("expected roster and classes reloaded, loader calls %d", loader.calls)
	}
}

func TestDistinctClassesSkipsEmpty(t *testing.T) {
	got := DistinctClasses([]domain.Student{
		{ID: "a", Class: "4B"},
		{ID: "b"},
		{ID: "c", Class: "3A"},
		{ID: "d", Class: "4B"},
	})
	if len(got) != 2 || got[0] != "3A" || got[1] != "4B" {
		t.Fatalf("unexpected classes: %v", got)
	}
}

func TestStaticRosterLoaderAll(t *testing.T) {
	loader := NewStaticRosterLoader(sampleClasses())

	all, err := loader.LoadRoster(context.Background(), "all")
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 3 || all[0].ID != "s1" || all[2].ID != "s3" {
		t.Fatalf("unexpected roster order: %+v", all)
	}

	empty, err := loader.LoadRoster(context.Background(), "9Z")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty roster for unknown class, got %v %v", empty, err)
	}
}

type countingLoader struct {
	RosterLoader
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
		"3B": {
			{ID: "s3", Name: "Chloe", Class: "3B"},
		},
	}
}
