package memory

import (
	"context"
	"sort"
	"sync"

	"vocab-battle/internal/domain"
	"vocab-battle/internal/match"
)

// AnswerSink keeps answer records in memory. It deduplicates on correlation id and
// doubles as an answer history for reports when no database is configured.
type AnswerSink struct {
	mu      sync.RWMutex
	seen    map[string]struct{}
	records []storedAnswer
}

type storedAnswer struct {
	matchID string
	record  domain.AnswerRecord
}

func NewAnswerSink() *AnswerSink {
	return &AnswerSink{seen: make(map[string]struct{})}
}

func (s *AnswerSink) SaveAnswer(_ context.Context, correlationID, matchID string, rec domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[correlationID]; dup {
		return nil
	}
	s.seen[correlationID] = struct{}{}
	s.records = append(s.records, storedAnswer{matchID: matchID, record: rec})
	return nil
}

// ListAnswers returns the stored answers of the given students inside window,
// oldest first.
func (s *AnswerSink) ListAnswers(_ context.Context, studentIDs []string, window domain.Window) ([]domain.AnswerRecord, error) {
	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}

	s.mu.RLock()
	out := make([]domain.AnswerRecord, 0, len(s.records))
	for _, stored := range s.records {
		r := stored.record
		if !wanted[r.StudentID] {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	out = match.Filter(out, window)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AnsweredAt.Before(out[j].AnsweredAt)
	})
	return out, nil
}

// Len reports how many distinct answers were stored.
func (s *AnswerSink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
