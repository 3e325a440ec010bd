package app

import (
	"context"
	"fmt"

	"vocab-battle/internal/domain"
	"vocab-battle/internal/match"
)

// AnswerHistory reads stored answers back for reporting.
type AnswerHistory interface {
	ListAnswers(ctx context.Context, studentIDs []string, window domain.Window) ([]domain.AnswerRecord, error)
}

// HistoryService aggregates stored answers across matches, e.g. for a weekly
// class report.
type HistoryService struct {
	rosters RosterRepository
	history AnswerHistory
}

func NewHistoryService(rosters RosterRepository, history AnswerHistory) *HistoryService {
	return &HistoryService{rosters: rosters, history: history}
}

// Report ranks a class on every stored answer inside window.
func (s *HistoryService) Report(ctx context.Context, classID string, window domain.Window) (domain.Results, error) {
	if classID == "" {
		classID = AllClasses
	}
	roster, err := s.rosters.ListStudents(ctx, classID)
	if err != nil {
		return domain.Results{}, fmt.Errorf("load roster %q: %w", classID, err)
	}
	if len(roster) == 0 {
		return domain.Results{}, domain.ErrEmptyRoster
	}

	ids := make([]string, 0, len(roster))
	for _, st := range roster {
		ids = append(ids, st.ID)
	}
	records, err := s.history.ListAnswers(ctx, ids, window)
	if err != nil {
		return domain.Results{}, fmt.Errorf("list answers: %w", err)
	}
	return match.Summarize(roster, records, window)
}
