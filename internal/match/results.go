package match

import (
	"fmt"
	"math"
	"sort"
	"time"

	"vocab-battle/internal/domain"
)

type tally struct {
	student  domain.Student
	total    int
	answered int
	correct  int
	timeSum  time.Duration
	avgTime  time.Duration
	accuracy int
	answers  []domain.AnswerDetail
}

// Rank orders the roster by total score (desc), then average response time (asc).
// Students tied on both keep their roster order.
func Rank(roster []domain.Student, records []domain.AnswerRecord) ([]domain.RankingEntry, error) {
	tallies, err := rankedTallies(roster, records)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.RankingEntry, 0, len(tallies))
	for _, t := range tallies {
		entries = append(entries, domain.RankingEntry{
			Student:             t.student,
			TotalScore:          t.total,
			AverageResponseTime: t.avgTime,
		})
	}
	return entries, nil
}

// Stats computes per-student statistics, in ranking order.
func Stats(roster []domain.Student, records []domain.AnswerRecord) ([]domain.StudentStats, error) {
	tallies, err := rankedTallies(roster, records)
	if err != nil {
		return nil, err
	}
	stats := make([]domain.StudentStats, 0, len(tallies))
	for _, t := range tallies {
		stats = append(stats, domain.StudentStats{
			Student:             t.student,
			TotalScore:          t.total,
			Answered:            t.answered,
			Correct:             t.correct,
			Accuracy:            t.accuracy,
			AverageResponseTime: t.avgTime,
			Answers:             t.answers,
		})
	}
	return stats, nil
}

// Summarize filters records to the window and computes rankings and stats.
func Summarize(roster []domain.Student, records []domain.AnswerRecord, window domain.Window) (domain.Results, error) {
	filtered := Filter(records, window)
	rankings, err := Rank(roster, filtered)
	if err != nil {
		return domain.Results{}, err
	}
	stats, err := Stats(roster, filtered)
	if err != nil {
		return domain.Results{}, err
	}
	return domain.Results{Rankings: rankings, Stats: stats}, nil
}

// Filter keeps the records answered inside window. The input is not modified.
func Filter(records []domain.AnswerRecord, window domain.Window) []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, 0, len(records))
	for _, r := range records {
		if !window.From.IsZero() && r.AnsweredAt.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && !r.AnsweredAt.Before(window.To) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func rankedTallies(roster []domain.Student, records []domain.AnswerRecord) ([]*tally, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", domain.ErrInvalidInput)
	}

	tallies := make([]*tally, 0, len(roster))
	byID := make(map[string]*tally, len(roster))
	for _, st := range roster {
		t := &tally{student: st, answers: []domain.AnswerDetail{}}
		tallies = append(tallies, t)
		byID[st.ID] = t
	}

	// Sequence restarts in every match, so history spanning several matches is
	// ordered by answer time first.
	ordered := make([]domain.AnswerRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].AnsweredAt.Equal(ordered[j].AnsweredAt) {
			return ordered[i].AnsweredAt.Before(ordered[j].AnsweredAt)
		}
		return ordered[i].Sequence < ordered[j].Sequence
	})

	// Records for students outside the roster are ignored.
	for _, r := range ordered {
		t, ok := byID[r.StudentID]
		if !ok {
			continue
		}
		t.answered++
		t.total += r.PointsEarned
		t.timeSum += r.ResponseTime
		if r.Correct {
			t.correct++
		}
		t.answers = append(t.answers, domain.AnswerDetail{
			Word:         r.Word,
			Correct:      r.Correct,
			ResponseTime: r.ResponseTime,
			PointsEarned: r.PointsEarned,
			Sequence:     r.Sequence,
		})
	}

	for _, t := range tallies {
		if t.answered == 0 {
			continue
		}
		t.avgTime = t.timeSum / time.Duration(t.answered)
		t.accuracy = int(math.Round(100 * float64(t.correct) / float64(t.answered)))
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		if tallies[i].total != tallies[j].total {
			return tallies[i].total > tallies[j].total
		}
		return tallies[i].avgTime < tallies[j].avgTime
	})
	return tallies, nil
}
