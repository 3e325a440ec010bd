package http

import (
	"time"

	"vocab-battle/internal/domain"
)

// The presentation layer works in milliseconds; these views convert durations.

type stateView struct {
	MatchID         string          `json:"matchId"`
	CurrentStudent  *domain.Student `json:"currentStudent,omitempty"`
	Finished        bool            `json:"finished"`
	Answered        int             `json:"answered"`
	TotalQuestions  int             `json:"totalQuestions"`
	TimeRemainingMs int64           `json:"timeRemainingMs"`
	PotentialPoints int             `json:"potentialPoints"`
	Streak          domain.Streak   `json:"streak"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type answerView struct {
	StudentID      string    `json:"studentId"`
	Word           string    `json:"word"`
	Correct        bool      `json:"correct"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	PointsEarned   int       `json:"pointsEarned"`
	Sequence       int       `json:"sequence"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

type rankingView struct {
	Rank                  int            `json:"rank"`
	Student               domain.Student `json:"student"`
	TotalScore            int            `json:"totalScore"`
	AverageResponseTimeMs int64          `json:"averageResponseTimeMs"`
}

type answerDetailView struct {
	Word           string `json:"word"`
	Correct        bool   `json:"correct"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	PointsEarned   int    `json:"pointsEarned"`
	Sequence       int    `json:"sequence"`
}

type statsView struct {
	Student               domain.Student     `json:"student"`
	TotalScore            int                `json:"totalScore"`
	Answered              int                `json:"answered"`
	Correct               int                `json:"correct"`
	Accuracy              int                `json:"accuracy"`
	AverageResponseTimeMs int64              `json:"averageResponseTimeMs"`
	Answers               []answerDetailView `json:"answers"`
}

type resultsView struct {
	Rankings []rankingView `json:"rankings"`
	Stats    []statsView   `json:"stats"`
}

func newStateView(s domain.MatchState) stateView {
	return stateView{
		MatchID:         s.MatchID,
		CurrentStudent:  s.CurrentStudent,
		Finished:        s.Finished,
		Answered:        s.Answered,
		TotalQuestions:  s.TotalQuestions,
		TimeRemainingMs: s.TimeRemaining.Milliseconds(),
		PotentialPoints: s.PotentialPoints,
		Streak:          s.Streak,
		UpdatedAt:       s.UpdatedAt,
	}
}

func newAnswerView(r domain.AnswerRecord) answerView {
	return answerView{
		StudentID:      r.StudentID,
		Word:           r.Word,
		Correct:        r.Correct,
		ResponseTimeMs: r.ResponseTime.Milliseconds(),
		PointsEarned:   r.PointsEarned,
		Sequence:       r.Sequence,
		AnsweredAt:     r.AnsweredAt,
	}
}

func newResultsView(res domain.Results) resultsView {
	out := resultsView{
		Rankings: make([]rankingView, 0, len(res.Rankings)),
		Stats:    make([]statsView, 0, len(res.Stats)),
	}
	for i, r := range res.Rankings {
		out.Rankings = append(out.Rankings, rankingView{
			Rank:                  i + 1,
			Student:               r.Student,
			TotalScore:            r.TotalScore,
			AverageResponseTimeMs: r.AverageResponseTime.Milliseconds(),
		})
	}
	for _, st := range res.Stats {
		answers := make([]answerDetailView, 0, len(st.Answers))
		for _, a := range st.Answers {
			answers = append(answers, answerDetailView{
				Word:           a.Word,
				Correct:        a.Correct,
				ResponseTimeMs: a.ResponseTime.Milliseconds(),
				PointsEarned:   a.PointsEarned,
				Sequence:       a.Sequence,
			})
		}
		out.Stats = append(out.Stats, statsView{
			Student:               st.Student,
			TotalScore:            st.TotalScore,
			Answered:              st.Answered,
			Correct:               st.Correct,
			Accuracy:              st.Accuracy,
			AverageResponseTimeMs: st.AverageResponseTime.Milliseconds(),
			Answers:               answers,
		})
	}
	return out
}
