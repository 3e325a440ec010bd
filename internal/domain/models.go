package domain

import "time"

// Student is a roster member. Students are owned by the roster provider and only
// referenced by a match.
type Student struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Class  string `json:"class,omitempty"`
}

// MatchConfig is fixed for the lifetime of one match.
type MatchConfig struct {
	QuestionsPerStudent int           `json:"questionsPerStudent" yaml:"questionsPerStudent" validate:"gte=1"`
	MaxTime             time.Duration `json:"maxTime" yaml:"maxTime" validate:"gt=0"`
	BasePoints          int           `json:"basePoints" yaml:"basePoints" validate:"gte=0"`
	MaxBonus            int           `json:"maxBonus" yaml:"maxBonus" validate:"gte=0"`
}

// AnswerRecord is one answered question. Records are appended and never mutated.
type AnswerRecord struct {
	StudentID    string        `json:"studentId"`
	Word         string        `json:"word"`
	Correct      bool          `json:"correct"`
	ResponseTime time.Duration `json:"responseTime"`
	PointsEarned int           `json:"pointsEarned"`
	Sequence     int           `json:"sequence"` // 1-based, per student
	AnsweredAt   time.Time     `json:"answeredAt"`
}

// RankingEntry is a derived view of one student's standing.
type RankingEntry struct {
	Student             Student       `json:"student"`
	TotalScore          int           `json:"totalScore"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
}

// AnswerDetail is the per-answer line shown in a student's history.
type AnswerDetail struct {
	Word         string        `json:"word"`
	Correct      bool          `json:"correct"`
	ResponseTime time.Duration `json:"responseTime"`
	PointsEarned int           `json:"pointsEarned"`
	Sequence     int           `json:"sequence"`
}

// StudentStats summarises one student's answers.
type StudentStats struct {
	Student             Student        `json:"student"`
	TotalScore          int            `json:"totalScore"`
	Answered            int            `json:"answered"`
	Correct             int            `json:"correct"`
	Accuracy            int            `json:"accuracy"` // percent, rounded
	AverageResponseTime time.Duration  `json:"averageResponseTime"`
	Answers             []AnswerDetail `json:"answers"`
}

// Results bundles the rankings and stats computed for a match or window.
type Results struct {
	Rankings []RankingEntry `json:"rankings"`
	Stats    []StudentStats `json:"stats"`
}

// Window bounds records by AnsweredAt: From inclusive, To exclusive. A zero bound
// is open.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Streak tracks consecutive correct or incorrect answers. Cosmetic only.
type Streak struct {
	Correct bool `json:"correct"`
	Length  int  `json:"length"`
}

// MatchState is the snapshot handed to the presentation layer after every transition.
type MatchState struct {
	MatchID         string        `json:"matchId"`
	CurrentStudent  *Student      `json:"currentStudent,omitempty"`
	Finished        bool          `json:"finished"`
	Answered        int           `json:"answered"`
	TotalQuestions  int           `json:"totalQuestions"`
	TimeRemaining   time.Duration `json:"timeRemaining"`
	PotentialPoints int           `json:"potentialPoints"`
	Streak          Streak        `json:"streak"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// EventType distinguishes match events delivered to subscribers.
type EventType string

const (
	EventState   EventType = "state"
	EventWarning EventType = "warning"
)

// MatchEvent is pushed to subscribers of a match.
type MatchEvent struct {
	Type    EventType  `json:"type"`
	State   MatchState `json:"state"`
	Message string     `json:"message,omitempty"`
}
