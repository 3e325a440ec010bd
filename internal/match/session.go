package match

import (
	"fmt"
	"math/rand"
	"time"

	"vocab-battle/internal/domain"
)

// RandomSource picks an index in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// Option customises a Session.
type Option func(*Session)

// WithRandom injects the source used by the turn selector.
func WithRandom(r RandomSource) Option {
	return func(s *Session) { s.rnd = r }
}

// WithClock injects the clock used to stamp answer records.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session holds the state of one match. It is not safe for concurrent use; callers
// serialise access. Record is the only mutator of counts and records.
type Session struct {
	roster       []domain.Student
	index        map[string]int
	config       domain.MatchConfig
	counts       map[string]int
	records      []domain.AnswerRecord
	lastSelected string
	streak       domain.Streak

	rnd RandomSource
	now func() time.Time
}

// NewSession starts a match over roster. The roster must be non-empty with unique
// ids and the config must validate.
func NewSession(roster []domain.Student, cfg domain.MatchConfig, opts ...Option) (*Session, error) {
	if len(roster) == 0 {
		return nil, domain.ErrEmptyRoster
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &Session{
		roster: make([]domain.Student, len(roster)),
		index:  make(map[string]int, len(roster)),
		config: cfg,
		counts: make(map[string]int, len(roster)),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	copy(s.roster, roster)
	for i, st := range s.roster {
		if st.ID == "" {
			return nil, fmt.Errorf("%w: student at position %d has no id", domain.ErrInvalidInput, i)
		}
		if _, dup := s.index[st.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate student id %q", domain.ErrInvalidInput, st.ID)
		}
		s.index[st.ID] = i
		s.counts[st.ID] = 0
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record applies one answer for studentID. Either every part of the state changes
// or none does.
func (s *Session) Record(studentID, word string, correct bool, responseTime time.Duration) (domain.AnswerRecord, error) {
	if len(s.roster) == 0 {
		return domain.AnswerRecord{}, domain.ErrEmptyRoster
	}
	count, ok := s.counts[studentID]
	if !ok {
		return domain.AnswerRecord{}, fmt.Errorf("record %q: %w", studentID, domain.ErrStudentNotFound)
	}
	if count >= s.config.QuestionsPerStudent {
		return domain.AnswerRecord{}, fmt.Errorf("record %q: %w", studentID, domain.ErrQuotaReached)
	}
	if responseTime < 0 {
		responseTime = 0
	}

	rec := domain.AnswerRecord{
		StudentID:    studentID,
		Word:         word,
		Correct:      correct,
		ResponseTime: responseTime,
		PointsEarned: Score(correct, TimeRemaining(responseTime, s.config), s.config),
		Sequence:     count + 1,
		AnsweredAt:   s.now(),
	}
	s.records = append(s.records, rec)
	s.counts[studentID] = count + 1

	if s.streak.Length > 0 && s.streak.Correct == correct {
		s.streak.Length++
	} else {
		s.streak = domain.Streak{Correct: correct, Length: 1}
	}
	return rec, nil
}

// Roster returns a copy of the match roster in its original order.
func (s *Session) Roster() []domain.Student {
	out := make([]domain.Student, len(s.roster))
	copy(out, s.roster)
	return out
}

// Student looks up a roster member by id.
func (s *Session) Student(id string) (domain.Student, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Student{}, false
	}
	return s.roster[i], true
}

func (s *Session) Config() domain.MatchConfig { return s.config }

// Records returns a copy of the answer log.
func (s *Session) Records() []domain.AnswerRecord {
	out := make([]domain.AnswerRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Count is the number of answers recorded for studentID.
func (s *Session) Count(studentID string) int { return s.counts[studentID] }

// Answered is the total number of answers recorded so far.
func (s *Session) Answered() int { return len(s.records) }

// TotalQuestions is the number of answers needed to finish the match.
func (s *Session) TotalQuestions() int {
	return len(s.roster) * s.config.QuestionsPerStudent
}

// Finished reports whether every student has reached the quota.
func (s *Session) Finished() bool {
	return len(s.roster) > 0 && len(s.records) == s.TotalQuestions()
}

func (s *Session) LastSelected() string { return s.lastSelected }

func (s *Session) Streak() domain.Streak { return s.streak }
