package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"vocab-battle/internal/domain"
	"vocab-battle/internal/logger"
	"vocab-battle/internal/match"
	"vocab-battle/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// AllClasses asks the roster provider for every student.
const AllClasses = "all"

// SessionRepository abstracts where live matches are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(m *Match)
	Get(matchID string) (*Match, bool)
	Delete(matchID string)
}

// RosterRepository lists the students of a class, or every student for AllClasses.
type RosterRepository interface {
	ListStudents(ctx context.Context, classID string) ([]domain.Student, error)
}

// ClassDirectory is implemented by roster repositories that can list classes.
type ClassDirectory interface {
	ListClasses(ctx context.Context) ([]string, error)
}

// RosterInvalidator is implemented by caching roster repositories.
type RosterInvalidator interface {
	Invalidate(ctx context.Context, classID string) error
}

// AnswerSink durably stores answer records. correlationID is stable across
// retries of the same record so sinks can deduplicate.
type AnswerSink interface {
	SaveAnswer(ctx context.Context, correlationID, matchID string, rec domain.AnswerRecord) error
}

// Announcer tells the classroom whose turn it is.
type Announcer interface {
	Announce(ctx context.Context, matchID string, student domain.Student) error
}

// StartRequest describes a new match. An empty StudentIDs keeps the whole class.
// A zero Config is replaced by the service defaults.
type StartRequest struct {
	ClassID    string             `json:"classId"`
	StudentIDs []string           `json:"studentIds"`
	Config     domain.MatchConfig `json:"config"`
}

// ServiceOption customises a BattleService.
type ServiceOption func(*BattleService)

func WithAnswerSinks(sinks ...AnswerSink) ServiceOption {
	return func(s *BattleService) { s.sinks = append(s.sinks, sinks...) }
}

func WithAnnouncer(a Announcer) ServiceOption {
	return func(s *BattleService) { s.announcer = a }
}

func WithRetryPolicy(p RetryPolicy) ServiceOption {
	return func(s *BattleService) { s.retry = p }
}

func WithLogger(l *logrus.Entry) ServiceOption {
	return func(s *BattleService) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *BattleService) { s.metrics = m }
}

// WithDefaults sets the match config used when a start request has none.
func WithDefaults(cfg domain.MatchConfig) ServiceOption {
	return func(s *BattleService) { s.defaults = cfg }
}

// WithClock is meant for tests that need deterministic turn timing.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *BattleService) { s.now = now }
}

// WithRandom supplies the selector randomness for every new match.
func WithRandom(newSource func() match.RandomSource) ServiceOption {
	return func(s *BattleService) { s.newRandom = newSource }
}

// BattleService contains the match use cases.
type BattleService struct {
	sessions  SessionRepository
	rosters   RosterRepository
	sinks     []AnswerSink
	announcer Announcer
	retry     RetryPolicy
	log       *logrus.Entry
	metrics   *metrics.Metrics
	defaults  domain.MatchConfig
	now       func() time.Time
	newRandom func() match.RandomSource

	// gate is held shared by every match change and exclusively by Shutdown,
	// so no background work is queued once shutdown has begun.
	gate     sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

func NewBattleService(sessions SessionRepository, rosters RosterRepository, opts ...ServiceOption) *BattleService {
	s := &BattleService{
		sessions: sessions,
		rosters:  rosters,
		retry:    DefaultRetryPolicy(),
		log:      logger.Discard(),
		defaults: domain.MatchConfig{
			QuestionsPerStudent: 3,
			MaxTime:             10 * time.Second,
			BasePoints:          100,
			MaxBonus:            100,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	return s
}

// Start loads the roster, keeps the selected group and opens a new match.
func (s *BattleService) Start(ctx context.Context, req StartRequest) (domain.MatchState, error) {
	if err := s.enter(); err != nil {
		return domain.MatchState{}, err
	}
	defer s.gate.RUnlock()

	classID := req.ClassID
	if classID == "" {
		classID = AllClasses
	}
	students, err := s.rosters.ListStudents(ctx, classID)
	if err != nil {
		return domain.MatchState{}, fmt.Errorf("load roster %q: %w", classID, err)
	}
	roster, err := selectGroup(students, req.StudentIDs)
	if err != nil {
		return domain.MatchState{}, err
	}

	cfg := req.Config
	if cfg == (domain.MatchConfig{}) {
		cfg = s.defaults
	}

	opts := []match.Option{match.WithClock(s.now)}
	if s.newRandom != nil {
		opts = append(opts, match.WithRandom(s.newRandom()))
	}
	session, err := match.NewSession(roster, cfg, opts...)
	if err != nil {
		return domain.MatchState{}, err
	}

	m := newMatchWithClock(uuid.NewString(), session, s.now)
	s.sessions.Save(m)
	s.metrics.MatchesStarted.Inc()
	s.log.WithFields(logrus.Fields{
		"match_id": m.ID(),
		"class_id": classID,
		"students": len(roster),
	}).Info("match started")
	return m.state(), nil
}

// NextTurn selects the next student and starts the question clock. ok is false
// once the match is over. Calling it again before the turn is answered returns
// the active turn without restarting its clock or announcing it twice.
func (s *BattleService) NextTurn(ctx context.Context, matchID string) (domain.Student, bool, domain.MatchState, error) {
	if err := s.enter(); err != nil {
		return domain.Student{}, false, domain.MatchState{}, err
	}
	defer s.gate.RUnlock()

	m, err := s.match(matchID)
	if err != nil {
		return domain.Student{}, false, domain.MatchState{}, err
	}
	student, ok, started, state, err := m.next()
	if err != nil {
		return domain.Student{}, false, domain.MatchState{}, err
	}
	if started {
		s.announce(matchID, student)
	}
	return student, ok, state, nil
}

// SubmitAnswer records the answer of the student whose turn is active. The
// record is committed locally before persistence starts.
func (s *BattleService) SubmitAnswer(ctx context.Context, matchID, word string, correct bool) (domain.AnswerRecord, domain.MatchState, error) {
	if err := s.enter(); err != nil {
		return domain.AnswerRecord{}, domain.MatchState{}, err
	}
	defer s.gate.RUnlock()

	m, err := s.match(matchID)
	if err != nil {
		return domain.AnswerRecord{}, domain.MatchState{}, err
	}
	rec, state, err := m.answer(word, correct)
	if err != nil {
		return domain.AnswerRecord{}, domain.MatchState{}, err
	}

	s.metrics.AnswersRecorded.WithLabelValues(strconv.FormatBool(correct)).Inc()
	s.metrics.ResponseTime.Observe(rec.ResponseTime.Seconds())
	if state.Finished {
		s.metrics.MatchesFinished.Inc()
		s.log.WithField("match_id", matchID).Info("match finished")
	}
	s.persist(m, rec)
	return rec, state, nil
}

// State returns the current snapshot of a match.
func (s *BattleService) State(_ context.Context, matchID string) (domain.MatchState, error) {
	m, err := s.match(matchID)
	if err != nil {
		return domain.MatchState{}, err
	}
	return m.state(), nil
}

// Results ranks the match's answers inside window.
func (s *BattleService) Results(_ context.Context, matchID string, window domain.Window) (domain.Results, error) {
	m, err := s.match(matchID)
	if err != nil {
		return domain.Results{}, err
	}
	return m.results(window)
}

// Subscribe returns a channel of match events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *BattleService) Subscribe(_ context.Context, matchID string) (<-chan domain.MatchEvent, func(), error) {
	m, err := s.match(matchID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := m.subscribe()
	return ch, cancel, nil
}

// Abandon discards a match. In-flight persistence is left to finish on its own.
func (s *BattleService) Abandon(_ context.Context, matchID string) error {
	m, err := s.match(matchID)
	if err != nil {
		return err
	}
	s.sessions.Delete(matchID)
	m.close()
	s.log.WithField("match_id", matchID).Info("match abandoned")
	return nil
}

// Classes lists the classes a match can be started for.
func (s *BattleService) Classes(ctx context.Context) ([]string, error) {
	if dir, ok := s.rosters.(ClassDirectory); ok {
		return dir.ListClasses(ctx)
	}
	students, err := s.rosters.ListStudents(ctx, AllClasses)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	classes := []string{}
	for _, st := range students {
		if st.Class != "" && !seen[st.Class] {
			seen[st.Class] = true
			classes = append(classes, st.Class)
		}
	}
	sort.Strings(classes)
	return classes, nil
}

// RefreshRoster drops any cached roster of classID so the next match sees
// students added since. It is a no-op for uncached repositories.
func (s *BattleService) RefreshRoster(ctx context.Context, classID string) error {
	inv, ok := s.rosters.(RosterInvalidator)
	if !ok {
		return nil
	}
	if err := inv.Invalidate(ctx, classID); err != nil {
		return fmt.Errorf("refresh roster %q: %w", classID, err)
	}
	s.log.WithField("class_id", classID).Info("roster cache cleared")
	return nil
}

// Wait blocks until background persistence and announcements have finished.
func (s *BattleService) Wait() {
	s.inflight.Wait()
}

// Shutdown rejects further match changes with domain.ErrShuttingDown and then
// waits for background work. Call it before closing the stores.
func (s *BattleService) Shutdown() {
	s.gate.Lock()
	s.closed = true
	s.gate.Unlock()
	s.inflight.Wait()
}

// enter takes the shared gate. The caller releases it with s.gate.RUnlock.
func (s *BattleService) enter() error {
	s.gate.RLock()
	if s.closed {
		s.gate.RUnlock()
		return domain.ErrShuttingDown
	}
	return nil
}

func (s *BattleService) match(matchID string) (*Match, error) {
	m, ok := s.sessions.Get(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMatchNotFound, matchID)
	}
	return m, nil
}

func (s *BattleService) announce(matchID string, student domain.Student) {
	if s.announcer == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.announcer.Announce(ctx, matchID, student); err != nil {
			s.metrics.AnnouncementFailure.Inc()
			s.log.WithFields(logrus.Fields{
				"match_id":   matchID,
				"student_id": student.ID,
			}).WithError(err).Warn("announce turn failed")
		}
	}()
}

func (s *BattleService) persist(m *Match, rec domain.AnswerRecord) {
	correlationID := uuid.NewString()
	for _, sink := range s.sinks {
		s.inflight.Add(1)
		go func(sink AnswerSink) {
			defer s.inflight.Done()
			log := s.log.WithFields(logrus.Fields{
				"match_id":       m.ID(),
				"student_id":     rec.StudentID,
				"correlation_id": correlationID,
			})

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			attempt := 0
			err := s.retry.Do(ctx, func(ctx context.Context) error {
				attempt++
				return sink.SaveAnswer(ctx, correlationID, m.ID(), rec)
			}, func(err error, wait time.Duration) {
				log.WithError(err).WithFields(logrus.Fields{
					"attempt": attempt,
					"wait":    wait.String(),
				}).Debug("retrying answer persistence")
			})
			if err != nil {
				s.metrics.PersistenceResults.WithLabelValues("failed").Inc()
				log.WithError(err).Warn("answer not saved")
				m.warn("result not saved")
				return
			}
			s.metrics.PersistenceResults.WithLabelValues("saved").Inc()
		}(sink)
	}
}

// selectGroup keeps the requested students in roster order.
func selectGroup(students []domain.Student, ids []string) ([]domain.Student, error) {
	if len(ids) == 0 {
		if len(students) == 0 {
			return nil, domain.ErrEmptyRoster
		}
		return students, nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	group := make([]domain.Student, 0, len(ids))
	for _, st := range students {
		if wanted[st.ID] {
			group = append(group, st)
			delete(wanted, st.ID)
		}
	}
	for _, id := range ids {
		if wanted[id] {
			return nil, fmt.Errorf("%w: student %q is not in the class", domain.ErrInvalidInput, id)
		}
	}
	if len(group) == 0 {
		return nil, domain.ErrEmptyRoster
	}
	return group, nil
}
