package app

import (
	"sync"
	"time"

	"vocab-battle/internal/domain"
	"vocab-battle/internal/match"
)

// Match wraps one session with the turn clock and subscriber fan-out. All
// mutations go through mu, so an answer is applied as one indivisible step.
type Match struct {
	id  string
	now func() time.Time

	mu            sync.Mutex
	session       *match.Session
	turn          *domain.Student
	turnStartedAt time.Time
	closed        bool
	subscribers   map[chan domain.MatchEvent]struct{}
}

// NewMatch wraps a session under id. Exported for infrastructure layers and tests.
func NewMatch(id string, session *match.Session) *Match {
	return newMatchWithClock(id, session, time.Now)
}

func newMatchWithClock(id string, session *match.Session, now func() time.Time) *Match {
	return &Match{
		id:          id,
		now:         now,
		session:     session,
		subscribers: make(map[chan domain.MatchEvent]struct{}),
	}
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.id }

// Finished reports whether every student has answered all their questions.
func (m *Match) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Finished()
}

// next starts a new turn. While a turn is still unanswered it returns that turn
// unchanged with started false, keeping its clock running.
func (m *Match) next() (student domain.Student, ok, started bool, state domain.MatchState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.turn != nil {
		return *m.turn, true, false, m.snapshotLocked(), nil
	}
	student, ok, err = m.session.Next()
	if err != nil {
		return domain.Student{}, false, false, domain.MatchState{}, err
	}
	if ok {
		m.turn = &student
		m.turnStartedAt = m.now()
	}
	return student, ok, ok, m.broadcastLocked(), nil
}

func (m *Match) answer(word string, correct bool) (domain.AnswerRecord, domain.MatchState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.turn == nil {
		return domain.AnswerRecord{}, domain.MatchState{}, domain.ErrNoActiveTurn
	}
	elapsed := m.now().Sub(m.turnStartedAt)
	rec, err := m.session.Record(m.turn.ID, word, correct, elapsed)
	if err != nil {
		return domain.AnswerRecord{}, domain.MatchState{}, err
	}
	m.turn = nil
	return rec, m.broadcastLocked(), nil
}

func (m *Match) state() domain.MatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Match) results(window domain.Window) (domain.Results, error) {
	m.mu.Lock()
	roster := m.session.Roster()
	records := m.session.Records()
	m.mu.Unlock()
	return match.Summarize(roster, records, window)
}

func (m *Match) warn(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishLocked(domain.MatchEvent{Type: domain.EventWarning, State: m.snapshotLocked(), Message: message})
}

func (m *Match) subscribe() (<-chan domain.MatchEvent, func()) {
	ch := make(chan domain.MatchEvent, 8)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	m.subscribers[ch] = struct{}{}
	ch <- domain.MatchEvent{Type: domain.EventState, State: m.snapshotLocked()}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// close ends every subscription; used when a match is abandoned.
func (m *Match) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for ch := range m.subscribers {
		delete(m.subscribers, ch)
		close(ch)
	}
}

func (m *Match) broadcastLocked() domain.MatchState {
	state := m.snapshotLocked()
	m.publishLocked(domain.MatchEvent{Type: domain.EventState, State: state})
	return state
}

func (m *Match) publishLocked(event domain.MatchEvent) {
	for ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			// drop the oldest update so a slow reader never blocks the match
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (m *Match) snapshotLocked() domain.MatchState {
	now := m.now()
	cfg := m.session.Config()
	state := domain.MatchState{
		MatchID:        m.id,
		Finished:       m.session.Finished(),
		Answered:       m.session.Answered(),
		TotalQuestions: m.session.TotalQuestions(),
		Streak:         m.session.Streak(),
		UpdatedAt:      now,
	}
	if m.turn != nil {
		current := *m.turn
		remaining := match.TimeRemaining(now.Sub(m.turnStartedAt), cfg)
		state.CurrentStudent = &current
		state.TimeRemaining = remaining
		state.PotentialPoints = match.Score(true, remaining, cfg)
	}
	return state
}
