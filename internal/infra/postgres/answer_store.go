package postgres

import (
	"context"
	"fmt"
	"time"

	"vocab-battle/internal/domain"

	"github.com/uptrace/bun"
)

// answerRow maps the answer_records table. The correlation id is the primary key,
// so a retried insert of the same record is a no-op.
type answerRow struct {
	bun.BaseModel `bun:"table:answer_records,alias:ar"`

	ID             string    `bun:"id,pk"`
	MatchID        string    `bun:"match_id,notnull"`
	StudentID      string    `bun:"student_id,notnull"`
	Word           string    `bun:"word,notnull"`
	Correct        bool      `bun:"correct,notnull"`
	ResponseTimeMs int64     `bun:"response_time_ms,notnull"`
	PointsEarned   int       `bun:"points_earned,notnull"`
	Sequence       int       `bun:"sequence,notnull"`
	AnsweredAt     time.Time `bun:"answered_at,notnull"`
}

// AnswerStore persists answer records with bun and reads them back for reports.
type AnswerStore struct {
	db *bun.DB
}

func NewAnswerStore(db *bun.DB) *AnswerStore {
	return &AnswerStore{db: db}
}

func (s *AnswerStore) SaveAnswer(ctx context.Context, correlationID, matchID string, rec domain.AnswerRecord) error {
	row := &answerRow{
		ID:             correlationID,
		MatchID:        matchID,
		StudentID:      rec.StudentID,
		Word:           rec.Word,
		Correct:        rec.Correct,
		ResponseTimeMs: rec.ResponseTime.Milliseconds(),
		PointsEarned:   rec.PointsEarned,
		Sequence:       rec.Sequence,
		AnsweredAt:     rec.AnsweredAt,
	}
	if _, err := s.db.NewInsert().Model(row).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// ListAnswers returns the answers of studentIDs inside window, oldest first.
func (s *AnswerStore) ListAnswers(ctx context.Context, studentIDs []string, window domain.Window) ([]domain.AnswerRecord, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	var rows []answerRow
	q := s.db.NewSelect().Model(&rows).Where("ar.student_id IN (?)", bun.In(studentIDs))
	if !window.From.IsZero() {
		q = q.Where("ar.answered_at >= ?", window.From)
	}
	if !window.To.IsZero() {
		q = q.Where("ar.answered_at < ?", window.To)
	}
	if err := q.Order("ar.answered_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	out := make([]domain.AnswerRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.AnswerRecord{
			StudentID:    r.StudentID,
			Word:         r.Word,
			Correct:      r.Correct,
			ResponseTime: time.Duration(r.ResponseTimeMs) * time.Millisecond,
			PointsEarned: r.PointsEarned,
			Sequence:     r.Sequence,
			AnsweredAt:   r.AnsweredAt,
		})
	}
	return out, nil
}
