package postgres

import (
	"context"
	"fmt"

	"vocab-battle/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// RosterLoader reads class rosters from the students table.
type RosterLoader struct {
	pool *pgxpool.Pool
}

func NewRosterLoader(pool *pgxpool.Pool) *RosterLoader {
	return &RosterLoader{pool: pool}
}

// LoadRoster returns the students of classID ordered by name; "all" returns every
// student.
func (l *RosterLoader) LoadRoster(ctx context.Context, classID string) ([]domain.Student, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, name, avatar, class
		FROM students
		WHERE $1 = 'all' OR class = $1
		ORDER BY class, name, id`, classID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	defer rows.Close()

	var students []domain.Student
	for rows.Next() {
		var st domain.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Avatar, &st.Class); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return students, nil
}

// ListClasses returns the distinct non-empty class labels.
func (l *RosterLoader) ListClasses(ctx context.Context) ([]string, error) {
	rows, err := l.pool.Query(ctx, `SELECT DISTINCT class FROM students WHERE class <> '' ORDER BY class`)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	var classes []string
	for rows.Next() {
		var class string
		if err := rows.Scan(&class); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}
