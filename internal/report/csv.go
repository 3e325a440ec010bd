package report

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"vocab-battle/internal/domain"
)

// StatsCSV renders per-student statistics, one row per student in the given
// order, with a leading rank column.
func StatsCSV(stats []domain.StudentStats) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"rank", "student_id", "name", "class", "total_score", "answered", "correct", "accuracy", "avg_response_ms"})
	for i, st := range stats {
		rec := []string{
			strconv.Itoa(i + 1),
			st.Student.ID,
			st.Student.Name,
			st.Student.Class,
			strconv.Itoa(st.TotalScore),
			strconv.Itoa(st.Answered),
			strconv.Itoa(st.Correct),
			strconv.Itoa(st.Accuracy),
			strconv.FormatInt(st.AverageResponseTime.Milliseconds(), 10),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// AnswersCSV renders every answer of every student in long format.
func AnswersCSV(stats []domain.StudentStats) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"student_id", "name", "sequence", "word", "correct", "response_ms", "points"})
	for _, st := range stats {
		for _, a := range st.Answers {
			rec := []string{
				st.Student.ID,
				st.Student.Name,
				strconv.Itoa(a.Sequence),
				a.Word,
				strconv.FormatBool(a.Correct),
				strconv.FormatInt(a.ResponseTime.Milliseconds(), 10),
				strconv.Itoa(a.PointsEarned),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
