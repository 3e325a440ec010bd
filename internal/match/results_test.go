package match

import (
	"testing"
	"time"

	"vocab-battle/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankTieBrokenByAverageTime(t *testing.T) {
	students := roster("A", "B")
	records := []domain.AnswerRecord{
		{StudentID: "A", PointsEarned: 100, ResponseTime: 900 * time.Millisecond, Sequence: 1},
		{StudentID: "B", PointsEarned: 150, ResponseTime: 800 * time.Millisecond, Sequence: 1},
		{StudentID: "A", PointsEarned: 50, ResponseTime: 1100 * time.Millisecond, Sequence: 2},
	}

	ranking, err := Rank(students, records)
	require.NoError(t, err)
	require.Len(t, ranking, 2)

	assert.Equal(t, "B", ranking[0].Student.ID)
	assert.Equal(t, 150, ranking[0].TotalScore)
	assert.Equal(t, 800*time.Millisecond, ranking[0].AverageResponseTime)
	assert.Equal(t, "A", ranking[1].Student.ID)
	assert.Equal(t, 150, ranking[1].TotalScore)
	assert.Equal(t, time.Second, ranking[1].AverageResponseTime)
}

func TestRankStableForFullTies(t *testing.T) {
	students := roster("c", "a", "b")
	records := []domain.AnswerRecord{
		{StudentID: "a", PointsEarned: 10, ResponseTime: time.Second},
		{StudentID: "b", PointsEarned: 10, ResponseTime: time.Second},
		{StudentID: "c", PointsEarned: 10, ResponseTime: time.Second},
	}
	ranking, err := Rank(students, records)
	require.NoError(t, err)

	ids := []string{ranking[0].Student.ID, ranking[1].Student.ID, ranking[2].Student.ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestStatsAccuracyRounds(t *testing.T) {
	records := []domain.AnswerRecord{
		{StudentID: "a", Word: "one", Correct: true, PointsEarned: 120, ResponseTime: time.Second, Sequence: 1},
		{StudentID: "a", Word: "two", Correct: false, ResponseTime: 2 * time.Second, Sequence: 2},
		{StudentID: "a", Word: "three", Correct: true, PointsEarned: 110, ResponseTime: 3 * time.Second, Sequence: 3},
	}
	stats, err := Stats(roster("a"), records)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	st := stats[0]
	assert.Equal(t, 67, st.Accuracy)
	assert.Equal(t, 3, st.Answered)
	assert.Equal(t, 2, st.Correct)
	assert.Equal(t, 230, st.TotalScore)
	assert.Equal(t, 2*time.Second, st.AverageResponseTime)
	require.Len(t, st.Answers, 3)
	assert.Equal(t, domain.AnswerDetail{Word: "two", Correct: false, ResponseTime: 2 * time.Second, Sequence: 2}, st.Answers[1])
}

func TestStatsOrdersHistoryAcrossMatches(t *testing.T) {
	day := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	records := []domain.AnswerRecord{
		{StudentID: "a", Word: "m1-first", Sequence: 1, AnsweredAt: day},
		{StudentID: "a", Word: "m1-second", Sequence: 2, AnsweredAt: day.Add(time.Minute)},
		{StudentID: "a", Word: "m2-first", Sequence: 1, AnsweredAt: day.Add(time.Hour)},
	}
	stats, err := Stats(roster("a"), records)
	require.NoError(t, err)
	require.Len(t, stats[0].Answers, 3)

	words := []string{stats[0].Answers[0].Word, stats[0].Answers[1].Word, stats[0].Answers[2].Word}
	assert.Equal(t, []string{"m1-first", "m1-second", "m2-first"}, words)
}

func TestStatsUsesSequenceForEqualTimes(t *testing.T) {
	records := []domain.AnswerRecord{
		{StudentID: "a", Word: "two", Sequence: 2},
		{StudentID: "a", Word: "one", Sequence: 1},
	}
	stats, err := Stats(roster("a"), records)
	require.NoError(t, err)
	require.Len(t, stats[0].Answers, 2)
	assert.Equal(t, "one", stats[0].Answers[0].Word)
	assert.Equal(t, "two", stats[0].Answers[1].Word)
}

func TestStatsEmptyRecords(t *testing.T) {
	stats, err := Stats(roster("a", "b"), nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	for _, st := range stats {
		assert.Zero(t, st.Accuracy)
		assert.Zero(t, st.TotalScore)
		assert.Zero(t, st.Answered)
		assert.Zero(t, st.AverageResponseTime)
		assert.Empty(t, st.Answers)
	}
}

func TestAggregationRejectsEmptyRoster(t *testing.T) {
	_, err := Rank(nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = Stats([]domain.Student{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = Summarize(nil, nil, domain.Window{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSummarizeFiltersWindow(t *testing.T) {
	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	records := []domain.AnswerRecord{
		{StudentID: "a", Correct: true, PointsEarned: 100, AnsweredAt: monday.AddDate(0, 0, -3)},
		{StudentID: "a", Correct: true, PointsEarned: 150, AnsweredAt: monday},
		{StudentID: "b", Correct: true, PointsEarned: 200, AnsweredAt: monday.Add(2 * time.Hour)},
	}

	res, err := Summarize(roster("a", "b"), records, domain.Window{From: StartOfWeek(monday), To: monday.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, res.Rankings, 2)
	assert.Equal(t, "a", res.Rankings[0].Student.ID)
	assert.Equal(t, 150, res.Rankings[0].TotalScore)
	assert.Zero(t, res.Rankings[1].TotalScore)
	assert.Equal(t, 1, res.Stats[0].Answered)
}

func TestFilterOpenBounds(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.AnswerRecord{{AnsweredAt: ts}, {AnsweredAt: ts.Add(time.Hour)}}

	assert.Len(t, Filter(records, domain.Window{}), 2)
	assert.Len(t, Filter(records, domain.Window{From: ts.Add(time.Minute)}), 1)
	assert.Len(t, Filter(records, domain.Window{To: ts.Add(time.Hour)}), 1)
}
