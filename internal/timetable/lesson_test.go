package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	start, err := ParseSemesterStart("2024-09-02")
	require.NoError(t, err)

	for _, week := range []int{0, 1, 51} {
		for day := 0; day < len(Weekdays); day++ {
			got := DateOf(start, week, day)
			expected := start.AddDate(0, 0, 7*week+day)
			require.Equal(t, expected, got, "week %d day %d", week, day)
			// the semester starts on a monday, so the weekday index is the offset from monday
			require.Equal(t, time.Weekday((day+1)%7), got.Weekday())
		}
	}

	require.Equal(t, time.Date(2025, time.August, 30, 0, 0, 0, 0, time.UTC), DateOf(start, 51, 5))
	// only the calendar date of the semester start matters
	require.Equal(t, DateOf(start, 1, 2), DateOf(start.Add(15*time.Hour), 1, 2))
}

func TestCurrentWeek(t *testing.T) {
	start, err := ParseSemesterStart("2024-09-02")
	require.NoError(t, err)
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	table := []struct {
		now      time.Time
		expected int
	}{
		{now: time.Date(2024, time.August, 20, 12, 0, 0, 0, moscow), expected: 0},
		{now: time.Date(2024, time.September, 2, 0, 30, 0, 0, moscow), expected: 0},
		{now: time.Date(2024, time.September, 8, 23, 59, 0, 0, moscow), expected: 0},
		{now: time.Date(2024, time.September, 9, 9, 0, 0, 0, moscow), expected: 1},
		{now: time.Date(2024, time.December, 2, 9, 0, 0, 0, moscow), expected: 13},
	}
	for _, row := range table {
		require.Equal(t, row.expected, CurrentWeek(start, row.now), row.now.String())
	}
}

func TestLessonTimes(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	l := Lesson{
		Date:     time.Date(2024, time.September, 9, 0, 0, 0, 0, time.UTC),
		SlotTime: "13:00-14:35",
	}
	require.Equal(t, 13*60, l.StartMinutes())

	start, end, ok := l.Span(moscow)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, time.September, 9, 13, 0, 0, 0, moscow), start)
	require.Equal(t, time.Date(2024, time.September, 9, 14, 35, 0, 0, moscow), end)

	for _, bad := range []string{"", "нет", "25:00-26:00", "9-10"} {
		l.SlotTime = bad
		require.Equal(t, 0, l.StartMinutes(), bad)
		_, _, ok := l.Span(moscow)
		require.False(t, ok, bad)
	}
}

func TestSplitNames(t *testing.T) {
	l := Lesson{
		Teacher: "Петров П.П.; Сидоров С.С.;",
		Room:    "334, 335",
	}
	require.Equal(t, []string{"Петров П.П.", "Сидоров С.С."}, l.Teachers())
	require.Equal(t, []string{"334", "335"}, l.Rooms())
	require.Nil(t, Lesson{}.Teachers())
}
