package sut

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/timetable"

	"github.com/stretchr/testify/require"
)

func TestClientTimetable(t *testing.T) {
	portal := newFakePortal(t)
	portal.timetables["1"] = fixtureString(t, "group_timetable.html")
	portal.timetables["3"] = `<html><body>Расписание не найдено</body></html>`

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewClient(portal.newSession(t), &telemetry.Recorder{})

	lessons, err := client.Timetable(ctx, "205.2425/1", GroupQuery(timetable.Entity{ID: "1", Name: "ИКПИ-22"}))
	require.NoError(t, err)
	require.Len(t, lessons, 7)
	for _, l := range lessons {
		require.Equal(t, "ИКПИ-22", l.Group)
	}

	_, err = client.Timetable(ctx, "205.2425/1", GroupQuery(timetable.Entity{ID: "2", Name: "ГРУППА-Б"}))
	require.True(t, errors.Is(err, ErrServer))

	_, err = client.Timetable(ctx, "205.2425/1", GroupQuery(timetable.Entity{ID: "3", Name: "ГРУППА-В"}))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestQueryValues(t *testing.T) {
	table := []struct {
		query    Query
		expected string
	}{
		{query: GroupQuery(timetable.Entity{ID: "55012"}), expected: "group=55012&schet=T&type_z=1"},
		{query: TeacherQuery(timetable.Entity{ID: "1203"}), expected: "prep=1203&schet=T&type_z=2"},
		{query: ClassroomQuery(timetable.Entity{ID: "77"}), expected: "aud=77&schet=T&type_z=3"},
	}
	for _, row := range table {
		require.Equal(t, row.expected, row.query.values("T").Encode())
	}
}

func TestAggregateAllGroups(t *testing.T) {
	portal := newFakePortal(t)
	portal.timetables["1"] = singleLessonPage("Физика", "(1,2)")
	// group 2 answers 500
	portal.timetables["3"] = singleLessonPage("Химия", "(3)")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var progress []int
	var totals []int
	aggregator := timetable.NewAggregator(
		NewClient(portal.newSession(t), &telemetry.Recorder{}),
		timetable.AggregatorOptions{
			ConcurrencyLimit: 2,
			OnProgress: func(done, total int) {
				mu.Lock()
				defer mu.Unlock()
				progress = append(progress, done)
				totals = append(totals, total)
			},
		},
		&telemetry.Recorder{},
	)

	agg, err := aggregator.All(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"ГРУППА-А", "ГРУППА-В"}, agg.GroupNames())

	a, ok := agg.Lookup("ГРУППА-А")
	require.True(t, ok)
	require.Len(t, a, 2)
	_, ok = agg.Lookup("ГРУППА-Б")
	require.False(t, ok)

	require.ElementsMatch(t, []int{1, 2, 3}, progress)
	require.Equal(t, []int{3, 3, 3}, totals)
}
