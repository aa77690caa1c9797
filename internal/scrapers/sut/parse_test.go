package sut

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"bonchassist-backend/internal/timetable"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var semesterStart = time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestParseGroupTimetable(t *testing.T) {
	lessons, err := ParseTimetable(openFixture(t, "group_timetable.html"), ParseOptions{
		SemesterStart:    semesterStart,
		BuildingSuffixes: []string{"; Б22"},
		GroupName:        "ИКПИ-22",
	})
	require.NoError(t, err)

	physics := func(week int, d time.Time) timetable.Lesson {
		return timetable.Lesson{
			Group:        "ИКПИ-22",
			Date:         d,
			Weekday:      "Понедельник",
			WeekdayIndex: 0,
			Week:         week,
			Slot:         1,
			SlotTime:     "09:00-10:35",
			Subject:      "Физика",
			LessonType:   "Лекция",
			Teacher:      "Иванов И.И.",
			Room:         "334",
		}
	}
	programming := func(week int, d time.Time) timetable.Lesson {
		return timetable.Lesson{
			Group:        "ИКПИ-22",
			Date:         d,
			Weekday:      "Вторник",
			WeekdayIndex: 1,
			Week:         week,
			Slot:         1,
			SlotTime:     "09:00-10:35",
			Subject:      "Программирование",
			LessonType:   "Практические занятия",
			Teacher:      "Петров П.П.; Сидоров С.С.",
			Room:         "505",
		}
	}
	english := func(week int, d time.Time) timetable.Lesson {
		return timetable.Lesson{
			Group:        "ИКПИ-22",
			Date:         d,
			Weekday:      "Суббота",
			WeekdayIndex: 5,
			Week:         week,
			Slot:         7,
			SlotTime:     "20:00-21:35",
			Subject:      "Английский язык",
		}
	}

	expected := []timetable.Lesson{
		english(0, date(2024, time.September, 7)),
		physics(1, date(2024, time.September, 9)),
		physics(2, date(2024, time.September, 16)),
		programming(2, date(2024, time.September, 17)),
		physics(3, date(2024, time.September, 23)),
		programming(4, date(2024, time.October, 1)),
		english(51, date(2025, time.August, 30)),
	}

	if diff := cmp.Diff(expected, lessons); diff != "" {
		t.Fatalf("unexpected lessons (-want +got):\n%s", diff)
	}
}

func TestParseTeacherTimetable(t *testing.T) {
	lessons, err := ParseTimetable(openFixture(t, "teacher_timetable.html"), ParseOptions{
		SemesterStart:    semesterStart,
		BuildingSuffixes: []string{"; Б22"},
	})
	require.NoError(t, err)
	require.Len(t, lessons, 2)

	require.Equal(t, "ИКПИ-21", lessons[0].Group)
	require.Equal(t, "ИКПИ-22", lessons[1].Group)
	for _, l := range lessons {
		require.Equal(t, 2, l.Slot)
		require.Equal(t, "10:45-12:20", l.SlotTime)
		require.Equal(t, "214/2", l.Room)
		require.Equal(t, "", l.Teacher)
		require.Equal(t, date(2024, time.October, 7), l.Date)
	}
}

func TestParseTimetableFailures(t *testing.T) {
	pair := func(weeks string) string {
		return `<div class="pair"><span class="subect"><strong>Физика</strong></span><span class="weeks">` + weeks + `</span></div>`
	}
	page := func(rows ...string) string {
		return `<table class="simple-little-table"><tr><th></th></tr>` + strings.Join(rows, "") + `</table>`
	}

	table := []struct {
		name     string
		html     string
		expected error
	}{
		{
			name:     "no table",
			html:     `<html><body><p>Нет расписания</p></body></html>`,
			expected: ErrNotFound,
		},
		{
			name:     "bad week token",
			html:     page(`<tr><td>1 (09:00-10:35)</td><td>` + pair("(1,x)") + `</td></tr>`),
			expected: ErrServer,
		},
		{
			name:     "bad slot label",
			html:     page(`<tr><td>первая</td><td>` + pair("(1)") + `</td></tr>`),
			expected: ErrServer,
		},
		{
			name: "too many day columns",
			html: page(`<tr><td>2 (10:45-12:20)</td>` +
				strings.Repeat("<td></td>", 6) +
				`<td>` + pair("(1)") + `</td></tr>`),
			expected: ErrServer,
		},
	}

	for _, row := range table {
		_, err := ParseTimetable(strings.NewReader(row.html), ParseOptions{SemesterStart: semesterStart})
		require.True(t, errors.Is(err, row.expected), "%s: got %v", row.name, err)
	}
}

func TestParseTimetableEmptyRows(t *testing.T) {
	html := `<table class="simple-little-table">
		<tr><th></th></tr>
		<tr><td></td><td></td></tr>
		<tr></tr>
	</table>`
	lessons, err := ParseTimetable(strings.NewReader(html), ParseOptions{SemesterStart: semesterStart})
	require.NoError(t, err)
	require.Len(t, lessons, 0)
}

func TestParseWeeks(t *testing.T) {
	table := []struct {
		input    string
		expected []int
	}{
		{input: "(1,2,3н)", expected: []int{1, 2, 3}},
		{input: "(2*, 4)", expected: []int{2, 4}},
		{input: " (17н) ", expected: []int{17}},
		{input: "()", expected: nil},
		{input: "(н)", expected: nil},
	}
	for _, row := range table {
		weeks, err := ParseWeeks(row.input)
		require.NoError(t, err, row.input)
		require.Equal(t, row.expected, weeks, row.input)
	}

	_, err := ParseWeeks("(1,,2)")
	require.ErrorIs(t, err, ErrServer)
}

func TestParseSlotLabel(t *testing.T) {
	table := []struct {
		label    string
		slot     int
		slotTime string
	}{
		{label: "1 (09:00-10:35)", slot: 1, slotTime: "09:00-10:35"},
		{label: " 4  (14:45-16:20) ", slot: 4, slotTime: "14:45-16:20"},
		{label: "7", slot: 7, slotTime: "20:00-21:35"},
		{label: "7 (19:00-20:35)", slot: 7, slotTime: "20:00-21:35"},
		{label: "5", slot: 5, slotTime: ""},
	}
	for _, row := range table {
		slot, slotTime, err := ParseSlotLabel(row.label)
		require.NoError(t, err)
		require.Equal(t, row.slot, slot)
		require.Equal(t, row.slotTime, slotTime)
	}

	for _, bad := range []string{"", "0 (08:00-09:00)", "8", "x"} {
		_, _, err := ParseSlotLabel(bad)
		require.ErrorIs(t, err, ErrServer, bad)
	}
}
