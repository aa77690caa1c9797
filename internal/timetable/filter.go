package timetable

import (
	"cmp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

// ByTeacher returns every lesson in the aggregate whose teacher field contains
// substr, ordered by (week, weekday, start time).
func ByTeacher(agg Aggregate, substr string) []Lesson {
	return filterSorted(agg, func(l Lesson) bool {
		return l.Teacher != "" && strings.Contains(l.Teacher, substr)
	})
}

// ByClassroom is ByTeacher over the room field.
func ByClassroom(agg Aggregate, substr string) []Lesson {
	return filterSorted(agg, func(l Lesson) bool {
		return l.Room != "" && strings.Contains(l.Room, substr)
	})
}

func filterSorted(agg Aggregate, keep func(Lesson) bool) []Lesson {
	var out []Lesson
	for _, g := range agg.Groups() {
		for _, l := range g.Lessons {
			if keep(l) {
				out = append(out, l)
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Lesson) int {
		return cmp.Or(
			cmp.Compare(a.Week, b.Week),
			cmp.Compare(a.WeekdayIndex, b.WeekdayIndex),
			cmp.Compare(a.StartMinutes(), b.StartMinutes()),
		)
	})
	return out
}

// InWeek returns the lessons of a single week, keeping their order.
func InWeek(lessons []Lesson, week int) []Lesson {
	var out []Lesson
	for _, l := range lessons {
		if l.Week == week {
			out = append(out, l)
		}
	}
	return out
}

// TeacherNames returns every distinct teacher name in the aggregate, sorted.
func TeacherNames(agg Aggregate) []string {
	return distinct(agg, Lesson.Teachers)
}

// RoomNames returns every distinct room in the aggregate, sorted.
func RoomNames(agg Aggregate) []string {
	return distinct(agg, Lesson.Rooms)
}

func distinct(agg Aggregate, split func(Lesson) []string) []string {
	seen := map[string]struct{}{}
	for _, g := range agg.Groups() {
		for _, l := range g.Lessons {
			for _, name := range split(l) {
				seen[name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

type suggestion struct {
	name  string
	score float64
}

// Suggest ranks candidates by Jaro-Winkler similarity to query and returns at
// most n of them, best first.
func Suggest(candidates []string, query string, n int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || n <= 0 {
		return nil
	}

	scored := make([]suggestion, 0, len(candidates))
	for _, c := range candidates {
		lower := strings.ToLower(c)
		score := matchr.JaroWinkler(query, lower, false)
		// a query that matches the start of a name (surname first) outranks
		// any fuzzy match
		if strings.HasPrefix(lower, query) {
			score += 1
		}
		scored = append(scored, suggestion{name: c, score: score})
	}
	slices.SortStableFunc(scored, func(a, b suggestion) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]string, 0, min(n, len(scored)))
	for _, s := range scored[:min(n, len(scored))] {
		out = append(out, s.name)
	}
	return out
}
