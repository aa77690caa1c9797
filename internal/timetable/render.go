package timetable

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

const (
	messageNoLessons     = "Нет занятий для отображения\n"
	messageNoWeekLessons = "Нет занятий для недели %d\n"
)

type mergeKey struct {
	date    string
	slot    int
	subject string
	room    string
}

// mergedLesson is one line item of the agenda, lessons shared by several
// groups or teachers collapse into one.
type mergedLesson struct {
	date       string
	weekday    string
	slot       int
	slotTime   string
	start      int
	subject    string
	lessonType string
	room       string
	groups     map[string]struct{}
	teachers   map[string]struct{}
}

// Render formats lessons as a week by week agenda. When week is not nil only
// that week is rendered.
func Render(lessons []Lesson, week *int) string {
	if week != nil {
		lessons = InWeek(lessons, *week)
		if len(lessons) == 0 {
			return fmt.Sprintf(messageNoWeekLessons, *week)
		}
	}
	if len(lessons) == 0 {
		return messageNoLessons
	}

	var weekOrder []int
	byWeek := map[int][]Lesson{}
	for _, l := range lessons {
		if _, ok := byWeek[l.Week]; !ok {
			weekOrder = append(weekOrder, l.Week)
		}
		byWeek[l.Week] = append(byWeek[l.Week], l)
	}

	var out strings.Builder
	for _, w := range weekOrder {
		fmt.Fprintf(&out, "Неделя №%d\n\n", w)

		currentDate := ""
		for _, m := range merge(byWeek[w]) {
			if m.date != currentDate {
				fmt.Fprintf(&out, "%s | %s\n\n", m.date, m.weekday)
				currentDate = m.date
			}

			fmt.Fprintf(&out, "%s\n%d. %s | %s\n", m.slotTime, m.slot, m.subject, strings.Join(sortedKeys(m.groups), ", "))
			if m.lessonType != "" {
				out.WriteString(m.lessonType + "\n")
			}
			if len(m.teachers) > 0 {
				out.WriteString(strings.Join(sortedKeys(m.teachers), "; ") + "\n")
			}
			if m.room != "" {
				out.WriteString(m.room + "\n")
			}
			out.WriteString("\n")
		}
	}

	rendered := out.String()
	return rendered[:len(rendered)-1]
}

func merge(lessons []Lesson) []*mergedLesson {
	var order []*mergedLesson
	index := map[mergeKey]*mergedLesson{}

	for _, l := range lessons {
		date := l.Date.Format(DateLayout)
		key := mergeKey{date: date, slot: l.Slot, subject: l.Subject, room: l.Room}

		m, ok := index[key]
		if !ok {
			m = &mergedLesson{
				date:       date,
				weekday:    l.Weekday,
				slot:       l.Slot,
				slotTime:   l.SlotTime,
				start:      l.StartMinutes(),
				subject:    l.Subject,
				lessonType: l.LessonType,
				room:       l.Room,
				groups:     map[string]struct{}{},
				teachers:   map[string]struct{}{},
			}
			index[key] = m
			order = append(order, m)
		}

		if l.Group != "" {
			m.groups[l.Group] = struct{}{}
		}
		for _, t := range l.Teachers() {
			m.teachers[t] = struct{}{}
		}
	}

	slices.SortStableFunc(order, func(a, b *mergedLesson) int {
		return cmp.Or(
			cmp.Compare(a.date, b.date),
			cmp.Compare(a.start, b.start),
		)
	})
	return order
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
