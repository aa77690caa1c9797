package timetable

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteTable renders lessons as a rounded table, one row per lesson in the
// order given.
func WriteTable(w io.Writer, lessons []Lesson) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Неделя", "Дата", "День", "№", "Время", "Предмет", "Тип", "Преподаватель", "Аудитория", "Группа"})
	for _, l := range lessons {
		t.AppendRow(table.Row{
			l.Week,
			l.Date.Format(DateLayout),
			l.Weekday,
			l.Slot,
			l.SlotTime,
			l.Subject,
			l.LessonType,
			l.Teacher,
			l.Room,
			l.Group,
		})
	}
	t.Render()
}
