package timetable

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ExportICS writes lessons as an iCalendar feed. Slot times are read in loc,
// lessons whose slot time cannot be parsed are skipped.
func ExportICS(w io.Writer, lessons []Lesson, loc *time.Location, now time.Time) (int, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)

	seen := map[string]struct{}{}
	written := 0
	for _, l := range lessons {
		start, end, ok := l.Span(loc)
		if !ok {
			continue
		}

		uid := eventUID(l)
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		event := cal.AddEvent(uid)
		event.SetDtStampTime(now)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(l.Subject)
		if l.Room != "" {
			event.SetLocation(l.Room)
		}

		var description []string
		if l.LessonType != "" {
			description = append(description, l.LessonType)
		}
		if teachers := l.Teachers(); len(teachers) > 0 {
			description = append(description, strings.Join(teachers, "; "))
		}
		if l.Group != "" {
			description = append(description, l.Group)
		}
		event.SetDescription(strings.Join(description, "\n"))
		written++
	}

	return written, cal.SerializeTo(w)
}

// eventUID identifies a lesson by its date, slot and group. Subgroups share
// all three, so the subject and room are hashed in as well.
func eventUID(l Lesson) string {
	h := fnv.New32a()
	h.Write([]byte(l.Subject))
	h.Write([]byte{0})
	h.Write([]byte(l.Room))
	return fmt.Sprintf("%s-%d-%s-%08x@bonchassist", l.Date.Format("20060102"), l.Slot, l.Group, h.Sum32())
}
