package timetable

import (
	"strconv"
	"strings"
	"time"
)

// Weekdays are the display names of the portal's day columns, Monday first.
var Weekdays = [...]string{
	"Понедельник",
	"Вторник",
	"Среда",
	"Четверг",
	"Пятница",
	"Суббота",
}

const (
	// DateLayout is the layout of lesson dates in snapshots and rendered output.
	DateLayout = "2006.01.02"
	// ConfigDateLayout is the layout of the semester start in configuration.
	ConfigDateLayout = "2006-01-02"

	LastSlot = 7
	// LastSlotTime is the span of the evening slot, its row label carries no time.
	LastSlotTime = "20:00-21:35"
)

// Entity is a group, teacher or classroom as listed by the portal.
type Entity struct {
	ID   string
	Name string
}

// Lesson is one lesson on one concrete date.
type Lesson struct {
	Group        string
	Date         time.Time
	Weekday      string
	WeekdayIndex int
	Week         int
	Slot         int
	SlotTime     string
	Subject      string
	LessonType   string
	// Teacher may hold several names separated by ';'.
	Teacher string
	Room    string
}

// DateOf returns semesterStart + 7*week + weekday days as a UTC date.
func DateOf(semesterStart time.Time, week, weekday int) time.Time {
	start := time.Date(semesterStart.Year(), semesterStart.Month(), semesterStart.Day(), 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, week*7+weekday)
}

// ParseSemesterStart parses a YYYY-MM-DD date, as written in configuration.
func ParseSemesterStart(s string) (time.Time, error) {
	return time.ParseInLocation(ConfigDateLayout, strings.TrimSpace(s), time.UTC)
}

// CurrentWeek returns the number of the week containing now, counted from
// the semester start. Dates before the semester map to week 0.
func CurrentWeek(semesterStart, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := DateOf(semesterStart, 0, 0)
	days := int(today.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 7
}

// StartMinutes returns the minutes after midnight at which the lesson starts,
// slot times that do not start with HH:MM sort as 00:00.
func (l Lesson) StartMinutes() int {
	start, _, _ := strings.Cut(l.SlotTime, "-")
	minutes, ok := parseClock(start)
	if !ok {
		return 0
	}
	return minutes
}

// Span returns the start and end instants of the lesson in loc.
func (l Lesson) Span(loc *time.Location) (time.Time, time.Time, bool) {
	startStr, endStr, found := strings.Cut(l.SlotTime, "-")
	if !found {
		return time.Time{}, time.Time{}, false
	}
	start, ok := parseClock(startStr)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := parseClock(endStr)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	day := time.Date(l.Date.Year(), l.Date.Month(), l.Date.Day(), 0, 0, 0, 0, loc)
	return day.Add(time.Duration(start) * time.Minute), day.Add(time.Duration(end) * time.Minute), true
}

func parseClock(s string) (int, bool) {
	hourStr, minuteStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// Teachers splits the teacher field on ';'.
func (l Lesson) Teachers() []string {
	return splitNames(l.Teacher, ";")
}

// Rooms splits the room field on ','.
func (l Lesson) Rooms() []string {
	return splitNames(l.Room, ",")
}

func splitNames(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
