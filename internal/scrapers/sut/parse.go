package sut

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"bonchassist-backend/internal/timetable"
	"bonchassist-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNotFound is returned when the portal has no timetable for the query,
	// it is a valid empty result.
	ErrNotFound = errors.New("timetable not found")
	// ErrServer is returned for network faults, bad statuses and pages whose
	// markup does not parse.
	ErrServer = errors.New("timetable unavailable")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: malformed page: %s", ErrServer, fmt.Sprintf(format, args...))
}

type ParseOptions struct {
	SemesterStart    time.Time
	BuildingSuffixes []string
	// GroupName labels every lesson, when empty each lesson block's own group
	// label is used (teacher and classroom pages).
	GroupName string
}

// ParseTimetable reads a timetable page into lessons sorted by (week, weekday).
func ParseTimetable(r io.Reader, options ParseOptions) ([]timetable.Lesson, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrServer, err)
	}

	table := doc.Find("table.simple-little-table").First()
	if table.Length() == 0 {
		return nil, ErrNotFound
	}
	body := table.ChildrenFiltered("tbody").First()
	if body.Length() == 0 {
		return nil, malformed("timetable has no body")
	}

	var lessons []timetable.Lesson
	var parseErr error
	// the first row holds the day headers
	body.ChildrenFiltered("tr").Slice(1, goquery.ToEnd).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		parseErr = parseRow(row, options, &lessons)
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, parseErr
	}

	slices.SortStableFunc(lessons, func(a, b timetable.Lesson) int {
		return cmp.Or(
			cmp.Compare(a.Week, b.Week),
			cmp.Compare(a.WeekdayIndex, b.WeekdayIndex),
		)
	})
	return lessons, nil
}

func parseRow(row *goquery.Selection, options ParseOptions, out *[]timetable.Lesson) error {
	cells := row.ChildrenFiltered("td")
	if cells.Length() == 0 {
		return nil
	}

	label := htmlutil.Text(cells.First())
	slotParsed := false
	var slot int
	var slotTime string

	var err error
	cells.Slice(1, goquery.ToEnd).EachWithBreak(func(day int, cell *goquery.Selection) bool {
		pairs := cell.Find("div.pair")
		if pairs.Length() == 0 {
			return true
		}
		if day >= len(timetable.Weekdays) {
			err = malformed("lesson in day column %d", day)
			return false
		}
		if !slotParsed {
			slot, slotTime, err = ParseSlotLabel(label)
			if err != nil {
				return false
			}
			slotParsed = true
		}

		pairs.EachWithBreak(func(_ int, pair *goquery.Selection) bool {
			err = parsePair(pair, day, slot, slotTime, options, out)
			return err == nil
		})
		return err == nil
	})
	return err
}

func parsePair(pair *goquery.Selection, day, slot int, slotTime string, options ParseOptions, out *[]timetable.Lesson) error {
	subject := htmlutil.Text(pair.Find("span.subect").First().Find("strong").First())
	if subject == "" {
		return nil
	}

	weeksElement := pair.Find("span.weeks").First()
	if weeksElement.Length() == 0 {
		return nil
	}
	weeks, err := ParseWeeks(weeksElement.Text())
	if err != nil {
		return err
	}

	lessonType := ""
	if typeElement := pair.Find("span.type").First(); typeElement.Length() > 0 {
		lessonType = strings.TrimSpace(strings.Trim(strings.TrimSpace(typeElement.Text()), "()"))
	}

	teacher := htmlutil.Text(pair.Find("span.teacher").First())
	room := parseRoom(pair.Find("span.aud").First(), options.BuildingSuffixes)

	group := options.GroupName
	if group == "" {
		group = htmlutil.Text(pair.Find("span.group").First())
	}

	for _, week := range weeks {
		*out = append(*out, timetable.Lesson{
			Group:        group,
			Date:         timetable.DateOf(options.SemesterStart, week, day),
			Weekday:      timetable.Weekdays[day],
			WeekdayIndex: day,
			Week:         week,
			Slot:         slot,
			SlotTime:     slotTime,
			Subject:      subject,
			LessonType:   lessonType,
			Teacher:      teacher,
			Room:         room,
		})
	}
	return nil
}

// room labels look like "ауд.: 334; Б22"
func parseRoom(sel *goquery.Selection, suffixes []string) string {
	if sel.Length() == 0 {
		return ""
	}
	_, room, found := strings.Cut(sel.Text(), ":")
	if !found {
		return ""
	}
	room = strings.TrimSpace(room)
	for _, suffix := range suffixes {
		if suffix != "" {
			room = strings.ReplaceAll(room, suffix, "")
		}
	}
	return strings.TrimSpace(room)
}

// ParseSlotLabel reads the label cell of a timetable row, ex. "3 (13:00-14:35)".
// The last slot of the day carries no time, its span is fixed.
func ParseSlotLabel(label string) (int, string, error) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, "", malformed("empty slot label")
	}
	slot, err := strconv.Atoi(fields[0])
	if err != nil || slot < 1 || slot > timetable.LastSlot {
		return 0, "", malformed("slot label %q", label)
	}
	if slot == timetable.LastSlot {
		return slot, timetable.LastSlotTime, nil
	}
	if len(fields) < 2 {
		return slot, "", nil
	}
	return slot, strings.Trim(fields[1], "()"), nil
}

// ParseWeeks expands a week annotation such as "(1,2,3н)" or "(5*, 7)" into
// week numbers.
func ParseWeeks(annotation string) ([]int, error) {
	s := strings.Trim(strings.TrimSpace(annotation), "()")
	s = strings.ReplaceAll(s, "н", "")
	s = strings.ReplaceAll(s, "*", "")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	weeks := make([]int, 0, len(parts))
	for _, part := range parts {
		week, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || week < 0 {
			return nil, malformed("week annotation %q", annotation)
		}
		weeks = append(weeks, week)
	}
	return weeks, nil
}
