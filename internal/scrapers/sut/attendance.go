package sut

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_attendance_open  = "attendance.open"
	report_attendance_click = "attendance.click"
)

// ErrSessionExpired is returned when the portal no longer accepts the
// session's cookies, the caller should log in again.
var ErrSessionExpired = errors.New("session expired")

// AttendancePage is the current week's lesson list of the personal cabinet.
type AttendancePage struct {
	Week int
	// LessonIDs are the lessons whose attendance button is active.
	LessonIDs []string
}

// ParseAttendancePage reads the week number from the page heading
// ("... №12 ...") and the ids of the attendance buttons (span#knop<id>).
func ParseAttendancePage(doc *goquery.Document) (AttendancePage, error) {
	heading := doc.Find("h3").First()
	if heading.Length() == 0 {
		return AttendancePage{}, fmt.Errorf("attendance page: no week heading")
	}
	_, afterSign, found := strings.Cut(heading.Text(), "№")
	if !found {
		return AttendancePage{}, fmt.Errorf("attendance page: no week number in %q", heading.Text())
	}
	fields := strings.Fields(afterSign)
	if len(fields) == 0 {
		return AttendancePage{}, fmt.Errorf("attendance page: no week number in %q", heading.Text())
	}
	week, err := strconv.Atoi(fields[0])
	if err != nil {
		return AttendancePage{}, fmt.Errorf("attendance page: week %q: %w", fields[0], err)
	}

	page := AttendancePage{Week: week}
	doc.Find(`span[id^="knop"]`).Each(func(_ int, span *goquery.Selection) {
		id, _ := span.Attr("id")
		if lessonId := strings.TrimPrefix(id, "knop"); lessonId != "" {
			page.LessonIDs = append(page.LessonIDs, lessonId)
		}
	})
	return page, nil
}

// OpenAttendance fetches and parses the attendance page. It returns
// ErrSessionExpired when the portal answers with an expiry marker.
func (s *Session) OpenAttendance(ctx context.Context) (AttendancePage, error) {
	body, err := s.Fetch(ctx, s.options.AttendanceURL, nil)
	if err != nil {
		s.tel.ReportWarning(report_attendance_open, err)
		return AttendancePage{}, err
	}
	if IsExpiredMarker(string(body), s.options.Markers) {
		return AttendancePage{}, ErrSessionExpired
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.tel.ReportBroken(report_attendance_open, err)
		return AttendancePage{}, err
	}
	page, err := ParseAttendancePage(doc)
	if err != nil {
		s.tel.ReportBroken(report_attendance_open, err)
		return AttendancePage{}, err
	}
	return page, nil
}

// MarkAttendance presses the attendance button of one lesson.
func (s *Session) MarkAttendance(ctx context.Context, lessonId string, week int) error {
	query := url.Values{}
	query.Set("open", "1")
	query.Set("rasp", lessonId)
	query.Set("week", strconv.Itoa(week))

	_, err := s.Post(ctx, s.options.AttendanceURL, query)
	if err != nil {
		s.tel.ReportWarning(report_attendance_click, lessonId, err)
		return err
	}
	s.tel.ReportDebug(report_attendance_click, lessonId, week)
	return nil
}
