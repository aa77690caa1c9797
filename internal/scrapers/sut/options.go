package sut

import (
	"net/url"
	"time"
)

// Markers are the strings the portal answers with once a session is no longer valid.
type Markers struct {
	// Relogin are substrings of a page that asks the user to log in again.
	Relogin []string `json:"relogin"`
	// Denied are literal page bodies returned instead of the requested page.
	Denied []string `json:"denied"`
}

func DefaultMarkers() Markers {
	return Markers{
		Relogin: []string{"необходимо перезагрузить приложение"},
		Denied:  []string{"У Вас нет прав доступа. Или необходимо перезагрузить приложение.."},
	}
}

type Options struct {
	// CabinetURL is the root of the personal cabinet.
	CabinetURL string
	// AuthURL accepts credentials and answers "1" when they are valid.
	AuthURL string
	// AttendanceURL lists the current week's lessons with their attendance buttons.
	AttendanceURL string
	// ListingURL is the public timetable landing page (semester token, teachers, classrooms).
	ListingURL string
	// TimetableURL renders the timetable of one group, teacher or classroom.
	TimetableURL string
	// GroupsURL is the public page listing every group.
	GroupsURL string

	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond limits outgoing requests, 0 disables the limit.
	RequestsPerSecond float64
	CloudflareBypass  bool
	// DumpDir, when set, receives a copy of every request and response.
	DumpDir string

	// SemesterStart is the date of the Monday of week 0.
	SemesterStart time.Time
	// BuildingSuffixes are removed from room labels.
	BuildingSuffixes []string
	Markers          Markers
}

func DefaultOptions() Options {
	return Options{
		CabinetURL:       "https://lk.sut.ru/cabinet/",
		AuthURL:          "https://lk.sut.ru/cabinet/lib/autentificationok.php",
		AttendanceURL:    "https://lk.sut.ru/cabinet/project/cabinet/forms/raspisanie.php",
		ListingURL:       "https://cabinet.sut.ru/raspisanie_all_new",
		TimetableURL:     "https://cabinet.sut.ru/raspisanie_all_new.php",
		GroupsURL:        "https://www.sut.ru/studentu/raspisanie/raspisanie-zanyatiy-studentov-ochnoy-i-vecherney-form-obucheniya",
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		Timeout:          10 * time.Second,
		BuildingSuffixes: []string{"; Б22"},
		Markers:          DefaultMarkers(),
	}
}

func (o Options) hostnames() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, raw := range []string{
		o.CabinetURL,
		o.AuthURL,
		o.AttendanceURL,
		o.ListingURL,
		o.TimetableURL,
		o.GroupsURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		if _, ok := seen[u.Hostname()]; ok {
			continue
		}
		seen[u.Hostname()] = struct{}{}
		out = append(out, u.Hostname())
	}
	return out
}
