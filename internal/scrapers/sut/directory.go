package sut

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/timetable"
	"bonchassist-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_directory_list     = "directory.list"
	report_directory_semester = "directory.semester-token"
)

// ErrNoSemester is returned when the listing page has no selected semester.
var ErrNoSemester = errors.New("no semester selected on the listing page")

type Kind int

const (
	KindGroup Kind = iota
	KindTeacher
	KindClassroom
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindTeacher:
		return "teacher"
	case KindClassroom:
		return "classroom"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// param is the name of the select control and of the query parameter that
// carries entity ids of this kind.
func (k Kind) param() string {
	switch k {
	case KindGroup:
		return "group"
	case KindTeacher:
		return "prep"
	case KindClassroom:
		return "aud"
	}
	return ""
}

// Listing is an immutable, ordered id -> name directory of one kind.
type Listing struct {
	Kind    Kind
	entries []timetable.Entity
	byId    map[string]int
}

func NewListing(kind Kind, entries []timetable.Entity) Listing {
	l := Listing{Kind: kind, byId: map[string]int{}}
	for _, e := range entries {
		if i, ok := l.byId[e.ID]; ok {
			l.entries[i] = e
			continue
		}
		l.byId[e.ID] = len(l.entries)
		l.entries = append(l.entries, e)
	}
	return l
}

// Entries returns the listing in page order.
func (l Listing) Entries() []timetable.Entity {
	return l.entries
}

func (l Listing) Len() int {
	return len(l.entries)
}

func (l Listing) Name(id string) (string, bool) {
	i, ok := l.byId[id]
	if !ok {
		return "", false
	}
	return l.entries[i].Name, true
}

// Find returns the first entity whose name equals name, ignoring case and
// surrounding whitespace.
func (l Listing) Find(name string) (timetable.Entity, bool) {
	name = strings.TrimSpace(name)
	for _, e := range l.entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return timetable.Entity{}, false
}

// Names returns every name in page order.
func (l Listing) Names() []string {
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Name
	}
	return out
}

// Directory lists the groups, teachers and classrooms known to the portal.
// The last listing of each kind is cached and replaced as a whole on refresh.
type Directory struct {
	session *Session
	tel     telemetry.API
	cache   [3]atomic.Pointer[Listing]
}

func NewDirectory(session *Session, tel telemetry.API) *Directory {
	return &Directory{
		session: session,
		tel:     telemetry.NewScopedAPI("sut", tel),
	}
}

// Cached returns the last listing of the kind, if any was fetched.
func (d *Directory) Cached(kind Kind) (Listing, bool) {
	l := d.cache[kind].Load()
	if l == nil {
		return Listing{}, false
	}
	return *l, true
}

// Find resolves a name to an entity of the kind. The cached listing is tried
// first, the portal is asked again only when the name is missing from it. A
// name that is still unknown wraps ErrNotFound and comes with the listing it
// was looked up in.
func (d *Directory) Find(ctx context.Context, kind Kind, name string) (timetable.Entity, Listing, error) {
	if cached, ok := d.Cached(kind); ok {
		if e, ok := cached.Find(name); ok {
			return e, cached, nil
		}
	}
	listing, err := d.List(ctx, kind)
	if err != nil {
		return timetable.Entity{}, Listing{}, err
	}
	e, ok := listing.Find(name)
	if !ok {
		return timetable.Entity{}, listing, fmt.Errorf("%w: no %s named %q", ErrNotFound, kind, name)
	}
	return e, listing, nil
}

func (d *Directory) Groups(ctx context.Context) (Listing, error) {
	return d.list(ctx, KindGroup, d.session.options.GroupsURL)
}

func (d *Directory) Teachers(ctx context.Context) (Listing, error) {
	return d.list(ctx, KindTeacher, d.session.options.ListingURL)
}

func (d *Directory) Classrooms(ctx context.Context) (Listing, error) {
	return d.list(ctx, KindClassroom, d.session.options.ListingURL)
}

// List dispatches on kind.
func (d *Directory) List(ctx context.Context, kind Kind) (Listing, error) {
	switch kind {
	case KindGroup:
		return d.Groups(ctx)
	case KindTeacher:
		return d.Teachers(ctx)
	case KindClassroom:
		return d.Classrooms(ctx)
	}
	return Listing{}, fmt.Errorf("unknown directory kind %v", kind)
}

func (d *Directory) list(ctx context.Context, kind Kind, endpoint string) (Listing, error) {
	body, err := d.session.Fetch(ctx, endpoint, nil)
	if err != nil {
		d.tel.ReportBroken(report_directory_list, kind.String(), err)
		return Listing{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		d.tel.ReportBroken(report_directory_list, kind.String(), err)
		return Listing{}, fmt.Errorf("parse %s listing: %w", kind, err)
	}

	listing := ParseListing(ctx, doc, kind)
	if listing.Len() == 0 {
		d.tel.ReportWarning(report_directory_list, kind.String(), "empty listing")
	}
	d.cache[kind].Store(&listing)
	return listing, nil
}

// ParseListing reads the entities of a kind from a listing page. It prefers
// the <select> control named after the kind and falls back to anchors whose
// href carries the id as a query parameter. A page with neither yields an
// empty listing.
func ParseListing(ctx context.Context, doc *goquery.Document, kind Kind) Listing {
	param := kind.param()

	sel := doc.Find(fmt.Sprintf("select#%s", param)).First()
	if sel.Length() == 0 {
		sel = doc.Find(fmt.Sprintf("select[name=%s]", param)).First()
	}
	if sel.Length() > 0 {
		var entries []timetable.Entity
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			value, _ := opt.Attr("value")
			if value == "" {
				return
			}
			entries = append(entries, timetable.Entity{
				ID:   value,
				Name: strings.TrimSpace(opt.Text()),
			})
		})
		return NewListing(kind, entries)
	}

	anchors := doc.Find("a.vt256")
	if anchors.Length() == 0 || kind != KindGroup {
		anchors = doc.Find(fmt.Sprintf(`a[href*="%s="]`, param))
	}

	var entries []timetable.Entity
	for _, a := range htmlutil.GetAnchors(ctx, anchors) {
		id := a.QueryParam(param)
		if id == "" {
			// hrefs that are not valid query strings still end with "=<id>"
			idx := strings.LastIndex(a.Href, "=")
			if idx < 0 {
				continue
			}
			id = a.Href[idx+1:]
		}
		if id == "" {
			continue
		}
		name := a.Attrs["data-nm"]
		if name == "" {
			name = a.Name
		}
		entries = append(entries, timetable.Entity{ID: id, Name: name})
	}
	return NewListing(kind, entries)
}

// SemesterToken returns the value of the pre-selected option of the
// semester control on the listing page.
func (d *Directory) SemesterToken(ctx context.Context) (string, error) {
	body, err := d.session.Fetch(ctx, d.session.options.ListingURL, nil)
	if err != nil {
		d.tel.ReportBroken(report_directory_semester, err)
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		d.tel.ReportBroken(report_directory_semester, err)
		return "", err
	}
	token, ok := ParseSemesterToken(doc)
	if !ok {
		d.tel.ReportBroken(report_directory_semester, ErrNoSemester)
		return "", ErrNoSemester
	}
	return token, nil
}

func ParseSemesterToken(doc *goquery.Document) (string, bool) {
	opt := doc.Find("select#schet option[selected]").First()
	if opt.Length() == 0 {
		return "", false
	}
	value, ok := opt.Attr("value")
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
