package sut

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"bonchassist-backend/internal/components/assert"
	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/timetable"
)

const (
	report_client_timetable = "client.timetable"
)

// Query selects one timetable: the axis is the kind of entity, the portal
// numbers them 1 (group), 2 (teacher) and 3 (classroom).
type Query struct {
	Kind Kind
	ID   string
	// Name labels the lessons of a group query.
	Name string
}

func GroupQuery(e timetable.Entity) Query {
	return Query{Kind: KindGroup, ID: e.ID, Name: e.Name}
}

func TeacherQuery(e timetable.Entity) Query {
	return Query{Kind: KindTeacher, ID: e.ID, Name: e.Name}
}

func ClassroomQuery(e timetable.Entity) Query {
	return Query{Kind: KindClassroom, ID: e.ID, Name: e.Name}
}

func (q Query) values(token string) url.Values {
	v := url.Values{}
	v.Set("schet", token)
	v.Set("type_z", strconv.Itoa(int(q.Kind)+1))
	v.Set(q.Kind.param(), q.ID)
	return v
}

// Client is the portal as seen by the timetable pipeline: a session, the
// directory built on it and the page parser.
type Client struct {
	session   *Session
	directory *Directory
	tel       telemetry.API
}

func NewClient(session *Session, tel telemetry.API) *Client {
	assert.NotNil(session)
	assert.NotNil(tel)
	return &Client{
		session:   session,
		directory: NewDirectory(session, tel),
		tel:       telemetry.NewScopedAPI("sut", tel),
	}
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Directory() *Directory {
	return c.directory
}

// Timetable fetches and parses one timetable. Errors wrap ErrNotFound or
// ErrServer.
func (c *Client) Timetable(ctx context.Context, token string, q Query) ([]timetable.Lesson, error) {
	options := c.session.options

	body, err := c.session.Fetch(ctx, options.TimetableURL, q.values(token))
	if err != nil {
		c.tel.ReportWarning(report_client_timetable, q.Kind.String(), q.ID, err)
		return nil, fmt.Errorf("%w: %s", ErrServer, err)
	}

	groupName := ""
	if q.Kind == KindGroup {
		groupName = q.Name
		if groupName == "" {
			groupName = q.ID
		}
	}
	lessons, err := ParseTimetable(bytes.NewReader(body), ParseOptions{
		SemesterStart:    options.SemesterStart,
		BuildingSuffixes: options.BuildingSuffixes,
		GroupName:        groupName,
	})
	if errors.Is(err, ErrNotFound) {
		c.tel.ReportDebug(report_client_timetable, "not found", q.Kind.String(), q.ID)
		return nil, err
	}
	if err != nil {
		c.tel.ReportBroken(report_client_timetable, q.Kind.String(), q.ID, err)
		return nil, err
	}
	return lessons, nil
}

func (c *Client) SemesterToken(ctx context.Context) (string, error) {
	return c.directory.SemesterToken(ctx)
}

func (c *Client) Groups(ctx context.Context) ([]timetable.Entity, error) {
	listing, err := c.directory.Groups(ctx)
	if err != nil {
		return nil, err
	}
	return listing.Entries(), nil
}

func (c *Client) GroupTimetable(ctx context.Context, token string, group timetable.Entity) ([]timetable.Lesson, error) {
	return c.Timetable(ctx, token, GroupQuery(group))
}
