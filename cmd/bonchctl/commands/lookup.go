package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bonchassist-backend/internal/scrapers/sut"
	"bonchassist-backend/internal/timetable"

	"github.com/charmbracelet/huh/spinner"
)

const suggestions = 5

func notFoundError(kind sut.Kind, query string, candidates []string) error {
	if len(candidates) == 0 {
		return fmt.Errorf("%s %q not found", kind, query)
	}
	return fmt.Errorf("%s %q not found, did you mean:\n  %s", kind, query, strings.Join(candidates, "\n  "))
}

// fromSnapshot looks query up in the saved snapshot.
func fromSnapshot(agg timetable.Aggregate, kind sut.Kind, query string) ([]timetable.Lesson, error) {
	switch kind {
	case sut.KindGroup:
		lessons, ok := agg.Lookup(query)
		if !ok {
			return nil, notFoundError(kind, query, timetable.Suggest(agg.GroupNames(), query, suggestions))
		}
		return lessons, nil
	case sut.KindTeacher:
		lessons := timetable.ByTeacher(agg, query)
		if len(lessons) == 0 {
			return nil, notFoundError(kind, query, timetable.Suggest(timetable.TeacherNames(agg), query, suggestions))
		}
		return lessons, nil
	default:
		lessons := timetable.ByClassroom(agg, query)
		if len(lessons) == 0 {
			return nil, notFoundError(kind, query, timetable.Suggest(timetable.RoomNames(agg), query, suggestions))
		}
		return lessons, nil
	}
}

// fromPortal fetches the timetable of the entity named query straight from
// the portal.
func fromPortal(ctx context.Context, g *globals, kind sut.Kind, query string) ([]timetable.Lesson, error) {
	client, err := g.client()
	if err != nil {
		return nil, err
	}

	var lessons []timetable.Lesson
	fetch := func() {
		entity, listing, findErr := client.Directory().Find(ctx, kind, query)
		if errors.Is(findErr, sut.ErrNotFound) {
			err = notFoundError(kind, query, timetable.Suggest(listing.Names(), query, suggestions))
			return
		}
		if findErr != nil {
			err = findErr
			return
		}
		var token string
		token, err = client.SemesterToken(ctx)
		if err != nil {
			return
		}
		lessons, err = client.Timetable(ctx, token, sut.Query{Kind: kind, ID: entity.ID, Name: entity.Name})
	}

	_ = spinner.New().
		Title(fmt.Sprintf("Fetching the timetable of %s %s...", kind, query)).
		Action(fetch).
		Run()
	if err != nil {
		return nil, err
	}
	return lessons, nil
}
