package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/config"
	"bonchassist-backend/internal/scrapers/sut"
	"bonchassist-backend/internal/timetable"
)

type globalsKey struct{}

type globals struct {
	Config config.Config
	Tel    telemetry.API

	// portal is shared by the lookups of one invocation so directory
	// listings are fetched once.
	portal *sut.Client
}

func setGlobals(ctx context.Context, value *globals) context.Context {
	return context.WithValue(ctx, globalsKey{}, value)
}

func getGlobals(ctx context.Context) *globals {
	return ctx.Value(globalsKey{}).(*globals)
}

func (g *globals) client() (*sut.Client, error) {
	if g.portal != nil {
		return g.portal, nil
	}
	options, err := g.Config.SessionOptions()
	if err != nil {
		return nil, err
	}
	session, err := sut.NewSession(options, g.Tel)
	if err != nil {
		return nil, err
	}
	g.portal = sut.NewClient(session, g.Tel)
	return g.portal, nil
}

func (g *globals) snapshot() (timetable.Aggregate, error) {
	agg, err := timetable.LoadSnapshot(g.Config.Snapshot)
	if errors.Is(err, os.ErrNotExist) {
		return timetable.Aggregate{}, fmt.Errorf("no timetable snapshot at %s, run 'bonchctl fetch' first", g.Config.Snapshot)
	}
	return agg, err
}

func (g *globals) currentWeek() (int, error) {
	start, err := g.Config.SemesterStartTime()
	if err != nil {
		return 0, err
	}
	location, err := g.Config.Location()
	if err != nil {
		return 0, err
	}
	return clampWeek(timetable.CurrentWeek(start, nowIn(location))), nil
}

func nowIn(location *time.Location) time.Time {
	return time.Now().In(location)
}

// maxWeek is the last week a semester can have.
const maxWeek = 50

func clampWeek(week int) int {
	return max(0, min(week, maxWeek))
}
