package chrono

import (
	"fmt"
	"time"

	"bonchassist-backend/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

// CronAPI is the interface that anything depending on things to happen on a cron job should use.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// StandardCron is the standard implementation of CronAPI using `github.com/robfig/cron/v3`
type StandardCron struct {
	cron *cron.Cron
}

// NewStandardCron starts a cron runner evaluating specs in the given location.
func NewStandardCron(tel telemetry.API, location *time.Location) StandardCron {
	cronner := cron.New(
		cron.WithLogger(cronLogger{tel: tel}),
		cron.WithLocation(location),
	)
	cronner.Start()

	return StandardCron{
		cron: cronner,
	}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

// Stop stops the runner, it does not wait for running jobs.
func (s StandardCron) Stop() {
	s.cron.Stop()
}

// Schedules is a set of standard cron specs, the next activation of the set is
// the earliest next activation of any of its members.
type Schedules []cron.Schedule

// ParseSchedules parses 5-field cron specs (ex. "30 9 * * 1-6").
func ParseSchedules(specs []string) (Schedules, error) {
	out := make(Schedules, len(specs))
	for i, spec := range specs {
		s, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
		}
		out[i] = s
	}
	return out, nil
}

// Next returns the earliest activation strictly after t, or the zero time if
// the set is empty.
func (s Schedules) Next(t time.Time) time.Time {
	var next time.Time
	for _, schedule := range s {
		n := schedule.Next(t)
		if n.IsZero() {
			continue
		}
		if next.IsZero() || n.Before(next) {
			next = n
		}
	}
	return next
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(
		fmt.Sprintf("cron: %s", msg),
		l.formatParams(keysAndValues)...,
	)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(
		"cron",
		append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)...,
	)
}
