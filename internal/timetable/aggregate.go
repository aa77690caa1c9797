package timetable

import (
	"context"
	"fmt"
	"sync/atomic"

	"bonchassist-backend/internal/components/assert"
	"bonchassist-backend/internal/components/telemetry"

	"golang.org/x/sync/errgroup"
)

const (
	report_aggregator_all           = "aggregator.all"
	report_aggregator_group         = "aggregator.group"
	report_aggregator_groups_done   = "aggregator.groups-done"
	report_aggregator_groups_failed = "aggregator.groups-failed"
)

// DefaultConcurrencyLimit is the number of group timetables fetched at once.
const DefaultConcurrencyLimit = 80

// GroupLessons is the timetable of a single group.
type GroupLessons struct {
	Group   string
	Lessons []Lesson
}

// Aggregate is an ordered mapping of group name to that group's lessons.
type Aggregate struct {
	groups []GroupLessons
	index  map[string]int
}

func NewAggregate() Aggregate {
	return Aggregate{index: map[string]int{}}
}

// Set stores the lessons of a group, a group that is already present keeps
// its position. A group without lessons is stored with a nil list.
func (a *Aggregate) Set(group string, lessons []Lesson) {
	if len(lessons) == 0 {
		lessons = nil
	}
	if a.index == nil {
		a.index = map[string]int{}
	}
	if i, ok := a.index[group]; ok {
		a.groups[i].Lessons = lessons
		return
	}
	a.index[group] = len(a.groups)
	a.groups = append(a.groups, GroupLessons{Group: group, Lessons: lessons})
}

func (a Aggregate) Lookup(group string) ([]Lesson, bool) {
	i, ok := a.index[group]
	if !ok {
		return nil, false
	}
	return a.groups[i].Lessons, true
}

// Groups returns every group with its lessons in aggregate order.
func (a Aggregate) Groups() []GroupLessons {
	return a.groups
}

func (a Aggregate) GroupNames() []string {
	names := make([]string, len(a.groups))
	for i, g := range a.groups {
		names[i] = g.Group
	}
	return names
}

func (a Aggregate) Len() int {
	return len(a.groups)
}

// Source is where the aggregator gets its data from.
type Source interface {
	// SemesterToken returns the opaque token of the current semester.
	SemesterToken(ctx context.Context) (string, error)
	// Groups returns every group in directory order.
	Groups(ctx context.Context) ([]Entity, error)
	// GroupTimetable fetches and parses the timetable of a single group.
	GroupTimetable(ctx context.Context, token string, group Entity) ([]Lesson, error)
}

type AggregatorOptions struct {
	// ConcurrencyLimit caps in-flight group fetches, 0 means DefaultConcurrencyLimit.
	ConcurrencyLimit int
	// OnProgress is called after each group completes, successfully or not.
	OnProgress func(done, total int)
}

type Aggregator struct {
	source  Source
	options AggregatorOptions
	tel     telemetry.API
}

func NewAggregator(source Source, options AggregatorOptions, tel telemetry.API) Aggregator {
	assert.NotNil(source)
	assert.NotNil(tel)
	if options.ConcurrencyLimit <= 0 {
		options.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	return Aggregator{
		source:  source,
		options: options,
		tel:     telemetry.NewScopedAPI("timetable", tel),
	}
}

// All fetches the timetable of every group in the directory. Groups whose
// fetch fails are left out, the rest keep directory order. Only a failure to
// resolve the semester token or the group list, or cancellation of ctx, fails
// the whole run.
func (a Aggregator) All(ctx context.Context) (Aggregate, error) {
	token, err := a.source.SemesterToken(ctx)
	if err != nil {
		a.tel.ReportBroken(report_aggregator_all, fmt.Errorf("semester token: %w", err))
		return Aggregate{}, fmt.Errorf("resolve semester token: %w", err)
	}
	groups, err := a.source.Groups(ctx)
	if err != nil {
		a.tel.ReportBroken(report_aggregator_all, fmt.Errorf("groups: %w", err))
		return Aggregate{}, fmt.Errorf("list groups: %w", err)
	}
	return a.Groups(ctx, token, groups)
}

// Groups is All over an explicit token and group list.
func (a Aggregator) Groups(ctx context.Context, token string, groups []Entity) (Aggregate, error) {
	results := make([][]Lesson, len(groups))
	ok := make([]bool, len(groups))

	var done, failed atomic.Int64
	total := len(groups)

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.options.ConcurrencyLimit)

	for i, group := range groups {
		if egctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			lessons, err := a.source.GroupTimetable(egctx, token, group)
			if err != nil {
				failed.Add(1)
				a.tel.ReportWarning(report_aggregator_group, group.Name, err)
			} else {
				results[i] = lessons
				ok[i] = true
			}

			n := done.Add(1)
			if a.options.OnProgress != nil {
				a.options.OnProgress(int(n), total)
			}
			return nil
		})
	}
	// the group goroutines never return errors, ctx is the only way out
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return Aggregate{}, err
	}

	a.tel.ReportCount(report_aggregator_groups_done, done.Load())
	a.tel.ReportCount(report_aggregator_groups_failed, failed.Load())

	out := NewAggregate()
	for i, group := range groups {
		if !ok[i] {
			continue
		}
		out.Set(group.Name, results[i])
	}
	return out, nil
}
