package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bonchassist-backend/internal/components/chrono"
)

// Window is a time-of-day range [Start, End). A window whose end is before its
// start wraps around midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// ParseWindow parses "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	startStr, endStr, found := strings.Cut(s, "-")
	if !found {
		return Window{}, fmt.Errorf("window %q: expected HH:MM-HH:MM", s)
	}
	start, err := parseTimeOfDay(startStr)
	if err != nil {
		return Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	end, err := parseTimeOfDay(endStr)
	if err != nil {
		return Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	return Window{Start: start, End: end}, nil
}

func parseTimeOfDay(s string) (time.Duration, error) {
	hourStr, minuteStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, fmt.Errorf("time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("time %q: bad hour", s)
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time %q: bad minute", s)
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

func (w Window) Contains(t time.Time) bool {
	offset := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	if w.Start <= w.End {
		return offset >= w.Start && offset < w.End
	}
	return offset >= w.Start || offset < w.End
}

func (w Window) String() string {
	format := func(d time.Duration) string {
		return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
	}
	return format(w.Start) + "-" + format(w.End)
}

// Gate is a set of windows, an empty gate is always open.
type Gate []Window

func ParseGate(windows []string) (Gate, error) {
	out := make(Gate, len(windows))
	for i, s := range windows {
		w, err := ParseWindow(s)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func (g Gate) Open(t time.Time) bool {
	if len(g) == 0 {
		return true
	}
	for _, w := range g {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// LessonWindows are the university's lesson slots.
var LessonWindows = []string{
	"09:00-10:35",
	"10:45-12:20",
	"13:00-14:35",
	"14:45-16:20",
	"16:30-18:05",
	"18:15-19:50",
	"20:00-21:35",
}

type Policy struct {
	// Interval is the pause between ticks when no schedule is set.
	Interval time.Duration
	// ErrorPause is the pause after a failed tick.
	ErrorPause time.Duration
	// Gate restricts ticks to the given times of day.
	Gate Gate
	// Schedule, when set, replaces Interval: ticks happen at its activations.
	Schedule chrono.Schedules
}

func DefaultPolicy() Policy {
	gate, err := ParseGate(LessonWindows)
	if err != nil {
		panic(err)
	}
	return Policy{
		Interval:   time.Minute,
		ErrorPause: time.Minute,
		Gate:       gate,
	}
}

// PolicyConfig is the configuration form of a Policy.
type PolicyConfig struct {
	IntervalSeconds   int      `json:"interval_seconds"`
	ErrorPauseSeconds int      `json:"error_pause_seconds"`
	Windows           []string `json:"windows"`
	// AnyTime disables the gate.
	AnyTime  bool     `json:"any_time"`
	Schedule []string `json:"schedule"`
}

// Policy turns the configuration into a Policy, unset fields keep their
// defaults.
func (c PolicyConfig) Policy() (Policy, error) {
	policy := DefaultPolicy()
	if c.IntervalSeconds > 0 {
		policy.Interval = time.Duration(c.IntervalSeconds) * time.Second
	}
	if c.ErrorPauseSeconds > 0 {
		policy.ErrorPause = time.Duration(c.ErrorPauseSeconds) * time.Second
	}
	if len(c.Windows) > 0 {
		gate, err := ParseGate(c.Windows)
		if err != nil {
			return Policy{}, err
		}
		policy.Gate = gate
	}
	if c.AnyTime {
		policy.Gate = nil
	}
	if len(c.Schedule) > 0 {
		schedule, err := chrono.ParseSchedules(c.Schedule)
		if err != nil {
			return Policy{}, err
		}
		policy.Schedule = schedule
	}
	return policy, nil
}

// wait returns how long to sleep after a tick that ended at now.
func (p Policy) wait(now time.Time, failed bool) time.Duration {
	if failed {
		return p.ErrorPause
	}
	if len(p.Schedule) > 0 {
		next := p.Schedule.Next(now)
		if !next.IsZero() {
			return next.Sub(now)
		}
	}
	return p.Interval
}
