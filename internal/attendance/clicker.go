package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bonchassist-backend/internal/components/assert"
	"bonchassist-backend/internal/components/chrono"
	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/scrapers/sut"
)

const (
	report_clicker_tick   = "clicker.tick"
	report_clicker_reauth = "clicker.reauth"
	report_clicker_stop   = "clicker.stop"
	report_clicker_clicks = "clicker.clicks"
)

// Portal is the part of the portal session the clicker needs.
type Portal interface {
	OpenAttendance(ctx context.Context) (sut.AttendancePage, error)
	MarkAttendance(ctx context.Context, lessonId string, week int) error
}

// Reauthenticate logs the portal session in again, it is called when the
// portal reports the session as expired.
type Reauthenticate func(ctx context.Context) error

type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Stats are counters over the lifetime of a clicker.
type Stats struct {
	Ticks     int64
	Clicks    int64
	LastTick  time.Time
	LastError string
}

// Clicker periodically presses every active attendance button of the current
// week.
type Clicker struct {
	portal Portal
	reauth Reauthenticate
	policy Policy
	clock  chrono.TimeAPI
	tel    telemetry.API

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	ticks     atomic.Int64
	clicks    atomic.Int64
	lastTick  atomic.Pointer[time.Time]
	lastError atomic.Pointer[string]
}

func NewClicker(portal Portal, reauth Reauthenticate, policy Policy, clock chrono.TimeAPI, tel telemetry.API) *Clicker {
	assert.NotNil(portal)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return &Clicker{
		portal: portal,
		reauth: reauth,
		policy: policy,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("attendance", tel),
	}
}

// Start runs the loop in a new goroutine until Stop is called, ctx is
// cancelled or the session cannot be recovered. It returns false when the
// loop is already running.
func (c *Clicker) Start(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)
		c.run(loopCtx)

		c.mu.Lock()
		if c.done == done {
			c.cancel = nil
			c.done = nil
		}
		c.mu.Unlock()
		cancel()
	}()
	return true
}

// Stop cancels the loop and waits for it to exit, a pending sleep is cut
// short. It returns false when the loop was not running.
func (c *Clicker) Stop() bool {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// Wait blocks until the loop exits.
func (c *Clicker) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Clicker) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return Running
	}
	return Stopped
}

func (c *Clicker) Stats() Stats {
	stats := Stats{
		Ticks:  c.ticks.Load(),
		Clicks: c.clicks.Load(),
	}
	if t := c.lastTick.Load(); t != nil {
		stats.LastTick = *t
	}
	if e := c.lastError.Load(); e != nil {
		stats.LastError = *e
	}
	return stats
}

var errUnrecoverable = errors.New("session cannot be recovered")

func (c *Clicker) run(ctx context.Context) {
	if len(c.policy.Schedule) > 0 {
		if !sleep(ctx, c.policy.wait(c.clock.Now(), false)) {
			return
		}
	}

	for {
		err := c.tick(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			msg := err.Error()
			c.lastError.Store(&msg)
		}
		if errors.Is(err, errUnrecoverable) {
			c.tel.ReportBroken(report_clicker_stop, err)
			return
		}
		if !sleep(ctx, c.policy.wait(c.clock.Now(), err != nil)) {
			return
		}
	}
}

// tick presses every active button once. It returns errUnrecoverable when the
// session expired and could not be renewed.
func (c *Clicker) tick(ctx context.Context) error {
	now := c.clock.Now()
	if !c.policy.Gate.Open(now) {
		c.tel.ReportDebug("skip tick outside of lesson windows", now.Format(time.TimeOnly))
		return nil
	}
	c.ticks.Add(1)
	c.lastTick.Store(&now)

	page, err := c.portal.OpenAttendance(ctx)
	if errors.Is(err, sut.ErrSessionExpired) {
		if c.reauth == nil {
			return fmt.Errorf("%w: %w", errUnrecoverable, err)
		}
		reauthErr := c.reauth(ctx)
		if reauthErr != nil {
			c.tel.ReportWarning(report_clicker_reauth, reauthErr)
			return fmt.Errorf("%w: %w", errUnrecoverable, reauthErr)
		}
		c.tel.ReportDebug("session renewed")
		page, err = c.portal.OpenAttendance(ctx)
	}
	if err != nil {
		c.tel.ReportWarning(report_clicker_tick, err)
		return err
	}

	var failed error
	for _, id := range page.LessonIDs {
		err := c.portal.MarkAttendance(ctx, id, page.Week)
		if err != nil {
			failed = errors.Join(failed, err)
			continue
		}
		c.clicks.Add(1)
		c.tel.ReportCount(report_clicker_clicks, 1)
	}
	if failed != nil {
		c.tel.ReportWarning(report_clicker_tick, failed)
	}
	return failed
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
