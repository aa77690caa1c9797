package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bonchassist-backend/internal/components/chrono"
	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/scrapers/sut"

	"github.com/stretchr/testify/require"
)

type fakePortal struct {
	mu      sync.Mutex
	expired bool
	opens   int
	clicks  []string
	page    sut.AttendancePage
	openErr error
}

func (p *fakePortal) OpenAttendance(ctx context.Context) (sut.AttendancePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opens++
	if p.expired {
		return sut.AttendancePage{}, sut.ErrSessionExpired
	}
	if p.openErr != nil {
		return sut.AttendancePage{}, p.openErr
	}
	return p.page, nil
}

func (p *fakePortal) MarkAttendance(ctx context.Context, lessonId string, week int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, lessonId)
	return nil
}

func (p *fakePortal) snapshot() (int, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens, append([]string(nil), p.clicks...)
}

func inLesson(t *testing.T) chrono.FixedTime {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return chrono.FixedTime{At: time.Date(2024, time.September, 9, 9, 30, 0, 0, moscow)}
}

func fastPolicy() Policy {
	policy := DefaultPolicy()
	policy.Interval = 5 * time.Millisecond
	policy.ErrorPause = 5 * time.Millisecond
	return policy
}

func TestClickerStartStop(t *testing.T) {
	portal := &fakePortal{page: sut.AttendancePage{Week: 3, LessonIDs: []string{"101", "102"}}}
	clicker := NewClicker(portal, nil, fastPolicy(), inLesson(t), &telemetry.Recorder{})

	require.Equal(t, Stopped, clicker.Status())
	require.True(t, clicker.Start(context.Background()))
	require.False(t, clicker.Start(context.Background()))
	require.Equal(t, Running, clicker.Status())

	require.Eventually(t, func() bool {
		_, clicks := portal.snapshot()
		return len(clicks) >= 4
	}, 2*time.Second, time.Millisecond)

	require.True(t, clicker.Stop())
	require.False(t, clicker.Stop())
	require.Equal(t, Stopped, clicker.Status())

	_, clicks := portal.snapshot()
	require.Equal(t, []string{"101", "102"}, clicks[:2])
	require.GreaterOrEqual(t, clicker.Stats().Clicks, int64(4))

	// a stopped clicker can be started again
	require.True(t, clicker.Start(context.Background()))
	require.True(t, clicker.Stop())
}

func TestClickerStopInterruptsSleep(t *testing.T) {
	portal := &fakePortal{page: sut.AttendancePage{Week: 1}}
	policy := fastPolicy()
	policy.Interval = time.Hour
	clicker := NewClicker(portal, nil, policy, inLesson(t), &telemetry.Recorder{})

	require.True(t, clicker.Start(context.Background()))
	require.Eventually(t, func() bool {
		opens, _ := portal.snapshot()
		return opens == 1
	}, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		clicker.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not interrupt the pending sleep")
	}
}

func TestClickerReauthenticates(t *testing.T) {
	portal := &fakePortal{
		expired: true,
		page:    sut.AttendancePage{Week: 5, LessonIDs: []string{"7"}},
	}
	reauths := 0
	reauth := func(ctx context.Context) error {
		portal.mu.Lock()
		defer portal.mu.Unlock()
		reauths++
		portal.expired = false
		return nil
	}
	clicker := NewClicker(portal, reauth, fastPolicy(), inLesson(t), &telemetry.Recorder{})

	require.True(t, clicker.Start(context.Background()))
	require.Eventually(t, func() bool {
		_, clicks := portal.snapshot()
		return len(clicks) > 0
	}, 2*time.Second, time.Millisecond)
	require.True(t, clicker.Stop())

	portal.mu.Lock()
	defer portal.mu.Unlock()
	require.Equal(t, 1, reauths)
}

func TestClickerStopsWhenReauthFails(t *testing.T) {
	portal := &fakePortal{expired: true}
	rec := &telemetry.Recorder{}
	clicker := NewClicker(portal, func(ctx context.Context) error {
		return errors.New("wrong password")
	}, fastPolicy(), inLesson(t), rec)

	require.True(t, clicker.Start(context.Background()))

	waited := make(chan struct{})
	go func() {
		clicker.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("clicker kept running with a dead session")
	}

	require.Equal(t, Stopped, clicker.Status())
	require.False(t, clicker.Stop())
	require.NotEmpty(t, rec.Reports("broken", report_clicker_stop))
	require.Contains(t, clicker.Stats().LastError, "wrong password")
}

func TestClickerErrorPause(t *testing.T) {
	portal := &fakePortal{openErr: errors.New("502 bad gateway")}
	clicker := NewClicker(portal, nil, fastPolicy(), inLesson(t), &telemetry.Recorder{})

	require.True(t, clicker.Start(context.Background()))
	require.Eventually(t, func() bool {
		opens, _ := portal.snapshot()
		return opens >= 3
	}, 2*time.Second, time.Millisecond)
	require.True(t, clicker.Stop())
	require.Equal(t, "502 bad gateway", clicker.Stats().LastError)
}

func TestClickerGateClosed(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	night := chrono.FixedTime{At: time.Date(2024, time.September, 9, 3, 0, 0, 0, moscow)}

	portal := &fakePortal{page: sut.AttendancePage{Week: 1, LessonIDs: []string{"1"}}}
	clicker := NewClicker(portal, nil, fastPolicy(), night, &telemetry.Recorder{})

	require.True(t, clicker.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.True(t, clicker.Stop())

	opens, clicks := portal.snapshot()
	require.Zero(t, opens)
	require.Empty(t, clicks)
	require.Zero(t, clicker.Stats().Ticks)
}

func TestClickerParentContext(t *testing.T) {
	portal := &fakePortal{page: sut.AttendancePage{Week: 1}}
	clicker := NewClicker(portal, nil, fastPolicy(), inLesson(t), &telemetry.Recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, clicker.Start(ctx))
	cancel()
	clicker.Wait()
	require.Equal(t, Stopped, clicker.Status())
}
