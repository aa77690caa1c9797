package telemetry

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("portal", NewScopedAPI("client", rec))

	scoped.ReportBroken("login", "boom")
	scoped.ReportWarning("timetable", 1)
	scoped.ReportCount("groups", 12)

	broken := rec.Reports("broken", "")
	require.Len(t, broken, 1)
	require.Equal(t, "client: portal: login", broken[0].Id)
	require.Equal(t, []any{"boom"}, broken[0].Params)

	require.Len(t, rec.Reports("warning", "timetable"), 1)
	require.Len(t, rec.Reports("warning", "login"), 0)

	counts := rec.Reports("count", "groups")
	require.Len(t, counts, 1)
	require.Equal(t, []any{int64(12)}, counts[0].Params)
}

func TestRecordStats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var reads atomic.Int64
	done := make(chan struct{})
	go func() {
		RecordStats(ctx, time.Millisecond, Gauge{
			Name: "test.reads",
			Read: func() int64 { return reads.Add(1) },
		})
		close(done)
	}()

	require.Eventually(t, func() bool { return reads.Load() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RecordStats did not return after cancel")
	}
}
