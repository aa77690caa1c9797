package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Gauge is a service reading recorded next to the process gauges.
type Gauge struct {
	Name string
	Read func() int64
}

// RecordStats samples process usage and the given gauges every interval until
// ctx is done. Samples are taken on the calling goroutine, run it with go.
func RecordStats(ctx context.Context, interval time.Duration, gauges ...Gauge) {
	meter := otel.Meter("bonchassist.stats")
	cpuGauge, _ := meter.Float64Gauge("process.cpu_percent")
	heapGauge, _ := meter.Int64Gauge("process.heap_mb")
	goroutineGauge, _ := meter.Int64Gauge("process.goroutines")

	instruments := make([]metric.Int64Gauge, len(gauges))
	for i, g := range gauges {
		instruments[i], _ = meter.Int64Gauge(g.Name)
	}

	// the first reading only primes the cpu counters
	_, _ = cpu.PercentWithContext(ctx, 0, false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var memStats runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		usage, err := cpu.PercentWithContext(ctx, 0, false)
		switch {
		case err != nil:
			slog.DebugContext(ctx, "read cpu usage", "err", err)
		case len(usage) > 0:
			cpuGauge.Record(ctx, usage[0])
		}
		runtime.ReadMemStats(&memStats)
		heapGauge.Record(ctx, int64(memStats.HeapAlloc>>20))
		goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))

		for i, g := range gauges {
			instruments[i].Record(ctx, g.Read())
		}
	}
}
