package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("nsdotgo/process")

type processGauges struct {
	cpu        metric.Float64Gauge
	rss        metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newProcessGauges() (processGauges, error) {
	var g processGauges
	var err error
	if g.cpu, err = meter.Float64Gauge("process.cpu_percent"); err != nil {
		return g, err
	}
	if g.rss, err = meter.Int64Gauge("process.rss_mb"); err != nil {
		return g, err
	}
	if g.goroutines, err = meter.Int64Gauge("process.goroutines"); err != nil {
		return g, err
	}
	return g, nil
}

// InstrumentPerfStats records this process' resource usage every `interval`
// until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	gauges, err := newProcessGauges()
	if err != nil {
		slog.Warn("failed to create process gauges", "err", err)
		return
	}
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.Warn("failed to inspect own process", "err", err)
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if cpuPercent, err := proc.CPUPercentWithContext(ctx); err == nil {
					gauges.cpu.Record(ctx, cpuPercent)
				}
				if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
					gauges.rss.Record(ctx, int64(mem.RSS/1_000_000))
				}
				gauges.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
