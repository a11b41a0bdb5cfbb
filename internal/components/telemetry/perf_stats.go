package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const report_perf_stats = "perf_stats"

type perfGauges struct {
	cpu        metric.Float64Gauge
	allocated  metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newPerfGauges() (perfGauges, error) {
	meter := otel.Meter("fhrs-archive/perf_stats")
	cpuGauge, err := meter.Float64Gauge("process.cpu_usage", metric.WithUnit("%"))
	if err != nil {
		return perfGauges{}, err
	}
	allocated, err := meter.Int64Gauge("process.allocated", metric.WithUnit("MB"))
	if err != nil {
		return perfGauges{}, err
	}
	goroutines, err := meter.Int64Gauge("process.goroutines")
	if err != nil {
		return perfGauges{}, err
	}
	return perfGauges{cpu: cpuGauge, allocated: allocated, goroutines: goroutines}, nil
}

// InstrumentPerfStats samples CPU, heap and goroutine usage every interval until ctx is
// done. It is meant for long-running scheduled modes, single runs end before a sample
// would matter.
func InstrumentPerfStats(ctx context.Context, tel API, interval time.Duration) {
	gauges, err := newPerfGauges()
	if err != nil {
		tel.ReportBroken(report_perf_stats, err)
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var mem runtime.MemStats
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			runtime.ReadMemStats(&mem)
			gauges.allocated.Record(ctx, int64(mem.Alloc/1_000_000))
			gauges.goroutines.Record(ctx, int64(runtime.NumGoroutine()))

			// an interval of 0 compares against the previous call
			usage, err := cpu.PercentWithContext(ctx, 0, false)
			if err != nil || len(usage) == 0 {
				tel.ReportWarning(report_perf_stats, "cpu usage unavailable", err)
				continue
			}
			gauges.cpu.Record(ctx, usage[0])
			tel.ReportDebug("perf stats", "cpu", usage[0], "allocated_mb", mem.Alloc/1_000_000)
		}
	}()
}
