// Package telemetry reports best-effort CPU load and temperature while
// an export runs. Nothing here may block or fail the export; readings
// that cannot be taken degrade to unknown.
package telemetry

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/sensors"
)

// SampleInterval is the sampling cadence.
const SampleInterval = 500 * time.Millisecond

// preferredSensors are tried in order before falling back to whatever
// sensor the host exposes.
var preferredSensors = []string{"coretemp", "k10temp", "cpu_thermal"}

// Sample is one telemetry reading. Known flags distinguish a zero
// reading from an unavailable one.
type Sample struct {
	CPUPercent float64   `json:"cpu_percent"`
	CPUKnown   bool      `json:"cpu_known"`
	TempC      float64   `json:"temp_c"`
	TempKnown  bool      `json:"temp_known"`
	At         time.Time `json:"at"`
}

// Sampler drives the sampling loop.
type Sampler struct {
	interval time.Duration
	logger   *slog.Logger
}

func NewSampler(logger *slog.Logger) *Sampler {
	return &Sampler{interval: SampleInterval, logger: logger}
}

// Run samples until the context is cancelled, sending on out. Sends
// never block; a slow consumer just misses readings. The channel is
// closed on return.
func (s *Sampler) Run(ctx context.Context, out chan<- Sample) {
	defer close(out)
	for {
		if ctx.Err() != nil {
			return
		}

		sample := Sample{At: time.Now()}

		// PercentWithContext blocks for the interval, which doubles as
		// the loop cadence.
		percents, err := cpu.PercentWithContext(ctx, s.interval, false)
		if err == nil && len(percents) > 0 {
			sample.CPUPercent = percents[0]
			sample.CPUKnown = true
		} else if err != nil && ctx.Err() == nil {
			s.logger.Debug("cpu sample failed", "error", err)
		}

		if temp, ok := s.temperature(ctx); ok {
			sample.TempC = temp
			sample.TempKnown = true
		}

		if ctx.Err() != nil {
			return
		}
		select {
		case out <- sample:
		default:
		}
	}
}

// temperature picks the CPU temperature from the host's sensors,
// preferring the usual CPU sensor names over whatever else is exposed.
func (s *Sampler) temperature(ctx context.Context) (float64, bool) {
	stats, err := sensors.TemperaturesWithContext(ctx)
	if err != nil || len(stats) == 0 {
		return 0, false
	}
	for _, name := range preferredSensors {
		for _, st := range stats {
			if strings.HasPrefix(st.SensorKey, name) {
				return st.Temperature, true
			}
		}
	}
	return stats[0].Temperature, true
}
