package export

import (
	"time"

	"github.com/emendo/emendo-agent/internal/timeutil"
)

const (
	// ProgressThrottle caps progress emission at 10 per second. Raw
	// updates inside the window are coalesced, not queued.
	ProgressThrottle = 100 * time.Millisecond

	// seekGrace absorbs input-seek imprecision: timestamps within half
	// a second below the trim start still count as post-seek.
	seekGrace = 0.5

	// speedWindow bounds the rolling speed estimate.
	speedWindow = 10

	// minProgressForETA delays ETA until the estimate has signal.
	minProgressForETA = 0.01
)

// Progress is one user-facing progress sample.
type Progress struct {
	Fraction float64       `json:"fraction"`
	Speed    float64       `json:"speed"`
	ETA      time.Duration `json:"eta"`
	ETAKnown bool          `json:"eta_known"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Tracker turns the transcoder's diagnostic stream into normalized
// progress, a rolling speed estimate, and an ETA. It is owned by a
// single goroutine and is not safe for concurrent use.
type Tracker struct {
	start float64
	end   float64
	span  float64

	startedAt    time.Time
	lastEmit     time.Time
	lastFraction float64
	lastSampleAt time.Time
	samples      []float64
	avg          float64

	now func() time.Time
}

// NewTracker starts the wallclock for a trim window. The span is
// floored to a microsecond so a degenerate window cannot divide by
// zero.
func NewTracker(start, end float64) *Tracker {
	tr := &Tracker{
		start: start,
		end:   end,
		span:  max(end-start, 1e-6),
		now:   time.Now,
	}
	tr.startedAt = tr.now()
	tr.lastSampleAt = tr.startedAt
	return tr
}

// Observe consumes one diagnostic line. The second return is true when
// the line carried a timestamp and the throttle window has elapsed;
// lines without a timestamp and over-frequent updates report false.
func (tr *Tracker) Observe(line string) (Progress, bool) {
	t, ok := timeutil.ParseFFmpegTime(line)
	if !ok {
		return Progress{}, false
	}

	fraction := tr.normalize(t)
	now := tr.now()
	if now.Sub(tr.lastEmit) <= ProgressThrottle {
		return Progress{}, false
	}
	tr.lastEmit = now

	// Speed samples are only taken on forward motion. A duplicate or
	// regressed timestamp must not shrink or poison the average.
	if fraction > tr.lastFraction {
		dt := now.Sub(tr.lastSampleAt).Seconds()
		if dt > 0 {
			tr.samples = append(tr.samples, (fraction-tr.lastFraction)/dt)
			if len(tr.samples) > speedWindow {
				tr.samples = tr.samples[1:]
			}
			sum := 0.0
			for _, s := range tr.samples {
				sum += s
			}
			tr.avg = sum / float64(len(tr.samples))
		}
	}
	tr.lastFraction = fraction
	tr.lastSampleAt = now

	return tr.snapshot(fraction, now), true
}

// Final returns the completion sample with the fraction forced to 1.0.
// The last diagnostic line rarely lands exactly on the trim end.
func (tr *Tracker) Final() Progress {
	p := tr.snapshot(1.0, tr.now())
	p.ETA = 0
	p.ETAKnown = true
	return p
}

// normalize maps a source-timeline timestamp into [0,1] of the trim
// window. Timestamps from before the input seek resolves are treated
// as already window-relative.
func (tr *Tracker) normalize(t float64) float64 {
	var fraction float64
	if t >= tr.start-seekGrace {
		fraction = (t - tr.start) / tr.span
	} else {
		fraction = t / tr.span
	}
	if fraction < 0 {
		return 0
	}
	if fraction > 1 {
		return 1
	}
	return fraction
}

func (tr *Tracker) snapshot(fraction float64, now time.Time) Progress {
	p := Progress{
		Fraction: fraction,
		Elapsed:  now.Sub(tr.startedAt),
	}
	if tr.avg > 0 {
		p.Speed = tr.avg * tr.span
	}
	if fraction > minProgressForETA && tr.avg > 0 {
		p.ETA = time.Duration((1 - fraction) / tr.avg * float64(time.Second))
		p.ETAKnown = true
	}
	return p
}
