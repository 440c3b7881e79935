package export

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/emendo/emendo-agent/internal/crop"
	"github.com/emendo/emendo-agent/internal/media"
	"github.com/emendo/emendo-agent/internal/profiles"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	// Point at a nonexistent binary so an unexpected spawn surfaces as
	// a tool-missing error instead of touching a real transcoder.
	tools := media.NewToolset([]string{}, "/nonexistent/ffmpeg", "/nonexistent/ffprobe", slog.Default())
	return NewPipeline(tools, t.TempDir(), slog.Default())
}

func TestPipelineStart_ValidationNeverSpawns(t *testing.T) {
	p := testPipeline(t)

	req := Request{
		SourcePath: "/v.mp4", Start: 0, End: 10,
		Codec: 0, Audio: 0, Container: 0,
		Crop: &crop.PixelParams{X: 0, Y: 0, W: 100, H: 100},
	}
	job, err := p.Start(req)
	if !errors.Is(err, ErrCopyModeConflict) {
		t.Errorf("err = %v, want ErrCopyModeConflict", err)
	}
	if job != nil {
		t.Error("job returned for a rejected request")
	}
}

func TestPipelineStart_ToolMissing(t *testing.T) {
	p := testPipeline(t)

	_, err := p.Start(Request{SourcePath: "/v.mp4", Start: 0, End: 10, Codec: 1, Audio: 0, Container: 0})
	if !errors.Is(err, media.ErrToolMissing) {
		t.Errorf("err = %v, want ErrToolMissing", err)
	}
}

func TestPipelineResolve_UnavailableEncoderBlocks(t *testing.T) {
	p := testPipeline(t)
	p.CodecAvailability().Set(2, false)

	_, err := p.Resolve(Request{SourcePath: "/v.mp4", Start: 0, End: 10, Codec: 2, Audio: 0, Container: 0})
	var unavail *EncoderUnavailableError
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want EncoderUnavailableError", err)
	}
	if unavail.Encoder != profiles.Codecs[2].Encoder {
		t.Errorf("Encoder = %q", unavail.Encoder)
	}
}

func TestPipelineResolve_UnknownEncoderPasses(t *testing.T) {
	p := testPipeline(t)

	if _, err := p.Resolve(Request{SourcePath: "/v.mp4", Start: 0, End: 10, Codec: 2, Audio: 0, Container: 0}); err != nil {
		t.Errorf("unknown availability rejected the request: %v", err)
	}
}

func TestPipelineResolve_UnavailableAudioBlocks(t *testing.T) {
	p := testPipeline(t)
	p.AudioAvailability().Set(5, false)

	_, err := p.Resolve(Request{SourcePath: "/v.mp4", Start: 0, End: 10, Codec: 1, Audio: 5, Container: 1})
	var unavail *EncoderUnavailableError
	if !errors.As(err, &unavail) {
		t.Fatalf("err = %v, want EncoderUnavailableError", err)
	}
	if unavail.Encoder != "libopus" {
		t.Errorf("Encoder = %q, want libopus", unavail.Encoder)
	}
}

// startTestJob wires a monitor loop over an arbitrary command, standing
// in for the transcoder.
func startTestJob(t *testing.T, name string, args ...string) *Job {
	t.Helper()
	cmd := exec.Command(name, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.Fatalf("stderr pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	job := &Job{
		ID:      "test",
		tracker: NewTracker(5, 15),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		proc:    cmd.Process,
		logger:  slog.Default(),
	}
	go job.monitor(cmd, stderr)
	return job
}

func collectEvents(t *testing.T, job *Job) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-job.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for job events")
		}
	}
}

func terminalEvents(events []Event) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind.Terminal() {
			out = append(out, ev)
		}
	}
	return out
}

func TestJobCompleted_ForcesFullProgress(t *testing.T) {
	job := startTestJob(t, "sh", "-c", `printf 'time=00:00:10.000\r' >&2`)
	events := collectEvents(t, job)

	term := terminalEvents(events)
	if len(term) != 1 || term[0].Kind != EventCompleted {
		t.Fatalf("terminal events = %v, want one Completed", term)
	}
	if term[0].Progress.Fraction != 1.0 {
		t.Errorf("final Fraction = %v, want 1.0", term[0].Progress.Fraction)
	}

	// The mid-stream timestamp should have surfaced as normalized
	// progress before completion.
	sawHalf := false
	for _, ev := range events {
		if ev.Kind == EventProgress && ev.Progress.Fraction == 0.5 {
			sawHalf = true
		}
	}
	if !sawHalf {
		t.Error("never saw the 0.5 progress sample")
	}
}

func TestJobFailed_SurfacesExitCode(t *testing.T) {
	job := startTestJob(t, "sh", "-c", `echo 'broken input' >&2; exit 3`)
	events := collectEvents(t, job)

	term := terminalEvents(events)
	if len(term) != 1 || term[0].Kind != EventFailed {
		t.Fatalf("terminal events = %v, want one Failed", term)
	}
	var procErr *ProcessError
	if !errors.As(term[0].Err, &procErr) {
		t.Fatalf("Err = %v, want ProcessError", term[0].Err)
	}
	if procErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", procErr.ExitCode)
	}
	if procErr.Detail != "broken input" {
		t.Errorf("Detail = %q", procErr.Detail)
	}
}

func TestJobCancel_ExactlyOneTerminalEvent(t *testing.T) {
	job := startTestJob(t, "sleep", "30")
	job.Cancel()
	events := collectEvents(t, job)

	term := terminalEvents(events)
	if len(term) != 1 {
		t.Fatalf("terminal events = %d, want exactly 1", len(term))
	}
	if term[0].Kind != EventCancelled {
		t.Errorf("terminal kind = %v, want Cancelled", term[0].Kind)
	}
	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Error("Done not closed after terminal event")
	}
}

func TestJobCancel_Idempotent(t *testing.T) {
	job := startTestJob(t, "sleep", "30")
	job.Cancel()
	job.Cancel()
	job.Cancel()

	term := terminalEvents(collectEvents(t, job))
	if len(term) != 1 || term[0].Kind != EventCancelled {
		t.Fatalf("terminal events = %v, want one Cancelled", term)
	}
}

func TestProbeEncoder_FailureLeavesUnknown(t *testing.T) {
	p := testPipeline(t)
	ctx := context.Background()

	p.ProbeEncoder(ctx, p.CodecAvailability(), 1, "libx264", 100*time.Millisecond)
	if _, known := p.CodecAvailability().Get(1); known {
		t.Error("failed probe recorded a definitive result")
	}
}
