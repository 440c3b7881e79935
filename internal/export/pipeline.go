package export

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emendo/emendo-agent/internal/media"
	"github.com/emendo/emendo-agent/internal/profiles"
)

// EventKind classifies pipeline events. Exactly one terminal kind is
// delivered per job, after which the event channel closes.
type EventKind int

const (
	EventProgress EventKind = iota
	EventCompleted
	EventFailed
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the kind ends the job.
func (k EventKind) Terminal() bool {
	return k != EventProgress
}

// Event is one message from a running job.
type Event struct {
	JobID    string
	Kind     EventKind
	Progress Progress
	Err      error
}

// Pipeline validates export requests and runs them as transcode
// subprocesses.
type Pipeline struct {
	tools      *media.Toolset
	exportDir  string
	codecAvail *profiles.Availability
	audioAvail *profiles.Availability
	logger     *slog.Logger
}

// NewPipeline wires a pipeline over the tool adapter. The export
// directory is created lazily on the first start.
func NewPipeline(tools *media.Toolset, exportDir string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		tools:      tools,
		exportDir:  exportDir,
		codecAvail: profiles.NewAvailability(),
		audioAvail: profiles.NewAvailability(),
		logger:     logger,
	}
}

// CodecAvailability exposes the video encoder cache.
func (p *Pipeline) CodecAvailability() *profiles.Availability { return p.codecAvail }

// AudioAvailability exposes the audio encoder cache.
func (p *Pipeline) AudioAvailability() *profiles.Availability { return p.audioAvail }

// Resolve validates a request without spawning anything.
func (p *Pipeline) Resolve(req Request) (*Plan, error) {
	plan, err := resolve(req, time.Now())
	if err != nil {
		return nil, err
	}

	// Availability only blocks on a definitive miss; unknown encoders
	// are allowed through and fail at transcode time with a clear exit.
	if p.codecAvail.Unavailable(req.Codec) {
		return nil, &EncoderUnavailableError{Encoder: profiles.Codecs[req.Codec].Encoder}
	}
	pureCopy := req.Codec == profiles.CodecCopy && plan.FilterGraph == ""
	if !pureCopy && p.audioAvail.Unavailable(req.Audio) {
		return nil, &EncoderUnavailableError{Encoder: profiles.AudioEncoder(profiles.Audio[req.Audio].Args)}
	}
	return plan, nil
}

// ProbeEncoder checks one profile's encoder against the installed
// transcoder and records the result. Probe failures leave the entry
// unknown.
func (p *Pipeline) ProbeEncoder(ctx context.Context, cache *profiles.Availability, index int, encoder string, timeout time.Duration) {
	if encoder == "" {
		return
	}
	available, err := p.tools.EncoderAvailable(ctx, encoder, timeout)
	if err != nil {
		p.logger.Debug("encoder probe inconclusive", "encoder", encoder, "error", err)
		cache.Forget(index)
		return
	}
	cache.Set(index, available)
}

// Start validates the request, spawns the transcode, and returns the
// running job. On validation or spawn failure no job exists and no
// event is ever emitted.
func (p *Pipeline) Start(req Request) (*Job, error) {
	plan, err := p.Resolve(req)
	if err != nil {
		return nil, err
	}

	dir := EnsureDir(p.exportDir, p.logger)
	outputPath := filepath.Join(dir, plan.OutputName)
	argv := p.tools.BuildExportArgv(plan.SourcePath, plan.Start, plan.End, plan.CodecArgs, plan.FilterGraph, outputPath)

	cmd := p.tools.Command(context.Background(), argv)
	cmd.Stdout = io.Discard
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("cannot open diagnostic pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, classifySpawn(err, argv[0])
	}

	job := &Job{
		ID:         newJobID(),
		OutputPath: outputPath,
		Plan:       plan,
		tracker:    NewTracker(plan.Start, plan.End),
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
		proc:       cmd.Process,
	}
	job.logger = p.logger.With("job_id", job.ID)
	job.logger.Info("export started",
		"pid", cmd.Process.Pid,
		"output", outputPath,
		"start_s", plan.Start,
		"end_s", plan.End,
	)

	go job.monitor(cmd, stderr)
	return job, nil
}

// Job is a running export. Events stream on Events() until a terminal
// event closes the channel.
type Job struct {
	ID         string
	OutputPath string
	Plan       *Plan

	tracker   *Tracker
	events    chan Event
	done      chan struct{}
	cancelled atomic.Bool

	mu   sync.Mutex
	proc *os.Process

	logger *slog.Logger
}

// Events returns the job's event stream.
func (j *Job) Events() <-chan Event { return j.events }

// Done is closed after the terminal event has been delivered.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancelled reports whether cancellation was requested.
func (j *Job) Cancelled() bool { return j.cancelled.Load() }

// Cancel requests cooperative cancellation and kills the process. Safe
// to call from any goroutine, idempotent.
func (j *Job) Cancel() {
	if j.cancelled.Swap(true) {
		return
	}
	j.logger.Info("export cancellation requested")
	j.kill()
}

func (j *Job) kill() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.proc != nil {
		_ = j.proc.Kill()
	}
}

// monitor owns the diagnostic stream: it feeds the tracker, emits
// throttled progress, and delivers exactly one terminal event.
func (j *Job) monitor(cmd *exec.Cmd, stderr io.Reader) {
	defer close(j.done)
	defer close(j.events)

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	scanner.Split(scanDiagnosticLines)

	lastLine := ""
	for scanner.Scan() {
		if j.cancelled.Load() {
			j.kill()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lastLine = line
		}
		if progress, ok := j.tracker.Observe(line); ok {
			j.emitProgress(progress)
		}
	}

	err := cmd.Wait()
	j.mu.Lock()
	j.proc = nil
	j.mu.Unlock()

	switch {
	case j.cancelled.Load():
		j.logger.Info("export cancelled")
		j.events <- Event{JobID: j.ID, Kind: EventCancelled}
	case err == nil:
		j.logger.Info("export completed", "output", j.OutputPath)
		j.events <- Event{JobID: j.ID, Kind: EventCompleted, Progress: j.tracker.Final()}
	default:
		var exitErr *exec.ExitError
		var reason error
		if errors.As(err, &exitErr) {
			reason = &ProcessError{ExitCode: exitErr.ExitCode(), Detail: lastLine}
		} else {
			reason = err
		}
		j.logger.Warn("export failed", "error", reason)
		j.events <- Event{JobID: j.ID, Kind: EventFailed, Err: reason}
	}
}

// emitProgress forwards a progress event without ever blocking the
// reader loop. A full channel means the consumer is behind; the sample
// is dropped, the next one supersedes it anyway.
func (j *Job) emitProgress(p Progress) {
	select {
	case j.events <- Event{JobID: j.ID, Kind: EventProgress, Progress: p}:
	default:
	}
}

// classifySpawn maps process launch failures onto the adapter's
// sentinel errors.
func classifySpawn(err error, tool string) error {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s", media.ErrToolMissing, tool)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s", media.ErrPermissionDenied, tool)
	default:
		return err
	}
}

// scanDiagnosticLines splits on both newline and carriage return; the
// transcoder redraws its progress line with bare \r.
func scanDiagnosticLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func newJobID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("job-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
