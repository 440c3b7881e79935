// Package session owns the agent's interactive state: the loaded video,
// the crop editor, trim entries, and the active export. All state lives
// on a single dispatch goroutine; callers interact through methods that
// run on that goroutine, and background work (probes, export events,
// telemetry) re-enters the loop as posted events.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/emendo/emendo-agent/internal/crop"
	"github.com/emendo/emendo-agent/internal/export"
	"github.com/emendo/emendo-agent/internal/jobs"
	"github.com/emendo/emendo-agent/internal/media"
	"github.com/emendo/emendo-agent/internal/profiles"
	"github.com/emendo/emendo-agent/internal/telemetry"
	"github.com/emendo/emendo-agent/internal/timeutil"
)

var (
	ErrClosed       = errors.New("session closed")
	ErrNoVideo      = errors.New("no video loaded")
	ErrVideoLoading = errors.New("video still loading")
	ErrExportActive = errors.New("an export is already running")
)

// Session states.
const (
	StateIdle      = "idle"
	StateLoading   = "loading"
	StateReady     = "ready"
	StateExporting = "exporting"
)

// progressPersistInterval throttles job-progress writes to the store.
const progressPersistInterval = time.Second

// Options wires a session's collaborators.
type Options struct {
	Tools               *media.Toolset
	Pipeline            *export.Pipeline
	Repo                jobs.Repository
	Logger              *slog.Logger
	ProbeTimeout        time.Duration
	EncoderCheckTimeout time.Duration
}

// Session is the agent's interaction thread surrogate.
type Session struct {
	tools    *media.Toolset
	pipeline *export.Pipeline
	repo     jobs.Repository
	logger   *slog.Logger

	probeTimeout   time.Duration
	encoderTimeout time.Duration

	tasks chan func()
	quit  chan struct{}
	done  chan struct{}

	// Everything below is owned by the dispatch goroutine.
	state      string
	sourcePath string
	generation uint64
	loadErr    error
	geometry   *media.Metadata
	codecs     media.CodecInfo
	editor     *crop.Editor
	trimStart  float64
	trimEnd    float64

	job           *export.Job
	jobStatus     string
	lastProgress  export.Progress
	lastPersist   time.Time
	stopTelemetry context.CancelFunc
	telemetry     telemetry.Sample
}

// New starts a session's dispatch loop.
func New(opts Options) *Session {
	s := &Session{
		tools:          opts.Tools,
		pipeline:       opts.Pipeline,
		repo:           opts.Repo,
		logger:         opts.Logger,
		probeTimeout:   opts.ProbeTimeout,
		encoderTimeout: opts.EncoderCheckTimeout,
		tasks:          make(chan func(), 128),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		state:          StateIdle,
		editor:         crop.NewEditor(),
	}
	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.quit:
			if s.job != nil {
				s.job.Cancel()
			}
			if s.stopTelemetry != nil {
				s.stopTelemetry()
			}
			return
		}
	}
}

// Close stops the dispatch loop, cancelling any running export.
func (s *Session) Close() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.done
}

// call runs fn on the dispatch goroutine and waits for its result.
func (s *Session) call(fn func() error) error {
	result := make(chan error, 1)
	select {
	case s.tasks <- func() { result <- fn() }:
	case <-s.quit:
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// post delivers an async result to the dispatch goroutine. Posts after
// Close are dropped.
func (s *Session) post(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.quit:
	}
}

// LoadVideo starts probing a source file. The probe runs in the
// background; its result is discarded if another load supersedes it.
func (s *Session) LoadVideo(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot access video: %w", err)
	}
	return s.call(func() error {
		if s.job != nil {
			return ErrExportActive
		}
		s.generation++
		gen := s.generation
		s.sourcePath = path
		s.state = StateLoading
		s.loadErr = nil
		s.geometry = nil
		s.codecs = media.CodecInfo{}

		go s.probe(gen, path)
		return nil
	})
}

func (s *Session) probe(gen uint64, path string) {
	ctx := context.Background()
	md, err := s.tools.ProbeMetadata(ctx, path, s.probeTimeout)
	var codecs media.CodecInfo
	if err == nil {
		codecs = s.tools.ProbeCodecs(ctx, path, s.probeTimeout)
	}
	s.post(func() { s.onMetadataResult(gen, path, md, codecs, err) })
}

// onMetadataResult applies a finished probe, discarding stale results
// from superseded loads.
func (s *Session) onMetadataResult(gen uint64, path string, md *media.Metadata, codecs media.CodecInfo, err error) {
	if gen != s.generation || path != s.sourcePath {
		s.logger.Debug("discarding stale metadata result", "generation", gen, "current", s.generation)
		return
	}
	if err != nil {
		s.logger.Warn("metadata probe failed", "error", err)
		s.state = StateIdle
		s.loadErr = err
		return
	}
	s.geometry = md
	s.codecs = codecs
	s.editor.SetVideoSize(md.Width, md.Height)
	s.trimStart = 0
	s.trimEnd = md.Duration
	s.state = StateReady
}

// SetTrim updates the trim window from time text.
func (s *Session) SetTrim(startText, endText string) error {
	start, err := timeutil.ParseHMSMS(startText)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := timeutil.ParseHMSMS(endText)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	return s.call(func() error {
		if end <= start {
			return export.ErrInvalidRange
		}
		s.trimStart = start
		s.trimEnd = end
		return nil
	})
}

// SetCropEnabled toggles crop mode.
func (s *Session) SetCropEnabled(enabled bool) {
	s.call(func() error {
		s.editor.SetEnabled(enabled)
		return nil
	})
}

// SetViewport records the frontend's video widget size.
func (s *Session) SetViewport(w, h float64) {
	s.call(func() error {
		s.editor.SetViewport(w, h)
		return nil
	})
}

// ExportOptions is an export request in API terms: trim as time text,
// profiles by index, optional output transforms.
type ExportOptions struct {
	StartText string
	EndText   string
	Codec     int
	Audio     int
	Container int
	FPS       float64
	Width     int
	Height    int
}

// StartExport validates and launches an export. Only one export runs at
// a time. Encoder probes run on the caller's goroutine, never the
// dispatch loop, so gestures and snapshots stay live while they block.
func (s *Session) StartExport(opts ExportOptions) (string, error) {
	start, err := timeutil.ParseHMSMS(opts.StartText)
	if err != nil {
		return "", fmt.Errorf("start: %w", err)
	}
	end, err := timeutil.ParseHMSMS(opts.EndText)
	if err != nil {
		return "", fmt.Errorf("end: %w", err)
	}

	s.checkEncoders(opts.Codec, opts.Audio)

	var jobID string
	err = s.call(func() error {
		if s.job != nil {
			return ErrExportActive
		}
		switch s.state {
		case StateLoading:
			return ErrVideoLoading
		case StateIdle:
			return ErrNoVideo
		}

		req := export.Request{
			SourcePath: s.sourcePath,
			Start:      start,
			End:        end,
			Codec:      opts.Codec,
			Audio:      opts.Audio,
			Container:  opts.Container,
			FPS:        opts.FPS,
			Width:      opts.Width,
			Height:     opts.Height,
		}
		if s.editor.Enabled() {
			pixels := s.editor.Pixels()
			req.Crop = &pixels
		}

		job, err := s.pipeline.Start(req)
		if err != nil {
			return err
		}
		s.adoptJob(job, req)
		jobID = job.ID
		return nil
	})
	return jobID, err
}

// checkEncoders lazily probes the selected encoders so a definitive
// miss rejects the export with a clear reason instead of a transcoder
// exit. Probe failures leave availability unknown and do not block.
// Must not run on the dispatch goroutine: each probe may take the full
// encoder-check timeout.
func (s *Session) checkEncoders(codec, audio int) {
	ctx := context.Background()
	if profiles.ValidCodec(codec) {
		if enc := profiles.Codecs[codec].Encoder; enc != "" {
			if _, known := s.pipeline.CodecAvailability().Get(codec); !known {
				s.pipeline.ProbeEncoder(ctx, s.pipeline.CodecAvailability(), codec, enc, s.encoderTimeout)
			}
		}
	}
	if profiles.ValidAudio(audio) {
		if enc := profiles.AudioEncoder(profiles.Audio[audio].Args); enc != "" {
			if _, known := s.pipeline.AudioAvailability().Get(audio); !known {
				s.pipeline.ProbeEncoder(ctx, s.pipeline.AudioAvailability(), audio, enc, s.encoderTimeout)
			}
		}
	}
}

// adoptJob records the new export, consumes its events, and starts the
// telemetry sampler for its lifetime.
func (s *Session) adoptJob(job *export.Job, req export.Request) {
	s.job = job
	s.jobStatus = jobs.StatusRunning
	s.lastProgress = export.Progress{}
	s.lastPersist = time.Time{}
	s.state = StateExporting

	now := time.Now().UTC()
	rec := &jobs.ExportRecord{
		ID:         job.ID,
		SourcePath: req.SourcePath,
		OutputPath: job.OutputPath,
		Start:      req.Start,
		End:        req.End,
		Codec:      profiles.Codecs[req.Codec].Name,
		Audio:      profiles.Audio[req.Audio].Name,
		Container:  profiles.Containers[req.Container].Name,
		Status:     jobs.StatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateExport(context.Background(), rec); err != nil {
		s.logger.Warn("cannot persist export record", "error", err)
	}

	go func() {
		for ev := range job.Events() {
			ev := ev
			s.post(func() { s.onJobEvent(ev) })
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.stopTelemetry = cancel
	samples := make(chan telemetry.Sample, 4)
	go telemetry.NewSampler(s.logger).Run(ctx, samples)
	go func() {
		for sample := range samples {
			sample := sample
			s.post(func() { s.telemetry = sample })
		}
	}()
}

// onJobEvent applies one export event. Events from a job the session no
// longer tracks are discarded.
func (s *Session) onJobEvent(ev export.Event) {
	if s.job == nil || ev.JobID != s.job.ID {
		return
	}
	ctx := context.Background()

	switch ev.Kind {
	case export.EventProgress:
		s.lastProgress = ev.Progress
		if time.Since(s.lastPersist) >= progressPersistInterval {
			s.lastPersist = time.Now()
			if err := s.repo.UpdateExportProgress(ctx, ev.JobID, ev.Progress.Fraction); err != nil {
				s.logger.Debug("cannot persist progress", "error", err)
			}
		}
		return

	case export.EventCompleted:
		s.lastProgress = ev.Progress
		s.jobStatus = jobs.StatusCompleted
	case export.EventFailed:
		s.jobStatus = jobs.StatusFailed
	case export.EventCancelled:
		s.jobStatus = jobs.StatusCancelled
	}

	errMsg := ""
	if ev.Err != nil {
		errMsg = ev.Err.Error()
	}
	if err := s.repo.UpdateExportStatus(ctx, ev.JobID, s.jobStatus, errMsg); err != nil {
		s.logger.Warn("cannot persist export status", "error", err)
	}
	if s.jobStatus == jobs.StatusCompleted {
		if err := s.repo.UpdateExportProgress(ctx, ev.JobID, 1.0); err != nil {
			s.logger.Debug("cannot persist progress", "error", err)
		}
	}

	if s.stopTelemetry != nil {
		s.stopTelemetry()
		s.stopTelemetry = nil
	}
	s.job = nil
	s.state = StateReady
}

// CancelExport requests cancellation of the running export. It reports
// whether a job was active.
func (s *Session) CancelExport() bool {
	active := false
	s.call(func() error {
		if s.job != nil {
			active = true
			s.job.Cancel()
		}
		return nil
	})
	return active
}
