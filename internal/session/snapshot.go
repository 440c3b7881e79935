package session

import (
	"github.com/emendo/emendo-agent/internal/crop"
	"github.com/emendo/emendo-agent/internal/export"
	"github.com/emendo/emendo-agent/internal/media"
	"github.com/emendo/emendo-agent/internal/telemetry"
	"github.com/emendo/emendo-agent/internal/timeutil"
)

// JobStatus is the active export as seen by the frontend.
type JobStatus struct {
	ID         string          `json:"id"`
	OutputPath string          `json:"output_path"`
	Status     string          `json:"status"`
	Progress   export.Progress `json:"progress"`
}

// Snapshot is a point-in-time copy of the session state, safe to use
// off the dispatch goroutine.
type Snapshot struct {
	State         string            `json:"state"`
	SourcePath    string            `json:"source_path,omitempty"`
	LoadError     string            `json:"load_error,omitempty"`
	Geometry      *media.Metadata   `json:"geometry,omitempty"`
	Codecs        media.CodecInfo   `json:"codecs"`
	TrimStart     float64           `json:"trim_start"`
	TrimEnd       float64           `json:"trim_end"`
	TrimStartText string            `json:"trim_start_text"`
	TrimEndText   string            `json:"trim_end_text"`
	CropEnabled   bool              `json:"crop_enabled"`
	CropRect      crop.Rect         `json:"crop_rect"`
	CropPixels    *crop.PixelParams `json:"crop_pixels,omitempty"`
	Job           *JobStatus        `json:"job,omitempty"`
	Telemetry     telemetry.Sample  `json:"telemetry"`
}

// Snapshot reads the current session state.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	err := s.call(func() error {
		snap = Snapshot{
			State:         s.state,
			SourcePath:    s.sourcePath,
			Codecs:        s.codecs,
			TrimStart:     s.trimStart,
			TrimEnd:       s.trimEnd,
			TrimStartText: timeutil.SecondsToHMSMS(s.trimStart),
			TrimEndText:   timeutil.SecondsToHMSMS(s.trimEnd),
			CropEnabled:   s.editor.Enabled(),
			CropRect:      s.editor.Rect(),
			Telemetry:     s.telemetry,
		}
		if s.loadErr != nil {
			snap.LoadError = s.loadErr.Error()
		}
		if s.geometry != nil {
			md := *s.geometry
			snap.Geometry = &md
			if s.editor.Enabled() {
				pixels := s.editor.Pixels()
				snap.CropPixels = &pixels
			}
		}
		if s.job != nil {
			snap.Job = &JobStatus{
				ID:         s.job.ID,
				OutputPath: s.job.OutputPath,
				Status:     s.jobStatus,
				Progress:   s.lastProgress,
			}
		}
		return nil
	})
	if err != nil {
		return Snapshot{State: StateIdle}
	}
	return snap
}

// SourcePath returns the currently loaded source, empty when none.
func (s *Session) SourcePath() string {
	path := ""
	s.call(func() error {
		if s.state == StateReady || s.state == StateExporting {
			path = s.sourcePath
		}
		return nil
	})
	return path
}
