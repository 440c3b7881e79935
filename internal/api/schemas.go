package api

import (
	"time"

	"github.com/emendo/emendo-agent/internal/jobs"
	"github.com/emendo/emendo-agent/internal/profiles"
	"github.com/emendo/emendo-agent/internal/session"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

// StatusResponse is the session snapshot plus server identity.
type StatusResponse struct {
	session.Snapshot
	Version string `json:"version"`
}

type LoadVideoRequest struct {
	Path string `json:"path"`
}

type TrimRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type CropEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type ViewportRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ExportRequest struct {
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Codec     int     `json:"codec"`
	Audio     int     `json:"audio"`
	Container int     `json:"container"`
	FPS       float64 `json:"fps,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
}

type ExportResponse struct {
	JobID string `json:"job_id"`
}

type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

type OpenRequest struct {
	Path   string `json:"path"`
	Target string `json:"target"` // "file" or "folder"
}

type ProfileEntry struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type AudioProfileEntry struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Containers []int  `json:"containers"`
}

type ProfilesResponse struct {
	Codecs     []ProfileEntry      `json:"codecs"`
	Audio      []AudioProfileEntry `json:"audio"`
	Containers []ProfileEntry      `json:"containers"`
}

type JobResponse struct {
	ID         string  `json:"id"`
	SourcePath string  `json:"source_path"`
	OutputPath string  `json:"output_path"`
	Start      float64 `json:"start_s"`
	End        float64 `json:"end_s"`
	Codec      string  `json:"codec"`
	Audio      string  `json:"audio"`
	Container  string  `json:"container"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Error      string  `json:"error,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(rec *jobs.ExportRecord) JobResponse {
	return JobResponse{
		ID:         rec.ID,
		SourcePath: rec.SourcePath,
		OutputPath: rec.OutputPath,
		Start:      rec.Start,
		End:        rec.End,
		Codec:      rec.Codec,
		Audio:      rec.Audio,
		Container:  rec.Container,
		Status:     rec.Status,
		Progress:   rec.Progress,
		Error:      rec.Error,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  rec.UpdatedAt.Format(time.RFC3339),
	}
}

func buildProfilesResponse() ProfilesResponse {
	resp := ProfilesResponse{}
	for i, c := range profiles.Codecs {
		resp.Codecs = append(resp.Codecs, ProfileEntry{Index: i, Name: c.Name})
	}
	for i, a := range profiles.Audio {
		resp.Audio = append(resp.Audio, AudioProfileEntry{
			Index:      i,
			Name:       a.Name,
			Containers: profiles.AllowedContainers(i),
		})
	}
	for i, c := range profiles.Containers {
		resp.Containers = append(resp.Containers, ProfileEntry{Index: i, Name: c.Name})
	}
	return resp
}
