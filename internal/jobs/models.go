// Package jobs persists export history and small agent config values.
package jobs

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ExportRecord is one export's history row.
type ExportRecord struct {
	ID         string    `json:"id"`
	SourcePath string    `json:"source_path"`
	OutputPath string    `json:"output_path"`
	Start      float64   `json:"start_s"`
	End        float64   `json:"end_s"`
	Codec      string    `json:"codec"`
	Audio      string    `json:"audio"`
	Container  string    `json:"container"`
	Status     string    `json:"status"`
	Progress   float64   `json:"progress"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal reports whether the status ends a job.
func Terminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
