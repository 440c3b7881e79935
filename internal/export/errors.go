package export

import (
	"errors"
	"fmt"

	"github.com/emendo/emendo-agent/internal/profiles"
)

// Validation failure modes. All of them reject the request before any
// process is spawned.
var (
	ErrInvalidRange     = errors.New("end time must be greater than start time")
	ErrCopyModeConflict = errors.New("stream copy cannot be combined with crop, fps, or resolution filters")
	ErrInvalidTransform = errors.New("invalid output transform")
	ErrInvalidProfile   = errors.New("invalid profile selection")
)

// IncompatibleAudioError reports an audio preset paired with a container
// it cannot mux into. Allowed lists the container indexes that would
// work.
type IncompatibleAudioError struct {
	Audio     int
	Container int
	Allowed   []int
}

func (e *IncompatibleAudioError) Error() string {
	audio := fmt.Sprintf("audio #%d", e.Audio)
	if profiles.ValidAudio(e.Audio) {
		audio = profiles.Audio[e.Audio].Name
	}
	container := fmt.Sprintf("container #%d", e.Container)
	if profiles.ValidContainer(e.Container) {
		container = profiles.Containers[e.Container].Name
	}
	return fmt.Sprintf("%s cannot be muxed into %s; valid containers: %s",
		audio, container, profiles.ContainerNames(e.Allowed))
}

// EncoderUnavailableError reports a selection whose encoder is
// definitively absent from the installed transcoder. An unknown
// availability never produces this error.
type EncoderUnavailableError struct {
	Encoder string
}

func (e *EncoderUnavailableError) Error() string {
	return fmt.Sprintf("the %s encoder is not available in this ffmpeg installation", e.Encoder)
}

// ProcessError carries a nonzero transcode exit along with the last
// diagnostic line seen before it died.
type ProcessError struct {
	ExitCode int
	Detail   string
}

func (e *ProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transcode exited %d: %s", e.ExitCode, e.Detail)
	}
	return fmt.Sprintf("transcode exited %d", e.ExitCode)
}
