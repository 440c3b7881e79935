package api

import (
	"errors"
	"net/http"

	"github.com/emendo/emendo-agent/internal/export"
	"github.com/emendo/emendo-agent/internal/media"
	"github.com/emendo/emendo-agent/internal/session"
	"github.com/emendo/emendo-agent/internal/timeutil"
)

// writeDomainError maps domain failures onto stable HTTP error codes so
// the frontend can branch on Code instead of message text.
func writeDomainError(w http.ResponseWriter, err error) {
	var incompat *export.IncompatibleAudioError
	var unavail *export.EncoderUnavailableError

	switch {
	case errors.Is(err, timeutil.ErrInvalidTimeFormat):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TIME_FORMAT")
	case errors.Is(err, export.ErrInvalidRange):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_RANGE")
	case errors.Is(err, export.ErrInvalidTransform):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TRANSFORM")
	case errors.Is(err, export.ErrInvalidProfile):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_PROFILE")
	case errors.Is(err, export.ErrCopyModeConflict):
		WriteError(w, http.StatusConflict, err.Error(), "COPY_MODE_CONFLICT")
	case errors.As(err, &incompat):
		WriteError(w, http.StatusConflict, err.Error(), "INCOMPATIBLE_AUDIO_CONTAINER")
	case errors.As(err, &unavail):
		WriteError(w, http.StatusConflict, err.Error(), "ENCODER_UNAVAILABLE")
	case errors.Is(err, session.ErrExportActive):
		WriteError(w, http.StatusConflict, err.Error(), "EXPORT_ACTIVE")
	case errors.Is(err, session.ErrVideoLoading):
		WriteError(w, http.StatusConflict, err.Error(), "VIDEO_LOADING")
	case errors.Is(err, session.ErrNoVideo):
		WriteError(w, http.StatusConflict, err.Error(), "NO_VIDEO")
	case errors.Is(err, media.ErrProbeTimeout):
		WriteError(w, http.StatusGatewayTimeout, err.Error(), "METADATA_TIMEOUT")
	case errors.Is(err, media.ErrProbeParse):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "METADATA_PARSE_ERROR")
	case errors.Is(err, media.ErrToolMissing):
		WriteError(w, http.StatusInternalServerError, err.Error(), "TOOL_MISSING")
	case errors.Is(err, media.ErrPermissionDenied):
		WriteError(w, http.StatusInternalServerError, err.Error(), "TOOL_PERMISSION")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
