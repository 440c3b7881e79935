package media

import (
	"errors"
	"fmt"
)

// Probe failure modes. Each is distinct so callers can surface a
// specific reason; all of them leave video geometry unset.
var (
	ErrToolMissing      = errors.New("external tool not found")
	ErrPermissionDenied = errors.New("permission denied running external tool")
	ErrProbeTimeout     = errors.New("probe timed out")
	ErrProbeParse       = errors.New("cannot parse probe output")
)

// ToolError carries a nonzero exit from an external tool along with the
// tail of its diagnostic output.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited %d: %s", e.Tool, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s exited %d", e.Tool, e.ExitCode)
}
