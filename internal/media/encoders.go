package media

import (
	"context"
	"strings"
	"time"
)

// EncoderAvailable checks ffmpeg's capability listing for the given
// encoder identifier. The timeout keeps the probe short; a failed or
// timed-out probe returns an error and the caller must treat the result
// as unknown, not unavailable.
func (t *Toolset) EncoderAvailable(ctx context.Context, encoder string, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := t.FFmpegArgv("-hide_banner", "-encoders")
	stdout, err := t.runCapture(ctx, argv)
	if err != nil {
		return false, err
	}
	return strings.Contains(string(stdout), encoder), nil
}
