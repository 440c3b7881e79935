package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultFPS is assumed when the probed frame rate is malformed or has
// a zero denominator.
const DefaultFPS = 60.0

// Metadata describes a loaded source file. It is set once per load and
// read-only afterwards.
type Metadata struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
}

// CodecInfo names the source's first video and audio codecs, "unknown"
// when a stream is absent.
type CodecInfo struct {
	Video string `json:"video"`
	Audio string `json:"audio"`
}

// ProbeMetadata runs ffprobe against the file and returns container
// duration, first video stream dimensions, and frame rate. The timeout
// bounds the whole invocation. On any failure the returned metadata is
// nil: geometry is never partially populated.
func (t *Toolset) ProbeMetadata(ctx context.Context, path string, timeout time.Duration) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := t.FFprobeArgv(
		"-v", "error",
		"-show_entries", "format=duration:stream=width,height,r_frame_rate",
		"-select_streams", "v:0",
		"-of", "json",
		path,
	)

	stdout, err := t.runCapture(ctx, argv)
	if err != nil {
		return nil, err
	}

	md, err := parseMetadataJSON(stdout, DefaultFPS)
	if err != nil {
		return nil, err
	}

	t.logger.Info("probed metadata",
		"duration_s", md.Duration,
		"width", md.Width,
		"height", md.Height,
		"fps", md.FPS,
	)
	return md, nil
}

// ProbeCodecs runs ffprobe in plain-text mode and returns the per-stream
// codec names: first line video, second line audio. Failures degrade to
// "unknown" rather than erroring; codec names are informational only.
func (t *Toolset) ProbeCodecs(ctx context.Context, path string, timeout time.Duration) CodecInfo {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := t.FFprobeArgv(
		"-v", "error",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	stdout, err := t.runCapture(ctx, argv)
	if err != nil {
		t.logger.Debug("codec probe failed", "error", err)
		return CodecInfo{Video: "unknown", Audio: "unknown"}
	}
	return parseCodecLines(string(stdout))
}

// runCapture executes the argv and returns stdout, classifying the
// failure modes probes care about.
func (t *Toolset) runCapture(ctx context.Context, argv []string) ([]byte, error) {
	cmd := t.Command(ctx, argv)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: %s", ErrProbeTimeout, argv[0])
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return nil, &ToolError{
			Tool:     argv[0],
			ExitCode: exitErr.ExitCode(),
			Stderr:   tail(strings.TrimSpace(stderr.String()), 512),
		}
	case errors.Is(err, exec.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, argv[0])
	case errors.Is(err, os.ErrPermission):
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, argv[0])
	default:
		return nil, err
	}
}

type probeDocument struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// parseMetadataJSON decodes ffprobe's JSON document. Duration and
// dimensions are required; the frame rate falls back to defaultFPS when
// malformed or carrying a zero denominator.
func parseMetadataJSON(data []byte, defaultFPS float64) (*Metadata, error) {
	var doc probeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeParse, err)
	}

	duration, err := strconv.ParseFloat(doc.Format.Duration, 64)
	if err != nil || duration <= 0 {
		return nil, fmt.Errorf("%w: missing or invalid duration %q", ErrProbeParse, doc.Format.Duration)
	}

	if len(doc.Streams) == 0 {
		return nil, fmt.Errorf("%w: no video stream", ErrProbeParse)
	}
	stream := doc.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("%w: missing dimensions %dx%d", ErrProbeParse, stream.Width, stream.Height)
	}

	return &Metadata{
		Duration: duration,
		Width:    stream.Width,
		Height:   stream.Height,
		FPS:      parseFrameRate(stream.RFrameRate, defaultFPS),
	}, nil
}

// parseFrameRate parses ffprobe's "num/den" rational frame rate.
func parseFrameRate(s string, fallback float64) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return fallback
	}
	d, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil || d <= 0 {
		return fallback
	}
	return float64(n) / float64(d)
}

// parseCodecLines maps ffprobe's plain-text stream listing to codec
// names: first line video, second audio.
func parseCodecLines(out string) CodecInfo {
	info := CodecInfo{Video: "unknown", Audio: "unknown"}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		info.Video = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
		info.Audio = strings.TrimSpace(lines[1])
	}
	return info
}

// tail keeps the last maxLen bytes of s.
func tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}
