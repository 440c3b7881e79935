// Package media is the adapter around the external ffmpeg/ffprobe
// tools: locating them (including sandbox host-escape indirection),
// building transcode command lines, probing metadata, and checking
// encoder availability. It implements no media processing itself.
package media

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
)

// Toolset resolves and invokes the external tools. The command prefix
// reroutes invocations through a host-escape helper when the agent runs
// inside a sandbox; it is configurable rather than tied to one sandbox
// technology.
type Toolset struct {
	prefix  []string
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
}

// NewToolset creates a Toolset. Empty binary paths mean "look up on
// PATH at invocation time"; a nil prefix enables auto-detection.
func NewToolset(prefix []string, ffmpegPath, ffprobePath string, logger *slog.Logger) *Toolset {
	if prefix == nil {
		prefix = DetectToolPrefix()
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	logger.Info("toolset initialised",
		"ffmpeg", ffmpegPath,
		"ffprobe", ffprobePath,
		"prefix", prefix,
	)

	return &Toolset{
		prefix:  prefix,
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		logger:  logger,
	}
}

// DetectToolPrefix returns the host-escape prefix for the current
// environment. Inside a Flatpak sandbox with flatpak-spawn available,
// tools run on the host; otherwise no prefix is applied.
func DetectToolPrefix() []string {
	if os.Getenv("FLATPAK_ID") == "" {
		return nil
	}
	if _, err := exec.LookPath("flatpak-spawn"); err != nil {
		return nil
	}
	return []string{"flatpak-spawn", "--host"}
}

// FFmpegArgv returns the complete argv (prefix included) for an ffmpeg
// invocation with the given arguments.
func (t *Toolset) FFmpegArgv(args ...string) []string {
	return t.argv(t.ffmpeg, args)
}

// FFprobeArgv returns the complete argv for an ffprobe invocation.
func (t *Toolset) FFprobeArgv(args ...string) []string {
	return t.argv(t.ffprobe, args)
}

func (t *Toolset) argv(tool string, args []string) []string {
	out := make([]string, 0, len(t.prefix)+1+len(args))
	out = append(out, t.prefix...)
	out = append(out, tool)
	out = append(out, args...)
	return out
}

// Command builds an exec.Cmd from a complete argv.
func (t *Toolset) Command(ctx context.Context, argv []string) *exec.Cmd {
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}
