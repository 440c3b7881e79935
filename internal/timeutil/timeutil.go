// Package timeutil handles the time text formats used by the agent:
// HH:MM:SS.mmm entry fields, HH:MM:SS elapsed displays, and the
// time= tokens ffmpeg prints on its diagnostic stream.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTimeFormat indicates malformed time-entry text. It is a
// recoverable user-input error, never a crash.
var ErrInvalidTimeFormat = errors.New("invalid time format")

var ffmpegTimeRe = regexp.MustCompile(`time=(\d+:\d+:\d+\.?\d*)`)

// SecondsToHMSMS formats seconds as HH:MM:SS.mmm. Negative or NaN input
// formats as zero.
func SecondsToHMSMS(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	totalMS := int64(math.Round(seconds * 1000))
	ms := totalMS % 1000
	s := (totalMS / 1000) % 60
	m := (totalMS / (1000 * 60)) % 60
	h := totalMS / (1000 * 3600)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// ParseHMSMS parses a user-entered time string into seconds. Accepted
// forms: "SS", "SS.mmm", "MM:SS", "MM:SS.mmm", "HH:MM:SS", "HH:MM:SS.mmm".
// Returns ErrInvalidTimeFormat for empty or malformed input.
func ParseHMSMS(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty time string", ErrInvalidTimeFormat)
	}

	parts := strings.Split(text, ":")

	var hours, minutes int64
	var secPart string
	var err error

	switch len(parts) {
	case 1:
		secPart = parts[0]
	case 2:
		minutes, err = parseIntField(parts[0])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
		}
		secPart = parts[1]
	default:
		hours, err = parseIntField(parts[0])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
		}
		minutes, err = parseIntField(parts[1])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
		}
		secPart = strings.Join(parts[2:], ":")
	}

	seconds, ms, err := parseSecondsField(secPart)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, text)
	}

	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(ms)/1000.0, nil
}

// parseSecondsField splits "SS.mmm" into whole seconds and milliseconds.
// The fractional part is right-padded to three digits then truncated, so
// ".5" means 500ms.
func parseSecondsField(s string) (int64, int64, error) {
	secStr := s
	msStr := "0"
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		secStr = s[:idx]
		msStr = s[idx+1:]
	}

	seconds, err := parseIntField(secStr)
	if err != nil {
		return 0, 0, err
	}

	ms, err := parseIntField((msStr + "000")[:3])
	if err != nil {
		return 0, 0, err
	}
	return seconds, ms, nil
}

func parseIntField(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty field")
	}
	return strconv.ParseInt(s, 10, 64)
}

// FormatElapsed formats a wall-clock duration in seconds as HH:MM:SS.
func FormatElapsed(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseFFmpegTime extracts the time= token from an ffmpeg diagnostic line
// and converts it to seconds. The second return value is false when the
// line carries no timestamp (informational noise).
func ParseFFmpegTime(line string) (float64, bool) {
	m := ffmpegTimeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	seconds, err := ParseHMSMS(m[1])
	if err != nil {
		return 0, false
	}
	return seconds, true
}
