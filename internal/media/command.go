package media

import "fmt"

// BuildExportArgv assembles the complete transcode command line. The
// output is always overwritten, seeking happens on the input side with
// three-decimal precision, and the filter graph (when present) is passed
// as one combined -vf argument. Codec args are appended verbatim; unless
// they already settle the audio question (-c:a, -an, or a blanket
// "-c copy"), the source audio track is stream-copied so presets without
// an audio directive keep it unmodified.
func (t *Toolset) BuildExportArgv(sourcePath string, start, end float64, codecArgs []string, filterGraph, outputPath string) []string {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-to", fmt.Sprintf("%.3f", end),
		"-i", sourcePath,
	}
	if filterGraph != "" {
		args = append(args, "-vf", filterGraph)
	}
	args = append(args, codecArgs...)
	if !hasAudioSetting(codecArgs) {
		args = append(args, "-c:a", "copy")
	}
	args = append(args, outputPath)
	return t.FFmpegArgv(args...)
}

// hasAudioSetting reports whether the codec args already specify an
// audio codec, disable audio, or stream-copy every track.
func hasAudioSetting(args []string) bool {
	for i, a := range args {
		switch a {
		case "-c:a", "-an":
			return true
		case "-c":
			if i+1 < len(args) && args[i+1] == "copy" {
				return true
			}
		}
	}
	return false
}
