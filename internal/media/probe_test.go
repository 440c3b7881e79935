package media

import (
	"errors"
	"testing"
)

func TestParseMetadataJSON(t *testing.T) {
	data := []byte(`{
		"format": {"duration": "12.345"},
		"streams": [{"width": 1920, "height": 1080, "r_frame_rate": "30000/1001"}]
	}`)

	md, err := parseMetadataJSON(data, DefaultFPS)
	if err != nil {
		t.Fatalf("parseMetadataJSON: %v", err)
	}
	if md.Duration != 12.345 {
		t.Errorf("Duration = %v", md.Duration)
	}
	if md.Width != 1920 || md.Height != 1080 {
		t.Errorf("dimensions = %dx%d", md.Width, md.Height)
	}
	if md.FPS < 29.96 || md.FPS > 29.98 {
		t.Errorf("FPS = %v, want ~29.97", md.FPS)
	}
}

func TestParseMetadataJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `not json at all`},
		{"missing duration", `{"format": {}, "streams": [{"width": 10, "height": 10}]}`},
		{"zero duration", `{"format": {"duration": "0"}, "streams": [{"width": 10, "height": 10}]}`},
		{"no streams", `{"format": {"duration": "5"}, "streams": []}`},
		{"zero dimensions", `{"format": {"duration": "5"}, "streams": [{"width": 0, "height": 1080}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMetadataJSON([]byte(tt.data), DefaultFPS)
			if !errors.Is(err, ErrProbeParse) {
				t.Errorf("err = %v, want ErrProbeParse", err)
			}
		})
	}
}

func TestParseMetadataJSON_FPSFallback(t *testing.T) {
	data := []byte(`{
		"format": {"duration": "5"},
		"streams": [{"width": 640, "height": 480, "r_frame_rate": "30/0"}]
	}`)

	md, err := parseMetadataJSON(data, DefaultFPS)
	if err != nil {
		t.Fatalf("parseMetadataJSON: %v", err)
	}
	if md.FPS != DefaultFPS {
		t.Errorf("FPS = %v, want fallback %v", md.FPS, DefaultFPS)
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"60/1", 60},
		{"30000/1001", 30000.0 / 1001.0},
		{"", DefaultFPS},
		{"60", DefaultFPS},
		{"abc/def", DefaultFPS},
		{"30/0", DefaultFPS},
		{"30/-1", DefaultFPS},
	}

	for _, tt := range tests {
		if got := parseFrameRate(tt.in, DefaultFPS); got != tt.want {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCodecLines(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantVideo string
		wantAudio string
	}{
		{"both streams", "h264\naac\n", "h264", "aac"},
		{"video only", "vp9\n", "vp9", "unknown"},
		{"empty", "", "unknown", "unknown"},
		{"padded", "  hevc  \n  opus  ", "hevc", "opus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCodecLines(tt.in)
			if got.Video != tt.wantVideo || got.Audio != tt.wantAudio {
				t.Errorf("parseCodecLines = %+v, want video=%q audio=%q", got, tt.wantVideo, tt.wantAudio)
			}
		})
	}
}

func TestToolErrorMessage(t *testing.T) {
	e := &ToolError{Tool: "ffprobe", ExitCode: 1, Stderr: "no such file"}
	if got := e.Error(); got != "ffprobe exited 1: no such file" {
		t.Errorf("Error() = %q", got)
	}
	e2 := &ToolError{Tool: "ffmpeg", ExitCode: 187}
	if got := e2.Error(); got != "ffmpeg exited 187" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTail(t *testing.T) {
	if got := tail("short", 512); got != "short" {
		t.Errorf("tail = %q", got)
	}
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	got := tail(string(long), 512)
	if len(got) != 515 || got[:3] != "..." {
		t.Errorf("tail length = %d, prefix = %q", len(got), got[:3])
	}
}
