package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/emendo/emendo-agent/internal/crop"
	"github.com/emendo/emendo-agent/internal/profiles"
)

// Request is a fully specified export: what to transcode, the trim
// window, the selected profiles, and the optional output transforms.
// Zero FPS/Width/Height mean "keep the source value".
type Request struct {
	SourcePath string
	Start      float64
	End        float64
	Codec      int
	Audio      int
	Container  int
	Crop       *crop.PixelParams
	FPS        float64
	Width      int
	Height     int
}

// Plan is a validated request resolved into the concrete transcode
// inputs. Building a Plan performs no I/O beyond clock reads; spawning
// is the pipeline's job.
type Plan struct {
	SourcePath  string
	Start       float64
	End         float64
	FilterGraph string
	CodecArgs   []string
	OutputName  string
	DstVideo    string
	DstAudio    string
}

// resolve validates the request and assembles the plan. Validation
// order matters: range first, then transforms, then profile indexes,
// then the copy-mode and audio/container rules.
func resolve(req Request, now time.Time) (*Plan, error) {
	if req.End <= req.Start {
		return nil, ErrInvalidRange
	}
	if err := validateTransforms(req); err != nil {
		return nil, err
	}
	if !profiles.ValidCodec(req.Codec) || !profiles.ValidAudio(req.Audio) || !profiles.ValidContainer(req.Container) {
		return nil, fmt.Errorf("%w: codec=%d audio=%d container=%d",
			ErrInvalidProfile, req.Codec, req.Audio, req.Container)
	}

	graph := filterGraph(req)
	pureCopy := req.Codec == profiles.CodecCopy && graph == ""
	if req.Codec == profiles.CodecCopy && graph != "" {
		return nil, ErrCopyModeConflict
	}
	if !pureCopy && !profiles.Compatible(req.Audio, req.Container) {
		return nil, &IncompatibleAudioError{
			Audio:     req.Audio,
			Container: req.Container,
			Allowed:   profiles.AllowedContainers(req.Audio),
		}
	}

	args := append([]string(nil), profiles.Codecs[req.Codec].Args...)
	if !pureCopy {
		// Pure stream copy ignores the audio selection; everything
		// else carries the chosen audio preset's args.
		args = append(args, profiles.Audio[req.Audio].Args...)
	}

	return &Plan{
		SourcePath:  req.SourcePath,
		Start:       req.Start,
		End:         req.End,
		FilterGraph: graph,
		CodecArgs:   args,
		OutputName:  OutputName(req.SourcePath, profiles.Containers[req.Container].Ext, now),
		DstVideo:    destCodec(args, "-c:v"),
		DstAudio:    destCodec(args, "-c:a"),
	}, nil
}

// validateTransforms checks the optional fps and resolution overrides.
// Resolution needs both dimensions; half-specified is an input error,
// not a default.
func validateTransforms(req Request) error {
	if req.FPS < 0 {
		return fmt.Errorf("%w: fps must be positive, got %g", ErrInvalidTransform, req.FPS)
	}
	if req.Width < 0 || req.Height < 0 {
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalidTransform, req.Width, req.Height)
	}
	if (req.Width > 0) != (req.Height > 0) {
		return fmt.Errorf("%w: resolution requires both width and height", ErrInvalidTransform)
	}
	return nil
}

// filterGraph joins the crop, fps, and scale filters in that order.
func filterGraph(req Request) string {
	var filters []string
	if req.Crop != nil {
		filters = append(filters, fmt.Sprintf("crop=%d:%d:%d:%d", req.Crop.W, req.Crop.H, req.Crop.X, req.Crop.Y))
	}
	if req.FPS > 0 {
		filters = append(filters, fmt.Sprintf("fps=%g", req.FPS))
	}
	if req.Width > 0 && req.Height > 0 {
		filters = append(filters, fmt.Sprintf("scale=%d:%d", req.Width, req.Height))
	}
	return strings.Join(filters, ",")
}

// destCodec reads the target codec for a stream selector out of the
// assembled args, "copy" when the args leave the stream untouched.
func destCodec(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return "copy"
}
