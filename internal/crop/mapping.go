package crop

// Mapping is the letterboxed rectangle where video content is rendered
// inside the viewport, in viewport pixels. A zero Mapping means the
// editor is not ready (unknown video size or degenerate viewport);
// callers must treat that as "not ready", not as an error.
type Mapping struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Ready reports whether the mapping describes a drawable video area.
func (m Mapping) Ready() bool {
	return m.Width > 0 && m.Height > 0
}

// ComputeMapping fits a video of the given pixel dimensions into the
// viewport preserving aspect ratio (letterbox fit) and centers it.
func ComputeMapping(viewportW, viewportH float64, videoW, videoH int) Mapping {
	if viewportW <= 0 || viewportH <= 0 || videoW <= 0 || videoH <= 0 {
		return Mapping{}
	}

	scale := viewportW / float64(videoW)
	if s := viewportH / float64(videoH); s < scale {
		scale = s
	}

	dispW := float64(videoW) * scale
	dispH := float64(videoH) * scale
	return Mapping{
		OffsetX: (viewportW - dispW) / 2,
		OffsetY: (viewportH - dispH) / 2,
		Width:   dispW,
		Height:  dispH,
	}
}
