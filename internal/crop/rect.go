// Package crop implements the interactive crop-rectangle editor: pure
// geometry translating pointer gestures in viewport pixel space into a
// normalized crop rectangle, and the rectangle into integer pixel crop
// parameters for a video filter. It performs no I/O and knows nothing
// about any rendering toolkit.
package crop

// MinSize is the smallest allowed crop width/height as a fraction of the
// video frame.
const MinSize = 0.05

// Default crop rectangle for a freshly loaded video.
const (
	DefaultX = 0.1
	DefaultY = 0.1
	DefaultW = 0.8
	DefaultH = 0.8
)

// Rect is a crop rectangle in video-relative coordinates. All fields are
// fractions in [0,1]; invariants: W,H >= MinSize, X+W <= 1, Y+H <= 1,
// X,Y >= 0.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// DefaultRect returns the initial crop rectangle.
func DefaultRect() Rect {
	return Rect{X: DefaultX, Y: DefaultY, W: DefaultW, H: DefaultH}
}

// Clamped returns the rectangle with the global invariant restored:
// origin within bounds, size at least MinSize and not extending past the
// frame edge.
func (r Rect) Clamped() Rect {
	r.X = clamp(r.X, 0, 1-r.W)
	r.Y = clamp(r.Y, 0, 1-r.H)
	r.W = clamp(r.W, MinSize, 1-r.X)
	r.H = clamp(r.H, MinSize, 1-r.Y)
	return r
}

// Valid reports whether the rectangle satisfies the crop invariant.
func (r Rect) Valid() bool {
	const eps = 1e-9
	return r.X >= -eps && r.Y >= -eps &&
		r.W >= MinSize-eps && r.H >= MinSize-eps &&
		r.X+r.W <= 1+eps && r.Y+r.H <= 1+eps
}

// PixelParams is an integer crop window in true video pixels, suitable
// for an ffmpeg crop filter.
type PixelParams struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Pixels converts the normalized rectangle to pixel crop parameters for a
// video of the given true dimensions. Width and height are forced even
// (chroma subsampling requires it) with a 2px floor, and the origin is
// clamped so the window stays inside the frame. Unknown dimensions yield
// a full-frame window.
func (r Rect) Pixels(videoW, videoH int) PixelParams {
	if videoW <= 0 || videoH <= 0 {
		return PixelParams{X: 0, Y: 0, W: max(videoW, 0), H: max(videoH, 0)}
	}

	x := int(roundHalfUp(r.X * float64(videoW)))
	y := int(roundHalfUp(r.Y * float64(videoH)))
	w := int(roundHalfUp(r.W * float64(videoW)))
	h := int(roundHalfUp(r.H * float64(videoH)))

	if w%2 != 0 {
		w--
	}
	if h%2 != 0 {
		h--
	}
	if w < 2 {
		w = 2
	}
	if h < 2 {
		h = 2
	}

	x = clampInt(x, 0, videoW-w)
	y = clampInt(y, 0, videoH-h)

	return PixelParams{X: x, Y: y, W: w, H: h}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundHalfUp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return float64(int64(v + 0.5))
}
