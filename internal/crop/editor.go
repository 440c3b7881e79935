package crop

import "time"

const (
	// mappingCacheTTL bounds how long the letterbox mapping computed at
	// drag begin is reused before being recomputed from the current
	// viewport size.
	mappingCacheTTL = 100 * time.Millisecond

	// RedrawInterval is the minimum spacing between granted redraw
	// requests (60 per second).
	RedrawInterval = time.Second / 60
)

// dragState captures a gesture at drag-begin and is consumed by every
// drag-update until drag-end.
type dragState struct {
	handle    Handle
	startRect Rect
}

// Editor owns the crop rectangle and resolves pointer gestures against
// it. It is single-owner state: all mutation happens synchronously on
// the interaction loop, so no locking is needed.
type Editor struct {
	rect    Rect
	enabled bool

	videoW int
	videoH int

	viewportW float64
	viewportH float64

	mapping    Mapping
	mappingAt  time.Time
	drag       *dragState
	lastRedraw time.Time
	now        func() time.Time
}

// NewEditor returns an editor holding the default crop rectangle.
func NewEditor() *Editor {
	return &Editor{rect: DefaultRect(), now: time.Now}
}

// SetEnabled toggles crop mode. Disabling keeps the rectangle so a
// re-enable restores the previous selection.
func (e *Editor) SetEnabled(enabled bool) {
	e.enabled = enabled
	if !enabled {
		e.drag = nil
	}
}

// Enabled reports whether crop mode is active.
func (e *Editor) Enabled() bool {
	return e.enabled
}

// SetVideoSize records the true pixel dimensions of the loaded source.
// A new video resets the rectangle to the default selection.
func (e *Editor) SetVideoSize(w, h int) {
	e.videoW = w
	e.videoH = h
	e.rect = DefaultRect()
	e.mapping = Mapping{}
	e.drag = nil
}

// SetViewport records the current viewport size in widget pixels.
func (e *Editor) SetViewport(w, h float64) {
	e.viewportW = w
	e.viewportH = h
	e.mapping = Mapping{}
}

// Rect returns the current crop rectangle.
func (e *Editor) Rect() Rect {
	return e.rect
}

// SetRect replaces the rectangle, restoring the invariant.
func (e *Editor) SetRect(r Rect) {
	e.rect = r.Clamped()
}

// Pixels returns the integer crop window for the loaded video.
func (e *Editor) Pixels() PixelParams {
	return e.rect.Pixels(e.videoW, e.videoH)
}

// Ready reports whether the editor has a usable display mapping.
func (e *Editor) Ready() bool {
	return e.currentMapping().Ready()
}

// HitTest classifies a pointer position against the crop rectangle.
// Corner tolerance boxes take priority over edges, edges over the
// interior.
func (e *Editor) HitTest(x, y float64) Handle {
	if !e.enabled {
		return HandleNone
	}
	return hitTest(e.rect, e.currentMapping(), x, y)
}

// BeginDrag starts a gesture at the given pointer position. It returns
// the captured handle; HandleNone means the gesture missed the
// rectangle and no drag is active.
func (e *Editor) BeginDrag(x, y float64) Handle {
	if !e.enabled {
		return HandleNone
	}
	handle := e.HitTest(x, y)
	if handle == HandleNone {
		e.drag = nil
		return HandleNone
	}
	e.drag = &dragState{handle: handle, startRect: e.rect}
	return handle
}

// UpdateDrag applies the cumulative pointer delta since drag-begin. The
// rectangle state updates on every call regardless of redraw gating, and
// the crop invariant holds afterwards even under overshooting input.
func (e *Editor) UpdateDrag(dx, dy float64) {
	if !e.enabled || e.drag == nil {
		return
	}

	m := e.currentMapping()
	if !m.Ready() {
		return
	}

	// Deltas in video-relative units: resizing is invariant to widget
	// pixel density.
	rdx := dx / m.Width
	rdy := dy / m.Height

	e.rect = resolveDrag(e.drag.handle, e.drag.startRect, rdx, rdy).Clamped()
}

// EndDrag finishes the active gesture.
func (e *Editor) EndDrag() {
	e.drag = nil
}

// Dragging reports whether a gesture is active.
func (e *Editor) Dragging() bool {
	return e.drag != nil
}

// ShouldRedraw grants at most one redraw per RedrawInterval. Excess
// requests inside the window are dropped, not queued.
func (e *Editor) ShouldRedraw() bool {
	now := e.now()
	if now.Sub(e.lastRedraw) < RedrawInterval {
		return false
	}
	e.lastRedraw = now
	return true
}

// currentMapping returns the letterbox mapping for the current viewport,
// reusing a cached value briefly to avoid recomputation storms during a
// drag.
func (e *Editor) currentMapping() Mapping {
	now := e.now()
	if e.mapping.Ready() && now.Sub(e.mappingAt) <= mappingCacheTTL {
		return e.mapping
	}
	e.mapping = ComputeMapping(e.viewportW, e.viewportH, e.videoW, e.videoH)
	e.mappingAt = now
	return e.mapping
}

// resolveDrag applies the handle-specific update rule to the rectangle
// snapshot taken at drag begin. Each rule clamps its own axes; the
// caller runs the global clamp pass afterwards.
func resolveDrag(handle Handle, orig Rect, rdx, rdy float64) Rect {
	r := orig

	switch handle {
	case HandleMove:
		r.X = clamp(orig.X+rdx, 0, 1-orig.W)
		r.Y = clamp(orig.Y+rdy, 0, 1-orig.H)

	case HandleTopLeft:
		newX := clamp(orig.X+rdx, 0, orig.X+orig.W-MinSize)
		newY := clamp(orig.Y+rdy, 0, orig.Y+orig.H-MinSize)
		r.W = orig.W - (newX - orig.X)
		r.H = orig.H - (newY - orig.Y)
		r.X = newX
		r.Y = newY

	case HandleTopRight:
		newY := clamp(orig.Y+rdy, 0, orig.Y+orig.H-MinSize)
		r.W = clamp(orig.W+rdx, MinSize, 1-orig.X)
		r.H = orig.H - (newY - orig.Y)
		r.Y = newY

	case HandleBottomLeft:
		newX := clamp(orig.X+rdx, 0, orig.X+orig.W-MinSize)
		r.W = orig.W - (newX - orig.X)
		r.H = clamp(orig.H+rdy, MinSize, 1-orig.Y)
		r.X = newX

	case HandleBottomRight:
		r.W = clamp(orig.W+rdx, MinSize, 1-orig.X)
		r.H = clamp(orig.H+rdy, MinSize, 1-orig.Y)

	case HandleLeft:
		newX := clamp(orig.X+rdx, 0, orig.X+orig.W-MinSize)
		r.W = orig.W - (newX - orig.X)
		r.X = newX

	case HandleRight:
		r.W = clamp(orig.W+rdx, MinSize, 1-orig.X)

	case HandleTop:
		newY := clamp(orig.Y+rdy, 0, orig.Y+orig.H-MinSize)
		r.H = orig.H - (newY - orig.Y)
		r.Y = newY

	case HandleBottom:
		r.H = clamp(orig.H+rdy, MinSize, 1-orig.Y)

	case HandleNone:
		// no-op: callers never start a drag without a handle
	}

	return r
}
