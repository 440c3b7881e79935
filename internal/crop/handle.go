package crop

import "math"

// HandleTolerance is the hit-test tolerance in viewport pixels for corner
// and edge handles.
const HandleTolerance = 12.0

// Handle identifies the part of the crop rectangle a pointer gesture
// grabs. The zero value is HandleNone.
type Handle int

const (
	HandleNone Handle = iota
	HandleMove
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
	HandleLeft
	HandleRight
	HandleTop
	HandleBottom
)

var handleNames = map[Handle]string{
	HandleNone:        "none",
	HandleMove:        "move",
	HandleTopLeft:     "top_left",
	HandleTopRight:    "top_right",
	HandleBottomLeft:  "bottom_left",
	HandleBottomRight: "bottom_right",
	HandleLeft:        "left",
	HandleRight:       "right",
	HandleTop:         "top",
	HandleBottom:      "bottom",
}

func (h Handle) String() string {
	if name, ok := handleNames[h]; ok {
		return name
	}
	return "none"
}

// Cursor returns the CSS cursor name a frontend should show for the
// handle.
func (h Handle) Cursor() string {
	switch h {
	case HandleTopLeft, HandleBottomRight:
		return "nwse-resize"
	case HandleTopRight, HandleBottomLeft:
		return "nesw-resize"
	case HandleLeft, HandleRight:
		return "ew-resize"
	case HandleTop, HandleBottom:
		return "ns-resize"
	case HandleMove:
		return "grab"
	default:
		return "default"
	}
}

// hitTest classifies a pointer position in viewport pixels against the
// crop rectangle rendered under the given mapping. Corners win over
// edges, edges over the interior, the interior over none.
func hitTest(r Rect, m Mapping, px, py float64) Handle {
	if !m.Ready() {
		return HandleNone
	}

	x := m.OffsetX + r.X*m.Width
	y := m.OffsetY + r.Y*m.Height
	w := r.W * m.Width
	h := r.H * m.Height

	nearX := math.Abs(px-x) < HandleTolerance
	nearRight := math.Abs(px-(x+w)) < HandleTolerance
	nearY := math.Abs(py-y) < HandleTolerance
	nearBottom := math.Abs(py-(y+h)) < HandleTolerance

	switch {
	case nearX && nearY:
		return HandleTopLeft
	case nearRight && nearY:
		return HandleTopRight
	case nearX && nearBottom:
		return HandleBottomLeft
	case nearRight && nearBottom:
		return HandleBottomRight
	case nearX && py > y && py < y+h:
		return HandleLeft
	case nearRight && py > y && py < y+h:
		return HandleRight
	case nearY && px > x && px < x+w:
		return HandleTop
	case nearBottom && px > x && px < x+w:
		return HandleBottom
	case px > x && px < x+w && py > y && py < y+h:
		return HandleMove
	default:
		return HandleNone
	}
}
