package session

import (
	"fmt"

	"github.com/emendo/emendo-agent/internal/crop"
)

// Pointer actions.
const (
	ActionHover  = "hover"
	ActionBegin  = "begin"
	ActionUpdate = "update"
	ActionEnd    = "end"
)

// PointerInput is one pointer gesture event in viewport pixels. X/Y are
// the pointer position; DX/DY the cumulative delta since drag begin
// (update only).
type PointerInput struct {
	Action string  `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
}

// PointerResult tells the frontend what the gesture did: the handle
// under or captured by the pointer, the cursor to show, the resulting
// rectangle, and whether a redraw is due under the rate limit.
type PointerResult struct {
	Handle   string    `json:"handle"`
	Cursor   string    `json:"cursor"`
	Rect     crop.Rect `json:"rect"`
	Dragging bool      `json:"dragging"`
	Redraw   bool      `json:"redraw"`
}

// Pointer feeds one gesture event through the crop editor.
func (s *Session) Pointer(in PointerInput) (PointerResult, error) {
	var res PointerResult
	err := s.call(func() error {
		var handle crop.Handle
		switch in.Action {
		case ActionHover:
			handle = s.editor.HitTest(in.X, in.Y)
		case ActionBegin:
			handle = s.editor.BeginDrag(in.X, in.Y)
		case ActionUpdate:
			s.editor.UpdateDrag(in.DX, in.DY)
		case ActionEnd:
			s.editor.EndDrag()
		default:
			return fmt.Errorf("unknown pointer action %q", in.Action)
		}

		res = PointerResult{
			Handle:   handle.String(),
			Cursor:   handle.Cursor(),
			Rect:     s.editor.Rect(),
			Dragging: s.editor.Dragging(),
			Redraw:   s.editor.ShouldRedraw(),
		}
		return nil
	})
	return res, err
}
