package domain

import "github.com/samber/oops"

// Zoom bounds and the discrete step factor
const (
	ZoomMin  = 0.5
	ZoomMax  = 4.0
	ZoomStep = 1.5
)

// Offset is a pan offset in screen coordinates
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform is what the renderer applies to the current image. The
// translation is expressed in un-scaled coordinates (offset divided by
// zoom) so panning feels the same at every zoom level.
type Transform struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"translate_x"`
	TranslateY float64 `json:"translate_y"`
}

// Viewer is the gallery state machine over one ad's ordered image
// sequence. It cycles between Closed and Open for the life of the
// session; nothing survives Close.
type Viewer struct {
	images []string

	open     bool
	index    int
	zoom     float64
	offset   Offset
	dragging bool
	anchor   Offset
}

// NewViewer builds a closed viewer over an image sequence
func NewViewer(images []string) *Viewer {
	return &Viewer{images: images, zoom: 1}
}

// Open transitions Closed -> Open(target, zoom=1, offset=0)
func (v *Viewer) Open(target int) error {
	if len(v.images) == 0 {
		return oops.Errorf("gallery has no images")
	}
	if target < 0 || target >= len(v.images) {
		return oops.With("index", target, "len", len(v.images)).Errorf("image index out of range")
	}
	v.open = true
	v.index = target
	v.reset()
	return nil
}

// Close drops all viewer state
func (v *Viewer) Close() {
	v.open = false
	v.index = 0
	v.reset()
}

// Next advances circularly and resets zoom and offset
func (v *Viewer) Next() {
	if !v.open {
		return
	}
	v.index = (v.index + 1) % len(v.images)
	v.reset()
}

// Prev steps back circularly and resets zoom and offset
func (v *Viewer) Prev() {
	if !v.open {
		return
	}
	v.index = (v.index - 1 + len(v.images)) % len(v.images)
	v.reset()
}

// ZoomIn multiplies zoom by the step factor, capped at ZoomMax
func (v *Viewer) ZoomIn() {
	if !v.open {
		return
	}
	v.zoom *= ZoomStep
	if v.zoom > ZoomMax {
		v.zoom = ZoomMax
	}
}

// ZoomOut divides zoom by the step factor, floored at ZoomMin. Once
// magnification is gone the pan offset is meaningless and resets.
func (v *Viewer) ZoomOut() {
	if !v.open {
		return
	}
	v.zoom /= ZoomStep
	if v.zoom < ZoomMin {
		v.zoom = ZoomMin
	}
	if v.zoom <= 1 {
		v.offset = Offset{}
		v.dragging = false
	}
}

// DragStart begins a pan. Permitted only when zoomed in; the anchor
// records where the pointer grabbed relative to the current offset.
func (v *Viewer) DragStart(x, y float64) bool {
	if !v.open || v.zoom <= 1 {
		return false
	}
	v.dragging = true
	v.anchor = Offset{X: x - v.offset.X, Y: y - v.offset.Y}
	return true
}

// DragMove updates the offset by the pointer delta from the anchor
func (v *Viewer) DragMove(x, y float64) {
	if !v.dragging {
		return
	}
	v.offset = Offset{X: x - v.anchor.X, Y: y - v.anchor.Y}
}

// DragEnd finishes a pan
func (v *Viewer) DragEnd() {
	v.dragging = false
}

// IsOpen reports whether the viewer is in the Open state
func (v *Viewer) IsOpen() bool { return v.open }

// Index returns the current image index
func (v *Viewer) Index() int { return v.index }

// Len returns the number of images in the sequence
func (v *Viewer) Len() int { return len(v.images) }

// Zoom returns the current zoom scale
func (v *Viewer) Zoom() float64 { return v.zoom }

// PanOffset returns the current pan offset
func (v *Viewer) PanOffset() Offset { return v.offset }

// Dragging reports whether a pan is in progress
func (v *Viewer) Dragging() bool { return v.dragging }

// Current returns the URL of the image on display
func (v *Viewer) Current() (string, bool) {
	if !v.open {
		return "", false
	}
	return v.images[v.index], true
}

// RenderTransform composes scale and translation for the renderer.
// The offset is only applied while magnified.
func (v *Viewer) RenderTransform() Transform {
	t := Transform{Scale: v.zoom}
	if v.zoom > 1 {
		t.TranslateX = v.offset.X / v.zoom
		t.TranslateY = v.offset.Y / v.zoom
	}
	return t
}

func (v *Viewer) reset() {
	v.zoom = 1
	v.offset = Offset{}
	v.dragging = false
}
