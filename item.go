package easel

import (
	"image"
	"math"

	"github.com/oklog/ulid/v2"
)

// ItemType distinguishes the two item variants.
type ItemType uint8

const (
	ItemTypeImage ItemType = iota
	ItemTypeText
)

// gestureState is the per-item interaction state machine.
type gestureState uint8

const (
	gestureIdle gestureState = iota
	gestureDragging
	gestureResizing
)

// baseTextSize is the intrinsic pixel height of a text item at scale 1.
const baseTextSize = 32.0

// NewItemID returns a fresh opaque item identifier. IDs are unique and
// never reused.
func NewItemID() string {
	return ulid.Make().String()
}

// Item is a manipulable object on the canvas. A single flat struct is used
// for both variants to avoid interface dispatch on the hot path; Type
// selects which fields are meaningful.
//
// X and Y are the world-space position of the item's render center, which
// is also the anchor point for resize and wheel scaling. Scale is uniform;
// aspect ratio is always preserved.
type Item struct {
	ID   string
	Type ItemType

	X, Y  float64
	Scale float64

	// Intrinsic dimensions: an image's native pixel size, or a text
	// item's measured extents at scale 1. Resolved asynchronously for
	// images; estimated then refined by the renderer for text.
	NaturalW, NaturalH float64

	// Image fields (ItemTypeImage)
	SourceRef string
	Resolved  image.Image // nil until the source reference decodes

	// Text fields (ItemTypeText)
	Content    string
	Color      string
	FontFamily string

	// Selection visuals. Pure rendering flags with no state-machine role.
	frameVisible bool

	// Interaction state. Owned exclusively by this item; only one pointer
	// may drive a gesture at a time.
	gesture     gestureState
	pointerID   int
	grabOffsetX float64 // world-space pointer-to-position offset at grab
	grabOffsetY float64
	startDist   float64 // screen-space pointer-to-center distance at grab
	startScale  float64

	// Per-item callbacks (nil by default; zero cost when unused). Fired
	// once at gesture end, or immediately for wheel scaling.
	OnMoved   func(x, y float64)
	OnResized func(scale float64)

	disposed bool
}

// itemDefaults sets the common field values shared by both constructors.
func itemDefaults(it *Item) {
	it.ID = NewItemID()
	it.Scale = 1
}

// NewImageItem creates an image item for the given source reference. The
// intrinsic dimensions stay zero until the reference resolves.
func NewImageItem(sourceRef string) *Item {
	it := &Item{Type: ItemTypeImage, SourceRef: sourceRef}
	itemDefaults(it)
	return it
}

// NewTextItem creates a text item with the given content and style. The
// intrinsic size starts as a monospace estimate; the renderer refines it
// via SetIntrinsicSize once the text is laid out.
func NewTextItem(content, color, fontFamily string) *Item {
	it := &Item{
		Type:       ItemTypeText,
		Content:    content,
		Color:      color,
		FontFamily: fontFamily,
	}
	itemDefaults(it)
	it.NaturalW, it.NaturalH = estimateTextSize(content)
	return it
}

// estimateTextSize approximates a text item's intrinsic extents before any
// real layout has run.
func estimateTextSize(content string) (w, h float64) {
	runes := len([]rune(content))
	if runes == 0 {
		runes = 1
	}
	return float64(runes) * baseTextSize * 0.6, baseTextSize
}

// SetIntrinsicSize replaces the item's intrinsic dimensions, re-clamping
// the current scale against the new bounds.
func (it *Item) SetIntrinsicSize(w, h float64) {
	it.NaturalW = w
	it.NaturalH = h
	it.Scale = it.clampScale(it.Scale)
}

// MinScale returns the smallest permitted scale for this item: the shortest
// intrinsic dimension never renders below minRenderedPx device pixels, with
// an absolute floor of minScaleFloor.
func (it *Item) MinScale() float64 {
	shortest := math.Min(it.NaturalW, it.NaturalH)
	if shortest <= 0 {
		return minScaleFloor
	}
	return math.Max(minScaleFloor, minRenderedPx/shortest)
}

// clampScale clamps s to [MinScale, maxScale].
func (it *Item) clampScale(s float64) float64 {
	return math.Max(it.MinScale(), math.Min(s, maxScale))
}

// fitDropScale returns the initial scale for a freshly dropped image:
// fitted to dropFitWidth presentation pixels wide, never upscaled.
func fitDropScale(naturalW float64) float64 {
	if naturalW <= 0 {
		return 1
	}
	return math.Min(1, dropFitWidth/naturalW)
}

// --- Geometry ---

// Width and Height return the item's presented size in world units.
func (it *Item) Width() float64  { return it.NaturalW * it.Scale }
func (it *Item) Height() float64 { return it.NaturalH * it.Scale }

// Bounds returns the item's world-space bounding rectangle.
func (it *Item) Bounds() Rect {
	w, h := it.Width(), it.Height()
	return Rect{X: it.X - w/2, Y: it.Y - h/2, Width: w, Height: h}
}

// ContainsWorld reports whether the world point (wx, wy) lies inside the
// item's bounds.
func (it *Item) ContainsWorld(wx, wy float64) bool {
	return it.Bounds().Contains(wx, wy)
}

// HandleAnchor returns the world-space point the resize handle is anchored
// to: the item's bottom-right corner.
func (it *Item) HandleAnchor() Vec2 {
	return Vec2{it.X + it.Width()/2, it.Y + it.Height()/2}
}

// --- Selection visuals ---

// ShowSelection makes the bounding frame and resize handle visible.
func (it *Item) ShowSelection() { it.frameVisible = true }

// HideSelection hides the bounding frame and resize handle.
func (it *Item) HideSelection() { it.frameVisible = false }

// SelectionVisible reports whether the bounding frame is currently shown.
func (it *Item) SelectionVisible() bool { return it.frameVisible }

// --- Drag gesture ---

// startDrag transitions Idle -> Dragging for the given pointer, capturing
// the world-space offset between the pointer and the item position.
// Returns false (and ignores the event) if a gesture is already active.
func (it *Item) startDrag(pointerID int, worldX, worldY float64) bool {
	if it.gesture != gestureIdle {
		return false
	}
	it.gesture = gestureDragging
	it.pointerID = pointerID
	it.grabOffsetX = worldX - it.X
	it.grabOffsetY = worldY - it.Y
	return true
}

// dragTo moves the item so the grab offset is preserved. Only the matching
// pointer drives the gesture. The live position updates continuously so
// overlays track; the moved notification waits for gesture end.
func (it *Item) dragTo(pointerID int, worldX, worldY float64) {
	if it.gesture != gestureDragging || pointerID != it.pointerID {
		return
	}
	it.X = worldX - it.grabOffsetX
	it.Y = worldY - it.grabOffsetY
}

// endDrag transitions Dragging -> Idle on matching pointer-up or cancel,
// emitting the moved notification exactly once.
func (it *Item) endDrag(pointerID int) {
	if it.gesture != gestureDragging || pointerID != it.pointerID {
		return
	}
	it.gesture = gestureIdle
	if it.OnMoved != nil {
		it.OnMoved(it.X, it.Y)
	}
}

// --- Resize gesture ---

// startResize transitions Idle -> Resizing, recording the screen-space
// pointer-to-center distance and the scale at gesture start. The caller
// must have routed the press to the resize handle, never the body.
func (it *Item) startResize(pointerID int, screenDist float64) bool {
	if it.gesture != gestureIdle {
		return false
	}
	if screenDist <= 0 {
		screenDist = 1
	}
	it.gesture = gestureResizing
	it.pointerID = pointerID
	it.startDist = screenDist
	it.startScale = it.Scale
	return true
}

// resizeTo recomputes scale from the current screen-space distance:
// startScale x (dist / startDist), clamped to [MinScale, maxScale].
// Distances are measured in a shared screen-space frame so the gesture
// stays correct when the handle is dragged outside the item's bounds.
func (it *Item) resizeTo(pointerID int, screenDist float64) {
	if it.gesture != gestureResizing || pointerID != it.pointerID {
		return
	}
	it.Scale = it.clampScale(it.startScale * (screenDist / it.startDist))
}

// endResize transitions Resizing -> Idle on matching pointer-up or cancel,
// emitting the resized notification exactly once.
func (it *Item) endResize(pointerID int) {
	if it.gesture != gestureResizing || pointerID != it.pointerID {
		return
	}
	it.gesture = gestureIdle
	if it.OnResized != nil {
		it.OnResized(it.Scale)
	}
}

// cancelGesture aborts whatever gesture the given pointer is driving,
// emitting the corresponding end notification. Used when the pointer
// leaves the interactive region.
func (it *Item) cancelGesture(pointerID int) {
	switch it.gesture {
	case gestureDragging:
		it.endDrag(pointerID)
	case gestureResizing:
		it.endResize(pointerID)
	}
}

// --- Wheel scaling ---

// wheelScale applies a wheel step to the item's scale. This path bypasses
// the gesture state machine entirely: wheel steps are not held states, so
// the resized notification fires immediately. A negative delta (scroll up)
// enlarges; the accelerator modifier doubles the exponent magnitude.
func (it *Item) wheelScale(delta float64, accel bool) {
	exponent := -delta
	if accel {
		exponent *= 2
	}
	next := it.clampScale(it.Scale * math.Pow(wheelScaleBase, exponent))
	if next == it.Scale {
		return
	}
	it.Scale = next
	if it.OnResized != nil {
		it.OnResized(it.Scale)
	}
}

// --- Disposal ---

// Dispose marks the item destroyed. Completion callbacks for in-flight
// asynchronous resolution must check IsDisposed before mutating the item.
func (it *Item) Dispose() {
	if it.disposed {
		return
	}
	it.disposed = true
	it.Resolved = nil
	it.OnMoved = nil
	it.OnResized = nil
}

// IsDisposed reports whether the item has been disposed.
func (it *Item) IsDisposed() bool { return it.disposed }
