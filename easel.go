package easel

// Vec2 is a 2D vector used for positions, offsets, and sizes throughout
// the API. The coordinate system has its origin at the top-left, with Y
// increasing downward.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the component-wise sum of v and other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns the component-wise difference of v and other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// KeyModifiers is a bitmask of modifier keys held during an input event.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// ModAccel is the platform accelerator modifier (Ctrl or Cmd).
const ModAccel = ModCtrl | ModMeta

// Key identifies the non-character keys the canvas reacts to. Character
// input arrives separately through Canvas.TypeRune.
type Key uint8

const (
	KeyNone Key = iota
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyDelete
	KeyText // the "T" shortcut: enter typing mode at the viewport center
	KeyHome // recenter the viewport on the world origin
)

// Tool selects how background presses are interpreted.
type Tool uint8

const (
	// ToolSelect pans the canvas on background presses.
	ToolSelect Tool = iota
	// ToolText enters typing mode at the pressed world position.
	ToolText
)

const (
	// maxPointers bounds concurrent pointers: pointer 0 = mouse, 1-9 = touch.
	maxPointers = 10

	// maxScale is the fixed upper scale bound for every item.
	maxScale = 8.0

	// minScaleFloor is the absolute lower scale bound, applied when an
	// item's intrinsic dimensions would allow an even smaller scale.
	minScaleFloor = 0.05

	// minRenderedPx is the smallest size in device pixels an item's
	// shortest intrinsic dimension may render at.
	minRenderedPx = 20.0

	// dropFitWidth is the presentation width a freshly dropped image is
	// fitted to (never upscaled past 1.0).
	dropFitWidth = 200.0

	// wheelScaleBase is the per-wheel-step scale multiplier base.
	wheelScaleBase = 1.0015
)
