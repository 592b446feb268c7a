package easel

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// scrollAnim holds active scroll-to tweens for the viewport offset X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// Viewport owns the pan state of the unbounded surface and converts between
// screen space (raw device coordinates) and world space. There is no zoom:
// the two spaces differ only by the pan offset.
type Viewport struct {
	// OffsetX and OffsetY are the world-space coordinates that appear at
	// the screen origin.
	OffsetX, OffsetY float64
	// Width and Height are the visible screen size in device pixels.
	Width, Height float64

	scrollTween *scrollAnim
}

// NewViewport creates a viewport with a zero pan offset and the given
// visible size.
func NewViewport(width, height float64) *Viewport {
	return &Viewport{Width: width, Height: height}
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (v *Viewport) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	return sx + v.OffsetX, sy + v.OffsetY
}

// WorldToScreen converts world coordinates to screen coordinates.
func (v *Viewport) WorldToScreen(wx, wy float64) (sx, sy float64) {
	return wx - v.OffsetX, wy - v.OffsetY
}

// Center returns the world-space point at the visual center of the viewport.
func (v *Viewport) Center() Vec2 {
	return Vec2{v.OffsetX + v.Width/2, v.OffsetY + v.Height/2}
}

// PanBy shifts the pan offset by a screen-space delta. Dragging the
// background right moves the offset left so content follows the pointer.
func (v *Viewport) PanBy(dx, dy float64) {
	v.OffsetX -= dx
	v.OffsetY -= dy
	v.scrollTween = nil
}

// Resize updates the visible screen size.
func (v *Viewport) Resize(width, height float64) {
	v.Width = width
	v.Height = height
}

// ScrollTo animates the pan offset so that the world point (x, y) ends up
// at the viewport center, over duration seconds.
func (v *Viewport) ScrollTo(x, y float64, duration float32, easeFn ease.TweenFunc) {
	targetX := x - v.Width/2
	targetY := y - v.Height/2
	if duration <= 0 {
		v.OffsetX = targetX
		v.OffsetY = targetY
		v.scrollTween = nil
		return
	}
	v.scrollTween = &scrollAnim{
		tweenX: gween.New(float32(v.OffsetX), float32(targetX), duration, easeFn),
		tweenY: gween.New(float32(v.OffsetY), float32(targetY), duration, easeFn),
	}
}

// update advances the scroll animation. Called from Canvas.Update.
func (v *Viewport) update(dt float32) {
	if v.scrollTween == nil {
		return
	}
	if !v.scrollTween.doneX {
		val, done := v.scrollTween.tweenX.Update(dt)
		v.OffsetX = float64(val)
		v.scrollTween.doneX = done
	}
	if !v.scrollTween.doneY {
		val, done := v.scrollTween.tweenY.Update(dt)
		v.OffsetY = float64(val)
		v.scrollTween.doneY = done
	}
	if v.scrollTween.doneX && v.scrollTween.doneY {
		v.scrollTween = nil
	}
}
