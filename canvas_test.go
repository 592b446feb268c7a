package easel

import (
	"context"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"
)

// fakeResolver serves fixed-size images and fails for configured refs.
type fakeResolver struct {
	w, h int
	fail map[string]bool
}

func newFakeResolver(w, h int) *fakeResolver {
	return &fakeResolver{w: w, h: h, fail: make(map[string]bool)}
}

func (f *fakeResolver) Resolve(ctx context.Context, sourceRef string) (image.Image, error) {
	if sourceRef == "" || f.fail[sourceRef] {
		return nil, &ResourceError{SourceRef: sourceRef, Err: fmt.Errorf("unavailable")}
	}
	return image.NewRGBA(image.Rect(0, 0, f.w, f.h)), nil
}

// addResolvedImage puts a ready image item of the given size on a canvas.
func addResolvedImage(c *Canvas, x, y, w, h float64) *Item {
	it := NewImageItem("test://img")
	it.Resolved = image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	it.NaturalW, it.NaturalH = w, h
	it.X, it.Y = x, y
	c.Add(it)
	return it
}

func TestCanvasPressOnBodyStartsDrag(t *testing.T) {
	c := NewCanvas(800, 600)
	it := addResolvedImage(c, 100, 100, 400, 400)

	// Grab at (150,160): world offset (50,60) from the item position.
	c.PointerDown(0, 150, 160, 0)
	if c.SelectedItem() != it {
		t.Fatal("press on body did not select the item")
	}
	c.PointerMove(0, 250, 260, 0)
	if it.X != 200 || it.Y != 200 {
		t.Errorf("position = (%f,%f), want (200,200)", it.X, it.Y)
	}
	c.PointerUp(0, 250, 260, 0)
	if it.gesture != gestureIdle {
		t.Error("gesture did not return to idle")
	}
}

func TestCanvasDragAccountsForPan(t *testing.T) {
	c := NewCanvas(800, 600)
	c.Viewport().OffsetX = 1000
	c.Viewport().OffsetY = 1000
	it := addResolvedImage(c, 1100, 1100, 400, 400)

	c.PointerDown(0, 150, 160, 0)
	c.PointerMove(0, 250, 260, 0)
	if it.X != 1200 || it.Y != 1200 {
		t.Errorf("position = (%f,%f), want (1200,1200)", it.X, it.Y)
	}
}

func TestCanvasBackgroundPressPansAndDeselects(t *testing.T) {
	c := NewCanvas(800, 600)
	it := addResolvedImage(c, 100, 100, 100, 100)
	var changes int
	c.SetOnChange(func() { changes++ })

	c.PointerDown(0, 150, 100, 0) // on the body
	c.PointerUp(0, 150, 100, 0)
	if c.SelectedItem() != it {
		t.Fatal("item not selected")
	}

	c.PointerDown(0, 600, 500, 0) // empty background
	if c.SelectedItem() != nil {
		t.Error("background press did not deselect")
	}
	c.PointerMove(0, 630, 520, 0)
	if c.Viewport().OffsetX != -30 || c.Viewport().OffsetY != -20 {
		t.Errorf("offset = (%f,%f), want (-30,-20)",
			c.Viewport().OffsetX, c.Viewport().OffsetY)
	}
	if changes == 0 {
		t.Error("pan update did not trigger the persistence hook")
	}
	c.PointerUp(0, 630, 520, 0)
}

func TestCanvasTopmostItemWins(t *testing.T) {
	c := NewCanvas(800, 600)
	bottom := addResolvedImage(c, 100, 100, 200, 200)
	top := addResolvedImage(c, 100, 100, 200, 200)

	c.PointerDown(0, 100, 100, 0)
	if c.SelectedItem() != top {
		t.Error("press selected the bottom item, want topmost")
	}
	c.PointerUp(0, 100, 100, 0)
	_ = bottom
}

func TestCanvasHandlePressResizesNotDrags(t *testing.T) {
	c := NewCanvas(800, 600)
	it := addResolvedImage(c, 100, 100, 200, 200)
	it.Scale = 1.0

	// Select first so the handle exists.
	c.PointerDown(0, 100, 100, 0)
	c.PointerUp(0, 100, 100, 0)

	// The handle anchors at the bottom-right corner (200,200). The press
	// lands on the handle and must start a resize, never a drag.
	c.PointerDown(0, 200, 200, 0)
	if it.gesture != gestureResizing {
		t.Fatalf("gesture = %d, want resizing", it.gesture)
	}

	// Start distance from center: hypot(100,100). Doubling it doubles
	// the scale, even though the pointer is far outside the item.
	c.PointerMove(0, 300, 300, 0)
	if !approxEqual(it.Scale, 2.0, 1e-9) {
		t.Errorf("scale = %f, want 2.0", it.Scale)
	}
	if it.X != 100 || it.Y != 100 {
		t.Errorf("resize moved the item to (%f,%f)", it.X, it.Y)
	}
	c.PointerUp(0, 300, 300, 0)
	if it.gesture != gestureIdle {
		t.Error("gesture did not return to idle")
	}
}

func TestCanvasSecondPointerDuringDragIgnored(t *testing.T) {
	c := NewCanvas(800, 600)
	it := addResolvedImage(c, 100, 100, 400, 400)

	c.PointerDown(1, 100, 100, 0)
	c.PointerDown(2, 120, 120, 0)
	c.PointerMove(2, 500, 500, 0)
	if it.X != 100 || it.Y != 100 {
		t.Errorf("second pointer moved the item to (%f,%f)", it.X, it.Y)
	}
	c.PointerUp(2, 500, 500, 0)
	c.PointerMove(1, 150, 150, 0)
	if it.X != 150 || it.Y != 150 {
		t.Errorf("first pointer lost the drag, item at (%f,%f)", it.X, it.Y)
	}
	c.PointerUp(1, 150, 150, 0)
}

func TestCanvasPointerCancelEndsGesture(t *testing.T) {
	c := NewCanvas(800, 600)
	it := addResolvedImage(c, 100, 100, 400, 400)
	var moved int
	c.PointerDown(0, 100, 100, 0)
	it.OnMoved = func(x, y float64) { moved++ }
	c.PointerMove(0, 200, 200, 0)
	c.PointerCancel(0)
	if it.gesture != gestureIdle {
		t.Error("cancel did not end the drag")
	}
	if moved != 1 {
		t.Errorf("moved fired %d times on cancel, want 1", moved)
	}
}

func TestCanvasDeleteSelectedLeavesNilSelection(t *testing.T) {
	c := NewCanvas(800, 600)
	it := addResolvedImage(c, 100, 100, 100, 100)
	c.PointerDown(0, 100, 100, 0)
	c.PointerUp(0, 100, 100, 0)

	c.KeyDown(KeyDelete, 0)
	if c.SelectedItem() != nil {
		t.Error("selection reference not nil after deleting the selection")
	}
	if c.Len() != 0 {
		t.Errorf("items = %d, want 0", c.Len())
	}
	if !it.IsDisposed() {
		t.Error("deleted item not disposed")
	}
}

func TestCanvasWheelScalesOnlySelection(t *testing.T) {
	c := NewCanvas(800, 600)
	a := addResolvedImage(c, 100, 100, 400, 400)
	b := addResolvedImage(c, 500, 500, 400, 400)

	c.Wheel(-100, 0) // no selection: no effect
	if a.Scale != 1 || b.Scale != 1 {
		t.Error("wheel without a selection changed a scale")
	}

	c.PointerDown(0, 100, 100, 0)
	c.PointerUp(0, 100, 100, 0)
	c.Wheel(-100, 0)
	if a.Scale <= 1 {
		t.Error("wheel did not enlarge the selection")
	}
	if b.Scale != 1 {
		t.Error("wheel affected an unselected item")
	}
}

func TestCanvasDoublePressOpensPanelForImages(t *testing.T) {
	c := NewCanvas(800, 600)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }
	it := addResolvedImage(c, 100, 100, 200, 200)

	var opened *Item
	c.SetOnOpenPanel(func(item *Item) { opened = item })

	c.PointerDown(0, 100, 100, 0)
	c.PointerUp(0, 100, 100, 0)
	now = now.Add(100 * time.Millisecond)
	c.PointerDown(0, 100, 100, 0)
	c.PointerUp(0, 100, 100, 0)

	if opened != it {
		t.Error("double press on an image did not open the panel")
	}
	if !c.PanelOpen() {
		t.Error("panel state not marked open")
	}
}

func TestCanvasSlowSecondPressDoesNotOpenPanel(t *testing.T) {
	c := NewCanvas(800, 600)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }
	addResolvedImage(c, 100, 100, 200, 200)

	var opened bool
	c.SetOnOpenPanel(func(item *Item) { opened = true })

	c.PointerDown(0, 100, 100, 0)
	c.PointerUp(0, 100, 100, 0)
	now = now.Add(doubleClickWindow + time.Millisecond)
	c.PointerDown(0, 100, 100, 0)
	c.PointerUp(0, 100, 100, 0)

	if opened {
		t.Error("slow second press opened the panel")
	}
}

func TestCanvasDropImageResolvesAndFits(t *testing.T) {
	c := NewCanvas(800, 600)
	c.SetResolver(newFakeResolver(800, 400))

	it := NewImageItem("test://drop")
	it.X, it.Y = 100, 100
	c.Add(it)
	c.resolveInto(it, "test://drop", true)

	if it.Resolved == nil {
		t.Fatal("image not resolved")
	}
	if it.NaturalW != 800 || it.NaturalH != 400 {
		t.Errorf("intrinsic = (%f,%f), want (800,400)", it.NaturalW, it.NaturalH)
	}
	if !approxEqual(it.Scale, 0.25, epsilon) {
		t.Errorf("initial scale = %f, want 0.25", it.Scale)
	}
}

func TestCanvasDropFitScaleRespectsMinScale(t *testing.T) {
	c := NewCanvas(800, 600)
	// A wide banner: short side of 10px forces MinScale = 20/10 = 2,
	// above the fitted scale min(1, 200/800) = 0.25.
	c.SetResolver(newFakeResolver(800, 10))

	it := NewImageItem("test://banner")
	c.Add(it)
	c.resolveInto(it, "test://banner", true)

	if it.Resolved == nil {
		t.Fatal("image not resolved")
	}
	if it.Scale < it.MinScale() {
		t.Errorf("scale = %f below MinScale %f", it.Scale, it.MinScale())
	}
	if !approxEqual(it.Scale, 2.0, epsilon) {
		t.Errorf("scale = %f, want the fit clamped up to 2.0", it.Scale)
	}
}

func TestCanvasRefineIntrinsicSizeConcurrentWithSnapshot(t *testing.T) {
	c := NewCanvas(800, 600)
	it := NewTextItem("hello", "#000", "serif")
	c.Add(it)

	// The renderer refines text extents while the debounced saver
	// snapshots; both sides must go through the canvas lock.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.refineIntrinsicSize(it, float64(100+i), 32)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.Snapshot()
		}
	}()
	wg.Wait()

	if it.NaturalW != 299 || it.NaturalH != 32 {
		t.Errorf("intrinsic = (%f,%f), want (299,32)", it.NaturalW, it.NaturalH)
	}
}

func TestCanvasResolveAfterDeleteIsNoOp(t *testing.T) {
	c := NewCanvas(800, 600)
	c.SetResolver(newFakeResolver(100, 100))

	it := NewImageItem("test://late")
	c.Add(it)
	c.Remove(it)

	// Completion of an in-flight resolution must notice the item is gone.
	c.resolveInto(it, "test://late", true)
	if it.Resolved != nil {
		t.Error("resolution wrote into a destroyed item")
	}
	if c.Len() != 0 {
		t.Errorf("items = %d, want 0", c.Len())
	}
}

func TestCanvasFailedDropRemovesItem(t *testing.T) {
	c := NewCanvas(800, 600)
	r := newFakeResolver(100, 100)
	r.fail["test://bad"] = true
	c.SetResolver(r)

	var notified error
	c.SetNotify(func(err error) { notified = err })

	it := NewImageItem("test://bad")
	c.Add(it)
	c.resolveInto(it, "test://bad", true)

	if c.Len() != 0 {
		t.Errorf("items = %d, want 0 after failed drop", c.Len())
	}
	if notified == nil {
		t.Error("failed drop was not surfaced")
	}
}

func TestCanvasReplaceSourceKeepsID(t *testing.T) {
	c := NewCanvas(800, 600)
	c.SetResolver(newFakeResolver(300, 300))
	it := addResolvedImage(c, 0, 0, 100, 100)
	id := it.ID

	c.resolveInto(it, "test://regen", false)
	if it.ID != id {
		t.Error("replacing the source changed the item ID")
	}
	if it.SourceRef != "test://regen" {
		t.Errorf("sourceRef = %q, want test://regen", it.SourceRef)
	}
	if it.NaturalW != 300 {
		t.Errorf("intrinsic width = %f, want 300", it.NaturalW)
	}
}

func TestCanvasFailedReplaceKeepsPriorResource(t *testing.T) {
	c := NewCanvas(800, 600)
	r := newFakeResolver(300, 300)
	r.fail["test://broken"] = true
	c.SetResolver(r)
	it := addResolvedImage(c, 0, 0, 100, 100)
	prior := it.Resolved

	c.resolveInto(it, "test://broken", false)
	if it.Resolved != prior {
		t.Error("failed update did not leave the prior resource in place")
	}
	if it.SourceRef != "test://img" {
		t.Errorf("sourceRef = %q, want unchanged test://img", it.SourceRef)
	}
	if c.Len() != 1 {
		t.Error("failed update removed the item")
	}
}
