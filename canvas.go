package easel

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tanema/gween/ease"
)

const (
	// handleHitRadius is the screen-space pick radius of the resize handle.
	handleHitRadius = 12.0

	// doubleClickWindow is the shared gesture-disambiguation window for
	// double presses.
	doubleClickWindow = 350 * time.Millisecond

	// recenterDuration is the scroll animation length for KeyHome.
	recenterDuration = 0.4
)

// routeMode says what a captured pointer is currently driving.
type routeMode uint8

const (
	routeNone routeMode = iota
	routeDrag
	routeResize
	routePan
)

// pointerRoute is the per-pointer capture state.
type pointerRoute struct {
	mode         routeMode
	item         *Item
	lastX, lastY float64 // screen space, used by panning
}

// clickTracker is the single gesture-disambiguation component shared by all
// items: it turns two presses on the same item within doubleClickWindow
// into a double press.
type clickTracker struct {
	lastID   string
	lastTime time.Time
}

func (ct *clickTracker) isDouble(itemID string, now time.Time) bool {
	double := ct.lastID == itemID && now.Sub(ct.lastTime) <= doubleClickWindow
	if double {
		ct.lastID = ""
		return true
	}
	ct.lastID = itemID
	ct.lastTime = now
	return false
}

// Canvas owns the ordered item set and the viewport, and routes every
// input event to panning, item gestures, or typing-mode entry. All
// mutation of the item set goes through its API so the document
// synchronizer always observes a consistent snapshot.
type Canvas struct {
	mu sync.RWMutex

	viewport *Viewport
	items    []*Item

	selection Selection
	typing    typingController
	clicks    clickTracker
	pointers  [maxPointers]pointerRoute

	tool       Tool
	panelOpen  bool
	textColor  string
	fontFamily string

	resolver ImageResolver
	now      func() time.Time

	onChange    func()           // fired on every persistable mutation
	onOpenPanel func(item *Item) // fired on double press on an image item
	notify      func(err error)  // non-fatal collaborator failures
}

// NewCanvas creates an empty canvas with the given visible size and the
// standard image resolver.
func NewCanvas(width, height float64) *Canvas {
	return &Canvas{
		viewport:   NewViewport(width, height),
		textColor:  "#1a1a1a",
		fontFamily: "sans-serif",
		resolver:   NewStandardResolver(),
		now:        time.Now,
	}
}

// Viewport returns the canvas viewport.
func (c *Canvas) Viewport() *Viewport { return c.viewport }

// SetOnChange registers the callback fired after every mutation that must
// be persisted. The document synchronizer registers its ScheduleSave here.
func (c *Canvas) SetOnChange(fn func()) { c.onChange = fn }

// SetOnOpenPanel registers the callback fired when an image item receives
// a double press (the generation-panel entry point).
func (c *Canvas) SetOnOpenPanel(fn func(item *Item)) { c.onOpenPanel = fn }

// SetNotify registers the callback for non-fatal errors surfaced to the
// user (failed saves, failed drops, failed generation).
func (c *Canvas) SetNotify(fn func(err error)) { c.notify = fn }

// SetResolver replaces the image resolver.
func (c *Canvas) SetResolver(r ImageResolver) { c.resolver = r }

// SetTool selects how background presses are interpreted.
func (c *Canvas) SetTool(t Tool) {
	c.mu.Lock()
	c.tool = t
	c.mu.Unlock()
}

// SetTextStyle configures the color and font applied to newly committed
// text items.
func (c *Canvas) SetTextStyle(color, fontFamily string) {
	c.mu.Lock()
	c.textColor = color
	c.fontFamily = fontFamily
	c.mu.Unlock()
}

// changed fires the persistence hook. Callers hold the lock; the hook only
// schedules, so reentry into the canvas is not a concern.
func (c *Canvas) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Canvas) reportError(err error) {
	logrus.WithError(err).Warn("canvas operation failed")
	if c.notify != nil {
		c.notify(err)
	}
}

// reportPersistence surfaces a save/load failure as a non-fatal
// notification. In-memory state is untouched so the user can retry.
func (c *Canvas) reportPersistence(err error) {
	logrus.WithError(err).Warn("persistence failure")
	if c.notify != nil {
		c.notify(err)
	}
}

// --- Item collection ---

// Add appends an item to the canvas (top of the display order) and wires
// its gesture-end notifications into the persistence hook.
func (c *Canvas) Add(item *Item) {
	c.mu.Lock()
	c.addLocked(item)
	c.changed()
	c.mu.Unlock()
}

func (c *Canvas) addLocked(item *Item) {
	item.OnMoved = func(x, y float64) { c.changed() }
	item.OnResized = func(scale float64) { c.changed() }
	c.items = append(c.items, item)
}

// Remove destroys an item: it is dropped from the display list, loses the
// selection if it held it, and is disposed so in-flight resolution
// callbacks become no-ops.
func (c *Canvas) Remove(item *Item) {
	c.mu.Lock()
	c.removeLocked(item)
	c.changed()
	c.mu.Unlock()
}

func (c *Canvas) removeLocked(item *Item) {
	for i, it := range c.items {
		if it == item {
			copy(c.items[i:], c.items[i+1:])
			c.items[len(c.items)-1] = nil
			c.items = c.items[:len(c.items)-1]
			break
		}
	}
	c.selection.drop(item)
	item.Dispose()
}

// RemoveSelected deletes the current selection, if any. The selection
// reference is left nil.
func (c *Canvas) RemoveSelected() {
	c.mu.Lock()
	if it := c.selection.Current(); it != nil {
		c.removeLocked(it)
		c.changed()
	}
	c.mu.Unlock()
}

// Items returns a snapshot copy of the display list, bottom to top.
func (c *Canvas) Items() []*Item {
	c.mu.RLock()
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	c.mu.RUnlock()
	return out
}

// Len returns the number of items.
func (c *Canvas) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// SelectedItem returns the current selection, or nil.
func (c *Canvas) SelectedItem() *Item {
	c.mu.RLock()
	it := c.selection.Current()
	c.mu.RUnlock()
	return it
}

// contains reports whether item is still on the canvas. Lock held.
func (c *Canvas) contains(item *Item) bool {
	for _, it := range c.items {
		if it == item {
			return true
		}
	}
	return false
}

// hitTest finds the topmost item at the given world point, or nil.
// Iterates in reverse painter order so later items win.
func (c *Canvas) hitTest(wx, wy float64) *Item {
	for i := len(c.items) - 1; i >= 0; i-- {
		if c.items[i].ContainsWorld(wx, wy) {
			return c.items[i]
		}
	}
	return nil
}

// hitHandle reports whether the screen point lands on the selected item's
// resize handle. The handle only exists while its item is selected, and it
// is tested before the body so the two gesture entry points stay mutually
// exclusive.
func (c *Canvas) hitHandle(sx, sy float64) *Item {
	sel := c.selection.Current()
	if sel == nil {
		return nil
	}
	anchor := sel.HandleAnchor()
	hx, hy := c.viewport.WorldToScreen(anchor.X, anchor.Y)
	if math.Hypot(sx-hx, sy-hy) <= handleHitRadius {
		return sel
	}
	return nil
}

// screenDistToCenter measures the screen-space distance from the pointer
// to the item's render center. Both points live in the same shared frame,
// which keeps resize correct when the handle leaves the item's bounds.
func (c *Canvas) screenDistToCenter(item *Item, sx, sy float64) float64 {
	cx, cy := c.viewport.WorldToScreen(item.X, item.Y)
	return math.Hypot(sx-cx, sy-cy)
}

// --- Pointer routing ---

// PointerDown routes a press at screen (sx, sy). Targets, in order: the
// selected item's resize handle, an item body, the background (pan or
// typing-mode entry depending on the active tool).
func (c *Canvas) PointerDown(pointerID int, sx, sy float64, mods KeyModifiers) {
	if pointerID < 0 || pointerID >= maxPointers {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	route := &c.pointers[pointerID]
	if route.mode != routeNone {
		return
	}
	wx, wy := c.viewport.ScreenToWorld(sx, sy)

	// Handle first: a handle press must not also start a drag.
	if item := c.hitHandle(sx, sy); item != nil {
		if item.startResize(pointerID, c.screenDistToCenter(item, sx, sy)) {
			route.mode = routeResize
			route.item = item
		}
		return
	}

	if item := c.hitTest(wx, wy); item != nil {
		if c.typing.active() {
			c.commitTypingLocked()
		}
		c.selection.Select(item)
		if c.clicks.isDouble(item.ID, c.now()) {
			if item.Type == ItemTypeImage && c.onOpenPanel != nil {
				c.panelOpen = true
				c.onOpenPanel(item)
			}
			return
		}
		if item.startDrag(pointerID, wx, wy) {
			route.mode = routeDrag
			route.item = item
		}
		return
	}

	// Background press. A non-empty typing buffer commits first.
	if c.typing.active() {
		c.commitTypingLocked()
	}
	c.selection.Deselect()

	if c.tool == ToolText {
		if !c.panelOpen {
			c.typing.begin(wx, wy)
		}
		return
	}
	route.mode = routePan
	route.lastX, route.lastY = sx, sy
}

// PointerMove advances whatever gesture the pointer drives. Moves with no
// active route are hover and ignored.
func (c *Canvas) PointerMove(pointerID int, sx, sy float64, mods KeyModifiers) {
	if pointerID < 0 || pointerID >= maxPointers {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	route := &c.pointers[pointerID]
	switch route.mode {
	case routeDrag:
		wx, wy := c.viewport.ScreenToWorld(sx, sy)
		route.item.dragTo(pointerID, wx, wy)
	case routeResize:
		route.item.resizeTo(pointerID, c.screenDistToCenter(route.item, sx, sy))
	case routePan:
		c.viewport.PanBy(sx-route.lastX, sy-route.lastY)
		route.lastX, route.lastY = sx, sy
		c.changed()
	}
}

// PointerUp ends the pointer's gesture, emitting the single moved/resized
// notification for item gestures.
func (c *Canvas) PointerUp(pointerID int, sx, sy float64, mods KeyModifiers) {
	c.finishPointer(pointerID)
}

// PointerCancel is PointerUp for pointers that left the interactive
// region; the gesture ends the same way.
func (c *Canvas) PointerCancel(pointerID int) {
	c.finishPointer(pointerID)
}

func (c *Canvas) finishPointer(pointerID int) {
	if pointerID < 0 || pointerID >= maxPointers {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	route := &c.pointers[pointerID]
	switch route.mode {
	case routeDrag:
		route.item.endDrag(pointerID)
	case routeResize:
		route.item.endResize(pointerID)
	}
	route.mode = routeNone
	route.item = nil
}

// Wheel applies a wheel step to the current selection, wherever on the
// surface the event occurred. No selection, no effect.
func (c *Canvas) Wheel(delta float64, mods KeyModifiers) {
	c.mu.Lock()
	if it := c.selection.Current(); it != nil {
		it.wheelScale(delta, mods&ModAccel != 0)
	}
	c.mu.Unlock()
}

// --- Keyboard surface ---

// KeyDown handles the non-character keyboard surface: Delete/Backspace
// delete the selection, T enters typing mode at the viewport center,
// Escape cancels typing (panel close is the frontend's job before events
// reach the canvas), Enter commits, Home recenters.
func (c *Canvas) KeyDown(key Key, mods KeyModifiers) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.typing.active() {
		switch key {
		case KeyBackspace:
			c.typing.backspace()
		case KeyEnter:
			c.commitTypingLocked()
		case KeyEscape:
			c.typing.cancel()
		}
		return
	}

	switch key {
	case KeyDelete, KeyBackspace:
		if it := c.selection.Current(); it != nil {
			c.removeLocked(it)
			c.changed()
		}
	case KeyText:
		if !c.panelOpen {
			center := c.viewport.Center()
			c.typing.begin(center.X, center.Y)
		}
	case KeyHome:
		c.viewport.ScrollTo(0, 0, recenterDuration, ease.OutQuad)
		c.changed()
	}
}

// TypeRune feeds an accepted character key into the typing buffer.
// Ignored outside typing mode.
func (c *Canvas) TypeRune(r rune) {
	c.mu.Lock()
	c.typing.typeRune(r)
	c.mu.Unlock()
}

// TypingPreview returns the live typing buffer and its world-space entry
// position. active is false when no session is in progress.
func (c *Canvas) TypingPreview() (content string, x, y float64, active bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.typing.active() {
		return "", 0, 0, false
	}
	content, x, y = c.typing.preview()
	return content, x, y, true
}

// Typing reports whether a typing session is active.
func (c *Canvas) Typing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.typing.active()
}

// commitTypingLocked ends the typing session; a non-empty buffer becomes a
// new text item at the entry position with the configured style.
func (c *Canvas) commitTypingLocked() {
	content, x, y, ok := c.typing.commit()
	if !ok {
		return
	}
	item := NewTextItem(content, c.textColor, c.fontFamily)
	item.X = x
	item.Y = y
	c.addLocked(item)
	c.changed()
}

// --- Generation panel state ---

// OpenPanel marks the generation panel open, which suppresses typing-mode
// entry while it shows.
func (c *Canvas) OpenPanel() {
	c.mu.Lock()
	c.panelOpen = true
	c.mu.Unlock()
}

// ClosePanel marks the generation panel closed.
func (c *Canvas) ClosePanel() {
	c.mu.Lock()
	c.panelOpen = false
	c.mu.Unlock()
}

// PanelOpen reports whether the generation panel is showing.
func (c *Canvas) PanelOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.panelOpen
}

// --- Drop target ---

// DropImage constructs a new image item for a resource dropped at screen
// (sx, sy). The drop point becomes the item's world-space center; the
// source reference resolves asynchronously, after which the item snaps to
// its fitted initial scale. A failed resolution removes the item again and
// surfaces a notification.
func (c *Canvas) DropImage(sx, sy float64, sourceRef string) *Item {
	c.mu.Lock()
	wx, wy := c.viewport.ScreenToWorld(sx, sy)
	item := NewImageItem(sourceRef)
	item.X = wx
	item.Y = wy
	c.addLocked(item)
	c.changed()
	c.mu.Unlock()

	go c.resolveInto(item, sourceRef, true)
	return item
}

// resolveInto resolves sourceRef off the interaction loop and installs the
// result. Every completion is guarded by "does the item still exist":
// the item may have been deleted while resolution was in flight.
func (c *Canvas) resolveInto(item *Item, sourceRef string, removeOnFailure bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	img, err := c.resolver.Resolve(ctx, sourceRef)

	c.mu.Lock()
	defer c.mu.Unlock()
	if item.IsDisposed() || !c.contains(item) {
		return
	}
	if err != nil {
		if removeOnFailure {
			c.removeLocked(item)
		}
		c.reportError(err)
		return
	}
	bounds := img.Bounds()
	item.Resolved = img
	item.SourceRef = sourceRef
	item.SetIntrinsicSize(float64(bounds.Dx()), float64(bounds.Dy()))
	if removeOnFailure { // fresh drop: apply the fitted initial scale
		item.Scale = item.clampScale(fitDropScale(item.NaturalW))
	}
	c.changed()
}

// ReplaceSource swaps an existing item's image source without changing its
// ID (the external-edit path, e.g. a regeneration result). On failure the
// prior resource stays in place.
func (c *Canvas) ReplaceSource(item *Item, sourceRef string) {
	go c.resolveInto(item, sourceRef, false)
}

// refineIntrinsicSize installs renderer-measured intrinsic extents for an
// item. Runs under the canvas lock so a concurrent snapshot never
// observes a torn size/scale pair.
func (c *Canvas) refineIntrinsicSize(item *Item, w, h float64) {
	c.mu.Lock()
	item.SetIntrinsicSize(w, h)
	c.mu.Unlock()
}

// --- Frame update ---

// Update advances time-based state (the viewport scroll animation). dt is
// the frame delta in seconds.
func (c *Canvas) Update(dt float32) {
	c.mu.Lock()
	c.viewport.update(dt)
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot serializes the live item set plus pan offset into a document.
// Image items whose source has not resolved (or failed to) are filtered
// out rather than aborting the save.
func (c *Canvas) Snapshot() *Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc := &Document{
		Objects:          make([]DocObject, 0, len(c.items)),
		ViewportPosition: Vec2{c.viewport.OffsetX, c.viewport.OffsetY},
	}
	for _, it := range c.items {
		if it.Type == ItemTypeImage && it.Resolved == nil {
			continue
		}
		doc.Objects = append(doc.Objects, itemToDoc(it))
	}
	return doc
}

// replaceAll swaps in a freshly rehydrated item set and pan offset.
// Everything starts unselected.
func (c *Canvas) replaceAll(items []*Item, offset Vec2) {
	c.mu.Lock()
	c.selection.Deselect()
	for _, it := range c.items {
		it.Dispose()
	}
	c.items = c.items[:0]
	for _, it := range items {
		c.addLocked(it)
	}
	c.viewport.OffsetX = offset.X
	c.viewport.OffsetY = offset.Y
	c.mu.Unlock()
}
