package easel

import (
	"context"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// wheelStep converts one ebiten wheel tick into the pixel-style delta the
// scale exponent expects.
const wheelStep = 100.0

// RunConfig configures the window created by Run.
type RunConfig struct {
	Title         string
	Width, Height int

	// Generator, when set, backs the generation panel opened by double
	// pressing an image item.
	Generator Generator

	// ExportDir receives F12 window exports. Defaults to "exports".
	ExportDir string
}

// Run creates a window and game loop around the canvas, translating device
// input into canvas events and rendering the scene. It blocks until the
// window closes.
func Run(canvas *Canvas, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	app, err := newApp(canvas, cfg)
	if err != nil {
		return err
	}
	return ebiten.RunGame(app)
}

// genPanel is the minimal prompt editor for the generation collaborator.
type genPanel struct {
	open    bool
	prompt  []rune
	target  *Item
	pending bool
	errMsg  string
}

// app implements ebiten.Game on top of a Canvas: pointer 0 is the mouse,
// pointers 1-9 are touches.
type app struct {
	canvas *Canvas
	gen    Generator
	panel  genPanel

	face       font.Face
	textCache  map[string]*ebiten.Image
	imageCache map[*Item]*ebiten.Image

	showStats    bool
	overlay      statsOverlay
	exportQueued bool
	exportDir    string

	// genDone carries generation completions back onto the game loop;
	// panel state is only ever touched from Update/Draw.
	genDone chan error

	mouseDown      bool
	mouseX, mouseY int

	touchMap  [maxPointers]ebiten.TouchID
	touchUsed [maxPointers]bool
	touchIDs  []ebiten.TouchID
}

func newApp(canvas *Canvas, cfg RunConfig) (*app, error) {
	tt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(tt, &opentype.FaceOptions{
		Size: baseTextSize, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	a := &app{
		canvas:     canvas,
		gen:        cfg.Generator,
		face:       face,
		textCache:  make(map[string]*ebiten.Image),
		imageCache: make(map[*Item]*ebiten.Image),
		exportDir:  cfg.ExportDir,
		genDone:    make(chan error, 1),
	}
	canvas.SetOnOpenPanel(func(item *Item) {
		a.panel = genPanel{open: true, target: item}
	})
	return a, nil
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

func (a *app) Update() error {
	a.drainGenDone()
	mods := readModifiers()

	// Characters before keys: a shortcut that just entered typing mode
	// must not swallow this frame's input characters into the buffer.
	a.processChars()
	a.processKeys(mods)
	a.processMouse(mods)
	a.processTouches(mods)
	a.processWheel(mods)

	dt := 1.0 / float64(ebiten.TPS())
	a.canvas.Update(float32(dt))
	if a.showStats {
		a.overlay.update(dt, a.canvas)
	}
	return nil
}

func (a *app) processChars() {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < ' ' {
			continue
		}
		if a.panel.open {
			a.panel.prompt = append(a.panel.prompt, r)
			continue
		}
		a.canvas.TypeRune(r)
	}
}

func (a *app) processKeys(mods KeyModifiers) {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		if a.panel.open {
			a.panel = genPanel{}
			a.canvas.ClosePanel()
		} else {
			a.canvas.KeyDown(KeyEscape, mods)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter):
		if a.panel.open {
			if mods&ModAccel != 0 {
				a.submitPanel()
			}
		} else {
			a.canvas.KeyDown(KeyEnter, mods)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		if a.panel.open {
			if n := len(a.panel.prompt); n > 0 {
				a.panel.prompt = a.panel.prompt[:n-1]
			}
		} else {
			a.canvas.KeyDown(KeyBackspace, mods)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete):
		if !a.panel.open {
			a.canvas.KeyDown(KeyDelete, mods)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		if !a.panel.open && !a.canvas.Typing() {
			a.canvas.KeyDown(KeyText, mods)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyHome):
		a.canvas.KeyDown(KeyHome, mods)
	case inpututil.IsKeyJustPressed(ebiten.KeyF1):
		a.showStats = !a.showStats
	case inpututil.IsKeyJustPressed(ebiten.KeyF12):
		a.queueExport()
	}
}

// submitPanel sends the prompt to the generation collaborator. The intent
// is prefilled from the prompt wording but always sent explicitly.
func (a *app) submitPanel() {
	if a.gen == nil || a.panel.pending || len(a.panel.prompt) == 0 {
		return
	}
	prompt := string(a.panel.prompt)
	req := GenerateRequest{Prompt: prompt, Intent: InferIntent(prompt)}
	target := a.panel.target
	if target != nil {
		req.SelectedImage = target.SourceRef
	}
	a.panel.pending = true
	a.panel.errMsg = ""
	a.canvas.Generate(context.Background(), a.gen, req, target, func(err error) {
		// Completion runs off the game loop; hand the result to Update
		// instead of touching panel state from this goroutine.
		a.genDone <- err
	})
}

// drainGenDone applies a pending generation result on the game loop. At
// most one request is in flight, so the channel holds at most one result.
func (a *app) drainGenDone() {
	select {
	case err := <-a.genDone:
		a.panel.pending = false
		if err != nil {
			a.panel.errMsg = err.Error()
			return
		}
		a.panel = genPanel{}
		a.canvas.ClosePanel()
	default:
	}
}

func (a *app) processMouse(mods KeyModifiers) {
	mx, my := ebiten.CursorPosition()
	pressed := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	sx, sy := float64(mx), float64(my)

	switch {
	case pressed && !a.mouseDown:
		a.canvas.PointerDown(0, sx, sy, mods)
	case !pressed && a.mouseDown:
		a.canvas.PointerUp(0, sx, sy, mods)
	case pressed && (mx != a.mouseX || my != a.mouseY):
		a.canvas.PointerMove(0, sx, sy, mods)
	}
	a.mouseDown = pressed
	a.mouseX, a.mouseY = mx, my
}

func (a *app) processTouches(mods KeyModifiers) {
	a.touchIDs = ebiten.AppendTouchIDs(a.touchIDs[:0])

	var active [maxPointers]bool
	for _, tid := range a.touchIDs {
		slot, fresh := a.touchSlot(tid)
		if slot < 0 {
			continue
		}
		active[slot] = true
		tx, ty := ebiten.TouchPosition(tid)
		sx, sy := float64(tx), float64(ty)
		if fresh {
			a.canvas.PointerDown(slot, sx, sy, mods)
		} else {
			a.canvas.PointerMove(slot, sx, sy, mods)
		}
	}

	// Release slots whose touch disappeared this frame.
	for i := 1; i < maxPointers; i++ {
		if a.touchUsed[i] && !active[i] {
			a.touchUsed[i] = false
			tx, ty := ebiten.TouchPosition(a.touchMap[i])
			a.canvas.PointerUp(i, float64(tx), float64(ty), mods)
		}
	}
}

// touchSlot maps an ebiten.TouchID to a pointer slot (1-9), allocating a
// new one for unseen touches. Returns -1 when all slots are taken.
func (a *app) touchSlot(tid ebiten.TouchID) (slot int, fresh bool) {
	for i := 1; i < maxPointers; i++ {
		if a.touchUsed[i] && a.touchMap[i] == tid {
			return i, false
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !a.touchUsed[i] {
			a.touchUsed[i] = true
			a.touchMap[i] = tid
			return i, true
		}
	}
	return -1, false
}

func (a *app) processWheel(mods KeyModifiers) {
	_, wy := ebiten.Wheel()
	if wy == 0 {
		return
	}
	// Ebiten reports positive Y for scroll-up; the canvas expects the
	// browser convention where positive deltas shrink.
	a.canvas.Wheel(-wy*wheelStep, mods)
}

// --- Rendering ---

func (a *app) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0xfa, G: 0xfa, B: 0xf7, A: 0xff})
	vp := a.canvas.Viewport()

	items := a.canvas.Items()
	for _, item := range items {
		a.drawItem(screen, vp, item)
	}
	for _, it := range staleCacheItems(a.imageCache, items) {
		a.imageCache[it].Deallocate()
		delete(a.imageCache, it)
	}
	if sel := a.canvas.SelectedItem(); sel != nil {
		a.drawSelection(screen, vp, sel)
	}
	if content, wx, wy, active := a.canvas.TypingPreview(); active {
		sx, sy := vp.WorldToScreen(wx, wy)
		text.Draw(screen, content+"|", a.face, int(sx), int(sy), color.RGBA{A: 0xff})
	}
	if a.panel.open {
		a.drawPanel(screen)
	}
	if a.showStats {
		a.overlay.draw(screen)
	}
	a.flushExport(screen)
}

func (a *app) drawItem(screen *ebiten.Image, vp *Viewport, item *Item) {
	switch item.Type {
	case ItemTypeImage:
		img := a.ebitenImage(item)
		if img == nil {
			return
		}
		b := item.Bounds()
		sx, sy := vp.WorldToScreen(b.X, b.Y)
		var op ebiten.DrawImageOptions
		op.GeoM.Scale(item.Scale, item.Scale)
		op.GeoM.Translate(sx, sy)
		screen.DrawImage(img, &op)
	case ItemTypeText:
		a.drawTextItem(screen, vp, item)
	}
}

// ebitenImage returns the GPU image for an item's resolved pixels,
// uploading and caching on first use.
func (a *app) ebitenImage(item *Item) *ebiten.Image {
	if item.Resolved == nil {
		return nil
	}
	if img, ok := a.imageCache[item]; ok {
		return img
	}
	img := ebiten.NewImageFromImage(item.Resolved)
	a.imageCache[item] = img
	return img
}

func (a *app) drawTextItem(screen *ebiten.Image, vp *Viewport, item *Item) {
	img := a.textImage(item)
	if img == nil {
		return
	}
	b := item.Bounds()
	sx, sy := vp.WorldToScreen(b.X, b.Y)
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(item.Scale, item.Scale)
	op.GeoM.Translate(sx, sy)
	screen.DrawImage(img, &op)
}

// textCacheKey identifies a rendered text bitmap by everything that
// affects its pixels.
func textCacheKey(item *Item) string {
	return item.Content + "\x00" + item.Color + "\x00" + item.FontFamily
}

// textImage lays the item's content out into a cached offscreen image and
// refines the item's intrinsic size with the measured extents.
func (a *app) textImage(item *Item) *ebiten.Image {
	key := textCacheKey(item)
	if img, ok := a.textCache[key]; ok {
		return img
	}
	bounds := text.BoundString(a.face, item.Content)
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}
	img := ebiten.NewImage(w, h)
	text.Draw(img, item.Content, a.face, -bounds.Min.X, -bounds.Min.Y, parseHexColor(item.Color))
	a.textCache[key] = img
	a.canvas.refineIntrinsicSize(item, float64(w), float64(h))
	return img
}

// staleCacheItems returns the cached items no longer on the canvas, so
// their GPU images can be released instead of leaking over a session.
func staleCacheItems(cache map[*Item]*ebiten.Image, live []*Item) []*Item {
	if len(cache) == 0 {
		return nil
	}
	set := make(map[*Item]struct{}, len(live))
	for _, it := range live {
		set[it] = struct{}{}
	}
	var stale []*Item
	for it := range cache {
		if _, ok := set[it]; !ok {
			stale = append(stale, it)
		}
	}
	return stale
}

func (a *app) drawSelection(screen *ebiten.Image, vp *Viewport, item *Item) {
	if !item.SelectionVisible() {
		return
	}
	b := item.Bounds()
	sx, sy := vp.WorldToScreen(b.X, b.Y)
	frame := color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	vector.StrokeRect(screen, float32(sx), float32(sy), float32(b.Width), float32(b.Height), 2, frame, true)

	anchor := item.HandleAnchor()
	hx, hy := vp.WorldToScreen(anchor.X, anchor.Y)
	vector.DrawFilledCircle(screen, float32(hx), float32(hy), 6, frame, true)
}

func (a *app) drawPanel(screen *ebiten.Image) {
	w := screen.Bounds().Dx()
	h := screen.Bounds().Dy()
	const panelH = 72
	vector.DrawFilledRect(screen, 0, float32(h-panelH), float32(w), panelH, color.RGBA{R: 0x22, G: 0x22, B: 0x28, A: 0xe6}, false)

	label := string(a.panel.prompt) + "|"
	if a.panel.pending {
		label = "generating..."
	}
	text.Draw(screen, label, a.face, 16, h-panelH/2, color.White)
	if a.panel.errMsg != "" {
		text.Draw(screen, a.panel.errMsg, a.face, 16, h-8, color.RGBA{R: 0xf8, G: 0x71, B: 0x71, A: 0xff})
	}
}

func (a *app) Layout(outsideWidth, outsideHeight int) (int, int) {
	a.canvas.Viewport().Resize(float64(outsideWidth), float64(outsideHeight))
	return outsideWidth, outsideHeight
}

// parseHexColor parses "#rgb" and "#rrggbb" colors, falling back to black.
func parseHexColor(s string) color.Color {
	hex := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}
	if len(s) == 7 && s[0] == '#' {
		var v [6]uint8
		for i := 0; i < 6; i++ {
			d, ok := hex(s[i+1])
			if !ok {
				return color.Black
			}
			v[i] = d
		}
		return color.RGBA{R: v[0]<<4 | v[1], G: v[2]<<4 | v[3], B: v[4]<<4 | v[5], A: 0xff}
	}
	if len(s) == 4 && s[0] == '#' {
		var v [3]uint8
		for i := 0; i < 3; i++ {
			d, ok := hex(s[i+1])
			if !ok {
				return color.Black
			}
			v[i] = d
		}
		return color.RGBA{R: v[0] * 17, G: v[1] * 17, B: v[2] * 17, A: 0xff}
	}
	return color.Black
}
