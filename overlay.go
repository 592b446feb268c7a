package easel

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// statsOverlay renders a small FPS/TPS/scene readout in the top-left
// corner. Refreshed every ~0.5 seconds to stay readable.
type statsOverlay struct {
	img        *ebiten.Image
	sinceFlush float64
}

func (o *statsOverlay) update(dt float64, c *Canvas) {
	o.sinceFlush += dt
	if o.img != nil && o.sinceFlush < 0.5 {
		return
	}
	o.sinceFlush = 0

	if o.img == nil {
		// 160x48 fits three DebugPrint lines.
		o.img = ebiten.NewImage(160, 48)
	}
	o.img.Clear()
	o.img.Fill(color.RGBA{0, 0, 0, 128})

	vp := c.Viewport()
	ebitenutil.DebugPrint(o.img, fmt.Sprintf(
		"FPS: %.1f  TPS: %.1f\nitems: %d\noffset: %.0f,%.0f",
		ebiten.ActualFPS(), ebiten.ActualTPS(),
		c.Len(), vp.OffsetX, vp.OffsetY))
}

func (o *statsOverlay) draw(screen *ebiten.Image) {
	if o.img == nil {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Translate(4, 4)
	screen.DrawImage(o.img, &op)
}
