package easel

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/sirupsen/logrus"
)

// defaultExportDir receives window exports triggered from the keyboard.
const defaultExportDir = "exports"

// queueExport asks for the current frame to be written as a PNG at the
// end of this frame's Draw. Safe to call from Update.
func (a *app) queueExport() {
	a.exportQueued = true
}

// flushExport captures the rendered frame and writes it as a timestamped
// PNG under the export directory. Called at the end of Draw so the
// capture includes everything drawn this frame.
func (a *app) flushExport(screen *ebiten.Image) {
	if !a.exportQueued {
		return
	}
	a.exportQueued = false

	dir := a.exportDir
	if dir == "" {
		dir = defaultExportDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logrus.WithError(err).Error("Failed to create export directory")
		return
	}

	bounds := screen.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, 4*w*h)
	screen.ReadPixels(pixels)

	// Convert premultiplied RGBA to straight-alpha NRGBA.
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(pixels); i += 4 {
		r, g, b, alpha := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if alpha > 0 && alpha < 255 {
			r = uint8(min(int(r)*255/int(alpha), 255))
			g = uint8(min(int(g)*255/int(alpha), 255))
			b = uint8(min(int(b)*255/int(alpha), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = alpha
	}

	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("easel_%s.png", stamp))
	if err := writePNG(path, img); err != nil {
		logrus.WithError(err).Error("Failed to export frame")
		return
	}
	logrus.WithField("path", path).Info("Exported frame")
}

// writePNG encodes an image to a PNG file at the given path.
func writePNG(path string, img *image.NRGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
