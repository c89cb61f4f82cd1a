//go:build !tinygo

package hal

import (
	"image"

	"adbridge/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow opens a desktop window that displays the framebuffer.
// step runs once per frame. Blocks until the window closes.
func RunWindow(fb Framebuffer, step func() error) error {
	hfb, ok := fb.(*hostFramebuffer)
	if !ok {
		return ErrNotImplemented
	}

	g := &hostGame{fb: hfb, step: step}
	ebiten.SetWindowTitle("adbridge (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(int(hfb.width)*4, int(hfb.height)*4)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	fb      *hostFramebuffer
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	step    func() error
}

func (g *hostGame) Update() error {
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	w, h := int(g.fb.width), int(g.fb.height)
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, w, h))
		g.scratch = make([]byte, len(g.fb.buf))
		g.fbImg = ebiten.NewImage(w, h)
	}

	g.fb.snapshot(g.scratch)

	dst := g.img.Pix
	for i, on := range g.scratch {
		j := i * 4
		var v byte
		if on != 0 {
			v = 0xFF
		}
		dst[j+0] = v
		dst[j+1] = v
		dst[j+2] = v
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return int(g.fb.width), int(g.fb.height)
}
