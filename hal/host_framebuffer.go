//go:build !tinygo

package hal

import (
	"image/color"
	"sync"
)

type hostFramebuffer struct {
	mu     sync.Mutex
	width  int16
	height int16
	buf    []byte
}

// NewHostFramebuffer returns an in-memory monochrome surface, one byte
// per pixel, presentable through the host window.
func NewHostFramebuffer(width, height int16) Framebuffer {
	return &hostFramebuffer{
		width:  width,
		height: height,
		buf:    make([]byte, int(width)*int(height)),
	}
}

func (f *hostFramebuffer) Size() (int16, int16) { return f.width, f.height }

func (f *hostFramebuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.R != 0 || c.G != 0 || c.B != 0 {
		f.buf[int(y)*int(f.width)+int(x)] = 1
	} else {
		f.buf[int(y)*int(f.width)+int(x)] = 0
	}
}

func (f *hostFramebuffer) ClearBuffer() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.buf {
		f.buf[i] = 0
	}
}

func (f *hostFramebuffer) Display() error { return nil }

func (f *hostFramebuffer) snapshot(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf)
}

type hostDisplay struct {
	fb Framebuffer
}

// NewHostDisplay wraps a framebuffer as a Display.
func NewHostDisplay(fb Framebuffer) Display { return hostDisplay{fb: fb} }

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }
