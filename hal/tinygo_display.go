//go:build tinygo

package hal

import (
	"machine"

	"tinygo.org/x/drivers/ssd1306"
)

type oledDisplay struct {
	dev *ssd1306.Device
}

// NewOLEDDisplay configures a 128x64 SSD1306 over I2C and returns it
// as a Display. The ssd1306 driver satisfies Framebuffer directly.
func NewOLEDDisplay(bus *machine.I2C, addr uint16) Display {
	dev := ssd1306.NewI2C(bus)
	dev.Configure(ssd1306.Config{
		Address: addr,
		Width:   128,
		Height:  64,
	})
	dev.ClearDisplay()
	return &oledDisplay{dev: &dev}
}

func (d *oledDisplay) Framebuffer() Framebuffer { return d.dev }
