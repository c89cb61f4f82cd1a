// Package status renders the little status panel on the OLED.
package status

import (
	"fmt"
	"image/color"
	"time"

	"adbridge/blehid"
	"adbridge/diag"
	"adbridge/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// RefreshPeriod is the panel redraw interval.
const RefreshPeriod = 250 * time.Millisecond

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	font  = &proggy.TinySZ8pt7b
)

var spinner = [4]string{"|", "/", "-", "\\"}

// Panel draws bridge state onto a framebuffer.
type Panel struct {
	fb    hal.Framebuffer
	col   *diag.Collector
	frame int
}

// NewPanel returns a panel over fb fed by col.
func NewPanel(fb hal.Framebuffer, col *diag.Collector) *Panel {
	return &Panel{fb: fb, col: col}
}

// ShowBoot draws the boot banner.
func (p *Panel) ShowBoot(version string) {
	p.fb.ClearBuffer()
	tinyfont.WriteLine(p.fb, font, 4, 14, "adbridge", white)
	tinyfont.WriteLine(p.fb, font, 4, 28, version, white)
	tinyfont.WriteLine(p.fb, font, 4, 50, "starting...", white)
	p.fb.Display()
}

// ShowBondCountdown draws the bond-clear hold countdown.
func (p *Panel) ShowBondCountdown(secondsLeft int) {
	p.fb.ClearBuffer()
	tinyfont.WriteLine(p.fb, font, 4, 20, "clear bonds in", white)
	tinyfont.WriteLine(p.fb, font, 56, 44, fmt.Sprintf("%d", secondsLeft), white)
	p.fb.Display()
}

// ShowBondsCleared confirms the wipe.
func (p *Panel) ShowBondsCleared(ok bool) {
	p.fb.ClearBuffer()
	if ok {
		tinyfont.WriteLine(p.fb, font, 4, 32, "bonds cleared", white)
	} else {
		tinyfont.WriteLine(p.fb, font, 4, 32, "bond clear failed", white)
	}
	p.fb.Display()
}

// Render draws one status frame.
func (p *Panel) Render() {
	s := p.col.Snapshot()
	p.frame++

	p.fb.ClearBuffer()
	tinyfont.WriteLine(p.fb, font, 2, 12,
		fmt.Sprintf("ADB %s p%d t%d", spinner[p.frame%len(spinner)], s.Polls, s.Talks), white)
	tinyfont.WriteLine(p.fb, font, 2, 26, slotLine("K", s.Kbd), white)
	tinyfont.WriteLine(p.fb, font, 2, 40, slotLine("M", s.Mou), white)
	tinyfont.WriteLine(p.fb, font, 2, 54,
		fmt.Sprintf("cb %d d%d q %d/%d", s.CbKept, s.CbDropped, s.KeyDepth, s.PtrDepth), white)
	p.fb.Display()
}

func slotLine(tag string, si blehid.SlotInfo) string {
	name := si.Name
	if len(name) > 12 {
		name = name[:12]
	}
	if name == "" {
		return fmt.Sprintf("%s %s", tag, si.State)
	}
	return fmt.Sprintf("%s %s %s e%d", tag, si.State, name, si.Events)
}

// Run redraws the panel at 4 Hz until stop is closed.
func (p *Panel) Run(stop <-chan struct{}) {
	t := time.NewTicker(RefreshPeriod)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			p.Render()
		}
	}
}
