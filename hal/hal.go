package hal

import (
	"errors"
	"image/color"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var ErrNotImplemented = errors.New("not implemented")

// BusPin is a single open-drain bus line with microsecond timing.
//
// The pin must never drive the line high: DriveLow sinks the line,
// Release lets the external pull-up raise it. All timing methods are
// safe to call from the bus-loop goroutine only.
type BusPin interface {
	DriveLow()
	Release()
	Read() bool

	// Micros returns a free-running microsecond counter. It wraps.
	Micros() uint32

	// DelayMicros spins for us microseconds.
	DelayMicros(us uint32)

	// WaitForState spins until the line reads high (or low) and returns
	// the elapsed microseconds, or 0 on timeout.
	WaitForState(high bool, timeoutMicros uint32) uint32

	// MeasurePulse measures how long the line stays in the given state.
	// Returns 0 if the line is not already in that state, the elapsed
	// time when the state ends, or timeoutMicros if still in state.
	MeasurePulse(high bool, timeoutMicros uint32) uint32

	// MaskInterrupts and UnmaskInterrupts bracket timing-critical
	// sections on the core running the bus loop.
	MaskInterrupts()
	UnmaskInterrupts()
}

// Button is a momentary input, active when held.
type Button interface {
	Pressed() bool
}

// Clock provides a coarse millisecond counter for timeouts and ages.
type Clock interface {
	Millis() uint32
}

// Framebuffer is a drawable monochrome pixel surface plus a present hook.
//
// The method set matches what glyph renderers expect: Size, SetPixel,
// Display. ClearBuffer wipes the backing buffer without presenting.
type Framebuffer interface {
	Size() (w, h int16)
	SetPixel(x, y int16, c color.RGBA)
	ClearBuffer()
	Display() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}
