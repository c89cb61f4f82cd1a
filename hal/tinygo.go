//go:build tinygo

package hal

import (
	"machine"
	"runtime/interrupt"
	"time"
)

var bootTime = time.Now()

type uartLogger struct {
	uart *machine.UART
}

// NewUARTLogger returns a Logger writing CRLF-terminated lines to uart.
func NewUARTLogger(uart *machine.UART) Logger {
	return &uartLogger{uart: uart}
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

// machineBusPin drives a machine.Pin as an open-drain bus line.
//
// The line is never driven high: low means output-low, released means
// input with the external pull-up raising the line. Methods stay small
// and allocation-free so they are safe inside bit cells.
type machineBusPin struct {
	pin   machine.Pin
	state interrupt.State
}

// NewMachineBusPin returns a BusPin over the given pin, released.
func NewMachineBusPin(pin machine.Pin) BusPin {
	pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return &machineBusPin{pin: pin}
}

func (p *machineBusPin) DriveLow() {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Low()
}

func (p *machineBusPin) Release() {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
}

func (p *machineBusPin) Read() bool {
	return p.pin.Get()
}

func (p *machineBusPin) Micros() uint32 {
	return uint32(time.Since(bootTime) / time.Microsecond)
}

func (p *machineBusPin) DelayMicros(us uint32) {
	start := p.Micros()
	for p.Micros()-start < us {
	}
}

func (p *machineBusPin) WaitForState(high bool, timeoutMicros uint32) uint32 {
	start := p.Micros()
	for p.pin.Get() != high {
		elapsed := p.Micros() - start
		if elapsed >= timeoutMicros {
			return 0
		}
	}
	return p.Micros() - start
}

func (p *machineBusPin) MeasurePulse(high bool, timeoutMicros uint32) uint32 {
	if p.pin.Get() != high {
		return 0
	}
	start := p.Micros()
	for p.pin.Get() == high {
		elapsed := p.Micros() - start
		if elapsed >= timeoutMicros {
			return timeoutMicros
		}
	}
	return p.Micros() - start
}

func (p *machineBusPin) MaskInterrupts() {
	p.state = interrupt.Disable()
}

func (p *machineBusPin) UnmaskInterrupts() {
	interrupt.Restore(p.state)
}

// pinButton is an active-low button with the internal pull-up enabled.
type pinButton struct {
	pin machine.Pin
}

// NewPinButton returns a Button over an active-low pin.
func NewPinButton(pin machine.Pin) Button {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return &pinButton{pin: pin}
}

func (b *pinButton) Pressed() bool { return !b.pin.Get() }

type tickClock struct{}

// NewTickClock returns a Clock backed by the runtime tick counter.
func NewTickClock() Clock { return tickClock{} }

func (tickClock) Millis() uint32 {
	return uint32(time.Since(bootTime) / time.Millisecond)
}
