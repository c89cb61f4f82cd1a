package adb

import (
	"runtime"
	"sync/atomic"

	"adbridge/hal"
)

// Device is one emulated bus peripheral. Handlers run on the bus-loop
// goroutine between bit cells and must not block or allocate.
type Device interface {
	// Address returns the device's current bus address.
	Address() uint8
	// HandleTalk returns the register payload, or ok=false to stay
	// silent and let the host time out.
	HandleTalk(reg uint8) (data uint16, ok bool)
	HandleListen(reg uint8, data uint16)
	HandleFlush()
	HandleReset()
	// HasPending reports whether the device wants a service request.
	HasPending() bool
}

// Engine runs the device side of the bus: it waits for attention,
// decodes host commands and dispatches them to registered devices.
type Engine struct {
	pin     hal.BusPin
	log     hal.Logger
	devices []Device
	yield   func()

	polls  atomic.Uint32
	talks  atomic.Uint32
	resets atomic.Uint32
}

// NewEngine returns an engine over pin with no devices attached.
func NewEngine(pin hal.BusPin, log hal.Logger) *Engine {
	return &Engine{pin: pin, log: log, yield: runtime.Gosched}
}

// Attach registers a device. Not safe once Run has started.
func (e *Engine) Attach(d Device) {
	e.devices = append(e.devices, d)
}

// Polls returns the number of well-formed commands seen.
func (e *Engine) Polls() uint32 { return e.polls.Load() }

// TalkResponses returns the number of Talk payloads sent.
func (e *Engine) TalkResponses() uint32 { return e.talks.Load() }

// Resets returns the number of global bus resets seen.
func (e *Engine) Resets() uint32 { return e.resets.Load() }

// Run services the bus until stop is closed. It yields once every 256
// iterations and whenever the bus goes idle, never between the command
// and its data phase.
func (e *Engine) Run(stop <-chan struct{}) {
	iter := 0
	for {
		select {
		case <-stop:
			return
		default:
		}
		busy := e.step()
		iter++
		if !busy || iter >= yieldEvery {
			iter = 0
			e.yield()
		}
	}
}

// step services at most one bus transaction. It returns false when the
// bus stayed idle for the whole timeout.
func (e *Engine) step() bool {
	if e.pin.WaitForState(false, idleTimeoutMicros) == 0 && e.pin.Read() {
		return false
	}

	low := e.pin.MeasurePulse(false, ResetMinMicros+1000)
	if low >= ResetMinMicros {
		e.globalReset()
		return true
	}
	if low < AttentionMinMicros || low > AttentionMaxMicros {
		// Line noise or a pulse meant for nobody. Drop it.
		return true
	}

	sync := e.pin.MeasurePulse(true, SyncNominalMicros+SyncTolMicros+bitWaitMicros)
	if sync < SyncNominalMicros-SyncTolMicros || sync > SyncNominalMicros+SyncTolMicros {
		return true
	}

	e.pin.MaskInterrupts()
	raw, err := ReceiveByte(e.pin, bitWaitMicros)
	if err != nil {
		e.pin.UnmaskInterrupts()
		return true
	}
	cmd := ParseCommand(raw)

	// The host drives the stop bit low next. A device with pending
	// data that is not being addressed stretches that low into a
	// service request.
	if e.pin.WaitForState(false, bitWaitMicros) == 0 && e.pin.Read() {
		e.pin.UnmaskInterrupts()
		return true
	}
	if e.wantSRQ(cmd.Addr) {
		e.pin.DriveLow()
		e.pin.DelayMicros(SrqTotalLowMicros)
		e.pin.Release()
	} else {
		e.pin.MeasurePulse(false, bitWaitMicros)
	}
	e.pin.UnmaskInterrupts()

	e.polls.Add(1)
	e.dispatch(cmd)
	return true
}

func (e *Engine) wantSRQ(addr uint8) bool {
	for _, d := range e.devices {
		if d.Address() != addr && d.HasPending() {
			return true
		}
	}
	return false
}

func (e *Engine) dispatch(cmd Command) {
	var dev Device
	for _, d := range e.devices {
		if d.Address() == cmd.Addr {
			dev = d
			break
		}
	}
	if dev == nil {
		return
	}

	switch cmd.Op {
	case OpReset:
		dev.HandleReset()
	case OpFlush:
		dev.HandleFlush()
	case OpTalk:
		data, ok := dev.HandleTalk(cmd.Reg)
		if !ok {
			return
		}
		e.pin.DelayMicros(TltMicros)
		e.pin.MaskInterrupts()
		SendData(e.pin, data)
		e.pin.UnmaskInterrupts()
		e.talks.Add(1)
	case OpListen:
		e.pin.MaskInterrupts()
		data, err := ReceiveData(e.pin, ListenStartWaitMicros)
		e.pin.UnmaskInterrupts()
		if err != nil {
			return
		}
		dev.HandleListen(cmd.Reg, data)
	}
}

func (e *Engine) globalReset() {
	e.resets.Add(1)
	for _, d := range e.devices {
		d.HandleReset()
	}
	if e.log != nil {
		e.log.WriteLineString("[ADB] bus reset")
	}
}
