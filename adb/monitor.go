package adb

import (
	"fmt"

	"adbridge/hal"
)

// Monitor passively decodes bus traffic and logs it. It never drives
// the line, so it can sit on a live bus next to a real host. Useful
// for bring-up against machines whose polling behavior is undocumented.
type Monitor struct {
	pin hal.BusPin
	log hal.Logger
}

// NewMonitor returns a monitor over pin.
func NewMonitor(pin hal.BusPin, log hal.Logger) *Monitor {
	return &Monitor{pin: pin, log: log}
}

// Run decodes transactions until stop is closed.
func (m *Monitor) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		m.step()
	}
}

func (m *Monitor) step() {
	if m.pin.WaitForState(false, idleTimeoutMicros) == 0 && m.pin.Read() {
		return
	}

	low := m.pin.MeasurePulse(false, ResetMinMicros+1000)
	switch {
	case low >= ResetMinMicros:
		m.log.WriteLineString(fmt.Sprintf("[MON] reset (%dus)", low))
		return
	case low < AttentionMinMicros || low > AttentionMaxMicros:
		m.log.WriteLineString(fmt.Sprintf("[MON] runt low %dus", low))
		return
	}

	sync := m.pin.MeasurePulse(true, SyncNominalMicros+SyncTolMicros+bitWaitMicros)
	raw, err := ReceiveByte(m.pin, bitWaitMicros)
	if err != nil {
		m.log.WriteLineString(fmt.Sprintf("[MON] attn %dus sync %dus cmd: %v", low, sync, err))
		return
	}
	cmd := ParseCommand(raw)

	// Consume the stop bit, SRQ-stretched or not.
	m.pin.WaitForState(false, bitWaitMicros)
	stopLow := m.pin.MeasurePulse(false, SrqTotalLowMicros+bitWaitMicros)
	srq := ""
	if stopLow >= SrqTotalLowMicros-ReceiveTolMicros {
		srq = " SRQ"
	}

	line := fmt.Sprintf("[MON] attn %dus sync %dus addr %d %s r%d%s",
		low, sync, cmd.Addr, cmd.Op, cmd.Reg, srq)

	// Talk data, if a device answers inside the stop-to-start window.
	if cmd.Op == OpTalk {
		if data, err := ReceiveData(m.pin, ListenStartWaitMicros); err == nil {
			line += fmt.Sprintf(" data %04X", data)
		}
	} else if cmd.Op == OpListen {
		if data, err := ReceiveData(m.pin, ListenStartWaitMicros); err == nil {
			line += fmt.Sprintf(" data %04X", data)
		}
	}
	m.log.WriteLineString(line)
}
