package adb

import "adbridge/hal"

// Waveform builders for the simulated line. They append host-side
// edges to a schedule and return it with the time cursor advanced.
// Tests and the desktop simulator use these to play the host role.

// AppendLow schedules a low pulse of the given length.
func AppendLow(edges []hal.SimEdge, t, lowMicros uint32) ([]hal.SimEdge, uint32) {
	edges = append(edges,
		hal.SimEdge{AtMicros: t, Low: true},
		hal.SimEdge{AtMicros: t + lowMicros, Low: false},
	)
	return edges, t + lowMicros
}

// AppendBit schedules one bit cell.
func AppendBit(edges []hal.SimEdge, t uint32, bit bool) ([]hal.SimEdge, uint32) {
	low := uint32(Bit0LowMicros)
	if bit {
		low = Bit1LowMicros
	}
	edges, _ = AppendLow(edges, t, low)
	return edges, t + BitCellMicros
}

// AppendByte schedules eight bit cells, MSB first.
func AppendByte(edges []hal.SimEdge, t uint32, b uint8) ([]hal.SimEdge, uint32) {
	for i := 7; i >= 0; i-- {
		edges, t = AppendBit(edges, t, (b>>uint(i))&1 == 1)
	}
	return edges, t
}

// AppendCommand schedules a full host command: attention, sync, the
// command byte and the stop bit. Returns the schedule and the time
// just after the stop bit's low.
func AppendCommand(edges []hal.SimEdge, t uint32, cmd Command) ([]hal.SimEdge, uint32) {
	edges, t = AppendLow(edges, t, 800) // attention
	t += SyncNominalMicros              // sync high
	edges, t = AppendByte(edges, t, cmd.Byte())
	edges, _ = AppendLow(edges, t, Bit0LowMicros) // stop bit
	return edges, t + Bit0LowMicros
}

// AppendData schedules a host Listen payload: start bit, 16 data
// bits, stop bit.
func AppendData(edges []hal.SimEdge, t uint32, data uint16) ([]hal.SimEdge, uint32) {
	edges, t = AppendBit(edges, t, true)
	edges, t = AppendByte(edges, t, uint8(data>>8))
	edges, t = AppendByte(edges, t, uint8(data))
	edges, t = AppendBit(edges, t, false)
	return edges, t
}

// AppendReset schedules a global reset pulse.
func AppendReset(edges []hal.SimEdge, t uint32) ([]hal.SimEdge, uint32) {
	return AppendLow(edges, t, ResetMinMicros+200)
}
