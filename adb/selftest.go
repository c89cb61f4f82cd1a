package adb

import (
	"fmt"

	"adbridge/hal"
)

// SelfTest exercises the line driver and the microsecond timing the
// bit layer depends on. It needs an otherwise idle bus: the line is
// pulled low briefly. Results go to the logger; a non-nil error means
// the bridge should not be trusted on a live bus.
func SelfTest(pin hal.BusPin, log hal.Logger) error {
	log.WriteLineString("[ADB] self-test: start")

	// Delay calibration. The bit layer budgets 2us of slack per cell.
	for _, us := range []uint32{35, 65, 100} {
		t0 := pin.Micros()
		pin.DelayMicros(us)
		dt := pin.Micros() - t0
		if dt+2 < us || dt > us+4 {
			log.WriteLineString(fmt.Sprintf("[ADB] self-test: delay %dus measured %dus", us, dt))
			return fmt.Errorf("adb: self-test: delay %dus measured %dus", us, dt)
		}
	}

	// Line loopback: released reads high through the pull-up, driven
	// reads low.
	pin.Release()
	pin.DelayMicros(BitCellMicros)
	if !pin.Read() {
		return fmt.Errorf("adb: self-test: line stuck low")
	}
	pin.DriveLow()
	pin.DelayMicros(Bit1LowMicros)
	if pin.Read() {
		pin.Release()
		return fmt.Errorf("adb: self-test: line not driven low")
	}
	pin.Release()
	pin.DelayMicros(BitCellMicros)
	if !pin.Read() {
		return fmt.Errorf("adb: self-test: line did not recover")
	}

	// Full bit cells, timed end to end.
	t0 := pin.Micros()
	SendByte(pin, 0xA5)
	dt := pin.Micros() - t0
	const want = 8 * BitCellMicros
	if dt+16 < want || dt > want+32 {
		log.WriteLineString(fmt.Sprintf("[ADB] self-test: byte took %dus, want ~%dus", dt, want))
		return fmt.Errorf("adb: self-test: byte cell timing off (%dus)", dt)
	}

	log.WriteLineString("[ADB] self-test: pass")
	return nil
}
