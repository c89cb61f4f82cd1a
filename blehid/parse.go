package blehid

import "adbridge/keymap"

// kbdState is the last reported boot-format keyboard state. Diffing
// against it turns absolute reports into press/release transitions.
type kbdState struct {
	mods uint8
	keys [6]uint8
}

func (s *kbdState) reset() {
	*s = kbdState{}
}

// diffKeyboardReport compares an 8-byte boot-format report against the
// previous state and emits one transition per change. Reports longer
// than 8 bytes are assumed to carry a report ID prefix. Returns false
// if the report is too short to be a keyboard report.
func diffKeyboardReport(prev *kbdState, report []byte, emit func(usage uint8, release bool)) bool {
	if len(report) < 8 {
		return false
	}
	if len(report) > 8 {
		report = report[1:]
	}

	mods := report[0]
	if changed := mods ^ prev.mods; changed != 0 {
		for _, m := range keymap.Modifiers {
			if changed&m.Mask == 0 {
				continue
			}
			// The usage is reconstructed from the bit position so the
			// pump can run everything through one table.
			emit(modifierUsage(m.Mask), mods&m.Mask == 0)
		}
	}

	var keys [6]uint8
	copy(keys[:], report[2:8])

	for _, old := range prev.keys {
		if old != 0 && !containsKey(keys, old) {
			emit(old, true)
		}
	}
	for _, cur := range keys {
		if cur != 0 && !containsKey(prev.keys, cur) {
			emit(cur, false)
		}
	}

	prev.mods = mods
	prev.keys = keys
	return true
}

func containsKey(keys [6]uint8, k uint8) bool {
	for _, v := range keys {
		if v == k {
			return true
		}
	}
	return false
}

// modifierUsage maps a modifier bit mask to its HID usage (0xE0..0xE7).
func modifierUsage(mask uint8) uint8 {
	u := uint8(0xE0)
	for mask > 1 {
		mask >>= 1
		u++
	}
	return u
}

// parsePointerReport decodes a pointer input report. Five or more
// bytes is the 16-bit report-protocol layout, three or four the boot
// layout with signed bytes. Anything shorter is unusable.
func parsePointerReport(report []byte) (dx, dy int16, buttons uint8, ok bool) {
	switch {
	case len(report) >= 5:
		buttons = report[0]
		dx = int16(uint16(report[1]) | uint16(report[2])<<8)
		dy = int16(uint16(report[3]) | uint16(report[4])<<8)
		return dx, dy, buttons, true
	case len(report) >= 3:
		buttons = report[0]
		dx = int16(int8(report[1]))
		dy = int16(int8(report[2]))
		return dx, dy, buttons, true
	}
	return 0, 0, 0, false
}
