// Package keymap translates USB HID keyboard page (0x07) usages to
// the wire scancodes an Apple Desktop Bus keyboard reports.
package keymap

// Unmapped marks a usage with no bus equivalent.
const Unmapped = 0xFF

var usbToWire [256]uint8

func init() {
	for i := range usbToWire {
		usbToWire[i] = Unmapped
	}
	for _, m := range mappings {
		usbToWire[m.usb] = m.wire
	}
}

// ToWire maps a USB HID usage to its bus scancode, or Unmapped.
func ToWire(usage uint8) uint8 {
	return usbToWire[usage]
}

var mappings = []struct{ usb, wire uint8 }{
	{0x04, 0x00}, // A
	{0x05, 0x0B}, // B
	{0x06, 0x08}, // C
	{0x07, 0x02}, // D
	{0x08, 0x0E}, // E
	{0x09, 0x03}, // F
	{0x0A, 0x05}, // G
	{0x0B, 0x04}, // H
	{0x0C, 0x22}, // I
	{0x0D, 0x26}, // J
	{0x0E, 0x28}, // K
	{0x0F, 0x25}, // L
	{0x10, 0x2E}, // M
	{0x11, 0x2D}, // N
	{0x12, 0x1F}, // O
	{0x13, 0x23}, // P
	{0x14, 0x0C}, // Q
	{0x15, 0x0F}, // R
	{0x16, 0x01}, // S
	{0x17, 0x11}, // T
	{0x18, 0x20}, // U
	{0x19, 0x09}, // V
	{0x1A, 0x0D}, // W
	{0x1B, 0x07}, // X
	{0x1C, 0x10}, // Y
	{0x1D, 0x06}, // Z
	{0x1E, 0x12}, // 1
	{0x1F, 0x13}, // 2
	{0x20, 0x14}, // 3
	{0x21, 0x15}, // 4
	{0x22, 0x17}, // 5
	{0x23, 0x16}, // 6
	{0x24, 0x1A}, // 7
	{0x25, 0x1C}, // 8
	{0x26, 0x19}, // 9
	{0x27, 0x1D}, // 0
	{0x28, 0x24}, // Return
	{0x29, 0x35}, // Escape
	{0x2A, 0x33}, // Delete (backspace)
	{0x2B, 0x30}, // Tab
	{0x2C, 0x31}, // Space
	{0x2D, 0x1B}, // -
	{0x2E, 0x18}, // =
	{0x2F, 0x21}, // [
	{0x30, 0x1E}, // ]
	{0x31, 0x2A}, // backslash
	{0x32, 0x2A}, // non-US #
	{0x33, 0x29}, // ;
	{0x34, 0x27}, // '
	{0x35, 0x32}, // `
	{0x36, 0x2B}, // ,
	{0x37, 0x2F}, // .
	{0x38, 0x2C}, // /
	{0x39, 0x39}, // Caps Lock
	{0x3A, 0x7A}, // F1
	{0x3B, 0x78}, // F2
	{0x3C, 0x63}, // F3
	{0x3D, 0x76}, // F4
	{0x3E, 0x60}, // F5
	{0x3F, 0x61}, // F6
	{0x40, 0x62}, // F7
	{0x41, 0x64}, // F8
	{0x42, 0x65}, // F9
	{0x43, 0x6D}, // F10
	{0x44, 0x67}, // F11
	{0x45, 0x6F}, // F12
	{0x46, 0x69}, // PrintScreen -> F13
	{0x47, 0x6B}, // ScrollLock -> F14
	{0x48, 0x71}, // Pause -> F15
	{0x49, 0x72}, // Insert -> Help
	{0x4A, 0x73}, // Home
	{0x4B, 0x74}, // PageUp
	{0x4C, 0x75}, // Forward Delete
	{0x4D, 0x77}, // End
	{0x4E, 0x79}, // PageDown
	{0x4F, 0x3C}, // Right Arrow
	{0x50, 0x3B}, // Left Arrow
	{0x51, 0x3D}, // Down Arrow
	{0x52, 0x3E}, // Up Arrow
	{0x53, 0x47}, // NumLock -> Clear
	{0x54, 0x4B}, // KP /
	{0x55, 0x43}, // KP *
	{0x56, 0x4E}, // KP -
	{0x57, 0x45}, // KP +
	{0x58, 0x4C}, // KP Enter
	{0x59, 0x53}, // KP 1
	{0x5A, 0x54}, // KP 2
	{0x5B, 0x55}, // KP 3
	{0x5C, 0x56}, // KP 4
	{0x5D, 0x57}, // KP 5
	{0x5E, 0x58}, // KP 6
	{0x5F, 0x59}, // KP 7
	{0x60, 0x5B}, // KP 8
	{0x61, 0x5C}, // KP 9
	{0x62, 0x52}, // KP 0
	{0x63, 0x41}, // KP .
	{0x64, 0x0A}, // non-US backslash
	{0x67, 0x51}, // KP =
	{0x68, 0x69}, // F13
	{0x69, 0x6B}, // F14
	{0x6A, 0x71}, // F15
	{0xE0, 0x36}, // Left Control
	{0xE1, 0x38}, // Left Shift
	{0xE2, 0x3A}, // Left Option
	{0xE3, 0x37}, // Left Command
	{0xE4, 0x7D}, // Right Control
	{0xE5, 0x7B}, // Right Shift
	{0xE6, 0x7C}, // Right Option
	{0xE7, 0x37}, // Right Command
}

// Modifier is one entry of the boot-report modifier byte.
type Modifier struct {
	Mask uint8
	Wire uint8
}

// Modifiers maps each bit of the boot-report modifier byte to its wire
// scancode, LSB first. Both Command keys share one scancode.
var Modifiers = [8]Modifier{
	{0x01, 0x36}, // Left Control
	{0x02, 0x38}, // Left Shift
	{0x04, 0x3A}, // Left Option
	{0x08, 0x37}, // Left Command
	{0x10, 0x7D}, // Right Control
	{0x20, 0x7B}, // Right Shift
	{0x40, 0x7C}, // Right Option
	{0x80, 0x37}, // Right Command
}
