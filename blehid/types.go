// Package blehid runs the central side of BLE HID: it scans for
// keyboards and pointers, connects, detects what each peer is, and
// turns its input reports into bridge events.
package blehid

import "errors"

// 16-bit assigned numbers for the HID service and its characteristics.
const (
	UUIDHIDService     = 0x1812
	UUIDReport         = 0x2A4D
	UUIDReportMap      = 0x2A4B
	UUIDBootKbdInput   = 0x2A22
	UUIDBootKbdOutput  = 0x2A32
	UUIDBootMouseInput = 0x2A33
	UUIDProtocolMode   = 0x2A4E
	UUIDHIDInformation = 0x2A4A
)

// CharProps is the subset of GATT properties the host cares about.
type CharProps uint8

const (
	PropRead CharProps = 1 << iota
	PropWriteNoResponse
	PropWrite
	PropNotify
)

// protocolModeBoot selects boot protocol in the Protocol Mode
// characteristic.
const protocolModeBoot = 0x00

// DeviceType classifies a connected HID peer.
type DeviceType uint8

const (
	TypeUnknown DeviceType = iota
	TypeKeyboard
	TypePointer
)

func (t DeviceType) String() string {
	switch t {
	case TypeKeyboard:
		return "keyboard"
	case TypePointer:
		return "pointer"
	}
	return "unknown"
}

// SlotState tracks one peripheral slot through its life cycle.
type SlotState uint8

const (
	StateDisconnected SlotState = iota
	StateScanning
	StateConnecting
	StateDiscovering
	StateConnected
	StateReconnecting
)

func (s SlotState) String() string {
	switch s {
	case StateDisconnected:
		return "down"
	case StateScanning:
		return "scan"
	case StateConnecting:
		return "conn"
	case StateDiscovering:
		return "disc"
	case StateConnected:
		return "up"
	case StateReconnecting:
		return "retry"
	}
	return "?"
}

var (
	ErrPoolFull    = errors.New("blehid: client pool full")
	ErrNoHID       = errors.New("blehid: peer has no HID service")
	ErrNoInput     = errors.New("blehid: no usable input characteristic")
	ErrWrongDevice = errors.New("blehid: device type does not fit slot")
)

// Advertisement is one scan sighting.
type Advertisement struct {
	Addr   string
	Name   string
	RSSI   int16
	HasHID bool
}

// Characteristic is one discovered GATT characteristic.
type Characteristic interface {
	UUID() uint16
	Props() CharProps
	Read(buf []byte) (int, error)
	WriteNoResponse(p []byte) error
	EnableNotifications(cb func(p []byte)) error
}

// Service is a discovered HID service.
type Service interface {
	Characteristics() []Characteristic
}

// Client is one connection to a peer.
type Client interface {
	Addr() string
	IsConnected() bool
	// Secure initiates pairing/encryption. Reports must not be
	// subscribed before it returns.
	Secure() error
	DiscoverHID() (Service, error)
	Disconnect() error
}

// Radio is the link layer the host drives. The production binding
// wraps the BLE stack; tests substitute fakes.
type Radio interface {
	Enable() error
	// Scan runs the active scanner, invoking cb per sighting, until
	// StopScan. Blocking.
	Scan(cb func(Advertisement)) error
	StopScan() error
	Connect(addr string) (Client, error)
	// WipeBonds erases all stored pairing keys.
	WipeBonds() error
}
