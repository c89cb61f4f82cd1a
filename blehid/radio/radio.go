// Package radio binds blehid to the tinygo.org/x/bluetooth stack.
package radio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"adbridge/blehid"

	"tinygo.org/x/bluetooth"
)

var (
	hidServiceUUID = bluetooth.New16BitUUID(blehid.UUIDHIDService)

	errUnknownPeer = errors.New("radio: peer not seen in a scan")
	errNoBondStore = errors.New("radio: bond wipe unsupported on this stack")
)

// Connection parameters requested on connect: 15-50ms interval, 4s
// supervision timeout, 5s connect timeout.
var connParams = bluetooth.ConnectionParams{
	ConnectionTimeout: bluetooth.NewDuration(5 * time.Second),
	MinInterval:       bluetooth.NewDuration(15 * time.Millisecond),
	MaxInterval:       bluetooth.NewDuration(50 * time.Millisecond),
	Timeout:           bluetooth.NewDuration(4 * time.Second),
}

// Radio implements blehid.Radio over the default adapter.
type Radio struct {
	adapter *bluetooth.Adapter

	mu        sync.Mutex
	seen      map[string]bluetooth.Address
	connected map[string]bool
}

// New returns a radio over the default adapter.
func New() *Radio {
	r := &Radio{
		adapter:   bluetooth.DefaultAdapter,
		seen:      make(map[string]bluetooth.Address),
		connected: make(map[string]bool),
	}
	return r
}

func (r *Radio) Enable() error {
	if err := r.adapter.Enable(); err != nil {
		return err
	}
	r.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		r.mu.Lock()
		r.connected[device.Address.String()] = connected
		r.mu.Unlock()
	})
	return nil
}

func (r *Radio) Scan(cb func(blehid.Advertisement)) error {
	return r.adapter.Scan(func(_ *bluetooth.Adapter, res bluetooth.ScanResult) {
		addr := res.Address.String()
		r.mu.Lock()
		r.seen[addr] = res.Address
		r.mu.Unlock()
		cb(blehid.Advertisement{
			Addr:   addr,
			Name:   res.LocalName(),
			RSSI:   res.RSSI,
			HasHID: res.HasServiceUUID(hidServiceUUID),
		})
	})
}

func (r *Radio) StopScan() error {
	return r.adapter.StopScan()
}

func (r *Radio) Connect(addr string) (blehid.Client, error) {
	r.mu.Lock()
	target, ok := r.seen[addr]
	r.mu.Unlock()
	if !ok {
		return nil, errUnknownPeer
	}

	dev, err := r.adapter.Connect(target, connParams)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.connected[addr] = true
	r.mu.Unlock()
	return &client{radio: r, dev: dev, addr: addr}, nil
}

// WipeBonds reports that the stack keeps no wipeable bond store. The
// SoftDevice and BlueZ both manage keys outside this API.
func (r *Radio) WipeBonds() error {
	return errNoBondStore
}

type client struct {
	radio *Radio
	dev   bluetooth.Device
	addr  string
}

func (c *client) Addr() string { return c.addr }

func (c *client) IsConnected() bool {
	c.radio.mu.Lock()
	defer c.radio.mu.Unlock()
	return c.radio.connected[c.addr]
}

// Secure is a no-op: the underlying stacks pair implicitly on the
// first access to a protected characteristic.
func (c *client) Secure() error { return nil }

func (c *client) DiscoverHID() (blehid.Service, error) {
	svcs, err := c.dev.DiscoverServices([]bluetooth.UUID{hidServiceUUID})
	if err != nil {
		return nil, err
	}
	if len(svcs) == 0 {
		return nil, blehid.ErrNoHID
	}
	chars, err := svcs[0].DiscoverCharacteristics(nil)
	if err != nil {
		return nil, fmt.Errorf("radio: characteristics: %w", err)
	}
	out := make([]blehid.Characteristic, 0, len(chars))
	for i := range chars {
		out = append(out, &characteristic{ch: chars[i]})
	}
	return &service{chars: out}, nil
}

func (c *client) Disconnect() error {
	err := c.dev.Disconnect()
	c.radio.mu.Lock()
	c.radio.connected[c.addr] = false
	c.radio.mu.Unlock()
	return err
}

type service struct {
	chars []blehid.Characteristic
}

func (s *service) Characteristics() []blehid.Characteristic { return s.chars }

type characteristic struct {
	ch bluetooth.DeviceCharacteristic
}

func (c *characteristic) UUID() uint16 {
	return c.ch.UUID().Get16Bit()
}

// Props is optimistic: the stack does not expose discovered
// properties, so every capability is claimed and failures surface
// from the operation itself.
func (c *characteristic) Props() blehid.CharProps {
	return blehid.PropRead | blehid.PropWrite | blehid.PropWriteNoResponse | blehid.PropNotify
}

func (c *characteristic) Read(buf []byte) (int, error) {
	return c.ch.Read(buf)
}

func (c *characteristic) WriteNoResponse(p []byte) error {
	_, err := c.ch.WriteWithoutResponse(p)
	return err
}

func (c *characteristic) EnableNotifications(cb func(p []byte)) error {
	return c.ch.EnableNotifications(cb)
}
