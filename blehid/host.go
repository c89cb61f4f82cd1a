package blehid

import (
	"fmt"
	"sync"
	"sync/atomic"

	"adbridge/bridge"
	"adbridge/hal"
)

// Slot indices. One keyboard and one pointer.
const (
	SlotKeyboard = 0
	SlotPointer  = 1
	NumSlots     = 2
)

// Config tunes host behavior.
type Config struct {
	// ForceBootKeyboard subscribes the Boot Keyboard Input Report even
	// when the Protocol Mode write cannot confirm boot protocol.
	ForceBootKeyboard bool
}

type slot struct {
	want  DeviceType
	state SlotState
	peer  string
	name  string
	entry *poolEntry

	kstate kbdState
	bo     backoff
	busy   bool

	events    atomic.Uint32
	lastNotif atomic.Uint32

	notifCounts map[uint16]uint32
}

// Host owns the central role: scanning, the per-slot connection state
// machines, report parsing and the handoff into the bridge queues.
// All state transitions run under one mutex; notification callbacks
// and timing-sensitive work never touch the bus loop.
type Host struct {
	mu    sync.Mutex
	radio Radio
	clock hal.Clock
	log   hal.Logger
	cfg   Config

	keys *bridge.KeyQueue
	ptr  *bridge.PointerQueue

	pool  clientPool
	slots [NumSlots]slot

	scanning        bool
	rescanNotBefore uint32

	cbTotal   atomic.Uint32
	cbKept    atomic.Uint32
	cbDropped atomic.Uint32
}

// New returns a host feeding the given queues. Call Init before Tick.
func New(radio Radio, clock hal.Clock, log hal.Logger, keys *bridge.KeyQueue, ptr *bridge.PointerQueue, cfg Config) *Host {
	h := &Host{
		radio: radio,
		clock: clock,
		log:   log,
		cfg:   cfg,
		keys:  keys,
		ptr:   ptr,
	}
	h.slots[SlotKeyboard].want = TypeKeyboard
	h.slots[SlotPointer].want = TypePointer
	for i := range h.slots {
		h.slots[i].notifCounts = make(map[uint16]uint32)
	}
	return h
}

// Init brings the radio up and starts scanning for both slots.
func (h *Host) Init() error {
	if err := h.radio.Enable(); err != nil {
		return fmt.Errorf("blehid: enable: %w", err)
	}
	h.mu.Lock()
	for i := range h.slots {
		h.slots[i].state = StateScanning
	}
	h.mu.Unlock()
	h.log.WriteLineString("[BLE] central up, scanning")
	h.ensureScanning()
	return nil
}

// WipeBonds erases stored pairing keys for all peers.
func (h *Host) WipeBonds() error {
	return h.radio.WipeBonds()
}

// Tick advances timers: the silent-disconnect watchdog, reconnect
// backoff and scanner upkeep. Call it every loop pass on the BLE task.
func (h *Host) Tick() {
	now := h.clock.Millis()

	h.mu.Lock()
	for i := range h.slots {
		s := &h.slots[i]
		switch s.state {
		case StateConnected:
			// Some peers vanish without a disconnect event.
			if s.entry == nil || s.entry.client == nil || !s.entry.client.IsConnected() {
				h.onDisconnectLocked(i)
			}
		case StateReconnecting:
			if !s.busy && s.bo.due(now) {
				if s.bo.exhausted() {
					h.log.WriteLineString(fmt.Sprintf("[BLE] slot %d: giving up on %s", i, s.peer))
					if s.entry != nil {
						h.pool.release(s.entry, false)
						s.entry = nil
					}
					s.peer = ""
					s.bo = backoff{}
					s.state = StateDisconnected
					continue
				}
				s.busy = true
				s.bo.fired(now)
				go h.connect(i, s.peer, s.name)
			}
		case StateDisconnected:
			s.state = StateScanning
		}
	}
	h.mu.Unlock()

	h.ensureScanning()
}

// ensureScanning starts or stops the scanner to match demand.
func (h *Host) ensureScanning() {
	h.mu.Lock()
	want := false
	for i := range h.slots {
		if h.slots[i].state == StateScanning || h.slots[i].state == StateReconnecting {
			want = true
		}
	}
	now := h.clock.Millis()
	if want && int32(now-h.rescanNotBefore) < 0 {
		want = false
	}
	start := want && !h.scanning
	stop := !want && h.scanning
	if start {
		h.scanning = true
	}
	if stop {
		h.scanning = false
	}
	h.mu.Unlock()

	if start {
		go func() {
			if err := h.radio.Scan(h.onAdvert); err != nil {
				h.log.WriteLineString("[BLE] scan: " + err.Error())
				h.mu.Lock()
				h.scanning = false
				h.mu.Unlock()
			}
		}()
	}
	if stop {
		h.radio.StopScan()
	}
}

func (h *Host) onAdvert(adv Advertisement) {
	if !adv.HasHID {
		return
	}

	h.mu.Lock()
	// A sighting of a peer we are backing off on skips the wait.
	for i := range h.slots {
		s := &h.slots[i]
		if s.state == StateReconnecting && s.peer == adv.Addr {
			s.bo.bypass()
			h.mu.Unlock()
			return
		}
	}

	si := -1
	for i := range h.slots {
		if h.slots[i].state == StateScanning && !h.slots[i].busy {
			si = i
			break
		}
	}
	if si < 0 {
		h.mu.Unlock()
		return
	}
	s := &h.slots[si]
	s.state = StateConnecting
	s.busy = true
	s.peer = adv.Addr
	s.name = adv.Name
	h.scanning = false
	h.mu.Unlock()

	h.radio.StopScan()
	go h.connect(si, adv.Addr, adv.Name)
}

// connect runs one connection attempt end to end: link, encryption,
// discovery, type detection, subscription.
func (h *Host) connect(si int, addr, name string) {
	defer func() {
		h.mu.Lock()
		h.slots[si].busy = false
		h.rescanNotBefore = h.clock.Millis() + rescanPauseMillis
		h.mu.Unlock()
		h.ensureScanning()
	}()

	h.mu.Lock()
	entry := h.pool.acquire(addr)
	if entry == nil {
		h.failLocked(si, ErrPoolFull)
		h.mu.Unlock()
		return
	}
	h.slots[si].entry = entry
	h.mu.Unlock()

	client, err := h.radio.Connect(addr)
	if err != nil {
		h.fail(si, fmt.Errorf("blehid: connect %s: %w", addr, err))
		return
	}

	h.mu.Lock()
	entry.client = client
	h.slots[si].state = StateDiscovering
	h.mu.Unlock()

	// Pair before touching any characteristic that needs it.
	if err := client.Secure(); err != nil {
		client.Disconnect()
		h.fail(si, fmt.Errorf("blehid: secure %s: %w", addr, err))
		return
	}

	svc, err := client.DiscoverHID()
	if err != nil {
		client.Disconnect()
		h.fail(si, fmt.Errorf("blehid: discover %s: %w", addr, err))
		return
	}

	typ := DetectType(svc)

	h.mu.Lock()
	if h.slots[si].want != typ {
		si2 := h.handoverLocked(si, typ, addr, name, entry)
		if si2 < 0 {
			h.mu.Unlock()
			client.Disconnect()
			h.fail(si, ErrWrongDevice)
			return
		}
		si = si2
	}
	h.mu.Unlock()

	if err := h.subscribe(si, typ, svc); err != nil {
		client.Disconnect()
		h.fail(si, err)
		return
	}

	// The peer may have dropped during subscription setup.
	if !client.IsConnected() {
		h.fail(si, fmt.Errorf("blehid: %s gone after subscribe", addr))
		return
	}

	h.mu.Lock()
	s := &h.slots[si]
	s.state = StateConnected
	s.kstate.reset()
	s.lastNotif.Store(h.clock.Millis())
	h.mu.Unlock()

	tag := "[KBD]"
	if typ == TypePointer {
		tag = "[MOU]"
	}
	h.log.WriteLineString(fmt.Sprintf("%s connected %s (%s)", tag, name, addr))
}

// handoverLocked moves a mistyped connection to the slot that wants
// it, or returns -1 when that slot is occupied.
func (h *Host) handoverLocked(si int, typ DeviceType, addr, name string, entry *poolEntry) int {
	for i := range h.slots {
		if i == si || h.slots[i].want != typ {
			continue
		}
		switch h.slots[i].state {
		case StateScanning, StateDisconnected:
			from := &h.slots[si]
			from.state = StateScanning
			from.peer = ""
			from.name = ""
			from.entry = nil
			from.busy = false

			to := &h.slots[i]
			to.state = StateDiscovering
			to.peer = addr
			to.name = name
			to.entry = entry
			to.busy = true
			return i
		}
	}
	return -1
}

func (h *Host) fail(si int, err error) {
	h.mu.Lock()
	h.failLocked(si, err)
	h.mu.Unlock()
}

// failLocked unwinds a failed attempt. A reconnecting slot keeps its
// peer binding for the next try; a fresh attempt goes back to scanning.
func (h *Host) failLocked(si int, err error) {
	s := &h.slots[si]
	h.log.WriteLineString(fmt.Sprintf("[BLE] slot %d: %v", si, err))
	if s.state == StateReconnecting || s.bo.attempts > 0 {
		if s.entry != nil {
			h.pool.release(s.entry, true)
		}
		s.state = StateReconnecting
		return
	}
	if s.entry != nil {
		h.pool.release(s.entry, false)
		s.entry = nil
	}
	s.peer = ""
	s.name = ""
	s.state = StateScanning
}

// onDisconnectLocked handles a link loss seen by the watchdog.
func (h *Host) onDisconnectLocked(si int) {
	s := &h.slots[si]
	s.kstate.reset()
	now := h.clock.Millis()

	if s.state == StateConnected {
		tag := "[KBD]"
		if s.want == TypePointer {
			tag = "[MOU]"
		}
		h.log.WriteLineString(fmt.Sprintf("%s lost %s, retrying", tag, s.name))
		if s.entry != nil {
			h.pool.release(s.entry, true)
		}
		s.state = StateReconnecting
		s.bo.reset(now)
		return
	}

	if s.entry != nil {
		h.pool.release(s.entry, false)
		s.entry = nil
	}
	s.peer = ""
	s.name = ""
	s.state = StateDisconnected
}

// subscribe wires notifications per device type.
func (h *Host) subscribe(si int, typ DeviceType, svc Service) error {
	chars := svc.Characteristics()

	if typ == TypeKeyboard {
		return h.subscribeKeyboard(si, chars)
	}
	return h.subscribePointer(si, chars)
}

func (h *Host) subscribeKeyboard(si int, chars []Characteristic) error {
	var bootIn, protoMode Characteristic
	for _, c := range chars {
		switch c.UUID() {
		case UUIDBootKbdInput:
			bootIn = c
		case UUIDProtocolMode:
			protoMode = c
		}
	}

	// Boot protocol trades report maps for fixed 8-byte reports. Many
	// peers expose Protocol Mode read-only and the write is a no-op.
	bootSet := false
	if protoMode != nil && protoMode.Props()&(PropWrite|PropWriteNoResponse) != 0 {
		if protoMode.WriteNoResponse([]byte{protocolModeBoot}) == nil {
			bootSet = true
		}
	}

	if bootIn != nil && (bootSet || h.cfg.ForceBootKeyboard) {
		return h.enableKbd(si, bootIn)
	}

	n := 0
	for _, c := range chars {
		if c.UUID() == UUIDReport && c.Props()&PropNotify != 0 {
			if err := h.enableKbd(si, c); err == nil {
				n++
			}
		}
	}
	if n > 0 {
		return nil
	}
	if bootIn != nil {
		return h.enableKbd(si, bootIn)
	}
	return ErrNoInput
}

func (h *Host) subscribePointer(si int, chars []Characteristic) error {
	for _, c := range chars {
		if c.UUID() == UUIDReport && c.Props()&PropNotify != 0 {
			return h.enablePtr(si, c)
		}
	}
	for _, c := range chars {
		if c.UUID() == UUIDBootMouseInput {
			return h.enablePtr(si, c)
		}
	}
	return ErrNoInput
}

func (h *Host) enableKbd(si int, c Characteristic) error {
	uuid := c.UUID()
	return c.EnableNotifications(func(p []byte) {
		h.kbdNotify(si, uuid, p)
	})
}

func (h *Host) enablePtr(si int, c Characteristic) error {
	uuid := c.UUID()
	return c.EnableNotifications(func(p []byte) {
		h.ptrNotify(si, uuid, p)
	})
}

func (h *Host) kbdNotify(si int, uuid uint16, p []byte) {
	h.cbTotal.Add(1)
	h.noteNotif(si, uuid)

	// Report-protocol keyboards can expose extra short reports (media
	// keys, battery). Only full key state reports are useful here.
	if len(p) < 8 {
		h.cbDropped.Add(1)
		return
	}

	h.mu.Lock()
	s := &h.slots[si]
	lost := false
	ok := diffKeyboardReport(&s.kstate, p, func(usage uint8, release bool) {
		if h.keys.TryPush(bridge.KeyEvent{Usage: usage, Release: release}) {
			s.events.Add(1)
		} else {
			lost = true
		}
	})
	h.mu.Unlock()
	if !ok || lost {
		h.cbDropped.Add(1)
	} else {
		h.cbKept.Add(1)
	}
}

func (h *Host) ptrNotify(si int, uuid uint16, p []byte) {
	h.cbTotal.Add(1)
	h.noteNotif(si, uuid)

	dx, dy, buttons, ok := parsePointerReport(p)
	if !ok {
		h.cbDropped.Add(1)
		return
	}
	if h.ptr.TryPush(bridge.PointerEvent{DX: dx, DY: dy, Buttons: buttons}) {
		h.cbKept.Add(1)
		h.slots[si].events.Add(1)
	} else {
		h.cbDropped.Add(1)
	}
}

func (h *Host) noteNotif(si int, uuid uint16) {
	now := h.clock.Millis()
	h.slots[si].lastNotif.Store(now)
	h.mu.Lock()
	h.slots[si].notifCounts[uuid]++
	h.mu.Unlock()
}

// SlotInfo is a point-in-time view of one slot for diagnostics.
type SlotInfo struct {
	State  SlotState
	Type   DeviceType
	Name   string
	Peer   string
	Events uint32
	// LastNotifyMillis is the clock reading of the latest report, or
	// of the connection when no report has arrived since.
	LastNotifyMillis uint32
}

// Slot returns diagnostics for slot i.
func (h *Host) Slot(i int) SlotInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &h.slots[i]
	return SlotInfo{
		State:            s.state,
		Type:             s.want,
		Name:             s.name,
		Peer:             s.peer,
		Events:           s.events.Load(),
		LastNotifyMillis: s.lastNotif.Load(),
	}
}

// Callbacks returns total, kept and dropped report callback counts.
func (h *Host) Callbacks() (total, kept, dropped uint32) {
	return h.cbTotal.Load(), h.cbKept.Load(), h.cbDropped.Load()
}

// FreeClients returns how many pool entries are idle.
func (h *Host) FreeClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.free()
}

// NotifyCounts copies the per-characteristic callback counters for
// slot i, keyed by characteristic UUID.
func (h *Host) NotifyCounts(i int) map[uint16]uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[uint16]uint32, len(h.slots[i].notifCounts))
	for k, v := range h.slots[i].notifCounts {
		out[k] = v
	}
	return out
}
