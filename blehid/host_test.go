package blehid

import (
	"testing"
	"time"

	"adbridge/bridge"
)

func newTestHost(cfg Config) (*Host, *fakeRadio, *fakeClock, *bridge.KeyQueue, *bridge.PointerQueue) {
	radio := &fakeRadio{}
	clock := &fakeClock{}
	keys := &bridge.KeyQueue{}
	ptr := &bridge.PointerQueue{}
	h := New(radio, clock, nopLogger{}, keys, ptr, cfg)
	return h, radio, clock, keys, ptr
}

// beginAttempt puts a slot in the state onAdvert would leave it in, so
// connect can run synchronously.
func beginAttempt(h *Host, si int, addr, name string) {
	h.mu.Lock()
	h.slots[si].state = StateConnecting
	h.slots[si].busy = true
	h.slots[si].peer = addr
	h.slots[si].name = name
	h.mu.Unlock()
}

func singleClient(c *fakeClient) func(addr string) (Client, error) {
	return func(addr string) (Client, error) { return c, nil }
}

func waitForState(t *testing.T, h *Host, si int, want SlotState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Slot(si).State != want {
		if time.Now().After(deadline) {
			t.Fatalf("slot %d state = %v, want %v", si, h.Slot(si).State, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHostConnectKeyboard(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	svc, report, proto := keyboardService()
	client := newFakeClient("aa:01", svc)
	radio.connectFn = singleClient(client)

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")

	info := h.Slot(SlotKeyboard)
	if info.State != StateConnected {
		t.Fatalf("State = %v, want %v", info.State, StateConnected)
	}
	if info.Name != "Keeb" {
		t.Fatalf("Name = %q, want %q", info.Name, "Keeb")
	}
	if got := proto.lastWrite(); len(got) != 1 || got[0] != protocolModeBoot {
		t.Fatalf("protocol mode write = %v, want [0x00]", got)
	}
	if report.notifyCb == nil {
		t.Fatalf("input report not subscribed")
	}
	if got := h.FreeClients(); got != maxClients-1 {
		t.Fatalf("FreeClients() = %d, want %d", got, maxClients-1)
	}
}

func TestHostKeyboardNotifyFeedsQueue(t *testing.T) {
	h, radio, _, keys, _ := newTestHost(Config{})
	svc, report, _ := keyboardService()
	radio.connectFn = singleClient(newFakeClient("aa:01", svc))

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")

	report.notify([]byte{0, 0, 0x04, 0, 0, 0, 0, 0})
	report.notify([]byte{0, 0, 0, 0, 0, 0, 0, 0})

	want := []bridge.KeyEvent{
		{Usage: 0x04, Release: false},
		{Usage: 0x04, Release: true},
	}
	for i, w := range want {
		ev, ok := keys.TryPop()
		if !ok {
			t.Fatalf("TryPop(%d) ok = false, want true", i)
		}
		if ev != w {
			t.Fatalf("event %d = %+v, want %+v", i, ev, w)
		}
	}

	total, kept, dropped := h.Callbacks()
	if total != 2 || kept != 2 || dropped != 0 {
		t.Fatalf("Callbacks() = (%d, %d, %d), want (2, 2, 0)", total, kept, dropped)
	}
	if got := h.NotifyCounts(SlotKeyboard)[UUIDReport]; got != 2 {
		t.Fatalf("NotifyCounts()[Report] = %d, want 2", got)
	}
}

func TestHostShortKeyboardReportDropped(t *testing.T) {
	h, radio, _, keys, _ := newTestHost(Config{})
	svc, report, _ := keyboardService()
	radio.connectFn = singleClient(newFakeClient("aa:01", svc))

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")

	// A two-byte media key report must not reach the diff.
	report.notify([]byte{0x01, 0x02})

	if _, ok := keys.TryPop(); ok {
		t.Fatalf("short report produced a key event")
	}
	if _, _, dropped := h.Callbacks(); dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
}

func TestHostKeyboardBootProtocolPreferred(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	proto := newFakeChar(UUIDProtocolMode, PropRead|PropWriteNoResponse)
	boot := newFakeChar(UUIDBootKbdInput, PropRead|PropNotify)
	report := newFakeChar(UUIDReport, PropRead|PropNotify)
	svc := &fakeService{chars: []Characteristic{proto, boot, report}}
	radio.connectFn = singleClient(newFakeClient("aa:01", svc))

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")

	if got := proto.lastWrite(); len(got) != 1 || got[0] != protocolModeBoot {
		t.Fatalf("protocol mode write = %v, want [0x00]", got)
	}
	if boot.notifyCb == nil {
		t.Fatalf("boot input not subscribed")
	}
	if report.notifyCb != nil {
		t.Fatalf("report characteristic subscribed despite boot mode")
	}
}

func TestHostKeyboardReadOnlyProtocolUsesReports(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	proto := newFakeChar(UUIDProtocolMode, PropRead)
	boot := newFakeChar(UUIDBootKbdInput, PropRead|PropNotify)
	report := newFakeChar(UUIDReport, PropRead|PropNotify)
	svc := &fakeService{chars: []Characteristic{proto, boot, report}}
	radio.connectFn = singleClient(newFakeClient("aa:01", svc))

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")

	if got := proto.lastWrite(); got != nil {
		t.Fatalf("protocol mode written %v on a read-only characteristic", got)
	}
	if report.notifyCb == nil {
		t.Fatalf("input report not subscribed")
	}
	if boot.notifyCb != nil {
		t.Fatalf("boot input subscribed without boot protocol")
	}
}

func TestHostForceBootKeyboard(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{ForceBootKeyboard: true})
	// Protocol Mode is read-only, so boot protocol cannot be confirmed.
	proto := newFakeChar(UUIDProtocolMode, PropRead)
	boot := newFakeChar(UUIDBootKbdInput, PropRead|PropNotify)
	report := newFakeChar(UUIDReport, PropRead|PropNotify)
	svc := &fakeService{chars: []Characteristic{proto, boot, report}}
	radio.connectFn = singleClient(newFakeClient("aa:01", svc))

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")

	if boot.notifyCb == nil {
		t.Fatalf("boot input not subscribed")
	}
	if report.notifyCb != nil {
		t.Fatalf("report characteristic subscribed despite forced boot")
	}
}

func TestHostKeyboardBootFallback(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	boot := newFakeChar(UUIDBootKbdInput, PropRead|PropNotify)
	svc := &fakeService{chars: []Characteristic{boot}}
	radio.connectFn = singleClient(newFakeClient("aa:01", svc))

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")

	if h.Slot(SlotKeyboard).State != StateConnected {
		t.Fatalf("State = %v, want %v", h.Slot(SlotKeyboard).State, StateConnected)
	}
	if boot.notifyCb == nil {
		t.Fatalf("boot input not subscribed")
	}
}

func TestHostPointerNotifyFeedsQueue(t *testing.T) {
	h, radio, _, _, ptr := newTestHost(Config{})
	svc, report := pointerService()
	radio.connectFn = singleClient(newFakeClient("bb:02", svc))

	beginAttempt(h, SlotPointer, "bb:02", "Rodent")
	h.connect(SlotPointer, "bb:02", "Rodent")

	report.notify([]byte{0x01, 0x0A, 0x00, 0xFB, 0xFF})

	ev, ok := ptr.TryPop()
	if !ok {
		t.Fatalf("TryPop() ok = false, want true")
	}
	if ev.DX != 10 || ev.DY != -5 || ev.Buttons != 1 {
		t.Fatalf("event = %+v, want DX=10 DY=-5 Buttons=1", ev)
	}
}

func TestHostPointerBootFallback(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	boot := newFakeChar(UUIDBootMouseInput, PropRead|PropNotify)
	svc := &fakeService{chars: []Characteristic{boot}}
	radio.connectFn = singleClient(newFakeClient("bb:02", svc))

	beginAttempt(h, SlotPointer, "bb:02", "Rodent")
	h.connect(SlotPointer, "bb:02", "Rodent")

	if boot.notifyCb == nil {
		t.Fatalf("boot mouse input not subscribed")
	}
}

func TestHostHandoverToPointerSlot(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	svc, _ := pointerService()
	radio.connectFn = singleClient(newFakeClient("bb:02", svc))

	// The mouse answered the keyboard slot's scan first.
	beginAttempt(h, SlotKeyboard, "bb:02", "Rodent")
	h.connect(SlotKeyboard, "bb:02", "Rodent")

	if got := h.Slot(SlotPointer).State; got != StateConnected {
		t.Fatalf("pointer slot state = %v, want %v", got, StateConnected)
	}
	if got := h.Slot(SlotPointer).Name; got != "Rodent" {
		t.Fatalf("pointer slot name = %q, want %q", got, "Rodent")
	}
	if got := h.Slot(SlotKeyboard).State; got != StateScanning {
		t.Fatalf("keyboard slot state = %v, want %v", got, StateScanning)
	}
	if got := h.Slot(SlotKeyboard).Peer; got != "" {
		t.Fatalf("keyboard slot peer = %q, want empty", got)
	}
}

func TestHostHandoverRejectedWhenSlotTaken(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	svc, _ := pointerService()
	client := newFakeClient("bb:02", svc)
	radio.connectFn = singleClient(client)

	h.mu.Lock()
	h.slots[SlotPointer].state = StateConnected
	h.mu.Unlock()

	beginAttempt(h, SlotKeyboard, "bb:02", "Rodent")
	h.connect(SlotKeyboard, "bb:02", "Rodent")

	if got := h.Slot(SlotKeyboard).State; got != StateScanning {
		t.Fatalf("keyboard slot state = %v, want %v", got, StateScanning)
	}
	if client.disconnects.Load() == 0 {
		t.Fatalf("second pointer left connected")
	}
}

func TestHostSilentDisconnectTriggersReconnect(t *testing.T) {
	h, radio, clock, _, _ := newTestHost(Config{})
	svc, _, _ := keyboardService()
	client := newFakeClient("aa:01", svc)
	radio.connectFn = singleClient(client)

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")
	waitForState(t, h, SlotKeyboard, StateConnected)

	// The peer vanishes without a disconnect event.
	client.connected.Store(false)
	h.Tick()
	if got := h.Slot(SlotKeyboard).State; got != StateReconnecting {
		t.Fatalf("state after watchdog = %v, want %v", got, StateReconnecting)
	}
	if got := h.Slot(SlotKeyboard).Peer; got != "aa:01" {
		t.Fatalf("peer = %q after link loss, want retained %q", got, "aa:01")
	}

	// First retry fires after the initial delay.
	fresh := newFakeClient("aa:01", svc)
	radio.connectFn = singleClient(fresh)
	clock.advance(backoffInitialMillis)
	h.Tick()
	waitForState(t, h, SlotKeyboard, StateConnected)
}

func TestHostScanSightingBypassesBackoff(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	svc, _, _ := keyboardService()
	client := newFakeClient("aa:01", svc)
	radio.connectFn = singleClient(client)

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")
	waitForState(t, h, SlotKeyboard, StateConnected)

	client.connected.Store(false)
	h.Tick()

	// The peer shows up in scan results before the delay elapses.
	fresh := newFakeClient("aa:01", svc)
	radio.connectFn = singleClient(fresh)
	h.onAdvert(Advertisement{Addr: "aa:01", Name: "Keeb", HasHID: true})
	h.Tick()
	waitForState(t, h, SlotKeyboard, StateConnected)
}

func TestHostReconnectGivesUp(t *testing.T) {
	h, _, _, _, _ := newTestHost(Config{})

	h.mu.Lock()
	s := &h.slots[SlotKeyboard]
	s.state = StateReconnecting
	s.peer = "aa:01"
	s.bo.attempts = backoffMaxAttempts
	s.bo.bypassFlag = true
	h.mu.Unlock()

	h.Tick()

	if got := h.Slot(SlotKeyboard).State; got != StateDisconnected {
		t.Fatalf("state = %v after budget spent, want %v", got, StateDisconnected)
	}
	if got := h.Slot(SlotKeyboard).Peer; got != "" {
		t.Fatalf("peer = %q after giving up, want empty", got)
	}

	// The next pass resumes scanning for a replacement.
	h.Tick()
	if got := h.Slot(SlotKeyboard).State; got != StateScanning {
		t.Fatalf("state = %v, want %v", got, StateScanning)
	}
}

func TestHostIgnoresNonHIDAdverts(t *testing.T) {
	h, _, _, _, _ := newTestHost(Config{})
	h.mu.Lock()
	h.slots[SlotKeyboard].state = StateScanning
	h.mu.Unlock()

	h.onAdvert(Advertisement{Addr: "cc:03", Name: "Speaker", HasHID: false})

	if got := h.Slot(SlotKeyboard).State; got != StateScanning {
		t.Fatalf("state = %v after non-HID advert, want %v", got, StateScanning)
	}
}

func TestHostDropAfterSubscribeFails(t *testing.T) {
	h, radio, _, _, _ := newTestHost(Config{})
	svc, _, _ := keyboardService()
	client := newFakeClient("aa:01", svc)
	radio.connectFn = func(addr string) (Client, error) {
		client.connected.Store(false)
		return client, nil
	}

	beginAttempt(h, SlotKeyboard, "aa:01", "Keeb")
	h.connect(SlotKeyboard, "aa:01", "Keeb")

	if got := h.Slot(SlotKeyboard).State; got == StateConnected {
		t.Fatalf("state = %v for a peer that dropped mid-setup", got)
	}
}
