package blehid

import (
	"sync"
	"sync/atomic"
)

// Fakes for the radio stack. The host is exercised against these in
// place of the BLE bindings.

type fakeClock struct {
	ms atomic.Uint32
}

func (c *fakeClock) Millis() uint32    { return c.ms.Load() }
func (c *fakeClock) advance(ms uint32) { c.ms.Add(ms) }

type nopLogger struct{}

func (nopLogger) WriteLineString(string) {}
func (nopLogger) WriteLineBytes([]byte)  {}

type fakeChar struct {
	mu       sync.Mutex
	uuid     uint16
	props    CharProps
	value    []byte
	writes   [][]byte
	notifyCb func(p []byte)
	enableOK bool
}

func newFakeChar(uuid uint16, props CharProps) *fakeChar {
	return &fakeChar{uuid: uuid, props: props, enableOK: true}
}

func (c *fakeChar) UUID() uint16     { return c.uuid }
func (c *fakeChar) Props() CharProps { return c.props }

func (c *fakeChar) Read(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copy(buf, c.value), nil
}

func (c *fakeChar) WriteNoResponse(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), p...))
	return nil
}

func (c *fakeChar) EnableNotifications(cb func(p []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enableOK {
		return ErrNoInput
	}
	c.notifyCb = cb
	return nil
}

// notify feeds a report through the subscribed callback.
func (c *fakeChar) notify(p []byte) bool {
	c.mu.Lock()
	cb := c.notifyCb
	c.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(p)
	return true
}

func (c *fakeChar) lastWrite() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.writes) == 0 {
		return nil
	}
	return c.writes[len(c.writes)-1]
}

type fakeService struct {
	chars []Characteristic
}

func (s *fakeService) Characteristics() []Characteristic { return s.chars }

type fakeClient struct {
	addr        string
	connected   atomic.Bool
	svc         *fakeService
	secureErr   error
	discoverErr error
	disconnects atomic.Uint32
}

func newFakeClient(addr string, svc *fakeService) *fakeClient {
	c := &fakeClient{addr: addr, svc: svc}
	c.connected.Store(true)
	return c
}

func (c *fakeClient) Addr() string      { return c.addr }
func (c *fakeClient) IsConnected() bool { return c.connected.Load() }
func (c *fakeClient) Secure() error     { return c.secureErr }

func (c *fakeClient) DiscoverHID() (Service, error) {
	if c.discoverErr != nil {
		return nil, c.discoverErr
	}
	return c.svc, nil
}

func (c *fakeClient) Disconnect() error {
	c.disconnects.Add(1)
	c.connected.Store(false)
	return nil
}

type fakeRadio struct {
	mu        sync.Mutex
	connectFn func(addr string) (Client, error)
	stopCh    chan struct{}
	stops     int
}

func (r *fakeRadio) Enable() error { return nil }

func (r *fakeRadio) Scan(cb func(Advertisement)) error {
	r.mu.Lock()
	if r.stopCh == nil {
		r.stopCh = make(chan struct{})
	}
	ch := r.stopCh
	r.mu.Unlock()
	<-ch
	return nil
}

func (r *fakeRadio) StopScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}
	return nil
}

func (r *fakeRadio) Connect(addr string) (Client, error) {
	r.mu.Lock()
	fn := r.connectFn
	r.mu.Unlock()
	return fn(addr)
}

func (r *fakeRadio) WipeBonds() error { return nil }

// keyboardService is a report-protocol keyboard: protocol mode, report
// map and one notifiable input report.
func keyboardService() (*fakeService, *fakeChar, *fakeChar) {
	proto := newFakeChar(UUIDProtocolMode, PropRead|PropWriteNoResponse)
	rmap := newFakeChar(UUIDReportMap, PropRead)
	rmap.value = []byte{0x05, 0x01, 0x09, 0x06, 0xA1, 0x01}
	report := newFakeChar(UUIDReport, PropRead|PropNotify)
	svc := &fakeService{chars: []Characteristic{proto, rmap, report}}
	return svc, report, proto
}

// pointerService is a report-protocol mouse with one notifiable report.
func pointerService() (*fakeService, *fakeChar) {
	rmap := newFakeChar(UUIDReportMap, PropRead)
	rmap.value = []byte{0x05, 0x01, 0x09, 0x02, 0xA1, 0x01}
	report := newFakeChar(UUIDReport, PropRead|PropNotify)
	svc := &fakeService{chars: []Characteristic{rmap, report}}
	return svc, report
}
