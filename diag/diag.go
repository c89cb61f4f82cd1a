// Package diag aggregates process-wide counters and emits the
// periodic serial status line.
package diag

import (
	"fmt"
	"time"

	"adbridge/adb"
	"adbridge/blehid"
	"adbridge/bridge"
	"adbridge/hal"
)

// StatusPeriod is how often the serial status line is written.
const StatusPeriod = 5 * time.Second

// Snapshot is one point-in-time view of every counter the bridge
// keeps.
type Snapshot struct {
	UptimeMillis uint32

	Polls   uint32
	Talks   uint32
	Resets  uint32
	KbdAddr uint8
	MouAddr uint8

	CbTotal   uint32
	CbKept    uint32
	CbDropped uint32

	KeyDepth   uint32
	KeyDrops   uint32
	PtrDepth   uint32
	PtrDrops   uint32

	Kbd blehid.SlotInfo
	Mou blehid.SlotInfo

	FreeClients int
}

// Collector gathers counters from every subsystem.
type Collector struct {
	Engine   *adb.Engine
	Keyboard *adb.Keyboard
	Mouse    *adb.Mouse
	Host     *blehid.Host
	Keys     *bridge.KeyQueue
	Ptr      *bridge.PointerQueue
	Clock    hal.Clock
}

// Snapshot reads every counter once.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{UptimeMillis: c.Clock.Millis()}
	if c.Engine != nil {
		s.Polls = c.Engine.Polls()
		s.Talks = c.Engine.TalkResponses()
		s.Resets = c.Engine.Resets()
	}
	if c.Keyboard != nil {
		s.KbdAddr = c.Keyboard.Address()
	}
	if c.Mouse != nil {
		s.MouAddr = c.Mouse.Address()
	}
	if c.Host != nil {
		s.CbTotal, s.CbKept, s.CbDropped = c.Host.Callbacks()
		s.Kbd = c.Host.Slot(blehid.SlotKeyboard)
		s.Mou = c.Host.Slot(blehid.SlotPointer)
		s.FreeClients = c.Host.FreeClients()
	}
	if c.Keys != nil {
		s.KeyDepth = c.Keys.Len()
		s.KeyDrops = c.Keys.Drops()
	}
	if c.Ptr != nil {
		s.PtrDepth = c.Ptr.Len()
		s.PtrDrops = c.Ptr.Drops()
	}
	return s
}

// StatusLine renders a snapshot as the machine-parseable serial line.
func (c *Collector) StatusLine() string {
	s := c.Snapshot()
	return fmt.Sprintf(
		"[STATUS] up=%d polls=%d talks=%d rst=%d cb=%d/%d/%d kq=%d/%d mq=%d/%d kbd=%s mou=%s free=%d kage=%s mage=%s",
		s.UptimeMillis/1000,
		s.Polls, s.Talks, s.Resets,
		s.CbTotal, s.CbKept, s.CbDropped,
		s.KeyDepth, s.KeyDrops,
		s.PtrDepth, s.PtrDrops,
		s.Kbd.State, s.Mou.State,
		s.FreeClients,
		age(s.UptimeMillis, s.Kbd.LastNotifyMillis),
		age(s.UptimeMillis, s.Mou.LastNotifyMillis),
	)
}

func age(now, last uint32) string {
	if last == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", now-last)
}

// Run writes the status line every StatusPeriod until stop is closed.
func (c *Collector) Run(stop <-chan struct{}, log hal.Logger) {
	t := time.NewTicker(StatusPeriod)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			log.WriteLineString(c.StatusLine())
		}
	}
}
