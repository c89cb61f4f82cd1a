package adb

import (
	"fmt"
	"strings"
	"testing"

	"adbridge/hal"
)

type captureLogger struct {
	lines []string
}

func (l *captureLogger) WriteLineString(s string) { l.lines = append(l.lines, s) }
func (l *captureLogger) WriteLineBytes(b []byte)  { l.lines = append(l.lines, string(b)) }

func (l *captureLogger) last(t *testing.T) string {
	t.Helper()
	if len(l.lines) == 0 {
		t.Fatalf("no log lines written")
	}
	return l.lines[len(l.lines)-1]
}

func TestMonitorDecodesTalk(t *testing.T) {
	pin := hal.NewSimBusPin()
	log := &captureLogger{}
	m := NewMonitor(pin, log)

	edges, stopEnd := AppendCommand(nil, 100, talk(DefaultKeyboardAddress))
	edges, _ = AppendData(edges, stopEnd+TltMicros, 0x1C9C)
	pin.Script(edges)
	m.step()

	want := "[MON] attn 800us sync 65us addr 2 Talk r0 data 1C9C"
	if got := log.last(t); got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
}

func TestMonitorDecodesListenPayload(t *testing.T) {
	pin := hal.NewSimBusPin()
	log := &captureLogger{}
	m := NewMonitor(pin, log)

	edges, stopEnd := AppendCommand(nil, 100, listen(DefaultKeyboardAddress, 3))
	edges, _ = AppendData(edges, stopEnd+TltMicros, 0x05FE)
	pin.Script(edges)
	m.step()

	want := "[MON] attn 800us sync 65us addr 2 Listen r3 data 05FE"
	if got := log.last(t); got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
}

func TestMonitorFlagsSRQ(t *testing.T) {
	pin := hal.NewSimBusPin()
	log := &captureLogger{}
	m := NewMonitor(pin, log)

	// Command frame with the stop bit stretched to a service request.
	edges, end := AppendLow(nil, 100, 800)
	edges, end = AppendByte(edges, end+SyncNominalMicros, talk(DefaultMouseAddress).Byte())
	edges, _ = AppendLow(edges, end, SrqTotalLowMicros)
	pin.Script(edges)
	m.step()

	got := log.last(t)
	if !strings.HasSuffix(got, "addr 3 Talk r0 SRQ") {
		t.Fatalf("line = %q, want SRQ suffix", got)
	}
}

func TestMonitorReportsReset(t *testing.T) {
	pin := hal.NewSimBusPin()
	log := &captureLogger{}
	m := NewMonitor(pin, log)

	edges, _ := AppendReset(nil, 100)
	pin.Script(edges)
	m.step()

	want := fmt.Sprintf("[MON] reset (%dus)", ResetMinMicros+200)
	if got := log.last(t); got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
}

func TestMonitorReportsRunt(t *testing.T) {
	pin := hal.NewSimBusPin()
	log := &captureLogger{}
	m := NewMonitor(pin, log)

	edges, _ := AppendLow(nil, 100, 200)
	pin.Script(edges)
	m.step()

	if got := log.last(t); got != "[MON] runt low 200us" {
		t.Fatalf("line = %q, want runt report", got)
	}
}
