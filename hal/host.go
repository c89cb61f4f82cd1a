//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

// NewHostLogger returns a Logger writing to stdout.
func NewHostLogger() Logger {
	return &hostLogger{w: os.Stdout}
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostClock struct {
	t0 time.Time
}

// NewHostClock returns a Clock backed by the wall clock.
func NewHostClock() Clock {
	return &hostClock{t0: time.Now()}
}

func (c *hostClock) Millis() uint32 {
	return uint32(time.Since(c.t0) / time.Millisecond)
}
