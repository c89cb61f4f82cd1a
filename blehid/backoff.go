package blehid

// Reconnect pacing.
const (
	backoffInitialMillis = 1000
	backoffMaxMillis     = 30000
	backoffMaxAttempts   = 10

	// Pause after any connect attempt before the scanner restarts.
	rescanPauseMillis = 2000
)

// backoff schedules reconnect attempts: 1s doubling to 30s, ten
// attempts, with a bypass lane for scan sightings of the peer.
type backoff struct {
	attempts   int
	delay      uint32
	nextAt     uint32
	bypassFlag bool
}

func (b *backoff) reset(now uint32) {
	b.attempts = 0
	b.delay = backoffInitialMillis
	b.nextAt = now + b.delay
	b.bypassFlag = false
}

// due reports whether an attempt should fire now.
func (b *backoff) due(now uint32) bool {
	if b.bypassFlag {
		return true
	}
	return int32(now-b.nextAt) >= 0
}

// fired records an attempt and schedules the next one.
func (b *backoff) fired(now uint32) {
	b.bypassFlag = false
	b.attempts++
	b.delay *= 2
	if b.delay > backoffMaxMillis {
		b.delay = backoffMaxMillis
	}
	b.nextAt = now + b.delay
}

// exhausted reports whether the attempt budget is spent.
func (b *backoff) exhausted() bool {
	return b.attempts >= backoffMaxAttempts
}

// bypass lets the next due check fire immediately. Called when the
// scanner sights the peer we are waiting to retry.
func (b *backoff) bypass() {
	b.bypassFlag = true
}
