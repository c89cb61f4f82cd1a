package adb

// Bus timing in microseconds. The bit cell is 100us: a one is 35 low /
// 65 high, a zero is 65 low / 35 high, decoded against a 50us
// threshold with 15us receive tolerance.
const (
	BitCellMicros = 100
	Bit1LowMicros = 35
	Bit0LowMicros = 65

	DecodeThresholdMicros = 50
	ReceiveTolMicros      = 15

	// Attention pulse from the host before every command.
	AttentionMinMicros = 560
	AttentionMaxMicros = 1040

	// A low of this length or more is a global reset.
	ResetMinMicros = 2800

	// Sync high between attention and the command byte.
	SyncNominalMicros = 65
	SyncTolMicros     = 30

	// Stop-to-start time before Talk response data.
	TltMicros    = 200
	TltMaxMicros = 260

	// How long a device waits for the host start bit after Listen.
	ListenStartWaitMicros = TltMaxMicros + 100

	// Service request: stop-bit low stretched to this total length.
	SrqTotalLowMicros = 300

	// Receive guard for a single bit cell.
	bitWaitMicros = BitCellMicros + 2*ReceiveTolMicros

	// Bus loop cooperation thresholds.
	idleTimeoutMicros = 10000
	yieldEvery        = 256
)
