package core

import "sync"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// ControlEvent captures a control-path event for post-mortem analysis
type ControlEvent struct {
	EventType uint8  // Event type code
	Value0    uint32 // Context-dependent value
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtModeChange = 1 // v0=event v1=from v2=to (packed modes)
	EvtCommit     = 2 // v0=sequence v1=slot v2=ok
	EvtLockout    = 3 // v0=new lockout state
	EvtSparkEdge  = 4 // v0=sparking
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether synchronous debug output is active
	debugEnabled bool = false

	ringMu        sync.Mutex
	eventRing     [EventRingSize]ControlEvent
	eventRingHead uint8

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables synchronous debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from the real-time context; use DebugAsync there.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
			// Channel full, drop message (non-blocking)
		}
	}
}

// RecordEvent captures an event in the ring buffer
func RecordEvent(eventType uint8, v0, v1, v2 uint32) {
	ringMu.Lock()
	eventRing[eventRingHead] = ControlEvent{
		EventType: eventType,
		Value0:    v0,
		Value1:    v1,
		Value2:    v2,
	}
	eventRingHead = (eventRingHead + 1) % EventRingSize
	ringMu.Unlock()
}

// EventRing returns the recorded events, oldest first
func EventRing() []ControlEvent {
	ringMu.Lock()
	defer ringMu.Unlock()

	events := make([]ControlEvent, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(eventRingHead+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// DumpEventRing outputs the event ring buffer (call on shutdown/error)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range EventRing() {
		var line string
		switch evt.EventType {
		case EvtModeChange:
			line = "MODE " + Event(evt.Value0).String() + " " +
				unpackMode(evt.Value1).String() + " -> " + unpackMode(evt.Value2).String()
		case EvtCommit:
			line = "COMMIT seq=" + utoa(evt.Value0) + " slot=" + utoa(evt.Value1) + " ok=" + utoa(evt.Value2)
		case EvtLockout:
			line = "LOCKOUT " + LockoutState(evt.Value0).String()
		case EvtSparkEdge:
			line = "SPARK " + utoa(evt.Value0)
		default:
			line = "UNKNOWN"
		}
		debugPrintln("[EVENTS] " + line)
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	ringMu.Lock()
	for i := range eventRing {
		eventRing[i] = ControlEvent{}
	}
	eventRingHead = 0
	ringMu.Unlock()
}
