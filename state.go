package mainthread

// Mode is the operating mode of a dispatcher, decided exactly once.
//
//	ModeUninitialized → ModeActive   [interactive driving loop available]
//	ModeUninitialized → ModeDummy    [no driving loop, e.g. batch/CI]
//
// There is no ModeActive ↔ ModeDummy transition within a process.
type Mode uint32

const (
	// ModeUninitialized indicates the dispatcher has not been created yet.
	// Only reported by [Bootstrap.Mode].
	ModeUninitialized Mode = iota
	// ModeActive indicates a driving loop drains the queue every tick.
	ModeActive
	// ModeDummy indicates there is no driving loop; submissions are accepted
	// then silently dropped.
	ModeDummy
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeUninitialized:
		return "Uninitialized"
	case ModeActive:
		return "Active"
	case ModeDummy:
		return "Dummy"
	default:
		return "Unknown"
	}
}

// LifecycleEvent identifies the engine lifecycle notification delivered to
// a callback set.
type LifecycleEvent uint8

const (
	// EventFocus is the application focus changed event.
	EventFocus LifecycleEvent = iota + 1
	// EventPause is the application pause changed event.
	EventPause
)

// String returns a human-readable representation of the event.
func (e LifecycleEvent) String() string {
	switch e {
	case EventFocus:
		return "focus"
	case EventPause:
		return "pause"
	default:
		return "unknown"
	}
}
