package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileCopied
	FileFailed
	FileSkipped
	VerifyStarted
	VerifyOK
	VerifyFailed
	RecoveryStarted
	RecoveryComplete
)

var typeNames = [...]string{
	ScanStarted:      "ScanStarted",
	ScanComplete:     "ScanComplete",
	FileCopied:       "FileCopied",
	FileFailed:       "FileFailed",
	FileSkipped:      "FileSkipped",
	VerifyStarted:    "VerifyStarted",
	VerifyOK:         "VerifyOK",
	VerifyFailed:     "VerifyFailed",
	RecoveryStarted:  "RecoveryStarted",
	RecoveryComplete: "RecoveryComplete",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from a replication or
// recovery run.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // path relative to the run's source root
	Size      int64
	Total     int64 // total matched files (ScanComplete)
	TotalSize int64 // total matched bytes (ScanComplete)
	Error     error
}

// Emit sends ev without blocking. Events are advisory; if the consumer
// lags, dropping is preferable to stalling a copy worker.
func Emit(ch chan<- Event, ev Event) {
	if ch == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case ch <- ev:
	default:
	}
}
