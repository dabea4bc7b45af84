// Package runlog implements the per-run dual log session: an activity
// sink for successful transfers and an error sink for failures. Each
// run owns its own uniquely named pair of sink files, so concurrent or
// back-to-back runs against the same destination never interleave.
package runlog

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Kind names the run type in the sink file names.
type Kind string

const (
	KindBackup   Kind = "Backup"
	KindRecovery Kind = "Recovery"
	KindHealth   Kind = "Health"
)

const (
	stampLayout = "20060102150405"
	lineLayout  = "2006-01-02 15:04:05"
)

// Status is the result of one file transfer attempt.
type Status int

const (
	Copied Status = iota
	Failed
)

func (s Status) String() string {
	if s == Copied {
		return "copied"
	}
	return "failed"
}

// Outcome records the result of attempting to transfer one file. Every
// outcome is written to exactly one sink: activity on success, error on
// failure.
type Outcome struct {
	SrcPath string
	DstPath string
	Status  Status
	Detail  string // underlying cause, failures only
	UTC     time.Time
	Local   time.Time
}

// Session owns exclusive append access to one activity sink and one
// error sink for the lifetime of a run.
type Session struct {
	ActivityPath string
	ErrorPath    string
	CreatedAt    time.Time

	activity sink
	errors   sink
}

type sink struct {
	mu sync.Mutex
	f  *os.File
}

func (s *sink) append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.f, line)
	return err
}

// Open creates a new session under dir. Both sink files are created
// immediately, even if nothing is ever appended. The name carries a
// 6-digit random component plus a UTC timestamp, which keeps runs on a
// shared destination from colliding.
func Open(dir string, kind Kind) (*Session, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}

	now := time.Now()
	token := fmt.Sprintf("%06d_%s-%s", rand.Intn(1_000_000), now.UTC().Format(stampLayout), kind)

	s := &Session{
		ActivityPath: filepath.Join(dir, token+"-Activity.txt"),
		ErrorPath:    filepath.Join(dir, token+"-Error.txt"),
		CreatedAt:    now.UTC(),
	}

	var err error
	if s.activity.f, err = createSink(s.ActivityPath); err != nil {
		return nil, err
	}
	if s.errors.f, err = createSink(s.ErrorPath); err != nil {
		s.activity.f.Close()
		return nil, err
	}
	return s, nil
}

func createSink(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("create log sink %s: %w", path, err)
	}
	return f, nil
}

// Activity appends one timestamped line to the activity sink. Safe for
// concurrent use.
func (s *Session) Activity(msg string) error {
	return s.activity.append(stamp(msg))
}

// Error appends one timestamped line to the error sink. Safe for
// concurrent use.
func (s *Session) Error(msg string) error {
	return s.errors.append(stamp(msg))
}

// Record writes o to the sink its status selects: activity for Copied,
// error for Failed. Never both.
func (s *Session) Record(o Outcome) error {
	if o.Status == Copied {
		return s.Activity(fmt.Sprintf("copied %s -> %s (utc %s, local %s)",
			o.SrcPath, o.DstPath,
			o.UTC.Format(lineLayout), o.Local.Format(lineLayout)))
	}
	return s.Error(fmt.Sprintf("failed %s -> %s: %s (utc %s, local %s)",
		o.SrcPath, o.DstPath, o.Detail,
		o.UTC.Format(lineLayout), o.Local.Format(lineLayout)))
}

// Close closes both sinks. The session must not be used afterwards.
func (s *Session) Close() error {
	errA := s.activity.f.Close()
	errE := s.errors.f.Close()
	if errA != nil {
		return errA
	}
	return errE
}

func stamp(msg string) string {
	return fmt.Sprintf("[%s] %s", time.Now().UTC().Format(lineLayout), msg)
}

// NewOutcome builds an outcome stamped with the current UTC and local
// time.
func NewOutcome(src, dst string, status Status, detail string) Outcome {
	now := time.Now()
	return Outcome{
		SrcPath: src,
		DstPath: dst,
		Status:  status,
		Detail:  detail,
		UTC:     now.UTC(),
		Local:   now.Local(),
	}
}
