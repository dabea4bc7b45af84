// Package stats tracks counters for one replication run.
package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks run statistics using lock-free atomic counters.
// Workers write, presenters read.
type Collector struct {
	filesCopied  atomic.Int64
	filesFailed  atomic.Int64
	filesSkipped atomic.Int64
	bytesCopied  atomic.Int64
	dirsCreated  atomic.Int64
	filesTotal   atomic.Int64
	bytesTotal   atomic.Int64
	startTime    time.Time

	// Throughput ring — written only by the presenter's Tick, once a
	// second, never by workers.
	mu         sync.Mutex
	throughput [ringSize]int64
	ringIdx    int
	ringCount  int
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) AddFilesCopied(n int64)  { c.filesCopied.Add(n) }
func (c *Collector) AddFilesFailed(n int64)  { c.filesFailed.Add(n) }
func (c *Collector) AddFilesSkipped(n int64) { c.filesSkipped.Add(n) }
func (c *Collector) AddBytesCopied(n int64)  { c.bytesCopied.Add(n) }
func (c *Collector) AddDirsCreated(n int64)  { c.dirsCreated.Add(n) }
func (c *Collector) AddFilesTotal(n int64)   { c.filesTotal.Add(n) }
func (c *Collector) AddBytesTotal(n int64)   { c.bytesTotal.Add(n) }

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesCopied  int64
	FilesFailed  int64
	FilesSkipped int64
	BytesCopied  int64
	DirsCreated  int64
	FilesTotal   int64
	BytesTotal   int64
	Elapsed      time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesCopied:  c.filesCopied.Load(),
		FilesFailed:  c.filesFailed.Load(),
		FilesSkipped: c.filesSkipped.Load(),
		BytesCopied:  c.bytesCopied.Load(),
		DirsCreated:  c.dirsCreated.Load(),
		FilesTotal:   c.filesTotal.Load(),
		BytesTotal:   c.bytesTotal.Load(),
		Elapsed:      time.Since(c.startTime),
	}
}

// Tick snapshots the byte delta into the ring buffer. Called once a
// second by the presenter.
func (c *Collector) Tick() {
	current := c.bytesCopied.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = current - c.lastBytes
	c.lastBytes = current
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of
// samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := seconds
	if count > c.ringCount {
		count = c.ringCount
	}
	if count == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < count; i++ {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

func (s Snapshot) String() string {
	return fmt.Sprintf("copied=%d failed=%d skipped=%d bytes=%d dirs=%d",
		s.FilesCopied, s.FilesFailed, s.FilesSkipped, s.BytesCopied, s.DirsCreated)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
