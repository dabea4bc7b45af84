package engine

import (
	"time"

	"github.com/lifeboat-sh/lifeboat/internal/category"
)

// FileTask describes one file selected for replication.
type FileTask struct {
	SrcPath  string
	DstPath  string
	RelPath  string // relative to the source root, for display
	Size     int64
	Mode     uint32
	ModTime  time.Time
	Category category.Category
}
