// Package platform provides the fastest available whole-file copy for
// the host OS, falling back to plain read/write where kernel-assisted
// copies are unavailable.
package platform

import "os"

// CopyMethod identifies which strategy performed a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	default:
		return "unknown"
	}
}

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyFileParams describes what to copy. Size is the source file size;
// the whole file is copied into DstFd starting at offset zero.
type CopyFileParams struct {
	DstFd   *os.File
	SrcPath string
	Size    int64
}

// copyChunk bounds a single kernel copy request so cancellation is
// observed between chunks rather than only at file boundaries.
const copyChunk int64 = 32 << 20 // 32 MiB
