//go:build linux

package platform

import (
	"context"
	"os"

	"golang.org/x/sys/unix"
)

// CopyFile copies using copy_file_range(2) where the filesystem pair
// supports it, falling back to buffered read/write otherwise. The
// context is checked between chunks; a cancelled or expired context
// aborts the copy with the partial byte count.
func CopyFile(ctx context.Context, params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, params.Size)

	result, err := copyFileRange(ctx, params)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	return copyReadWrite(ctx, params)
}

func copyFileRange(ctx context.Context, params CopyFileParams) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	remaining := params.Size
	var roff, woff int64
	var total int64

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return CopyResult{BytesWritten: total, Method: CopyFileRange}, err
		}

		req := remaining
		if req > copyChunk {
			req = copyChunk
		}
		n, err := unix.CopyFileRange(int(srcFd.Fd()), &roff, int(params.DstFd.Fd()), &woff, int(req), 0)
		if err != nil {
			if total == 0 {
				return CopyResult{}, err
			}
			return CopyResult{BytesWritten: total, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}

	return CopyResult{BytesWritten: total, Method: CopyFileRange}, nil
}

func isFallbackErr(err error) bool {
	switch err {
	case unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP:
		return true
	}
	if e, ok := err.(*os.PathError); ok {
		return isFallbackErr(e.Err)
	}
	return false
}

// preallocate attempts to reserve disk space up front. Errors are
// ignored; fallocate is not supported on all filesystems (notably FAT
// on removable media).
func preallocate(fd *os.File, size int64) {
	if size > 0 {
		_ = unix.Fallocate(int(fd.Fd()), 0, 0, size)
	}
}
