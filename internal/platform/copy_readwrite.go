package platform

import (
	"context"
	"io"
	"os"
	"sync"
)

const bufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// copyReadWrite copies with a pooled buffer, checking ctx between
// reads.
func copyReadWrite(ctx context.Context, params CopyFileParams) (CopyResult, error) {
	srcFd, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer srcFd.Close()

	result, err := copyStream(ctx, params.DstFd, srcFd)
	result.Method = ReadWrite
	return result, err
}

// CopyStream copies r into w with a pooled buffer, checking ctx between
// reads. Used directly by callers that wrap the source reader (rate
// limiting).
func CopyStream(ctx context.Context, w io.Writer, r io.Reader) (CopyResult, error) {
	return copyStream(ctx, w, r)
}

func copyStream(ctx context.Context, w io.Writer, r io.Reader) (CopyResult, error) {
	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := *bufp

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return CopyResult{BytesWritten: total}, err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			written := 0
			for written < n {
				m, writeErr := w.Write(buf[written:n])
				written += m
				if writeErr != nil {
					return CopyResult{BytesWritten: total + int64(written)}, writeErr
				}
			}
			total += int64(n)
		}
		if readErr == io.EOF {
			return CopyResult{BytesWritten: total}, nil
		}
		if readErr != nil {
			return CopyResult{BytesWritten: total}, readErr
		}
	}
}
