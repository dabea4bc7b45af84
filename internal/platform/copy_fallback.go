//go:build !linux

package platform

import "context"

// CopyFile falls back to buffered read/write on platforms without a
// kernel-assisted copy path.
func CopyFile(ctx context.Context, params CopyFileParams) (CopyResult, error) {
	return copyReadWrite(ctx, params)
}
