// Package pathmap translates absolute source paths into their
// destination counterparts, mirroring the relative subtree under the
// source root. It performs no I/O and is safe for concurrent use.
package pathmap

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot reports a path that does not live under the source
// root. This is a contract violation by the caller, never tolerated
// silently.
var ErrOutsideRoot = errors.New("path outside source root")

// Map strips srcRoot from srcPath and joins the remainder onto dstRoot.
// The prefix comparison is case-insensitive (the source filesystem is
// assumed case-insensitive) and separator-normalized. The relative
// subtree below srcRoot is preserved exactly: same depth, same segment
// names.
func Map(srcRoot, dstRoot, srcPath string) (string, error) {
	rel, err := Rel(srcRoot, srcPath)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return filepath.Clean(dstRoot), nil
	}
	return filepath.Join(dstRoot, rel), nil
}

// Rel returns srcPath relative to srcRoot, with the same prefix rules
// as Map.
func Rel(srcRoot, srcPath string) (string, error) {
	rootSegs := segments(srcRoot)
	pathSegs := segments(srcPath)

	if len(pathSegs) < len(rootSegs) {
		return "", fmt.Errorf("%w: %s not under %s", ErrOutsideRoot, srcPath, srcRoot)
	}
	for i, seg := range rootSegs {
		if !strings.EqualFold(seg, pathSegs[i]) {
			return "", fmt.Errorf("%w: %s not under %s", ErrOutsideRoot, srcPath, srcRoot)
		}
	}

	rest := pathSegs[len(rootSegs):]
	if len(rest) == 0 {
		return ".", nil
	}
	return filepath.Join(rest...), nil
}

// segments cleans p and splits it on the OS separator. Cleaning first
// collapses ".." and repeated separators so an escape like
// root/../other never fold-matches the root prefix.
func segments(p string) []string {
	p = filepath.Clean(filepath.FromSlash(p))
	parts := strings.Split(p, string(filepath.Separator))
	segs := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			segs = append(segs, part)
		}
	}
	// Preserve rootedness as an empty leading marker so /a and a differ.
	if filepath.IsAbs(p) {
		return append([]string{string(filepath.Separator)}, segs...)
	}
	return segs
}
