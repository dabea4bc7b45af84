package pathmap

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name    string
		srcRoot string
		dstRoot string
		srcPath string
		want    string
	}{
		{
			name:    "simple child",
			srcRoot: "/home/demo",
			dstRoot: "/mnt/backup",
			srcPath: "/home/demo/report.docx",
			want:    "/mnt/backup/report.docx",
		},
		{
			name:    "nested subtree preserved",
			srcRoot: "/home/demo",
			dstRoot: "/mnt/backup/home/demo",
			srcPath: "/home/demo/Documents/work/q3.xlsx",
			want:    "/mnt/backup/home/demo/Documents/work/q3.xlsx",
		},
		{
			name:    "case-insensitive root prefix",
			srcRoot: "/Home/Demo",
			dstRoot: "/mnt/backup",
			srcPath: "/home/demo/pic.jpg",
			want:    "/mnt/backup/pic.jpg",
		},
		{
			name:    "root itself",
			srcRoot: "/home/demo",
			dstRoot: "/mnt/backup",
			srcPath: "/home/demo",
			want:    "/mnt/backup",
		},
		{
			name:    "unnormalized separators",
			srcRoot: "/home/demo/",
			dstRoot: "/mnt/backup",
			srcPath: "/home//demo/./a.pdf",
			want:    "/mnt/backup/a.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Map(tt.srcRoot, tt.dstRoot, tt.srcPath)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapOutsideRoot(t *testing.T) {
	cases := []struct {
		srcRoot string
		srcPath string
	}{
		{"/home/demo", "/home/other/file.txt"},
		{"/home/demo", "/home"},
		{"/home/demo", "/var/home/demo/file.txt"},
		{"/home/demo", "/home/demo/../other/file.txt"}, // cleans to /home/other
	}

	for _, tt := range cases {
		_, err := Map(tt.srcRoot, "/mnt/backup", tt.srcPath)
		require.Error(t, err, "path %s", tt.srcPath)
		assert.ErrorIs(t, err, ErrOutsideRoot)
	}
}

// The relative suffix must survive the mapping byte-identical.
func TestMapRoundTrip(t *testing.T) {
	srcRoot := "/home/demo"
	dstRoot := "/mnt/backup"

	rels := []string{
		"a.txt",
		"Documents/MiXeD Case/File NAME.PDF",
		"deep/b/c/d/e/f/g.mp3",
	}

	for _, rel := range rels {
		src := filepath.Join(srcRoot, rel)
		got, err := Map(srcRoot, dstRoot, src)
		require.NoError(t, err)

		suffix := strings.TrimPrefix(got, dstRoot+string(filepath.Separator))
		assert.Equal(t, filepath.Clean(rel), suffix)
	}
}

func TestRel(t *testing.T) {
	rel, err := Rel("/home/demo", "/home/demo/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("a", "b.txt"), rel)

	rel, err = Rel("/home/demo", "/home/demo")
	require.NoError(t, err)
	assert.Equal(t, ".", rel)
}
