package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateReturnsOnlyExisting(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".config", "google-chrome"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".mozilla", "firefox"), 0755))

	found := Locate(home)
	require.Len(t, found, 2)

	apps := []string{found[0].App, found[1].App}
	assert.ElementsMatch(t, []string{"chrome", "firefox"}, apps)
	for _, art := range found {
		info, err := os.Stat(art.Path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLocateEmptyHome(t *testing.T) {
	assert.Empty(t, Locate(t.TempDir()))
}

func TestLocateApp(t *testing.T) {
	arts := LocateApp("/home/demo", "brave")
	require.Len(t, arts, 1)
	assert.Equal(t, "/home/demo/.config/BraveSoftware/Brave-Browser", arts[0].Path)

	assert.Nil(t, LocateApp("/home/demo", "netscape"))
}

func TestAppsCoversTable(t *testing.T) {
	assert.ElementsMatch(t, []string{"chrome", "chromium", "firefox", "edge", "brave"}, Apps())
}
