// Package browser supplies the well-known profile locations of common
// browsers. This is a static table lookup, not discovery logic: the
// replication engine copies whatever exists at these paths.
package browser

import (
	"os"
	"path/filepath"
)

// Artifact is one application's profile directory, resolved against a
// home directory.
type Artifact struct {
	App  string
	Path string
}

// locations maps application names to home-relative profile paths.
var locations = map[string][]string{
	"chrome":   {".config/google-chrome"},
	"chromium": {".config/chromium"},
	"firefox":  {".mozilla/firefox"},
	"edge":     {".config/microsoft-edge"},
	"brave":    {".config/BraveSoftware/Brave-Browser"},
}

// Apps returns the known application names.
func Apps() []string {
	apps := make([]string, 0, len(locations))
	for app := range locations {
		apps = append(apps, app)
	}
	return apps
}

// Locate resolves every known artifact path against home and returns
// those that exist on disk.
func Locate(home string) []Artifact {
	var found []Artifact
	for app, rels := range locations {
		for _, rel := range rels {
			path := filepath.Join(home, filepath.FromSlash(rel))
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				found = append(found, Artifact{App: app, Path: path})
			}
		}
	}
	return found
}

// LocateApp resolves a single application's artifact paths against
// home, existing or not. Unknown applications return nil.
func LocateApp(home, app string) []Artifact {
	rels, ok := locations[app]
	if !ok {
		return nil
	}
	arts := make([]Artifact, 0, len(rels))
	for _, rel := range rels {
		arts = append(arts, Artifact{App: app, Path: filepath.Join(home, filepath.FromSlash(rel))})
	}
	return arts
}
