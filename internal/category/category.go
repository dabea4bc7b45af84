// Package category maps file extensions to the backup categories a user
// can select. The extension table is closed: each known extension
// belongs to exactly one category, and unknown extensions match nothing.
package category

import "strings"

// Category identifies one selectable group of file extensions.
type Category int

const (
	OldOfficeDoc Category = iota
	NewOfficeDoc
	Pdf
	Image
	Video
	Audio
	numCategories
)

var names = [...]string{
	OldOfficeDoc: "old-office",
	NewOfficeDoc: "new-office",
	Pdf:          "pdf",
	Image:        "image",
	Video:        "video",
	Audio:        "audio",
}

func (c Category) String() string {
	if c >= 0 && int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// extensions holds the static category table. Extensions are stored
// lowercase without a leading dot.
var extensions = map[Category][]string{
	OldOfficeDoc: {"doc", "xls", "ppt"},
	NewOfficeDoc: {"docx", "xlsx", "pptx"},
	Pdf:          {"pdf"},
	Image:        {"jpg", "jpeg", "png", "webp", "bmp"},
	Video:        {"mp4", "avi", "mov", "wmv", "flv", "mkv", "webm", "mpeg"},
	Audio:        {"mp3", "wav", "ogg", "flac", "aac", "m4a", "wma"},
}

// byExtension is the inverted table, built once at init.
var byExtension = func() map[string]Category {
	m := make(map[string]Category)
	for cat, exts := range extensions {
		for _, ext := range exts {
			m[ext] = cat
		}
	}
	return m
}()

// Classify returns the category owning ext. Comparison is
// case-insensitive and a leading dot is ignored. The second return is
// false for unrecognized extensions.
func Classify(ext string) (Category, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	cat, ok := byExtension[ext]
	return cat, ok
}

// Extensions returns the extension list for c. The returned slice must
// not be modified.
func Extensions(c Category) []string {
	return extensions[c]
}

// Parse resolves a CLI name to a category. Accepted names are the
// String() forms plus a few common aliases.
func Parse(name string) (Category, bool) {
	switch strings.ToLower(name) {
	case "old-office", "doc", "docs":
		return OldOfficeDoc, true
	case "new-office", "docx", "office":
		return NewOfficeDoc, true
	case "pdf":
		return Pdf, true
	case "image", "images":
		return Image, true
	case "video", "videos":
		return Video, true
	case "audio", "music":
		return Audio, true
	}
	return 0, false
}

// Set is a value-type selection of categories. The zero Set selects
// nothing.
type Set struct {
	mask uint
}

// NewSet builds a Set from the given categories.
func NewSet(cats ...Category) Set {
	var s Set
	for _, c := range cats {
		s.mask |= 1 << uint(c)
	}
	return s
}

// All returns a Set selecting every defined category. The expansion
// happens here, at construction time: a Set built by All keeps selecting
// exactly the categories that existed when it was built.
func All() Set {
	var cats []Category
	for c := Category(0); c < numCategories; c++ {
		cats = append(cats, c)
	}
	return NewSet(cats...)
}

// Has reports whether c is selected.
func (s Set) Has(c Category) bool {
	return s.mask&(1<<uint(c)) != 0
}

// Add returns a Set with c selected in addition to s.
func (s Set) Add(c Category) Set {
	s.mask |= 1 << uint(c)
	return s
}

// Empty reports whether no category is selected.
func (s Set) Empty() bool {
	return s.mask == 0
}

// String lists the selected category names, comma separated.
func (s Set) String() string {
	var parts []string
	for c := Category(0); c < numCategories; c++ {
		if s.Has(c) {
			parts = append(parts, c.String())
		}
	}
	return strings.Join(parts, ",")
}
