package registry

import (
	"path/filepath"
	"slices"
)

// Compatible reports whether path's extension is one of e's formats.
// The comparison is exact and case-sensitive; a path without an extension matches nothing.
func Compatible(e Endpoint, path string) bool {
	ext := filepath.Ext(path)
	if ext == "" {
		return false
	}

	return slices.Contains(e.Formats, ext)
}
