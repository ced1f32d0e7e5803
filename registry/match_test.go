package registry_test

import (
	"testing"

	"github.com/nullptr-deref/dbus-sharing/registry"
)

func TestCompatible(t *testing.T) {
	viewer := registry.Endpoint{Name: "Viewer", Executable: "/bin/viewer", Formats: []string{".png", ".jpg"}}

	tests := []struct {
		path string
		want bool
	}{
		{"photo.jpg", true},
		{"/home/u/pics/photo.png", true},
		{"archive.tar.png", true},
		{"doc.pdf", false},
		{"photo.JPG", false},
		{"photo.jpgx", false},
		{"README", false},
		{"", false},
		{"trailingdot.", false},
		{"dir.png/file", false},
	}

	for _, tc := range tests {
		if got := registry.Compatible(viewer, tc.path); got != tc.want {
			t.Fatalf("Compatible(%q)=%v want %v", tc.path, got, tc.want)
		}
	}
}

func TestCompatible_NoFormats(t *testing.T) {
	if registry.Compatible(registry.Endpoint{Name: "Empty"}, "photo.jpg") {
		t.Fatalf("endpoint without formats accepted a file")
	}
}
