package contents

import (
	"errors"
	"testing"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"/", "", false},
		{".", "", false},
		{"notes.md", "notes.md", false},
		{"/notes.md", "notes.md", false},
		{"a/b/c.md", "a/b/c.md", false},
		{"a//b", "a/b", false},
		{"a/./b", "a/b", false},
		{"a/b/../c", "a/c", false},
		{"a\\b", "a/b", false},
		{"..", "", true},
		{"../escape", "", true},
		{"a/../..", "", true},
	}

	for _, tt := range tests {
		got, err := CleanPath(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPath) {
				t.Errorf("CleanPath(%q): expected ErrInvalidPath, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("CleanPath(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CleanPath(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"notes.md", "notes.md"},
		{"a/b/notes.md", "notes.md"},
	}
	for _, tt := range tests {
		if got := BaseName(tt.in); got != tt.want {
			t.Errorf("BaseName(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestDirName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"notes.md", ""},
		{"a/notes.md", "a"},
		{"a/b/notes.md", "a/b"},
	}
	for _, tt := range tests {
		if got := DirName(tt.in); got != tt.want {
			t.Errorf("DirName(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"notes.md", false},
		{".hidden", true},
		{"a/.hidden/b.md", true},
		{"a/b.md", false},
	}
	for _, tt := range tests {
		if got := IsHidden(tt.in); got != tt.want {
			t.Errorf("IsHidden(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestInferType(t *testing.T) {
	if got := InferType("analysis.ipynb"); got != TypeNotebook {
		t.Errorf("expected notebook, got %s", got)
	}
	if got := InferType("notes.md"); got != TypeFile {
		t.Errorf("expected file, got %s", got)
	}
}

func TestDetectMimetype(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"analysis.ipynb", "application/x-ipynb+json"},
		{"README", "text/plain"},
	}
	for _, tt := range tests {
		if got := DetectMimetype(tt.path); got != tt.want {
			t.Errorf("DetectMimetype(%q) = %q, expected %q", tt.path, got, tt.want)
		}
	}
}
