package contents

import (
	"path"
	"strings"
)

// CleanPath normalizes a content path: forward slashes, no leading or
// trailing slash, dot segments resolved. Returns ErrInvalidPath for paths
// that escape the root. The empty string names the root directory.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", nil
	}

	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", pathErr("clean", p, ErrInvalidPath)
	}
	return cleaned, nil
}

// BaseName returns the last segment of a content path.
func BaseName(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// DirName returns the parent directory of a content path, "" for the root.
func DirName(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// IsHidden returns true if any path segment is dot-prefixed.
func IsHidden(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}
