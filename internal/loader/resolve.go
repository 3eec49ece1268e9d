package loader

import (
	"net/url"
	"path/filepath"
	"strings"
)

// IsRemote reports whether source is an http or https URL.
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// FilePath strips a "file://" prefix from a local source.
func FilePath(source string) string {
	return strings.TrimPrefix(source, "file://")
}

// Resolve turns a children reference into a loadable source.
//
// Absolute URLs and absolute paths are returned as they are. A relative
// reference resolves against the document it appeared in: URL resolution
// for remote documents, the document's directory for local ones.
func Resolve(base, ref string) string {
	if ref == "" || base == "" || IsRemote(ref) || strings.HasPrefix(ref, "file://") {
		return ref
	}

	if IsRemote(base) {
		b, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return b.ResolveReference(r).String()
	}

	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(FilePath(base)), ref)
}
