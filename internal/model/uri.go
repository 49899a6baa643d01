package model

import (
	"net/url"
	"path/filepath"
	"runtime"
)

// PathToURI converts a file path to a canonical file:// URI.
// Relative paths are made absolute first so that every unit in the store is
// keyed by an absolute URI.
func PathToURI(path string) string {
	if path == "" {
		return ""
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	path = filepath.ToSlash(path)

	// On Windows, add extra slash for drive letter
	if runtime.GOOS == "windows" && len(path) >= 2 && path[1] == ':' {
		path = "/" + path
	}

	u := &url.URL{Scheme: "file", Path: path}
	return u.String()
}

// URIToPath converts a file:// URI back to a file path.
// Non-file URIs are returned unchanged.
func URIToPath(uri string) string {
	if uri == "" {
		return ""
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}

	path := u.Path

	// On Windows, remove leading slash before drive letter
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path)
}
