// Package paste implements the paste lifecycle: naming, deduplication,
// expiry and the write path into the upload directory.
package paste

import "path/filepath"

// Kind is the type of data a paste stores, encoded on disk by the
// directory the paste lives in.
type Kind int

// Paste kinds.
const (
	// File is a regular paste in the upload root.
	File Kind = iota
	// RemoteFile is a mirrored remote URL, also stored in the upload root.
	RemoteFile
	// Oneshot may be downloaded exactly once.
	Oneshot
	// Url redirects to its stored target.
	Url
	// OneshotUrl redirects exactly once.
	OneshotUrl
)

// Kinds lists every paste kind.
var Kinds = []Kind{File, RemoteFile, Oneshot, Url, OneshotUrl}

// KindFromFormField maps a multipart form field name to a paste kind.
func KindFromFormField(field string) (Kind, bool) {
	switch field {
	case "file":
		return File, true
	case "remote":
		return RemoteFile, true
	case "oneshot":
		return Oneshot, true
	case "url":
		return Url, true
	case "oneshot_url":
		return OneshotUrl, true
	}
	return File, false
}

// Dir returns the kind's directory name beneath the upload root.
// File and RemoteFile live in the root itself.
func (k Kind) Dir() string {
	switch k {
	case Oneshot:
		return "oneshot"
	case Url:
		return "url"
	case OneshotUrl:
		return "oneshot_url"
	}
	return ""
}

// Path returns the kind's directory with base adjoined.
func (k Kind) Path(base string) string {
	dir := k.Dir()
	if dir == "" {
		return base
	}
	return filepath.Join(base, dir)
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case RemoteFile:
		return "remote file"
	case Oneshot:
		return "oneshot"
	case Url:
		return "url"
	case OneshotUrl:
		return "oneshot url"
	}
	return "file"
}

// KindPaths returns every distinct directory pastes are stored in.
func KindPaths(base string) []string {
	paths := []string{base}
	for _, kind := range Kinds {
		if kind.Dir() != "" {
			paths = append(paths, kind.Path(base))
		}
	}
	return paths
}
