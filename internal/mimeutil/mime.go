// Package mimeutil decides the media type a stored file is served with.
package mimeutil

import (
	"mime"
	"path/filepath"
	"regexp"
)

const fallbackType = "application/octet-stream"

// Regexp wraps regexp.Regexp so it can be read straight from configuration.
type Regexp struct {
	*regexp.Regexp
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Regexp) UnmarshalText(text []byte) error {
	compiled, err := regexp.Compile(string(text))
	if err != nil {
		return err
	}
	r.Regexp = compiled
	return nil
}

// Matcher overrides the media type of file names matching a pattern.
type Matcher struct {
	MIME  string  `toml:"mime"`
	Regex *Regexp `toml:"regex"`
}

// TypeByName returns the media type for fileName.
//
// Matchers take precedence, first match wins; otherwise the type is derived
// from the file extension.
func TypeByName(matchers []Matcher, fileName string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(fileName))
	if mimeType == "" {
		mimeType = fallbackType
	}
	for _, matcher := range matchers {
		if matcher.Regex != nil && matcher.Regex.MatchString(fileName) {
			return matcher.MIME
		}
	}
	return mimeType
}
