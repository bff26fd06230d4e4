// Path handling for the upload directory.
//
// Stored files may carry a trailing ".<millis>" extension that encodes their
// expiry date. Extensions of ten or more digits are reserved for this.

package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampExtension matches the expiry timestamp appended to file names.
var TimestampExtension = regexp.MustCompile(`\.[0-9]{10,}$`)

// ErrInvalidPath is returned when a request path would leave the upload root.
type ErrInvalidPath struct {
	Path string
}

// Error implements the error interface.
func (e ErrInvalidPath) Error() string { return "invalid path: " + e.Path }

// SafeJoin joins part onto base and lexically normalizes the result.
// Anything that does not remain a descendant of base is rejected.
func SafeJoin(base, part string) (string, error) {
	if part == "" || filepath.IsAbs(part) {
		return "", ErrInvalidPath{Path: part}
	}
	cleanBase := filepath.Clean(base)
	joined := filepath.Join(cleanBase, part)
	if joined == cleanBase || !strings.HasPrefix(joined, cleanBase+string(os.PathSeparator)) {
		return "", ErrInvalidPath{Path: part}
	}
	return joined, nil
}

// NowMillis returns the current time in milliseconds since the Unix epoch.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// ExpiryMillis parses the timestamp extension of name.
// The second return value is false if name carries none.
func ExpiryMillis(name string) (int64, bool) {
	suffix := TimestampExtension.FindString(name)
	if suffix == "" {
		return 0, false
	}
	millis, err := strconv.ParseInt(suffix[1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return millis, true
}

// ResolveTimestamped makes the timestamp extension invisible to callers.
//
// It strips any trailing timestamp from path, then looks for a sibling named
// "<path>.<digits>". If one exists and its timestamp is still in the future,
// the sibling is returned; in every other case the stripped path is returned.
func ResolveTimestamped(path string) string {
	stripped := TimestampExtension.ReplaceAllString(path, "")
	matches, err := filepath.Glob(stripped + ".[0-9]*")
	if err != nil || len(matches) == 0 {
		return stripped
	}
	candidate := matches[0]
	millis, ok := ExpiryMillis(candidate)
	if ok && NowMillis() < millis {
		return candidate
	}
	return stripped
}

// ExpiredFiles returns every file in dirs whose timestamp extension lies in
// the past. Unreadable directories are skipped.
func ExpiredFiles(dirs []string) []string {
	now := NowMillis()
	var expired []string
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.[0-9]*"))
		if err != nil {
			continue
		}
		for _, match := range matches {
			millis, ok := ExpiryMillis(match)
			if ok && now > millis {
				expired = append(expired, match)
			}
		}
	}
	return expired
}
