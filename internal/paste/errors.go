package paste

import "errors"

// Errors surfaced by the store operations. The HTTP layer maps them onto
// response codes.
var (
	// ErrFileExists rejects an upload whose final name collides with a
	// live stored file.
	ErrFileExists = errors.New("file already exists")

	// ErrTypeBlacklisted rejects uploads whose sniffed media type is
	// blacklisted in the configuration.
	ErrTypeBlacklisted = errors.New("this file type is not permitted")

	// ErrUploadLimit rejects bodies exceeding max_content_length.
	ErrUploadLimit = errors.New("upload limit exceeded")

	// ErrInvalidURL rejects data that does not parse as an absolute
	// http(s) URL.
	ErrInvalidURL = errors.New("invalid url")

	// ErrAddressBlocked rejects remote URLs resolving to loopback,
	// private or otherwise non-routable addresses.
	ErrAddressBlocked = errors.New("URL address is not allowed")

	// ErrInvalidFilename rejects file names containing unprintable or
	// otherwise unsafe runes.
	ErrInvalidFilename = errors.New("invalid file name")
)
