package server

import (
	"net/http"

	"github.com/pkg/errors"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/zeybek/gopaste/internal/config"
	"github.com/zeybek/gopaste/internal/storage"
)

// Custom request headers.
const (
	// ExpireHeader supplies a per-upload expiry relative to now, in
	// humantime form ("5m", "2h").
	ExpireHeader = "expire"
	// FilenameHeader overrides the synthesized served name.
	FilenameHeader = "filename"
	// PasswordHeader protects an upload, and unlocks a protected file on
	// download.
	PasswordHeader = "password"
)

// parseExpiry returns the upload's expiry time in epoch milliseconds, from
// the expire header or the configured default. nil means eternal.
func parseExpiry(r *http.Request, cfg *config.Config) (*int64, error) {
	if value := r.Header.Get(ExpireHeader); value != "" {
		duration, err := str2duration.ParseDuration(value)
		if err != nil {
			return nil, errors.Wrap(err, "parse expiration date")
		}
		millis := storage.NowMillis() + duration.Milliseconds()
		return &millis, nil
	}
	if cfg.Paste.DefaultExpiry != nil {
		millis := storage.NowMillis() + cfg.Paste.DefaultExpiry.Milliseconds()
		return &millis, nil
	}
	return nil, nil
}
