// Package config holds the server settings and their hot-reload machinery.
package config

import (
	"crypto/rand"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/zeybek/gopaste/internal/mimeutil"
)

// Environment variables consumed at start-up.
const (
	ConfigEnv      = "CONFIG"
	AuthTokenEnv   = "AUTH_TOKEN"
	DeleteTokenEnv = "DELETE_TOKEN"
)

// DefaultCleanupInterval is used when [paste].delete_expired_files sets none.
const DefaultCleanupInterval = time.Minute

// Duration reads humanized durations ("5m", "2h", "7d") from TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := str2duration.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// ByteSize reads humanized sizes ("10MB", "1gib") from TOML.
type ByteSize uint64

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := humanize.ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = ByteSize(parsed)
	return nil
}

// SpaceHandling is the strategy for spaces in served file names.
type SpaceHandling string

// Known space handling strategies.
const (
	SpaceEncode  SpaceHandling = "encode"
	SpaceReplace SpaceHandling = "replace"
)

// Process applies the strategy to fileName.
func (s SpaceHandling) Process(fileName string) string {
	switch s {
	case SpaceEncode:
		return strings.ReplaceAll(fileName, " ", "%20")
	case SpaceReplace:
		return strings.ReplaceAll(fileName, " ", "_")
	}
	return fileName
}

// Config is the root of the configuration file.
type Config struct {
	Settings    *Settings          `toml:"config"`
	Server      ServerConfig       `toml:"server"`
	Paste       PasteConfig        `toml:"paste"`
	LandingPage *LandingPageConfig `toml:"landing_page"`
}

// Settings are general knobs that concern the process itself.
type Settings struct {
	RefreshRate Duration `toml:"refresh_rate"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Address          string        `toml:"address"`
	URL              string        `toml:"url"`
	MaxContentLength ByteSize      `toml:"max_content_length"`
	UploadPath       string        `toml:"upload_path"`
	Timeout          Duration      `toml:"timeout"`
	AuthToken        string        `toml:"auth_token"` // deprecated, use auth_tokens
	AuthTokens       []string      `toml:"auth_tokens"`
	ExposeVersion    bool          `toml:"expose_version"`
	ExposeList       bool          `toml:"expose_list"`
	DeleteTokens     []string      `toml:"delete_tokens"`
	HandleSpaces     SpaceHandling `toml:"handle_spaces"`

	// deprecated, use the [landing_page] table
	LandingPage            *string `toml:"landing_page"`
	LandingPageContentType *string `toml:"landing_page_content_type"`
}

// LandingPageConfig configures the response for "GET /".
type LandingPageConfig struct {
	Text        string `toml:"text"`
	File        string `toml:"file"`
	ContentType string `toml:"content_type"`
}

// PasteConfig configures the paste lifecycle.
type PasteConfig struct {
	RandomURL          *RandomURLConfig   `toml:"random_url"`
	DefaultExtension   string             `toml:"default_extension"`
	MimeOverride       []mimeutil.Matcher `toml:"mime_override"`
	MimeBlacklist      []string           `toml:"mime_blacklist"`
	DuplicateFiles     *bool              `toml:"duplicate_files"`
	DefaultExpiry      *Duration          `toml:"default_expiry"`
	DeleteExpiredFiles *CleanupConfig     `toml:"delete_expired_files"`
	FilenameAlphabet   string             `toml:"filename_alphabet"`
	FilenameForm       string             `toml:"filename_form"`
}

// AllowDuplicates reports whether identical uploads may coexist.
func (p PasteConfig) AllowDuplicates() bool {
	return p.DuplicateFiles == nil || *p.DuplicateFiles
}

// CleanupConfig configures the expired-file sweeper.
type CleanupConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval Duration `toml:"interval"`
}

// RandomURLType selects the random name generator.
type RandomURLType string

// Known generators.
const (
	RandomPetName      RandomURLType = "petname"
	RandomAlphanumeric RandomURLType = "alphanumeric"
)

// RandomURLConfig configures randomly generated served names.
// A nil RandomURLConfig means original file names are kept.
type RandomURLConfig struct {
	Enabled    *bool         `toml:"enabled"` // deprecated, comment the table out instead
	Words      int           `toml:"words"`
	Separator  string        `toml:"separator"`
	Length     int           `toml:"length"`
	Type       RandomURLType `toml:"type"`
	SuffixMode bool          `toml:"suffix_mode"`
}

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generate returns a fresh random name, or "" if random names are off.
func (r *RandomURLConfig) Generate() string {
	if r == nil || (r.Enabled != nil && !*r.Enabled) {
		return ""
	}
	switch r.Type {
	case RandomAlphanumeric:
		length := r.Length
		if length <= 0 {
			length = 8
		}
		name := make([]byte, length)
		rand.Read(name)
		for i, c := range name {
			name[i] = alphanumerics[int(c)%len(alphanumerics)]
		}
		return string(name)
	default:
		words := r.Words
		if words <= 0 {
			words = 2
		}
		separator := r.Separator
		if separator == "" {
			separator = "-"
		}
		return petname.Generate(words, separator)
	}
}

// UseSuffixMode reports whether the random name keeps the original stem.
func (r *RandomURLConfig) UseSuffixMode() bool {
	return r != nil && r.SuffixMode
}

// Load parses the configuration file at path and fills in defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1:8000"
	}
	if cfg.Paste.DefaultExtension == "" {
		cfg.Paste.DefaultExtension = "txt"
	}
	if cfg.Paste.DeleteExpiredFiles != nil && cfg.Paste.DeleteExpiredFiles.Interval.Duration == 0 {
		cfg.Paste.DeleteExpiredFiles.Interval = Duration{Duration: DefaultCleanupInterval}
	}
	return &cfg, nil
}

// TokenType distinguishes the two access token sets.
type TokenType int

// Token set selectors.
const (
	TokenAuth TokenType = iota
	TokenDelete
)

// Tokens retrieves all configured tokens of the given type, merging the
// configuration file with the environment. Blank tokens are dropped; an
// empty result is returned as nil, meaning "not configured".
func (c *Config) Tokens(tokenType TokenType) []string {
	var tokens []string
	switch tokenType {
	case TokenAuth:
		tokens = append(tokens, c.Server.AuthTokens...)
		if c.Server.AuthToken != "" {
			tokens = append(tokens, c.Server.AuthToken)
		}
		if envToken := os.Getenv(AuthTokenEnv); envToken != "" {
			tokens = append(tokens, envToken)
		}
	case TokenDelete:
		tokens = append(tokens, c.Server.DeleteTokens...)
		if envToken := os.Getenv(DeleteTokenEnv); envToken != "" {
			tokens = append(tokens, envToken)
		}
	}
	kept := tokens[:0]
	for _, token := range tokens {
		if strings.TrimSpace(token) != "" {
			kept = append(kept, token)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// WarnDeprecation logs a warning for every deprecated field still in use.
// Deprecated fields keep working; the load never fails because of them.
func (c *Config) WarnDeprecation(logger zerolog.Logger) {
	if c.Server.AuthToken != "" {
		logger.Warn().Msg("[server].auth_token is deprecated, please use [server].auth_tokens")
	}
	if c.Server.LandingPage != nil {
		logger.Warn().Msg("[server].landing_page is deprecated, please use [landing_page].text")
	}
	if c.Server.LandingPageContentType != nil {
		logger.Warn().Msg("[server].landing_page_content_type is deprecated, please use [landing_page].content_type")
	}
	if c.Paste.RandomURL != nil && c.Paste.RandomURL.Enabled != nil {
		logger.Warn().Msg("[paste].random_url.enabled is deprecated, disable it by commenting out [paste].random_url")
	}
}
