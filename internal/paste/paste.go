package paste

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/zeybek/gopaste/internal/config"
	"github.com/zeybek/gopaste/internal/storage"
)

// Paste is a single upload on its way into the store.
type Paste struct {
	// Data holds the paste body. For Url and OneshotUrl kinds it is the
	// redirect target.
	Data []byte
	// Kind decides the directory the paste is stored in.
	Kind Kind
}

// StoreFile writes the paste into the upload directory and returns the
// served name.
//
// The sniffed media type is checked against the blacklist first. If the
// paste is of kind File, duplicates are disallowed and the upload carries
// no expiry, a stored file
// with the same checksum short-circuits the write; note the returned name is
// the canonical one, which may not match the name that was sent.
// overrideName, when set, replaces the synthesized name entirely.
// A collision with a live stored file fails with ErrFileExists.
func (p Paste) StoreFile(fileName string, expiryMillis *int64, overrideName string, cfg *config.Config) (string, error) {
	mediaType := mimetype.Detect(p.Data)
	for _, blacklisted := range cfg.Paste.MimeBlacklist {
		if mediaType.Is(blacklisted) {
			return "", ErrTypeBlacklisted
		}
	}

	if p.Kind == File && !cfg.Paste.AllowDuplicates() && expiryMillis == nil {
		if existing, ok := FindDuplicate(p.Data, cfg.Server.UploadPath); ok {
			return filepath.Base(existing), nil
		}
	}

	var served string
	if overrideName != "" {
		served = cfg.Server.HandleSpaces.Process(overrideName)
	} else {
		var err error
		served, err = SynthesizeName(fileName, p.Data, cfg)
		if err != nil {
			return "", err
		}
	}

	return served, p.persist(served, expiryMillis, cfg)
}

// StoreURL validates the paste body as an absolute http(s) URL and writes
// its string form into the url/oneshot_url directory.
//
// Without random names configured the file is simply named after the kind
// directory, so at most one URL of each kind exists at any time.
func (p Paste) StoreURL(expiryMillis *int64, cfg *config.Config) (string, error) {
	target, err := ParseURL(p.Data)
	if err != nil {
		return "", err
	}
	served := cfg.Paste.RandomURL.Generate()
	if served == "" {
		served = p.Kind.Dir()
	}
	p.Data = []byte(target.String())
	return served, p.persist(served, expiryMillis, cfg)
}

// persist writes the paste under the served name, appending the expiry
// timestamp to the on-disk name only.
func (p Paste) persist(served string, expiryMillis *int64, cfg *config.Config) error {
	targetDir := p.Kind.Path(cfg.Server.UploadPath)
	target, err := storage.SafeJoin(targetDir, served)
	if err != nil {
		return err
	}

	// a live sibling blocks the name; an expired one does not
	resolved := storage.ResolveTimestamped(target)
	if info, err := os.Stat(resolved); err == nil && info.Mode().IsRegular() {
		return ErrFileExists
	}

	diskName := served
	if expiryMillis != nil {
		diskName = served + "." + strconv.FormatInt(*expiryMillis, 10)
	}

	w, err := storage.IntentNew(targetDir, diskName)
	if err != nil {
		return errors.Wrap(err, "create upload")
	}
	defer w.Zap()
	if _, err := w.Write(p.Data); err != nil {
		return errors.Wrap(err, "write upload")
	}
	if err := w.Persist(); err != nil {
		if os.IsExist(errors.Cause(err)) {
			return ErrFileExists
		}
		return errors.Wrap(err, "persist upload")
	}
	return nil
}

// FindDuplicate returns the stored file whose contents equal data, if any.
// Tombstoned and expiring files never count, and neither do password
// sidecars.
func FindDuplicate(data []byte, uploadPath string) (string, bool) {
	sum, err := storage.Sha256Sum(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	scanned := storage.ScanDirectory(uploadPath)
	kept := scanned.Files[:0]
	for _, file := range scanned.Files {
		if !strings.HasSuffix(file.Path, PasswordFileSuffix) {
			kept = append(kept, file)
		}
	}
	scanned.Files = kept
	return scanned.FileByChecksum(sum)
}

// ParseURL validates data as an absolute http(s) URL.
func ParseURL(data []byte) (*url.URL, error) {
	if !utf8.Valid(data) {
		return nil, errors.Wrap(ErrInvalidURL, "not valid UTF-8")
	}
	raw := strings.TrimSpace(string(data))
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidURL, err.Error())
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, errors.Wrap(ErrInvalidURL, "relative URL without a base")
	}
	return parsed, nil
}
