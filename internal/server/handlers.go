package server

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/zeybek/gopaste/internal/config"
	"github.com/zeybek/gopaste/internal/mimeutil"
	"github.com/zeybek/gopaste/internal/paste"
	"github.com/zeybek/gopaste/internal/storage"
)

// notFound writes the shared 404 response for missing or expired files.
func notFound(w http.ResponseWriter) {
	http.Error(w, "file is not found or expired :(", http.StatusNotFound)
}

// handleIndex shows the landing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cfg := s.holder.Load()
	landing := cfg.LandingPage
	if landing == nil && cfg.Server.LandingPage != nil {
		landing = &config.LandingPageConfig{Text: *cfg.Server.LandingPage}
		if cfg.Server.LandingPageContentType != nil {
			landing.ContentType = *cfg.Server.LandingPageContentType
		}
	}
	if landing == nil {
		http.Redirect(w, r, Homepage, http.StatusFound)
		return
	}

	contentType := landing.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	body := []byte(landing.Text)
	if landing.File != "" {
		read, err := os.ReadFile(landing.File)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to read landing page file")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		body = read
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(body)
}

// handleUpload processes multipart/form-data uploads; the form field name
// selects the paste kind. One URL per accepted part is returned.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	cfg := s.holder.Load()
	if !requestGrants(r).Has(GrantAuth) {
		s.unauthorized(w, r)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "invalid multipart data", http.StatusBadRequest)
		return
	}
	expiry, err := parseExpiry(r, cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	overrideName := r.Header.Get(FilenameHeader)

	var response strings.Builder
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, "invalid multipart data", http.StatusBadRequest)
			return
		}

		kind, known := paste.KindFromFormField(part.FormName())
		if !known {
			s.logger.Warn().Str("from", r.RemoteAddr).Str("field", part.FormName()).
				Msg("invalid form field received")
			http.Error(w, "invalid form field", http.StatusBadRequest)
			return
		}

		data, err := readPart(part, int64(cfg.Server.MaxContentLength))
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if len(data) == 0 {
			http.Error(w, "invalid file size", http.StatusBadRequest)
			return
		}

		var served string
		switch kind {
		case paste.File, paste.Oneshot:
			fileName := part.FileName()
			if fileName == "" && overrideName == "" {
				http.Error(w, "file data not present", http.StatusBadRequest)
				return
			}
			served, err = paste.Paste{Data: data, Kind: kind}.StoreFile(fileName, expiry, overrideName, cfg)
		case paste.RemoteFile:
			served, err = paste.StoreRemote(r.Context(), data, expiry, s.client, cfg)
		case paste.Url, paste.OneshotUrl:
			served, err = paste.Paste{Data: data, Kind: kind}.StoreURL(expiry, cfg)
		}
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if password := r.Header.Get(PasswordHeader); password != "" {
			if err := s.protectFile(kind, served, password, cfg); err != nil {
				s.logger.Error().Err(err).Msg("failed to store password hash")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
		}

		s.logger.Info().
			Str("file", served).
			Str("size", humanize.Bytes(uint64(len(data)))).
			Str("from", r.RemoteAddr).
			Msgf("%s is uploaded", kind)
		fmt.Fprintf(&response, "%s/%s\n", serverURL(r, cfg), served)
	}

	io.WriteString(w, response.String())
}

// handleServe serves a stored file, redirects for URL pastes, and consumes
// one-shots.
func (s *Server) handleServe(w http.ResponseWriter, r *http.Request) {
	cfg := s.holder.Load()
	fileName := chi.URLParam(r, "file")
	if strings.HasSuffix(fileName, paste.PasswordFileSuffix) {
		notFound(w)
		return
	}

	path, err := storage.SafeJoin(cfg.Server.UploadPath, fileName)
	if err != nil {
		notFound(w)
		return
	}
	if resolved := storage.ResolveTimestamped(path); isRegularFile(resolved) {
		if !s.passwordAuthorized(r, path) {
			s.unauthorized(w, r)
			return
		}
		s.serveFile(w, r, resolved, fileName, cfg)
		return
	}
	for _, kind := range []paste.Kind{paste.Url, paste.Oneshot, paste.OneshotUrl} {
		candidate, err := storage.SafeJoin(kind.Path(cfg.Server.UploadPath), fileName)
		if err != nil {
			continue
		}
		resolved := storage.ResolveTimestamped(candidate)
		if !isRegularFile(resolved) {
			continue
		}
		// the password gate runs before any one-shot is consumed
		if !s.passwordAuthorized(r, candidate) {
			s.unauthorized(w, r)
			return
		}
		switch kind {
		case paste.Oneshot:
			s.serveOneshot(w, r, resolved, fileName, cfg)
		case paste.Url:
			s.redirect(w, r, resolved)
		case paste.OneshotUrl:
			tombstone, ok := consume(resolved)
			if !ok {
				notFound(w)
				return
			}
			s.redirect(w, r, tombstone)
		}
		return
	}
	notFound(w)
}

// serveFile streams a stored paste body.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, fileName string, cfg *config.Config) {
	f, err := os.Open(path)
	if err != nil {
		notFound(w)
		return
	}
	defer f.Close()
	s.writeFileResponse(w, r, f, fileName, cfg)
}

// serveOneshot streams the paste body at most once. The tombstone rename is
// the serialization point: of any number of concurrent downloads only the
// one whose rename succeeds gets the bytes.
func (s *Server) serveOneshot(w http.ResponseWriter, r *http.Request, path, fileName string, cfg *config.Config) {
	f, err := os.Open(path)
	if err != nil {
		notFound(w)
		return
	}
	defer f.Close()
	if _, ok := consume(path); !ok {
		notFound(w)
		return
	}
	s.writeFileResponse(w, r, f, fileName, cfg)
}

func (s *Server) writeFileResponse(w http.ResponseWriter, r *http.Request, f *os.File, fileName string, cfg *config.Config) {
	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	contentType := mimeutil.TypeByName(cfg.Paste.MimeOverride, fileName)
	if r.URL.Query().Get("download") == "true" {
		contentType = "application/octet-stream"
	} else if strings.HasPrefix(contentType, "text/") && !strings.Contains(contentType, "charset") {
		contentType += "; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// consume tombstones a one-shot artifact by renaming it with an expiry of
// "now". At most one concurrent caller wins the rename.
func consume(path string) (string, bool) {
	tombstone := path + "." + strconv.FormatInt(storage.NowMillis(), 10)
	if err := os.Rename(path, tombstone); err != nil {
		return "", false
	}
	return tombstone, true
}

// protectFile writes the password sidecar next to a freshly stored paste.
// The sidecar is keyed on the served name, not the timestamped disk name.
func (s *Server) protectFile(kind paste.Kind, served, password string, cfg *config.Config) error {
	base, err := storage.SafeJoin(kind.Path(cfg.Server.UploadPath), served)
	if err != nil {
		return err
	}
	return paste.StorePasswordHash(base, password)
}

// passwordAuthorized is true for unprotected files and for requests
// carrying the matching password header.
func (s *Server) passwordAuthorized(r *http.Request, basePath string) bool {
	if !paste.HasPassword(basePath) {
		return true
	}
	password := r.Header.Get(PasswordHeader)
	if password == "" {
		return false
	}
	ok, err := paste.VerifyFilePassword(basePath, password)
	return err == nil && ok
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		notFound(w)
		return
	}
	http.Redirect(w, r, strings.TrimSpace(string(data)), http.StatusFound)
}

// handleDelete removes a stored file. The grants middleware has already
// disabled the endpoint when no delete_tokens are configured.
//
// Directories are probed in KindPaths order {root, Oneshot, Url,
// OneshotUrl}, which differs from handleServe's {root, Url, Oneshot,
// OneshotUrl}. The collision check is per kind directory, so the same name
// may exist in several of them; only the first hit in this order is removed.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	cfg := s.holder.Load()
	if !requestGrants(r).Has(GrantDelete) {
		s.unauthorized(w, r)
		return
	}
	fileName := chi.URLParam(r, "file")
	if strings.HasSuffix(fileName, paste.PasswordFileSuffix) {
		notFound(w)
		return
	}

	for _, base := range paste.KindPaths(cfg.Server.UploadPath) {
		candidate, err := storage.SafeJoin(base, fileName)
		if err != nil {
			continue
		}
		resolved := storage.ResolveTimestamped(candidate)
		if !isRegularFile(resolved) {
			continue
		}
		if err := os.Remove(resolved); err != nil {
			s.logger.Error().Err(err).Str("file", fileName).Msg("failed to delete file")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if err := paste.DeletePasswordFile(candidate); err != nil {
			s.logger.Error().Err(err).Str("file", fileName).Msg("failed to delete password file")
		}
		s.logger.Info().Str("file", fileName).Str("from", r.RemoteAddr).Msg("file is deleted")
		io.WriteString(w, "file deleted\n")
		return
	}
	notFound(w)
}

// handleVersion exposes the server version when enabled.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	cfg := s.holder.Load()
	if !requestGrants(r).Has(GrantAuth) {
		s.unauthorized(w, r)
		return
	}
	if !cfg.Server.ExposeVersion {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	fmt.Fprintf(w, "gopaste %s\n", s.version)
}

// listItem is one entry of the JSON file index.
type listItem struct {
	FileName        string     `json:"file_name"`
	FileSize        int64      `json:"file_size"`
	CreationDateUTC *time.Time `json:"creation_date_utc,omitempty"`
	ExpiresAtUTC    *time.Time `json:"expires_at_utc,omitempty"`
}

// handleList returns the JSON index of stored files when enabled.
// Expired and tombstoned entries are filtered out.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	cfg := s.holder.Load()
	if !requestGrants(r).Has(GrantAuth) {
		s.unauthorized(w, r)
		return
	}
	if !cfg.Server.ExposeList {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	entries, err := os.ReadDir(cfg.Server.UploadPath)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	items := make([]listItem, 0, len(entries))
	now := storage.NowMillis()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, paste.PasswordFileSuffix) {
			continue
		}
		item := listItem{FileName: name}
		if millis, ok := storage.ExpiryMillis(name); ok {
			if now > millis {
				continue
			}
			item.FileName = storage.TimestampExtension.ReplaceAllString(name, "")
			expiresAt := time.UnixMilli(millis).UTC()
			item.ExpiresAtUTC = &expiresAt
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		item.FileSize = info.Size()
		created := info.ModTime().UTC()
		item.CreationDateUTC = &created
		items = append(items, item)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// writeStoreError maps store errors onto the HTTP error table.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidPath storage.ErrInvalidPath
	switch {
	case errors.Is(err, paste.ErrFileExists):
		http.Error(w, "file already exists", http.StatusConflict)
	case errors.Is(err, paste.ErrTypeBlacklisted):
		s.logger.Warn().Str("from", r.RemoteAddr).Msg("blacklisted file type rejected")
		w.WriteHeader(http.StatusUnsupportedMediaType)
		io.WriteString(w, "this file type is not permitted")
	case errors.Is(err, paste.ErrUploadLimit):
		s.logger.Warn().Str("from", r.RemoteAddr).Msg("upload rejected due to exceeded limit")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		io.WriteString(w, "upload limit exceeded")
	case errors.Is(err, paste.ErrInvalidURL),
		errors.Is(err, paste.ErrAddressBlocked),
		errors.Is(err, paste.ErrInvalidFilename),
		errors.As(err, &invalidPath):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error().Err(err).Msg("failed to store paste")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// readPart buffers one multipart part, enforcing the size cap.
func readPart(part *multipart.Part, maxLength int64) ([]byte, error) {
	if maxLength <= 0 {
		maxLength = math.MaxInt64 - 1
	}
	data, err := io.ReadAll(io.LimitReader(part, maxLength+1))
	if err != nil {
		return nil, errors.Wrap(err, "read upload body")
	}
	if int64(len(data)) > maxLength {
		return nil, paste.ErrUploadLimit
	}
	return data, nil
}

// serverURL is the base of the URLs returned after an upload.
func serverURL(r *http.Request, cfg *config.Config) string {
	if cfg.Server.URL != "" {
		return strings.TrimSuffix(cfg.Server.URL, "/")
	}
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
