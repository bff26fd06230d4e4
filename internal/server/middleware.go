package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// limitContentLength rejects requests whose announced Content-Length
// exceeds max_content_length before the handler runs. The body itself is
// capped again while reading; this gate merely saves the work.
func (s *Server) limitContentLength(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := s.holder.Load()
		maxLength := int64(cfg.Server.MaxContentLength)
		if maxLength > 0 && r.ContentLength > maxLength {
			s.logger.Warn().
				Int64("content_length", r.ContentLength).
				Int64("limit", maxLength).
				Msg("upload rejected due to exceeded limit")
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			w.Write([]byte("upload limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests emits one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("from", r.RemoteAddr).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
