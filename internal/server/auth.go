package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/zeybek/gopaste/internal/config"
)

// Grants is the set of access rights derived from the Authorization header.
type Grants uint8

// Grant bits.
const (
	// GrantAuth allows uploading and reading the protected endpoints.
	GrantAuth Grants = 1 << iota
	// GrantDelete allows removing stored files.
	GrantDelete
)

// Has reports whether all bits of grant are present.
func (g Grants) Has(grant Grants) bool { return g&grant == grant }

type contextKey int

const grantsKey contextKey = iota

// requestToken extracts the token from "Authorization: <scheme> <token>".
func requestToken(r *http.Request) string {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// grantsForToken checks token membership in both configured token sets.
// An unconfigured auth_tokens set grants access to everybody.
func grantsForToken(token string, cfg *config.Config) Grants {
	var grants Grants
	if tokens := cfg.Tokens(config.TokenAuth); tokens == nil {
		grants |= GrantAuth
	} else if tokenInSet(token, tokens) {
		grants |= GrantAuth
	}
	if tokenInSet(token, cfg.Tokens(config.TokenDelete)) {
		grants |= GrantDelete
	}
	return grants
}

func tokenInSet(token string, tokens []string) bool {
	if token == "" {
		return false
	}
	matched := false
	for _, candidate := range tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			matched = true
		}
	}
	return matched
}

// withGrants derives the request's grant set and stores it in the context.
// DELETE is explicitly not served at all while no delete_tokens are set.
func (s *Server) withGrants(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := s.holder.Load()
		if r.Method == http.MethodDelete && cfg.Tokens(config.TokenDelete) == nil {
			s.logger.Warn().Msg("delete endpoint is not served because there are no delete_tokens set")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		grants := grantsForToken(requestToken(r), cfg)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), grantsKey, grants)))
	})
}

func requestGrants(r *http.Request) Grants {
	grants, _ := r.Context().Value(grantsKey).(Grants)
	return grants
}

// unauthorized writes the 401 response and logs the failing host.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().Str("from", r.RemoteAddr).Msg("authorization failure")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
