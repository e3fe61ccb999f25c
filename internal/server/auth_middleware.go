package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/brk3/habitstreak/internal/logger"
)

var (
	errNoCredentials   = errors.New("no credentials")
	errUnknownProvider = errors.New("unknown auth provider")
	errInvalidToken    = errors.New("invalid id token")
	errUnknownAPIKey   = errors.New("unknown api key")
)

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.authenticate(w, r)
		if err != nil {
			logger.Debug("Authentication failed", "method", r.Method, "path", r.URL.Path, "error", err)
			s.denyAuth(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
	})
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate resolves the caller from an API key, the session cookie or a
// "provider:jwt" bearer token, in that order. An expired ID token is
// refreshed from the stored oauth2 token when possible; a refreshed session
// cookie is written back to w.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*User, error) {
	bearer := bearerToken(r)
	if strings.HasPrefix(bearer, apiKeyPrefix) {
		u, err := s.authenticateAPIKey(bearer)
		RecordAuthEvent("verification", authResult(err), "apikey")
		return u, err
	}

	tok, fromCookie, err := s.idTokenFromRequest(r, bearer)
	if err != nil {
		RecordAuthEvent("verification", "missing_token", "unknown")
		return nil, err
	}
	p, ok := s.authProviders[tok.Provider]
	if !ok {
		RecordAuthEvent("verification", "unknown_provider", "unknown")
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, tok.Provider)
	}

	idTok, err := p.verifier.Verify(r.Context(), tok.IDToken)
	if err == nil {
		RecordAuthEvent("verification", "success", p.id)
		return p.userFromIDToken(idTok)
	}
	RecordAuthEvent("verification", "failed", p.id)

	fresh, err := s.refreshIDToken(r.Context(), p, tok.IDToken)
	if err != nil {
		RecordAuthEvent("refresh", "failed", p.id)
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	idTok, err = p.verifier.Verify(r.Context(), fresh)
	if err != nil {
		RecordAuthEvent("refresh", "verification_failed", p.id)
		return nil, fmt.Errorf("%w: refreshed token: %v", errInvalidToken, err)
	}
	RecordAuthEvent("refresh", "success", p.id)

	if fromCookie {
		if err := s.sessions.write(w, providerToken{Provider: p.id, IDToken: fresh}); err != nil {
			logger.Error("Failed to rewrite refreshed session", "error", err)
		}
	}
	return p.userFromIDToken(idTok)
}

func authResult(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

func (s *Server) idTokenFromRequest(r *http.Request, bearer string) (providerToken, bool, error) {
	if tok, err := s.sessions.read(r); err == nil {
		return tok, true, nil
	} else if !errors.Is(err, http.ErrNoCookie) {
		logger.Debug("Ignoring unreadable session cookie", "error", err)
	}
	if bearer == "" {
		return providerToken{}, false, errNoCredentials
	}
	tok, err := parseProviderToken(bearer)
	if err != nil {
		return providerToken{}, false, fmt.Errorf("%w: bearer token: %v", errNoCredentials, err)
	}
	return tok, false, nil
}

// refreshIDToken exchanges the stored refresh token of the user behind an
// expired ID token for a new ID token. A refresh token the provider rejects
// is discarded.
func (s *Server) refreshIDToken(ctx context.Context, p *AuthProvider, expired string) (string, error) {
	old, err := p.lenient.Verify(ctx, expired)
	if err != nil {
		return "", err
	}
	userID := stableUserID(old.Issuer, old.Subject)

	stored, found, err := s.store.GetToken(userID)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if !found {
		return "", errors.New("no stored token")
	}

	fresh, err := p.oauth2.TokenSource(ctx, stored).Token()
	if err != nil {
		if delErr := s.store.DeleteToken(userID); delErr != nil {
			logger.Error("Failed to delete rejected token", "user_id", userID, "error", delErr)
		}
		return "", fmt.Errorf("refresh: %w", err)
	}
	if err := s.store.PutToken(userID, fresh); err != nil {
		logger.Error("Failed to persist refreshed token", "user_id", userID, "error", err)
	}

	raw, ok := rawIDToken(fresh)
	if !ok {
		return "", errors.New("no id_token in refreshed token")
	}
	logger.Debug("Refreshed ID token", "user_id", userID, "expiry", fresh.Expiry)
	return raw, nil
}

func (s *Server) authenticateAPIKey(key string) (*User, error) {
	keyHash := hashAPIKey(key)
	userID, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		return nil, fmt.Errorf("look up api key: %w", err)
	}
	if !found {
		return nil, errUnknownAPIKey
	}
	return &User{
		UserID:  userID,
		Subject: "apikey:" + keyDisplay(keyHash),
		Method:  "apikey",
	}, nil
}

// denyAuth redirects browsers to the login page and answers API clients
// with 401. A session holding a bad token is cleared.
func (s *Server) denyAuth(w http.ResponseWriter, r *http.Request, err error) {
	badToken := errors.Is(err, errInvalidToken) || errors.Is(err, errUnknownProvider)
	if badToken {
		clearSession(w)
	}

	accept := r.Header.Get("Accept")
	if r.Method == http.MethodGet && (accept == "" || strings.Contains(accept, "text/html")) {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}
	if badToken {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	} else {
		w.Header().Set("WWW-Authenticate", `Bearer realm="habits"`)
	}
	writeError(w, http.StatusUnauthorized, "unauthorized")
}
