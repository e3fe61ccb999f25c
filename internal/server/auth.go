package server

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/brk3/habitstreak/internal/config"
	"github.com/brk3/habitstreak/internal/logger"
)

const (
	anonymousUserID = "anonymous"
	loginTTL        = 5 * time.Minute

	// calendarEventsScope lets stored tokens create and delete events.
	calendarEventsScope = "https://www.googleapis.com/auth/calendar.events"
)

// User is the authenticated caller. Name and Picture are only known for a
// fresh OIDC login.
type User struct {
	UserID   string
	Subject  string
	Email    string
	Name     string
	Picture  string
	Method   string
	Provider string
}

type userCtxKey struct{}

func withUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

func userFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*User)
	return u, ok && u != nil
}

// callerID is the user a request acts for. With auth disabled every request
// belongs to the anonymous user; with auth enabled an unauthenticated request
// yields "".
func (s *Server) callerID(r *http.Request) string {
	if !s.cfg.AuthEnabled {
		return anonymousUserID
	}
	if u, ok := userFromContext(r.Context()); ok {
		return u.UserID
	}
	logger.Error("No user in request context", "path", r.URL.Path)
	return ""
}

// stableUserID derives the storage user ID from the issuer and subject, so
// the same account maps to the same habits across logins.
func stableUserID(issuer, subject string) string {
	if issuer == "" || subject == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(issuer + "|" + subject))
	return fmt.Sprintf("user-%x", sum[:8])
}

// AuthProvider is one configured OIDC identity provider.
type AuthProvider struct {
	id     string
	name   string
	oauth2 *oauth2.Config
	// verifier checks fresh ID tokens; lenient skips the expiry check and
	// only identifies whose expired token is being refreshed.
	verifier *oidc.IDTokenVerifier
	lenient  *oidc.IDTokenVerifier
	logins   *loginStore
}

// defaultScopes are requested from a provider without configured scopes. The
// provider backing calendar sync also asks for calendar access.
func defaultScopes(withCalendar bool) []string {
	scopes := []string{oidc.ScopeOpenID, "email", "profile", oidc.ScopeOfflineAccess}
	if withCalendar {
		scopes = append(scopes, calendarEventsScope)
	}
	return scopes
}

func newAuthProviders(ctx context.Context, cfg *config.Config) (map[string]*AuthProvider, error) {
	calendarProvider, calendarOK := cfg.CalendarProvider()
	providers := make(map[string]*AuthProvider, len(cfg.OIDCProviders))
	for _, pc := range cfg.OIDCProviders {
		prov, err := oidc.NewProvider(ctx, pc.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("oidc provider %s: %w", pc.Id, err)
		}
		scopes := pc.Scopes
		if len(scopes) == 0 {
			withCalendar := cfg.Calendar.Enabled && (!calendarOK || calendarProvider.Id == pc.Id)
			scopes = defaultScopes(withCalendar)
		}
		name := pc.Name
		if name == "" {
			name = pc.Id
		}
		providers[pc.Id] = &AuthProvider{
			id:   pc.Id,
			name: name,
			oauth2: &oauth2.Config{
				ClientID:     pc.ClientID,
				ClientSecret: pc.ClientSecret,
				Endpoint:     prov.Endpoint(),
				RedirectURL:  pc.RedirectURL,
				Scopes:       scopes,
			},
			verifier: prov.Verifier(&oidc.Config{ClientID: pc.ClientID}),
			lenient:  prov.Verifier(&oidc.Config{ClientID: pc.ClientID, SkipExpiryCheck: true}),
			logins:   newLoginStore(loginTTL),
		}
		logger.Info("Configured OIDC provider", "id", pc.Id, "issuer", pc.IssuerURL)
	}
	return providers, nil
}

func (p *AuthProvider) userFromIDToken(tok *oidc.IDToken) (*User, error) {
	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("id token claims: %w", err)
	}
	id := stableUserID(tok.Issuer, tok.Subject)
	if id == "" {
		return nil, fmt.Errorf("%w: missing issuer or subject", errInvalidToken)
	}
	return &User{
		UserID:   id,
		Subject:  tok.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
		Method:   "oidc",
		Provider: p.id,
	}, nil
}

// rawIDToken pulls the id_token out of a token endpoint response.
func rawIDToken(tok *oauth2.Token) (string, bool) {
	raw, ok := tok.Extra("id_token").(string)
	return raw, ok && raw != ""
}

