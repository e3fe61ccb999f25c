package server

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	sessionCookieName = "session"
	sessionMaxAge     = 24 * time.Hour
)

// providerToken is an ID token tagged with the provider that issued it. It
// travels as "provider:jwt" in the session cookie and in bearer headers.
type providerToken struct {
	Provider string
	IDToken  string
}

func (t providerToken) String() string {
	return t.Provider + ":" + t.IDToken
}

func parseProviderToken(s string) (providerToken, error) {
	provider, jwt, ok := strings.Cut(s, ":")
	switch {
	case !ok:
		return providerToken{}, errors.New("want provider:jwt")
	case provider == "":
		return providerToken{}, errors.New("empty provider")
	case jwt == "":
		return providerToken{}, errors.New("empty id token")
	}
	return providerToken{Provider: provider, IDToken: jwt}, nil
}

type sessionCodec struct {
	sc *securecookie.SecureCookie
}

// newSessionCodec derives the cookie keys from secret, or generates random
// ones when secret is empty.
func newSessionCodec(secret string) (*sessionCodec, error) {
	var hashKey, blockKey []byte
	if secret != "" {
		h := sha256.Sum256([]byte("hash:" + secret))
		b := sha256.Sum256([]byte("block:" + secret))
		hashKey, blockKey = h[:], b[:]
	} else {
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, errors.New("failed to generate session keys")
		}
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionMaxAge.Seconds()))
	return &sessionCodec{sc: sc}, nil
}

func (c *sessionCodec) read(r *http.Request) (providerToken, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return providerToken{}, err
	}
	var raw string
	if err := c.sc.Decode(sessionCookieName, cookie.Value, &raw); err != nil {
		return providerToken{}, fmt.Errorf("decode session: %w", err)
	}
	return parseProviderToken(raw)
}

func (c *sessionCodec) write(w http.ResponseWriter, t providerToken) error {
	val, err := c.sc.Encode(sessionCookieName, t.String())
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	})
	return nil
}

func clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// pendingLogin is what login remembers for callback, keyed by oauth2 state.
type pendingLogin struct {
	verifier string
	returnTo string
	expires  time.Time
}

// loginStore holds pending logins until their callback arrives. Expired
// entries are swept on insert, so no background goroutine is needed.
type loginStore struct {
	ttl time.Duration
	now func() time.Time

	mu sync.Mutex
	m  map[string]pendingLogin
}

func newLoginStore(ttl time.Duration) *loginStore {
	return &loginStore{ttl: ttl, now: time.Now, m: make(map[string]pendingLogin)}
}

func (l *loginStore) add(state string, p pendingLogin) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, v := range l.m {
		if now.After(v.expires) {
			delete(l.m, k)
		}
	}
	p.expires = now.Add(l.ttl)
	l.m[state] = p
}

// take returns and forgets the login for state. A state is usable once.
func (l *loginStore) take(state string) (pendingLogin, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.m[state]
	if !ok {
		return pendingLogin{}, false
	}
	delete(l.m, state)
	if l.now().After(p.expires) {
		return pendingLogin{}, false
	}
	return p, true
}
