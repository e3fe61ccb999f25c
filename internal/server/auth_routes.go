package server

import (
	"crypto/rand"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/brk3/habitstreak/internal/logger"
)

var loginPage = template.Must(template.New("login").Parse(`<h1>Login</h1>
<style>button{display:block;margin:10px 0;padding:10px 20px;}</style>
{{range .}}<form action="/auth/login/{{.ID}}"><button>{{.Name}}</button></form>
{{end}}`))

// provider resolves the {id} URL parameter, writing 404 for unknown providers.
func (s *Server) provider(w http.ResponseWriter, r *http.Request) (*AuthProvider, bool) {
	p, ok := s.authProviders[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown auth provider")
		return nil, false
	}
	return p, true
}

// safeReturnPath keeps post-login redirects on this host.
func safeReturnPath(ret string) string {
	if ret == "" {
		return "/"
	}
	u, err := url.Parse(ret)
	if err != nil || u.IsAbs() || u.Host != "" || strings.HasPrefix(ret, "//") {
		return "/"
	}
	return ret
}

func (s *Server) loginChooser(w http.ResponseWriter, r *http.Request) {
	type entry struct{ ID, Name string }
	entries := make([]entry, 0, len(s.authProviders))
	for id, p := range s.authProviders {
		entries = append(entries, entry{ID: id, Name: p.name})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.Name, b.Name) })
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginPage.Execute(w, entries); err != nil {
		logger.Error("Failed to render login page", "error", err)
	}
}

// login starts an authorization code flow with PKCE.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	p, ok := s.provider(w, r)
	if !ok {
		return
	}
	state := rand.Text()
	verifier := oauth2.GenerateVerifier()
	p.logins.add(state, pendingLogin{
		verifier: verifier,
		returnTo: safeReturnPath(r.URL.Query().Get("return")),
	})
	http.Redirect(w, r, p.oauth2.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)), http.StatusFound)
}

// callback finishes the flow: it exchanges the code, stores the oauth2 token
// for refresh and calendar sync, and sets the session cookie.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	p, ok := s.provider(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		writeError(w, http.StatusBadRequest, "missing state or code")
		return
	}
	pending, ok := p.logins.take(state)
	if !ok {
		RecordAuthEvent("login", "bad_state", p.id)
		writeError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}

	tok, err := p.oauth2.Exchange(r.Context(), code, oauth2.VerifierOption(pending.verifier))
	if err != nil {
		logger.Warn("Code exchange failed", "provider", p.id, "error", err)
		RecordAuthEvent("login", "exchange_failed", p.id)
		writeError(w, http.StatusBadGateway, "code exchange failed")
		return
	}
	raw, ok := rawIDToken(tok)
	if !ok {
		writeError(w, http.StatusBadGateway, "no id_token in response")
		return
	}
	idTok, err := p.verifier.Verify(r.Context(), raw)
	if err != nil {
		RecordAuthEvent("login", "invalid_token", p.id)
		writeError(w, http.StatusUnauthorized, "id_token invalid")
		return
	}
	user, err := p.userFromIDToken(idTok)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "id_token claims invalid")
		return
	}

	if err := s.store.PutToken(user.UserID, tok); err != nil {
		logger.Error("Failed to store oauth2 token", "user_id", user.UserID, "error", err)
	}
	s.recordLogin(user)
	if err := s.sessions.write(w, providerToken{Provider: p.id, IDToken: raw}); err != nil {
		logger.Error("Failed to write session", "error", err)
		writeError(w, http.StatusInternalServerError, "session encoding failed")
		return
	}
	RecordAuthEvent("login", "success", p.id)
	logger.Info("User logged in", "user_id", user.UserID, "provider", p.id)
	http.Redirect(w, r, pending.returnTo, http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	clearSession(w)
	RecordAuthEvent("logout", "success", "session")
	w.WriteHeader(http.StatusNoContent)
}

// sessionToken prints the "provider:jwt" bearer token of the current
// session for use by scripts.
func (s *Server) sessionToken(w http.ResponseWriter, r *http.Request) {
	tok, err := s.sessions.read(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(tok.String()))
}
