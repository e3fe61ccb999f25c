package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brk3/habitstreak/internal/logger"
)

// API keys look like hab_live_<random>; only their sha256 is stored.
const (
	apiKeyPrefix     = "hab_"
	apiKeyLivePrefix = apiKeyPrefix + "live_"
)

func hashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// keyDisplay shortens a key hash for listings and logs.
func keyDisplay(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}

func newAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyLivePrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// generateAPIKey issues a new key for the caller. Only the hash is kept, so
// the plaintext is returned exactly once.
func (s *Server) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := s.callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	apiKey, err := newAPIKey()
	if err != nil {
		logger.Error("Failed to generate API key", "error", err)
		writeError(w, http.StatusInternalServerError, "key generation failed")
		return
	}
	keyHash := hashAPIKey(apiKey)
	if err := s.store.PutAPIKey(keyHash, userID); err != nil {
		logger.Error("Failed to store API key", "userID", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "database write failed")
		return
	}
	logger.Info("API key generated", "userID", userID, "keyHash", keyDisplay(keyHash))
	RecordAuthEvent("apikey", "generated", "apikey")

	if err := writeJSON(w, http.StatusOK, map[string]string{"api_key": apiKey}); err != nil {
		logger.Error("Failed to serialize API key response", "error", err)
	}
}

func (s *Server) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := s.callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	hashes, err := s.store.ListAPIKeyHashes(userID)
	if err != nil {
		logger.Error("Failed to list API keys", "userID", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	keys := make([]map[string]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, map[string]string{"key_hash": h, "display": keyDisplay(h)})
	}
	if err := writeJSON(w, http.StatusOK, map[string]any{"keys": keys}); err != nil {
		logger.Error("Failed to serialize API key list", "error", err)
	}
}

func (s *Server) revokeAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := s.callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	keyHash := chi.URLParam(r, "key_hash")

	owner, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		logger.Error("Failed to look up API key", "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	// another user's key is reported as missing
	if !found || owner != userID {
		writeError(w, http.StatusNotFound, "api key not found")
		return
	}
	if err := s.store.DeleteAPIKey(keyHash); err != nil {
		logger.Error("Failed to delete API key", "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	logger.Info("API key revoked", "userID", userID, "keyHash", keyDisplay(keyHash))
	RecordAuthEvent("apikey", "revoked", "apikey")
	w.WriteHeader(http.StatusNoContent)
}
