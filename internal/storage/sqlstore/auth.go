package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/brk3/habitstreak/pkg/habit"
)

func (s *Store) PutAPIKey(keyHash, userID string) error {
	_, err := s.db.Exec(s.rebind(`
		INSERT INTO api_keys (key_hash, user_id) VALUES (?, ?)
		ON CONFLICT (key_hash) DO UPDATE SET user_id = excluded.user_id`), keyHash, userID)
	return err
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.QueryRow(s.rebind(`SELECT user_id FROM api_keys WHERE key_hash = ?`), keyHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	rows, err := s.db.Query(s.rebind(`
		SELECT key_hash FROM api_keys WHERE user_id = ? ORDER BY key_hash`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAPIKey(keyHash string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM api_keys WHERE key_hash = ?`), keyHash)
	return err
}

func (s *Store) PutToken(userID string, tok *oauth2.Token) error {
	val, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.rebind(`
		INSERT INTO oauth_tokens (user_id, token) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET token = excluded.token`), userID, string(val))
	return err
}

func (s *Store) GetToken(userID string) (*oauth2.Token, bool, error) {
	var raw string
	err := s.db.QueryRow(s.rebind(`SELECT token FROM oauth_tokens WHERE user_id = ?`), userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tok := new(oauth2.Token)
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, false, fmt.Errorf("decode stored token: %w", err)
	}
	return tok, true, nil
}

func (s *Store) DeleteToken(userID string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM oauth_tokens WHERE user_id = ?`), userID)
	return err
}

func (s *Store) PutUser(p habit.UserProfile) error {
	_, err := s.db.Exec(s.rebind(`
		INSERT INTO users (user_id, email, full_name, picture_url, timezone, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name,
			picture_url = excluded.picture_url,
			timezone = excluded.timezone`),
		p.UserID, p.Email, p.FullName, p.PictureURL, p.Timezone, p.CreatedAt.UTC().Format(timeLayout))
	return err
}

func (s *Store) GetUser(userID string) (habit.UserProfile, bool, error) {
	var p habit.UserProfile
	var createdAt string
	err := s.db.QueryRow(s.rebind(`
		SELECT user_id, email, full_name, picture_url, timezone, created_at
		FROM users WHERE user_id = ?`), userID).
		Scan(&p.UserID, &p.Email, &p.FullName, &p.PictureURL, &p.Timezone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.UserProfile{}, false, nil
	}
	if err != nil {
		return habit.UserProfile{}, false, err
	}
	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return habit.UserProfile{}, false, fmt.Errorf("failed to parse created_at for user %s: %w", userID, err)
	}
	return p, true, nil
}
