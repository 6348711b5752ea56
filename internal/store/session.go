package store

import (
	"database/sql"
	"time"

	"github.com/go-faster/errors"
)

// SaveSession replaces the persisted session.
func (s *Store) SaveSession(sess SavedSession) error {
	_, err := s.db.Exec(
		`INSERT INTO session (id, token, user_json, api_url, expires_at) VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			api_url = excluded.api_url,
			expires_at = excluded.expires_at,
			created_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')`,
		sess.Token, sess.UserJSON, sess.APIURL, sess.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

// LoadSession returns the persisted session or ErrNotFound.
func (s *Store) LoadSession() (*SavedSession, error) {
	var (
		sess             SavedSession
		expires, created string
	)
	err := s.db.QueryRow(
		`SELECT token, user_json, api_url, expires_at, created_at FROM session WHERE id = 1`,
	).Scan(&sess.Token, &sess.UserJSON, &sess.APIURL, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	if sess.ExpiresAt, err = time.Parse(time.RFC3339, expires); err != nil {
		return nil, errors.Wrap(err, "parse session expiry")
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &sess, nil
}

func (s *Store) ClearSession() error {
	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return errors.Wrap(err, "clear session")
	}
	return nil
}
