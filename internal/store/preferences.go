package store

import (
	"database/sql"
	"strconv"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned for missing rows.
var ErrNotFound = errors.New("not found")

// Preference keys.
const (
	PrefPageSize     = "page_size"
	PrefExportFormat = "export_format"
	PrefExportDir    = "export_dir"
	PrefLastView     = "last_view"
)

func (s *Store) GetPreference(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(ErrNotFound, "preference %q", key)
	}
	if err != nil {
		return "", errors.Wrapf(err, "get preference %q", key)
	}
	return value, nil
}

// PreferenceInt reads an integer preference, returning fallback when it is
// missing or malformed.
func (s *Store) PreferenceInt(key string, fallback int) int {
	v, err := s.GetPreference(key)
	if err != nil {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Store) SetPreference(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return errors.Wrapf(err, "set preference %q", key)
	}
	return nil
}

func (s *Store) AllPreferences() ([]Preference, error) {
	rows, err := s.db.Query(`SELECT key, value FROM preferences ORDER BY key`)
	if err != nil {
		return nil, errors.Wrap(err, "list preferences")
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		var p Preference
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}
