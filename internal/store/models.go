package store

import "time"

// SavedSession is the persisted login. User is the JSON the backend returned.
type SavedSession struct {
	Token     string
	UserJSON  string
	APIURL    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s SavedSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Preference struct {
	Key   string
	Value string
}

type ExportRecord struct {
	ID        int64
	Resource  string
	Format    string
	Path      string
	Rows      int
	CreatedAt time.Time
}
